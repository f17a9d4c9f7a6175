package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

func TestService_WebhookStats(t *testing.T) {
	tenantID := uuid.New()
	webhookID := uuid.New()
	lastTriggered := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		want      *WebhookStats
		wantErr   error
	}{
		{
			name: "full report",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT total_deliveries, successful_deliveries, failed_deliveries, last_triggered_at`).
					WithArgs(webhookID, tenantID).
					WillReturnRows(pgxmock.NewRows([]string{
						"total_deliveries", "successful_deliveries", "failed_deliveries", "last_triggered_at",
					}).AddRow(int64(100), int64(90), int64(10), &lastTriggered))

				mock.ExpectQuery(`GROUP BY status`).
					WithArgs(webhookID).
					WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
						AddRow("pending", int64(3)).
						AddRow("retrying", int64(2)))

				mock.ExpectQuery(`status = 'failed' AND updated_at >= \$2`).
					WithArgs(webhookID, pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))
			},
			want: &WebhookStats{
				WebhookID:            webhookID,
				TotalDeliveries:      100,
				SuccessfulDeliveries: 90,
				FailedDeliveries:     10,
				SuccessRate:          0.9,
				PendingDeliveries:    3,
				RetryingDeliveries:   2,
				FailuresLastHour:     4,
			},
		},
		{
			name: "no deliveries yet reports zero rate",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT total_deliveries, successful_deliveries, failed_deliveries, last_triggered_at`).
					WithArgs(webhookID, tenantID).
					WillReturnRows(pgxmock.NewRows([]string{
						"total_deliveries", "successful_deliveries", "failed_deliveries", "last_triggered_at",
					}).AddRow(int64(0), int64(0), int64(0), nil))

				mock.ExpectQuery(`GROUP BY status`).
					WithArgs(webhookID).
					WillReturnRows(pgxmock.NewRows([]string{"status", "count"}))

				mock.ExpectQuery(`status = 'failed' AND updated_at >= \$2`).
					WithArgs(webhookID, pgxmock.AnyArg()).
					WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
			},
			want: &WebhookStats{
				WebhookID: webhookID,
			},
		},
		{
			name: "webhook not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT total_deliveries, successful_deliveries, failed_deliveries, last_triggered_at`).
					WithArgs(webhookID, tenantID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrWebhookNotFound,
		},
		{
			name: "database error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT total_deliveries, successful_deliveries, failed_deliveries, last_triggered_at`).
					WithArgs(webhookID, tenantID).
					WillReturnError(errors.New("connection lost"))
			},
			wantErr: errors.New("webhook counters: connection lost"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			svc := NewService(NewRepository(mock))
			got, err := svc.WebhookStats(context.Background(), tenantID, webhookID)

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrWebhookNotFound) {
					assert.ErrorIs(t, err, domain.ErrWebhookNotFound)
				} else {
					assert.Contains(t, err.Error(), "webhook counters")
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, tt.want.TotalDeliveries, got.TotalDeliveries)
				assert.Equal(t, tt.want.SuccessfulDeliveries, got.SuccessfulDeliveries)
				assert.Equal(t, tt.want.FailedDeliveries, got.FailedDeliveries)
				assert.InDelta(t, tt.want.SuccessRate, got.SuccessRate, 0.0001)
				assert.Equal(t, tt.want.PendingDeliveries, got.PendingDeliveries)
				assert.Equal(t, tt.want.RetryingDeliveries, got.RetryingDeliveries)
				assert.Equal(t, tt.want.FailuresLastHour, got.FailuresLastHour)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestService_EventStats(t *testing.T) {
	tenantID := uuid.New()

	t.Run("aggregates by type", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`GROUP BY event_type`).
			WithArgs(tenantID, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"event_type", "count", "triggered"}).
				AddRow("task.completed", int64(12), int64(10)).
				AddRow("task.failed", int64(3), int64(3)))

		svc := NewService(NewRepository(mock))
		got, err := svc.EventStats(context.Background(), tenantID, 24*time.Hour)

		require.NoError(t, err)
		assert.Equal(t, int64(15), got.Total)
		require.Len(t, got.ByType, 2)
		assert.Equal(t, "task.completed", got.ByType[0].EventType)
		assert.Equal(t, int64(10), got.ByType[0].Triggered)
		assert.WithinDuration(t, time.Now().Add(-24*time.Hour), got.From, 5*time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty window", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`GROUP BY event_type`).
			WithArgs(tenantID, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"event_type", "count", "triggered"}))

		svc := NewService(NewRepository(mock))
		got, err := svc.EventStats(context.Background(), tenantID, 0)

		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Total)
		assert.Empty(t, got.ByType)
		// Zero window falls back to the 24h default.
		assert.WithinDuration(t, time.Now().Add(-DefaultEventWindow), got.From, 5*time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
