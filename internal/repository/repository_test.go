package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

// TenantRepository Tests

func TestTenantRepository_GetByAPIKeyHash(t *testing.T) {
	tenantID := uuid.New()
	now := time.Now()

	tests := []struct {
		name      string
		hash      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		want      *domain.Tenant
		wantErr   error
	}{
		{
			name: "successful retrieval",
			hash: "hash_valid_key",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{
					"id", "name", "slug", "is_active", "created_at", "updated_at",
				}).AddRow(tenantID, "Test Tenant", "test-tenant", true, now, now)

				mock.ExpectQuery(`FROM tenants t INNER JOIN api_keys ak ON ak.tenant_id = t.id`).
					WithArgs("hash_valid_key").
					WillReturnRows(rows)
			},
			want: &domain.Tenant{
				ID:       tenantID,
				Name:     "Test Tenant",
				Slug:     "test-tenant",
				IsActive: true,
			},
		},
		{
			name: "tenant not found",
			hash: "hash_nonexistent",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM tenants t INNER JOIN api_keys ak ON ak.tenant_id = t.id`).
					WithArgs("hash_nonexistent").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrTenantNotFound,
		},
		{
			name: "database error",
			hash: "hash_error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM tenants t INNER JOIN api_keys ak ON ak.tenant_id = t.id`).
					WithArgs("hash_error").
					WillReturnError(errors.New("database connection error"))
			},
			wantErr: errors.New("get tenant by api key hash: database connection error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewTenantRepository(mock)
			got, err := repo.GetByAPIKeyHash(context.Background(), tt.hash)

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrTenantNotFound) {
					assert.ErrorIs(t, err, domain.ErrTenantNotFound)
				} else {
					assert.Contains(t, err.Error(), "get tenant by api key hash")
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, tt.want.ID, got.ID)
				assert.Equal(t, tt.want.Name, got.Name)
				assert.Equal(t, tt.want.Slug, got.Slug)
				assert.Equal(t, tt.want.IsActive, got.IsActive)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// WebhookRepository Tests

func webhookMockColumns() []string {
	return []string{
		"id", "tenant_id", "name", "description", "url", "secret", "events",
		"project_filter", "workflow_filter", "headers",
		"max_attempts", "retry_delay_secs", "timeout_secs",
		"is_active", "is_verified",
		"total_deliveries", "successful_deliveries", "failed_deliveries",
		"last_triggered_at", "created_at", "updated_at",
	}
}

func addWebhookRow(rows *pgxmock.Rows, id, tenantID uuid.UUID, now time.Time) *pgxmock.Rows {
	return rows.AddRow(
		id, tenantID, "deploy-notifier", "", "https://example.com/hook", "whsec_abc",
		[]byte(`["task.completed"]`),
		nil, nil, []byte(`{}`),
		3, 60, 30,
		true, false,
		int64(10), int64(8), int64(2),
		nil, now, now,
	)
}

func validWebhook(tenantID uuid.UUID) *domain.Webhook {
	return &domain.Webhook{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        "deploy-notifier",
		URL:         "https://example.com/hook",
		Secret:      "whsec_abc",
		Events:      []domain.EventType{domain.EventTaskCompleted},
		RetryPolicy: domain.DefaultRetryPolicy(),
		IsActive:    true,
	}
}

func TestWebhookRepository_Create(t *testing.T) {
	tenantID := uuid.New()
	now := time.Now()

	tests := []struct {
		name      string
		webhook   *domain.Webhook
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name:    "successful creation",
			webhook: validWebhook(tenantID),
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)

				mock.ExpectQuery(`INSERT INTO webhooks`).
					WithArgs(
						pgxmock.AnyArg(), tenantID, "deploy-notifier", "",
						"https://example.com/hook", "whsec_abc", pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						3, 60, 30, true,
					).
					WillReturnRows(rows)
			},
		},
		{
			name: "invalid url rejected before any query",
			webhook: &domain.Webhook{
				TenantID:    tenantID,
				Name:        "bad",
				URL:         "ftp://example.com",
				Events:      []domain.EventType{domain.EventTaskCompleted},
				RetryPolicy: domain.DefaultRetryPolicy(),
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {},
			wantErr:   domain.ErrValidationFailed,
		},
		{
			name:    "database error on create",
			webhook: validWebhook(tenantID),
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO webhooks`).
					WithArgs(
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					).
					WillReturnError(errors.New("disk full"))
			},
			wantErr: errors.New("create webhook: disk full"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewWebhookRepository(mock)
			err = repo.Create(context.Background(), tt.webhook)

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrValidationFailed) {
					assert.ErrorIs(t, err, domain.ErrValidationFailed)
				} else {
					assert.Contains(t, err.Error(), "create webhook")
				}
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, tt.webhook.ID)
				assert.False(t, tt.webhook.CreatedAt.IsZero())
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWebhookRepository_GetByID(t *testing.T) {
	tenantID := uuid.New()
	webhookID := uuid.New()
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful retrieval",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := addWebhookRow(pgxmock.NewRows(webhookMockColumns()), webhookID, tenantID, now)

				mock.ExpectQuery(`FROM webhooks WHERE id = \$1 AND tenant_id = \$2`).
					WithArgs(webhookID, tenantID).
					WillReturnRows(rows)
			},
		},
		{
			name: "webhook not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM webhooks WHERE id = \$1 AND tenant_id = \$2`).
					WithArgs(webhookID, tenantID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrWebhookNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewWebhookRepository(mock)
			got, err := repo.GetByID(context.Background(), tenantID, webhookID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, webhookID, got.ID)
				assert.Equal(t, []domain.EventType{domain.EventTaskCompleted}, got.Events)
				assert.Equal(t, 3, got.RetryPolicy.MaxAttempts)
				assert.Equal(t, 60*time.Second, got.RetryPolicy.RetryDelay)
				assert.Equal(t, 30*time.Second, got.RetryPolicy.Timeout)
				assert.Equal(t, int64(10), got.TotalDeliveries)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWebhookRepository_ResolveMatches(t *testing.T) {
	tenantID := uuid.New()
	now := time.Now()

	event := &domain.Event{
		ID:       uuid.New(),
		TenantID: tenantID,
		Type:     domain.EventTaskCompleted,
		Source:   "orchestrator",
		Payload:  []byte(`{}`),
	}

	t.Run("two matches", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows(webhookMockColumns())
		addWebhookRow(rows, uuid.New(), tenantID, now)
		addWebhookRow(rows, uuid.New(), tenantID, now)

		mock.ExpectQuery(`events @> \$2::jsonb`).
			WithArgs(tenantID, []byte(`["task.completed"]`), event.ProjectID, event.WorkflowID).
			WillReturnRows(rows)

		repo := NewWebhookRepository(mock)
		got, err := repo.ResolveMatches(context.Background(), event)

		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matches", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`events @> \$2::jsonb`).
			WithArgs(tenantID, []byte(`["task.completed"]`), event.ProjectID, event.WorkflowID).
			WillReturnRows(pgxmock.NewRows(webhookMockColumns()))

		repo := NewWebhookRepository(mock)
		got, err := repo.ResolveMatches(context.Background(), event)

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	// The tx variant runs the same WHERE clause with the same arguments,
	// only narrowed to the columns delivery creation copies.
	t.Run("tx variant shares the predicate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		webhookID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, max_attempts FROM webhooks WHERE tenant_id = \$1\s+AND is_active = true\s+AND events @> \$2::jsonb`).
			WithArgs(tenantID, []byte(`["task.completed"]`), event.ProjectID, event.WorkflowID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "max_attempts"}).AddRow(webhookID, 5))
		mock.ExpectCommit()

		ctx := context.Background()
		tx, err := mock.Begin(ctx)
		require.NoError(t, err)

		repo := NewWebhookRepository(mock)
		got, err := repo.ResolveMatchesTx(ctx, tx, event)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, webhookID, got[0].ID)
		assert.Equal(t, 5, got[0].MaxAttempts)

		require.NoError(t, tx.Commit(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWebhookRepository_RecordOutcome(t *testing.T) {
	webhookID := uuid.New()

	tests := []struct {
		name      string
		success   bool
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name:    "successful outcome",
			success: true,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE webhooks`).
					WithArgs(webhookID, true).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name:    "failed outcome",
			success: false,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE webhooks`).
					WithArgs(webhookID, false).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name:    "webhook not found",
			success: true,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE webhooks`).
					WithArgs(webhookID, true).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr: domain.ErrWebhookNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewWebhookRepository(mock)
			err = repo.RecordOutcome(context.Background(), webhookID, tt.success)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWebhookRepository_Deactivate(t *testing.T) {
	tenantID := uuid.New()
	webhookID := uuid.New()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful deactivation",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`SET is_active = false`).
					WithArgs(webhookID, tenantID).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name: "webhook not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`SET is_active = false`).
					WithArgs(webhookID, tenantID).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr: domain.ErrWebhookNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewWebhookRepository(mock)
			err = repo.Deactivate(context.Background(), tenantID, webhookID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// DeliveryRepository Tests

func deliveryMockColumns() []string {
	return []string{
		"id", "webhook_id", "event_id", "event_type", "payload", "status",
		"attempts", "max_attempts", "scheduled_at", "next_retry_at", "delivered_at", "claimed_at",
		"last_status_code", "last_response", "last_error", "created_at", "updated_at",
	}
}

func addDeliveryRow(rows *pgxmock.Rows, id, webhookID uuid.UUID, status domain.DeliveryStatus, attempts int, now time.Time) *pgxmock.Rows {
	return rows.AddRow(
		id, webhookID, uuid.New(), domain.EventTaskCompleted, []byte(`{"event_type":"task.completed"}`), status,
		attempts, 3, now, nil, nil, &now,
		nil, "", "", now, now,
	)
}

func TestDeliveryRepository_ClaimDue(t *testing.T) {
	webhookID := uuid.New()
	now := time.Now()

	t.Run("claims a batch", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows(deliveryMockColumns())
		addDeliveryRow(rows, uuid.New(), webhookID, domain.DeliveryPending, 0, now)
		addDeliveryRow(rows, uuid.New(), webhookID, domain.DeliveryRetrying, 1, now)

		// The lease travels as seconds so Postgres computes the cutoff
		// against its own clock.
		mock.ExpectQuery(`claimed_at < NOW\(\) - make_interval`).
			WithArgs(10, float64(60)).
			WillReturnRows(rows)

		repo := NewDeliveryRepository(mock)
		got, err := repo.ClaimDue(context.Background(), 10, time.Minute)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, domain.DeliveryPending, got[0].Status)
		assert.Equal(t, 1, got[1].Attempts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing due", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
			WithArgs(10, float64(60)).
			WillReturnRows(pgxmock.NewRows(deliveryMockColumns()))

		repo := NewDeliveryRepository(mock)
		got, err := repo.ClaimDue(context.Background(), 10, time.Minute)

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("batch default applied", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
			WithArgs(10, float64(60)).
			WillReturnRows(pgxmock.NewRows(deliveryMockColumns()))

		repo := NewDeliveryRepository(mock)
		_, err = repo.ClaimDue(context.Background(), 0, time.Minute)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeliveryRepository_MarkDelivered(t *testing.T) {
	deliveryID := uuid.New()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful mark",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`SET status = 'delivered'`).
					WithArgs(deliveryID, 1, 200, "ok").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name: "delivery not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`SET status = 'delivered'`).
					WithArgs(deliveryID, 1, 200, "ok").
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr: domain.ErrDeliveryNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewDeliveryRepository(mock)
			err = repo.MarkDelivered(context.Background(), deliveryID, 1, 200, "ok")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeliveryRepository_ScheduleRetry(t *testing.T) {
	deliveryID := uuid.New()
	nextRetryAt := time.Now().Add(2 * time.Minute)
	statusCode := 503

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`SET status = 'retrying'`).
		WithArgs(deliveryID, 2, nextRetryAt, &statusCode, "service unavailable", "upstream 503").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewDeliveryRepository(mock)
	err = repo.ScheduleRetry(context.Background(), deliveryID, 2, nextRetryAt, &statusCode, "service unavailable", "upstream 503")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepository_MarkFailed(t *testing.T) {
	deliveryID := uuid.New()
	statusCode := 404

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`SET status = 'failed'`).
		WithArgs(deliveryID, 1, &statusCode, "not found", "non-retryable response").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewDeliveryRepository(mock)
	err = repo.MarkFailed(context.Background(), deliveryID, 1, &statusCode, "not found", "non-retryable response")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "postgres error code 23505",
			err:  fmt.Errorf("pq: duplicate key value violates unique constraint (23505)"),
			want: true,
		},
		{
			name: "error contains unique",
			err:  fmt.Errorf("ERROR: unique constraint violated"),
			want: true,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "different error",
			err:  fmt.Errorf("connection timeout"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
