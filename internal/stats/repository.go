package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
	"github.com/saturnino-fabrica-de-software/hookline/internal/repository"
)

// Repository runs the aggregate queries behind the stats surface. It only
// reads; the registry and the workers own all writes.
type Repository struct {
	pool repository.PgxPool
}

func NewRepository(pool repository.PgxPool) *Repository {
	return &Repository{pool: pool}
}

// WebhookCounters loads the lifetime counters, tenant-scoped.
func (r *Repository) WebhookCounters(ctx context.Context, tenantID, webhookID uuid.UUID) (*WebhookStats, error) {
	query := `
		SELECT total_deliveries, successful_deliveries, failed_deliveries, last_triggered_at
		FROM webhooks
		WHERE id = $1 AND tenant_id = $2
	`

	stats := &WebhookStats{WebhookID: webhookID}
	err := r.pool.QueryRow(ctx, query, webhookID, tenantID).Scan(
		&stats.TotalDeliveries,
		&stats.SuccessfulDeliveries,
		&stats.FailedDeliveries,
		&stats.LastTriggeredAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWebhookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("webhook counters: %w", err)
	}

	return stats, nil
}

// QueueDepth counts the webhook's non-terminal deliveries by status.
func (r *Repository) QueueDepth(ctx context.Context, webhookID uuid.UUID) (pending, retrying int64, err error) {
	query := `
		SELECT status, COUNT(*)
		FROM deliveries
		WHERE webhook_id = $1 AND status IN ('pending', 'retrying')
		GROUP BY status
	`

	rows, err := r.pool.Query(ctx, query, webhookID)
	if err != nil {
		return 0, 0, fmt.Errorf("queue depth: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return 0, 0, fmt.Errorf("scan queue depth: %w", err)
		}
		switch domain.DeliveryStatus(status) {
		case domain.DeliveryPending:
			pending = count
		case domain.DeliveryRetrying:
			retrying = count
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("iterate queue depth: %w", err)
	}

	return pending, retrying, nil
}

// FailuresSince counts terminal failures recorded after the cutoff.
func (r *Repository) FailuresSince(ctx context.Context, webhookID uuid.UUID, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM deliveries
		WHERE webhook_id = $1 AND status = 'failed' AND updated_at >= $2
	`

	var count int64
	if err := r.pool.QueryRow(ctx, query, webhookID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failures since: %w", err)
	}

	return count, nil
}

// EventCounts aggregates the event log by type within [from, to).
func (r *Repository) EventCounts(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]EventTypeCount, error) {
	query := `
		SELECT event_type,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE triggered_webhooks > 0)
		FROM events
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY event_type
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.pool.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("event counts: %w", err)
	}
	defer rows.Close()

	var counts []EventTypeCount
	for rows.Next() {
		var c EventTypeCount
		if err := rows.Scan(&c.EventType, &c.Count, &c.Triggered); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}

	return counts, nil
}
