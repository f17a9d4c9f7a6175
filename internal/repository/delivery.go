package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

const deliveryColumns = `
	id, webhook_id, event_id, event_type, payload, status,
	attempts, max_attempts, scheduled_at, next_retry_at, delivered_at, claimed_at,
	last_status_code, last_response, last_error, created_at, updated_at`

// DeliveryRepository persists delivery records and implements the retry
// queue: a priority view over non-terminal rows ordered by next_retry_at.
type DeliveryRepository struct {
	pool PgxPool
}

func NewDeliveryRepository(pool PgxPool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

func (r *DeliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	delivery, err := scanDeliveryRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDeliveryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery by id: %w", err)
	}

	return delivery, nil
}

func (r *DeliveryRepository) ListByWebhook(ctx context.Context, tenantID, webhookID uuid.UUID, limit int) ([]*domain.Delivery, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE webhook_id = $1
		  AND webhook_id IN (SELECT id FROM webhooks WHERE tenant_id = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, webhookID, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	return scanDeliveryRows(rows)
}

// ClaimDue atomically leases a batch of due, non-terminal deliveries.
// The conditional claim ("unclaimed or lease expired") plus FOR UPDATE
// SKIP LOCKED guarantees a row is processed by exactly one worker at a
// time, and that rows abandoned by a crashed worker become claimable
// again once the lease elapses. Never-attempted rows sort first.
// The lease cutoff is computed against the database clock, the same one
// that wrote claimed_at, so app-host clock skew cannot expire a live lease.
func (r *DeliveryRepository) ClaimDue(ctx context.Context, batch int, lease time.Duration) ([]*domain.Delivery, error) {
	if batch <= 0 {
		batch = 10
	}

	query := `
		UPDATE deliveries
		SET claimed_at = NOW(), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM deliveries
			WHERE status IN ('pending', 'retrying')
			  AND scheduled_at <= NOW()
			  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			  AND (claimed_at IS NULL OR claimed_at < NOW() - make_interval(secs => $2))
			ORDER BY next_retry_at ASC NULLS FIRST
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + deliveryColumns + `
	`

	rows, err := r.pool.Query(ctx, query, batch, lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("claim due deliveries: %w", err)
	}
	defer rows.Close()

	return scanDeliveryRows(rows)
}

// MarkDelivered records terminal success.
func (r *DeliveryRepository) MarkDelivered(ctx context.Context, id uuid.UUID, attempts int, statusCode int, response string) error {
	query := `
		UPDATE deliveries
		SET status = 'delivered',
		    attempts = $2,
		    delivered_at = NOW(),
		    next_retry_at = NULL,
		    claimed_at = NULL,
		    last_status_code = $3,
		    last_response = $4,
		    last_error = '',
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, attempts, statusCode, response)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDeliveryNotFound
	}

	return nil
}

// ScheduleRetry records a failed attempt that still has attempts left and
// releases the lease so the row re-enters the queue at nextRetryAt.
func (r *DeliveryRepository) ScheduleRetry(ctx context.Context, id uuid.UUID, attempts int, nextRetryAt time.Time, statusCode *int, response, errMsg string) error {
	query := `
		UPDATE deliveries
		SET status = 'retrying',
		    attempts = $2,
		    next_retry_at = $3,
		    claimed_at = NULL,
		    last_status_code = $4,
		    last_response = $5,
		    last_error = $6,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, attempts, nextRetryAt, statusCode, response, errMsg)
	if err != nil {
		return fmt.Errorf("schedule retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDeliveryNotFound
	}

	return nil
}

// MarkFailed records terminal failure: retries exhausted or a response
// retrying cannot fix.
func (r *DeliveryRepository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, statusCode *int, response, errMsg string) error {
	query := `
		UPDATE deliveries
		SET status = 'failed',
		    attempts = $2,
		    next_retry_at = NULL,
		    claimed_at = NULL,
		    last_status_code = $3,
		    last_response = $4,
		    last_error = $5,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, attempts, statusCode, response, errMsg)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDeliveryNotFound
	}

	return nil
}

func scanDeliveryRow(row pgx.Row) (*domain.Delivery, error) {
	var d domain.Delivery
	err := row.Scan(
		&d.ID, &d.WebhookID, &d.EventID, &d.EventType, &d.Payload, &d.Status,
		&d.Attempts, &d.MaxAttempts, &d.ScheduledAt, &d.NextRetryAt, &d.DeliveredAt, &d.ClaimedAt,
		&d.LastStatusCode, &d.LastResponse, &d.LastError, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDeliveryRows(rows pgx.Rows) ([]*domain.Delivery, error) {
	var deliveries []*domain.Delivery
	for rows.Next() {
		d, err := scanDeliveryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return deliveries, nil
}
