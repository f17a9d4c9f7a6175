package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

const webhookColumns = `
	id, tenant_id, name, description, url, secret, events,
	project_filter, workflow_filter, headers,
	max_attempts, retry_delay_secs, timeout_secs,
	is_active, is_verified,
	total_deliveries, successful_deliveries, failed_deliveries,
	last_triggered_at, created_at, updated_at`

// WebhookRepository is the webhook registry. It exclusively owns the
// delivery counters; workers only report outcomes through RecordOutcome.
type WebhookRepository struct {
	pool PgxPool
}

func NewWebhookRepository(pool PgxPool) *WebhookRepository {
	return &WebhookRepository{pool: pool}
}

func (r *WebhookRepository) Create(ctx context.Context, webhook *domain.Webhook) error {
	if err := webhook.Validate(); err != nil {
		return err
	}

	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	headersJSON, err := json.Marshal(webhook.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	query := `
		INSERT INTO webhooks (
			id, tenant_id, name, description, url, secret, events,
			project_filter, workflow_filter, headers,
			max_attempts, retry_delay_secs, timeout_secs, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`

	if webhook.ID == uuid.Nil {
		webhook.ID = uuid.New()
	}

	err = r.pool.QueryRow(ctx, query,
		webhook.ID,
		webhook.TenantID,
		webhook.Name,
		webhook.Description,
		webhook.URL,
		webhook.Secret,
		eventsJSON,
		webhook.ProjectFilter,
		webhook.WorkflowFilter,
		headersJSON,
		webhook.RetryPolicy.MaxAttempts,
		int(webhook.RetryPolicy.RetryDelay.Seconds()),
		int(webhook.RetryPolicy.Timeout.Seconds()),
		webhook.IsActive,
	).Scan(&webhook.CreatedAt, &webhook.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	return nil
}

func (r *WebhookRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1 AND tenant_id = $2`

	row := r.pool.QueryRow(ctx, query, id, tenantID)
	webhook, err := scanWebhookRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWebhookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook by id: %w", err)
	}

	return webhook, nil
}

// Get loads a webhook without tenant scoping. Delivery workers use it;
// the API surface always goes through GetByID.
func (r *WebhookRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	webhook, err := scanWebhookRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWebhookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook: %w", err)
	}

	return webhook, nil
}

func (r *WebhookRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	return scanWebhookRows(rows)
}

// webhookMatchWhere is the single source of the matching predicate.
// ResolveMatches and ResolveMatchesTx both execute it, so the registry's
// answer and the publisher's fan-out can never drift apart.
const webhookMatchWhere = `tenant_id = $1
	  AND is_active = true
	  AND events @> $2::jsonb
	  AND (project_filter IS NULL OR project_filter = $3)
	  AND (workflow_filter IS NULL OR workflow_filter = $4)`

func webhookMatchArgs(event *domain.Event) []any {
	typeJSON, _ := json.Marshal([]domain.EventType{event.Type})
	return []any{event.TenantID, typeJSON, event.ProjectID, event.WorkflowID}
}

// WebhookMatch is the slice of a matched webhook that delivery creation
// needs.
type WebhookMatch struct {
	ID          uuid.UUID
	MaxAttempts int
}

// ResolveMatches returns all active webhooks for the event's tenant whose
// subscribed set contains the event type and whose scope filters (when set)
// equal the event's tags. The events @> containment test rides the GIN
// index, so this is a membership probe, not a table scan.
func (r *WebhookRepository) ResolveMatches(ctx context.Context, event *domain.Event) ([]*domain.Webhook, error) {
	query := `
		SELECT ` + webhookColumns + `
		FROM webhooks
		WHERE ` + webhookMatchWhere

	rows, err := r.pool.Query(ctx, query, webhookMatchArgs(event)...)
	if err != nil {
		return nil, fmt.Errorf("resolve matches: %w", err)
	}
	defer rows.Close()

	return scanWebhookRows(rows)
}

// ResolveMatchesTx runs the same predicate inside the caller's transaction,
// returning just the fields the publisher copies onto each delivery.
func (r *WebhookRepository) ResolveMatchesTx(ctx context.Context, tx pgx.Tx, event *domain.Event) ([]WebhookMatch, error) {
	query := `SELECT id, max_attempts FROM webhooks WHERE ` + webhookMatchWhere

	rows, err := tx.Query(ctx, query, webhookMatchArgs(event)...)
	if err != nil {
		return nil, fmt.Errorf("resolve matches: %w", err)
	}
	defer rows.Close()

	var matches []WebhookMatch
	for rows.Next() {
		var m WebhookMatch
		if err := rows.Scan(&m.ID, &m.MaxAttempts); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}

	return matches, nil
}

// RecordOutcome bumps the webhook counters in a single UPDATE so concurrent
// workers never lose increments. A success also flips is_verified.
func (r *WebhookRepository) RecordOutcome(ctx context.Context, webhookID uuid.UUID, success bool) error {
	query := `
		UPDATE webhooks
		SET total_deliveries = total_deliveries + 1,
		    successful_deliveries = successful_deliveries + CASE WHEN $2 THEN 1 ELSE 0 END,
		    failed_deliveries = failed_deliveries + CASE WHEN $2 THEN 0 ELSE 1 END,
		    is_verified = is_verified OR $2,
		    last_triggered_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, webhookID, success)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWebhookNotFound
	}

	return nil
}

// Update mutates the tenant-editable config. Counters, secret and verified
// flag are never touched here.
func (r *WebhookRepository) Update(ctx context.Context, webhook *domain.Webhook) error {
	if err := webhook.Validate(); err != nil {
		return err
	}

	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	headersJSON, err := json.Marshal(webhook.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	query := `
		UPDATE webhooks
		SET name = $3,
		    description = $4,
		    url = $5,
		    events = $6,
		    project_filter = $7,
		    workflow_filter = $8,
		    headers = $9,
		    max_attempts = $10,
		    retry_delay_secs = $11,
		    timeout_secs = $12,
		    is_active = $13,
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`

	tag, err := r.pool.Exec(ctx, query,
		webhook.ID,
		webhook.TenantID,
		webhook.Name,
		webhook.Description,
		webhook.URL,
		eventsJSON,
		webhook.ProjectFilter,
		webhook.WorkflowFilter,
		headersJSON,
		webhook.RetryPolicy.MaxAttempts,
		int(webhook.RetryPolicy.RetryDelay.Seconds()),
		int(webhook.RetryPolicy.Timeout.Seconds()),
		webhook.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWebhookNotFound
	}

	return nil
}

// Deactivate soft-disables the webhook. Deliveries already scheduled keep
// running until they complete or exhaust retries.
func (r *WebhookRepository) Deactivate(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `
		UPDATE webhooks
		SET is_active = false, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("deactivate webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWebhookNotFound
	}

	return nil
}

func scanWebhookRow(row pgx.Row) (*domain.Webhook, error) {
	var w domain.Webhook
	var eventsJSON, headersJSON []byte
	var maxAttempts, retryDelaySecs, timeoutSecs int

	err := row.Scan(
		&w.ID, &w.TenantID, &w.Name, &w.Description, &w.URL, &w.Secret, &eventsJSON,
		&w.ProjectFilter, &w.WorkflowFilter, &headersJSON,
		&maxAttempts, &retryDelaySecs, &timeoutSecs,
		&w.IsActive, &w.IsVerified,
		&w.TotalDeliveries, &w.SuccessfulDeliveries, &w.FailedDeliveries,
		&w.LastTriggeredAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(eventsJSON, &w.Events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &w.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
	}

	w.RetryPolicy = domain.RetryPolicy{
		MaxAttempts: maxAttempts,
		RetryDelay:  time.Duration(retryDelaySecs) * time.Second,
		Timeout:     time.Duration(timeoutSecs) * time.Second,
	}

	return &w, nil
}

func scanWebhookRows(rows pgx.Rows) ([]*domain.Webhook, error) {
	var webhooks []*domain.Webhook
	for rows.Next() {
		w, err := scanWebhookRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhooks: %w", err)
	}
	return webhooks, nil
}
