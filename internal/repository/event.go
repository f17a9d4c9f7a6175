package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

// EventRepository reads the append-only event log. Writes happen inside
// the publisher's transaction, never here.
type EventRepository struct {
	pool PgxPool
}

func NewEventRepository(pool PgxPool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Event, error) {
	query := `
		SELECT id, tenant_id, event_type, source, payload, project_id, workflow_id,
		       triggered_webhooks, created_at
		FROM events
		WHERE id = $1 AND tenant_id = $2
	`

	var e domain.Event
	err := r.pool.QueryRow(ctx, query, id, tenantID).Scan(
		&e.ID, &e.TenantID, &e.Type, &e.Source, &e.Payload,
		&e.ProjectID, &e.WorkflowID, &e.TriggeredWebhooks, &e.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event by id: %w", err)
	}

	return &e, nil
}

func (r *EventRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*domain.Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, tenant_id, event_type, source, payload, project_id, workflow_id,
		       triggered_webhooks, created_at
		FROM events
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		var e domain.Event
		err := rows.Scan(
			&e.ID, &e.TenantID, &e.Type, &e.Source, &e.Payload,
			&e.ProjectID, &e.WorkflowID, &e.TriggeredWebhooks, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}
