package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
	"github.com/saturnino-fabrica-de-software/hookline/internal/repository"
)

// Envelope is the delivery payload snapshot: the event's opaque payload
// plus its metadata, frozen at publish time. This is exactly the body a
// receiver gets, byte for byte, on every attempt.
type Envelope struct {
	EventID    uuid.UUID        `json:"event_id"`
	EventType  domain.EventType `json:"event_type"`
	Timestamp  time.Time        `json:"timestamp"`
	ProjectID  *string          `json:"project_id,omitempty"`
	WorkflowID *string          `json:"workflow_id,omitempty"`
	Data       json.RawMessage  `json:"data"`
}

// Result reports the fan-out of a publish call.
type Result struct {
	EventID           uuid.UUID `json:"event_id"`
	TriggeredWebhooks int       `json:"triggered_webhooks"`
	Duplicate         bool      `json:"duplicate"`
}

// Publisher appends events to the log and fans them out into delivery
// records. Delivery creation is synchronous (the caller gets a definite
// count); the HTTP attempts themselves happen later in the dispatch pool.
type Publisher struct {
	pool     repository.PgxPool
	webhooks *repository.WebhookRepository
	logger   *slog.Logger
}

func New(pool repository.PgxPool, logger *slog.Logger) *Publisher {
	return &Publisher{
		pool:     pool,
		webhooks: repository.NewWebhookRepository(pool),
		logger:   logger,
	}
}

// Publish runs one transaction: event insert, match resolution, one
// pending delivery per match, triggered count update. Republishing an
// event identifier is a no-op success returning the stored count.
// Zero matches is success with count 0; the event is still logged.
func (p *Publisher) Publish(ctx context.Context, event *domain.Event) (*Result, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin publish: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inserted, err := p.insertEvent(ctx, tx, event)
	if err != nil {
		return nil, err
	}

	if !inserted {
		// At-least-once upstream delivery: same identifier republished.
		result, err := p.duplicateResult(ctx, tx, event)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit publish: %w", err)
		}

		p.logger.Debug("duplicate event ignored",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return result, nil
	}

	// Match resolution is the registry's query, run inside this transaction
	// so the fan-out and the event insert commit or roll back together.
	matches, err := p.webhooks.ResolveMatchesTx(ctx, tx, event)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(Envelope{
		EventID:    event.ID,
		EventType:  event.Type,
		Timestamp:  event.CreatedAt,
		ProjectID:  event.ProjectID,
		WorkflowID: event.WorkflowID,
		Data:       event.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	for _, m := range matches {
		if err := p.insertDelivery(ctx, tx, event, m, payload); err != nil {
			return nil, err
		}
	}

	if err := p.setTriggeredCount(ctx, tx, event.ID, len(matches)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit publish: %w", err)
	}

	event.TriggeredWebhooks = len(matches)

	p.logger.Info("event published",
		"event_id", event.ID,
		"event_type", event.Type,
		"tenant_id", event.TenantID,
		"triggered_webhooks", len(matches),
	)

	return &Result{
		EventID:           event.ID,
		TriggeredWebhooks: len(matches),
	}, nil
}

// insertEvent appends the event row. Returns false when the identifier
// already exists (uniqueness constraint on id enforces idempotency).
func (p *Publisher) insertEvent(ctx context.Context, tx pgx.Tx, event *domain.Event) (bool, error) {
	query := `
		INSERT INTO events (id, tenant_id, event_type, source, payload, project_id, workflow_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at
	`

	err := tx.QueryRow(ctx, query,
		event.ID,
		event.TenantID,
		event.Type,
		event.Source,
		event.Payload,
		event.ProjectID,
		event.WorkflowID,
	).Scan(&event.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}

	return true, nil
}

func (p *Publisher) duplicateResult(ctx context.Context, tx pgx.Tx, event *domain.Event) (*Result, error) {
	query := `SELECT triggered_webhooks FROM events WHERE id = $1 AND tenant_id = $2`

	var triggered int
	err := tx.QueryRow(ctx, query, event.ID, event.TenantID).Scan(&triggered)
	if errors.Is(err, pgx.ErrNoRows) {
		// Identifier collides with another tenant's event. Not a replay.
		return nil, domain.ErrBadRequest.WithError(fmt.Errorf("event id %s already in use", event.ID))
	}
	if err != nil {
		return nil, fmt.Errorf("load duplicate event: %w", err)
	}

	return &Result{
		EventID:           event.ID,
		TriggeredWebhooks: triggered,
		Duplicate:         true,
	}, nil
}

func (p *Publisher) insertDelivery(ctx context.Context, tx pgx.Tx, event *domain.Event, m repository.WebhookMatch, payload []byte) error {
	query := `
		INSERT INTO deliveries (id, webhook_id, event_id, event_type, payload, status, attempts, max_attempts, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', 0, $6, NOW())
	`

	_, err := tx.Exec(ctx, query,
		uuid.New(),
		m.ID,
		event.ID,
		event.Type,
		payload,
		m.MaxAttempts,
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}

	return nil
}

func (p *Publisher) setTriggeredCount(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, count int) error {
	query := `UPDATE events SET triggered_webhooks = $2 WHERE id = $1`

	if _, err := tx.Exec(ctx, query, eventID, count); err != nil {
		return fmt.Errorf("set triggered count: %w", err)
	}

	return nil
}
