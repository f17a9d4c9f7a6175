package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

// PgxPool is the subset of pgxpool.Pool the repositories use.
// pgxmock.PgxPoolIface satisfies it in tests.
type PgxPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TenantRepositoryInterface defines operations for tenant data access
type TenantRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (*domain.Tenant, error)
	Create(ctx context.Context, tenant *domain.Tenant) error
}

// WebhookRepositoryInterface defines the webhook registry operations
type WebhookRepositoryInterface interface {
	Create(ctx context.Context, webhook *domain.Webhook) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Webhook, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Webhook, error)
	Update(ctx context.Context, webhook *domain.Webhook) error
	Deactivate(ctx context.Context, tenantID, id uuid.UUID) error
	ResolveMatches(ctx context.Context, event *domain.Event) ([]*domain.Webhook, error)
	ResolveMatchesTx(ctx context.Context, tx pgx.Tx, event *domain.Event) ([]WebhookMatch, error)
	RecordOutcome(ctx context.Context, webhookID uuid.UUID, success bool) error
}

// DeliveryRepositoryInterface defines the retry queue operations
type DeliveryRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	ListByWebhook(ctx context.Context, tenantID, webhookID uuid.UUID, limit int) ([]*domain.Delivery, error)
	ClaimDue(ctx context.Context, batch int, lease time.Duration) ([]*domain.Delivery, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, attempts int, statusCode int, response string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, attempts int, nextRetryAt time.Time, statusCode *int, response, errMsg string) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, statusCode *int, response, errMsg string) error
}
