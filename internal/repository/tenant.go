package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

type TenantRepository struct {
	pool PgxPool
}

func NewTenantRepository(pool PgxPool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `
		SELECT id, name, slug, is_active, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	var tenant domain.Tenant
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Slug,
		&tenant.IsActive,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant by id: %w", err)
	}

	return &tenant, nil
}

// GetByAPIKeyHash resolves the tenant behind an active API key. Inactive
// keys and inactive tenants are both treated as not found.
func (r *TenantRepository) GetByAPIKeyHash(ctx context.Context, hash string) (*domain.Tenant, error) {
	query := `
		SELECT t.id, t.name, t.slug, t.is_active, t.created_at, t.updated_at
		FROM tenants t
		INNER JOIN api_keys ak ON ak.tenant_id = t.id
		WHERE ak.key_hash = $1 AND ak.is_active = true AND t.is_active = true
	`

	var tenant domain.Tenant
	err := r.pool.QueryRow(ctx, query, hash).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Slug,
		&tenant.IsActive,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant by api key hash: %w", err)
	}

	return &tenant, nil
}

func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	if err := tenant.Validate(); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	query := `
		INSERT INTO tenants (id, name, slug, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.Slug,
		tenant.IsActive,
	).Scan(&tenant.CreatedAt, &tenant.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrBadRequest.WithError(fmt.Errorf("slug %q already exists", tenant.Slug))
		}
		return fmt.Errorf("create tenant: %w", err)
	}

	return nil
}
