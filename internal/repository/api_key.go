package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

// APIKeyRepositoryInterface defines API key data access
type APIKeyRepositoryInterface interface {
	Create(ctx context.Context, key *domain.APIKey) error
	UpdateLastUsedByHash(ctx context.Context, keyHash string) error
}

type APIKeyRepository struct {
	pool PgxPool
}

func NewAPIKeyRepository(pool PgxPool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	query := `
		INSERT INTO api_keys (id, tenant_id, name, key_hash, key_prefix, environment, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		key.ID,
		key.TenantID,
		key.Name,
		key.KeyHash,
		key.KeyPrefix,
		key.Environment,
		key.IsActive,
	).Scan(&key.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrBadRequest.WithError(fmt.Errorf("key hash already exists"))
		}
		return fmt.Errorf("create api key: %w", err)
	}

	return nil
}

// UpdateLastUsedByHash bumps last_used_at. Called from the async batcher,
// never on the request path.
func (r *APIKeyRepository) UpdateLastUsedByHash(ctx context.Context, keyHash string) error {
	query := `UPDATE api_keys SET last_used_at = NOW() WHERE key_hash = $1`

	if _, err := r.pool.Exec(ctx, query, keyHash); err != nil {
		return fmt.Errorf("update last used: %w", err)
	}

	return nil
}
