package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

const (
	// LocalTenantID is the key to retrieve tenant_id from context
	LocalTenantID = "tenant_id"
	// LocalTenant is the key to retrieve the full tenant from context
	LocalTenant = "tenant"
)

// TenantRepository interface for tenant lookup
type TenantRepository interface {
	GetByAPIKeyHash(ctx context.Context, hash string) (*domain.Tenant, error)
}

// KeyUsageTracker receives the hash of every authenticated key for the
// async last_used_at update.
type KeyUsageTracker interface {
	Enqueue(keyHash string)
}

type AuthDependencies struct {
	TenantRepo TenantRepository
	// Tracker may be nil; auth works without usage tracking.
	Tracker KeyUsageTracker
}

// Auth authenticates requests by API key in the Authorization header.
// Every failure mode returns the same 401 so the response never reveals
// whether a key exists.
func Auth(deps AuthDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractBearerToken(c)
		if apiKey == "" || !domain.IsValidFormat(apiKey) {
			return domain.ErrUnauthorized
		}

		hash := domain.HashAPIKey(apiKey)

		tenant, err := deps.TenantRepo.GetByAPIKeyHash(c.Context(), hash)
		if err != nil {
			return domain.ErrUnauthorized
		}

		if !tenant.IsActive {
			return domain.ErrUnauthorized
		}

		if deps.Tracker != nil {
			deps.Tracker.Enqueue(hash)
		}

		c.Locals(LocalTenantID, tenant.ID)
		c.Locals(LocalTenant, tenant)

		return c.Next()
	}
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if auth == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// GetTenantID retrieves tenant_id from Fiber context
func GetTenantID(c *fiber.Ctx) (uuid.UUID, error) {
	tenantID, ok := c.Locals(LocalTenantID).(uuid.UUID)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return tenantID, nil
}

// GetTenant retrieves full tenant from Fiber context
func GetTenant(c *fiber.Ctx) (*domain.Tenant, error) {
	tenant, ok := c.Locals(LocalTenant).(*domain.Tenant)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return tenant, nil
}
