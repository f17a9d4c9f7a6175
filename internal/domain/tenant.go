package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Tenant is a platform customer. Tenancy scopes every event, webhook and
// delivery; authentication itself is owned by the platform gateway, this
// service only resolves the tenant behind an API key hash.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the tenant fields.
func (t *Tenant) Validate() error {
	if t.Name == "" {
		return errors.New("tenant name cannot be empty")
	}

	if t.Slug == "" {
		return errors.New("tenant slug cannot be empty")
	}

	if !slugRegex.MatchString(t.Slug) {
		return errors.New("tenant slug must contain only lowercase letters, numbers and hyphens")
	}

	return nil
}
