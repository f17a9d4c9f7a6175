package domain

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Retry policy bounds. Per-webhook values outside these are rejected.
const (
	MinAttempts = 1
	MaxAttempts = 10

	DefaultMaxAttempts  = 3
	DefaultRetryDelay   = 60 * time.Second
	DefaultTimeout      = 30 * time.Second
	MaxDeliveryTimeout  = 120 * time.Second
	MaxBackoffDelay     = time.Hour
	WebhookSecretLength = 32
)

// RetryPolicy is copied onto each delivery at creation time, so later
// webhook edits never change the schedule of an in-flight delivery.
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	RetryDelay  time.Duration `json:"retry_delay"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultRetryPolicy returns the policy applied when a webhook omits one.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		Timeout:     DefaultTimeout,
	}
}

// Webhook is a tenant-registered external HTTP endpoint subscribed to one
// or more event types. The Registry exclusively owns the counters; workers
// only report outcomes.
type Webhook struct {
	ID             uuid.UUID         `json:"id"`
	TenantID       uuid.UUID         `json:"tenant_id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	URL            string            `json:"url"`
	Secret         string            `json:"-"`
	Events         []EventType       `json:"events"`
	ProjectFilter  *string           `json:"project_filter,omitempty"`
	WorkflowFilter *string           `json:"workflow_filter,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	RetryPolicy    RetryPolicy       `json:"retry_policy"`
	IsActive       bool              `json:"is_active"`
	IsVerified     bool              `json:"is_verified"`

	TotalDeliveries      int64      `json:"total_deliveries"`
	SuccessfulDeliveries int64      `json:"successful_deliveries"`
	FailedDeliveries     int64      `json:"failed_deliveries"`
	LastTriggeredAt      *time.Time `json:"last_triggered_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the webhook config before persistence. Rejected configs
// are never retried.
func (w *Webhook) Validate() error {
	if w.TenantID == uuid.Nil {
		return ErrValidationFailed.WithError(errValidation("tenant_id cannot be empty"))
	}
	if w.Name == "" {
		return ErrValidationFailed.WithError(errValidation("name cannot be empty"))
	}
	if err := validateTargetURL(w.URL); err != nil {
		return ErrValidationFailed.WithError(err)
	}
	if len(w.Events) == 0 {
		return ErrValidationFailed.WithError(errValidation("at least one event type is required"))
	}
	for _, e := range w.Events {
		if !e.Valid() {
			return ErrValidationFailed.WithError(errValidation("unknown event type: " + string(e)))
		}
	}
	if w.RetryPolicy.MaxAttempts < MinAttempts || w.RetryPolicy.MaxAttempts > MaxAttempts {
		return ErrValidationFailed.WithError(errValidation("max_attempts must be between 1 and 10"))
	}
	if w.RetryPolicy.RetryDelay <= 0 {
		return ErrValidationFailed.WithError(errValidation("retry_delay must be positive"))
	}
	if w.RetryPolicy.Timeout <= 0 || w.RetryPolicy.Timeout > MaxDeliveryTimeout {
		return ErrValidationFailed.WithError(errValidation("timeout must be between 1s and 120s"))
	}
	return nil
}

// Subscribed reports whether the webhook's event set contains t.
func (w *Webhook) Subscribed(t EventType) bool {
	for _, e := range w.Events {
		if e == t {
			return true
		}
	}
	return false
}

// Matches reports whether the webhook should receive the event: active,
// subscribed to the type, and scope filters (when set) equal the event's tags.
func (w *Webhook) Matches(e *Event) bool {
	if !w.IsActive || w.TenantID != e.TenantID || !w.Subscribed(e.Type) {
		return false
	}
	if w.ProjectFilter != nil && (e.ProjectID == nil || *w.ProjectFilter != *e.ProjectID) {
		return false
	}
	if w.WorkflowFilter != nil && (e.WorkflowID == nil || *w.WorkflowFilter != *e.WorkflowID) {
		return false
	}
	return true
}

func validateTargetURL(raw string) error {
	if raw == "" {
		return errValidation("url cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errValidation("url is not well-formed")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errValidation("url scheme must be http or https")
	}
	if u.Host == "" {
		return errValidation("url host cannot be empty")
	}
	return nil
}
