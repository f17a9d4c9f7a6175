package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus tracks the state machine of a single delivery.
// Transitions: pending -> retrying (self-loops) -> delivered | failed.
// Terminal states never transition again.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryRetrying  DeliveryStatus = "retrying"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryFailed
}

// Delivery is one attempt-tracked unit of work: send this event to this
// webhook. The payload is snapshotted at creation time so later webhook
// edits cannot change what is re-sent. EventID is a back-reference, not
// ownership; events survive webhook deletion.
type Delivery struct {
	ID        uuid.UUID `json:"id"`
	WebhookID uuid.UUID `json:"webhook_id"`
	EventID   uuid.UUID `json:"event_id"`
	EventType EventType `json:"event_type"`

	Payload     json.RawMessage `json:"payload"`
	Status      DeliveryStatus  `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`

	ScheduledAt time.Time  `json:"scheduled_at"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ClaimedAt   *time.Time `json:"-"`

	LastStatusCode *int   `json:"last_status_code,omitempty"`
	LastResponse   string `json:"last_response,omitempty"`
	LastError      string `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Exhausted reports whether the delivery has no attempts left.
func (d *Delivery) Exhausted() bool {
	return d.Attempts >= d.MaxAttempts
}
