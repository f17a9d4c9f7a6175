package stats

import (
	"time"

	"github.com/google/uuid"
)

// WebhookStats is the per-webhook health report: lifetime counters from
// the registry plus a live view of the retry queue.
type WebhookStats struct {
	WebhookID            uuid.UUID  `json:"webhook_id"`
	TotalDeliveries      int64      `json:"total_deliveries"`
	SuccessfulDeliveries int64      `json:"successful_deliveries"`
	FailedDeliveries     int64      `json:"failed_deliveries"`
	SuccessRate          float64    `json:"success_rate"`
	PendingDeliveries    int64      `json:"pending_deliveries"`
	RetryingDeliveries   int64      `json:"retrying_deliveries"`
	FailuresLastHour     int64      `json:"failures_last_hour"`
	LastTriggeredAt      *time.Time `json:"last_triggered_at,omitempty"`
}

// EventTypeCount aggregates the event log for one type within a window.
// Triggered counts events that matched at least one webhook.
type EventTypeCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
	Triggered int64  `json:"triggered"`
}

// EventStats is the tenant-wide event log summary for a time window.
type EventStats struct {
	From   time.Time        `json:"from"`
	To     time.Time        `json:"to"`
	Total  int64            `json:"total"`
	ByType []EventTypeCount `json:"by_type"`
}
