package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of domain events the platform emits.
type EventType string

const (
	EventTaskStarted   EventType = "task.started"
	EventTaskCompleted EventType = "task.completed"
	EventTaskFailed    EventType = "task.failed"

	EventBudgetWarning  EventType = "budget.warning"
	EventBudgetExceeded EventType = "budget.exceeded"
	EventBudgetCritical EventType = "budget.critical"

	EventApprovalRequested EventType = "approval.requested"
	EventApprovalApproved  EventType = "approval.approved"
	EventApprovalRejected  EventType = "approval.rejected"

	EventAgentError EventType = "agent.error"

	EventWorkflowStarted   EventType = "workflow.started"
	EventWorkflowCompleted EventType = "workflow.completed"
	EventWorkflowFailed    EventType = "workflow.failed"
)

var validEventTypes = map[EventType]bool{
	EventTaskStarted:       true,
	EventTaskCompleted:     true,
	EventTaskFailed:        true,
	EventBudgetWarning:     true,
	EventBudgetExceeded:    true,
	EventBudgetCritical:    true,
	EventApprovalRequested: true,
	EventApprovalApproved:  true,
	EventApprovalRejected:  true,
	EventAgentError:        true,
	EventWorkflowStarted:   true,
	EventWorkflowCompleted: true,
	EventWorkflowFailed:    true,
}

// Valid reports whether t is a member of the closed event type set.
func (t EventType) Valid() bool {
	return validEventTypes[t]
}

func (t EventType) String() string {
	return string(t)
}

// AllEventTypes returns every member of the event type set.
func AllEventTypes() []EventType {
	types := make([]EventType, 0, len(validEventTypes))
	for t := range validEventTypes {
		types = append(types, t)
	}
	return types
}

// Event is an immutable record of something that happened inside the platform.
// TriggeredWebhooks is the only field updated after insert, exactly once,
// by the publisher together with delivery creation.
type Event struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	Type              EventType       `json:"type"`
	Source            string          `json:"source"`
	Payload           json.RawMessage `json:"payload"`
	ProjectID         *string         `json:"project_id,omitempty"`
	WorkflowID        *string         `json:"workflow_id,omitempty"`
	TriggeredWebhooks int             `json:"triggered_webhooks"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Validate checks the event before it is persisted.
func (e *Event) Validate() error {
	if e.TenantID == uuid.Nil {
		return ErrValidationFailed.WithError(errValidation("tenant_id cannot be empty"))
	}
	if !e.Type.Valid() {
		return ErrValidationFailed.WithError(errValidation("unknown event type: " + string(e.Type)))
	}
	if len(e.Payload) == 0 {
		return ErrValidationFailed.WithError(errValidation("payload cannot be empty"))
	}
	if !json.Valid(e.Payload) {
		return ErrValidationFailed.WithError(errValidation("payload must be valid JSON"))
	}
	return nil
}
