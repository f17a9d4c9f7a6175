package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/hookline/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
	"github.com/saturnino-fabrica-de-software/hookline/internal/publisher"
	"github.com/saturnino-fabrica-de-software/hookline/internal/stats"
)

// EventPublisher appends an event and fans it out into deliveries.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) (*publisher.Result, error)
}

// EventReader reads back the append-only log.
type EventReader interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Event, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*domain.Event, error)
}

// EventStatsProvider aggregates the log for the stats surface.
type EventStatsProvider interface {
	EventStats(ctx context.Context, tenantID uuid.UUID, window time.Duration) (*stats.EventStats, error)
}

type EventsHandler struct {
	publisher EventPublisher
	events    EventReader
	stats     EventStatsProvider
	logger    *slog.Logger
}

func NewEventsHandler(pub EventPublisher, events EventReader, statsProvider EventStatsProvider, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		publisher: pub,
		events:    events,
		stats:     statsProvider,
		logger:    logger,
	}
}

// PublishRequest is the event submission body. ID is optional; producers
// that supply one get idempotent republish.
type PublishRequest struct {
	ID         string          `json:"id,omitempty"`
	Type       string          `json:"type"`
	Source     string          `json:"source"`
	Payload    json.RawMessage `json:"payload"`
	ProjectID  *string         `json:"project_id,omitempty"`
	WorkflowID *string         `json:"workflow_id,omitempty"`
}

type PublishResponse struct {
	EventID           string `json:"event_id"`
	TriggeredWebhooks int    `json:"triggered_webhooks"`
	Duplicate         bool   `json:"duplicate,omitempty"`
}

// Publish POST /v1/events - append an event and create its deliveries
func (h *EventsHandler) Publish(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	var req PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	event := &domain.Event{
		TenantID:   tenantID,
		Type:       domain.EventType(req.Type),
		Source:     req.Source,
		Payload:    req.Payload,
		ProjectID:  req.ProjectID,
		WorkflowID: req.WorkflowID,
	}

	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			return domain.ErrValidationFailed.WithError(errors.New("id must be a valid UUID"))
		}
		event.ID = id
	}

	result, err := h.publisher.Publish(c.Context(), event)
	if err != nil {
		return err
	}

	status := fiber.StatusCreated
	if result.Duplicate {
		// Replay of an already-accepted event.
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(PublishResponse{
		EventID:           result.EventID.String(),
		TriggeredWebhooks: result.TriggeredWebhooks,
		Duplicate:         result.Duplicate,
	})
}

// Get GET /v1/events/:id - read one event back from the log
func (h *EventsHandler) Get(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("id must be a valid UUID"))
	}

	event, err := h.events.GetByID(c.Context(), tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(event)
}

// List GET /v1/events - recent events, newest first
func (h *EventsHandler) List(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 50)

	events, err := h.events.ListByTenant(c.Context(), tenantID, limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"events": events,
		"count":  len(events),
	})
}

// Stats GET /v1/stats/events - event log aggregates for a window
func (h *EventsHandler) Stats(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	window := time.Duration(0)
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return domain.ErrValidationFailed.WithError(errors.New("window must be a duration like 24h or 30m"))
		}
		window = parsed
	}

	report, err := h.stats.EventStats(c.Context(), tenantID, window)
	if err != nil {
		return err
	}

	return c.JSON(report)
}
