package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/hookline/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
	"github.com/saturnino-fabrica-de-software/hookline/internal/stats"
)

// WebhookRegistry is the registry slice the handlers need.
type WebhookRegistry interface {
	Create(ctx context.Context, webhook *domain.Webhook) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Webhook, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Webhook, error)
	Update(ctx context.Context, webhook *domain.Webhook) error
	Deactivate(ctx context.Context, tenantID, id uuid.UUID) error
}

// DeliveryReader lists a webhook's delivery history.
type DeliveryReader interface {
	ListByWebhook(ctx context.Context, tenantID, webhookID uuid.UUID, limit int) ([]*domain.Delivery, error)
}

// WebhookStatsProvider assembles the per-webhook health report.
type WebhookStatsProvider interface {
	WebhookStats(ctx context.Context, tenantID, webhookID uuid.UUID) (*stats.WebhookStats, error)
}

type WebhooksHandler struct {
	webhooks   WebhookRegistry
	deliveries DeliveryReader
	stats      WebhookStatsProvider
	logger     *slog.Logger
}

func NewWebhooksHandler(webhooks WebhookRegistry, deliveries DeliveryReader, statsProvider WebhookStatsProvider, logger *slog.Logger) *WebhooksHandler {
	return &WebhooksHandler{
		webhooks:   webhooks,
		deliveries: deliveries,
		stats:      statsProvider,
		logger:     logger,
	}
}

// WebhookRequest is the create/update body. Zero retry policy fields fall
// back to the defaults.
type WebhookRequest struct {
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	URL            string            `json:"url"`
	Events         []string          `json:"events"`
	ProjectFilter  *string           `json:"project_filter,omitempty"`
	WorkflowFilter *string           `json:"workflow_filter,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	MaxAttempts    int               `json:"max_attempts,omitempty"`
	RetryDelaySecs int               `json:"retry_delay_secs,omitempty"`
	TimeoutSecs    int               `json:"timeout_secs,omitempty"`
	Active         *bool             `json:"active,omitempty"`
}

// CreateWebhookResponse carries the signing secret. This is the only
// place it ever appears in a response.
type CreateWebhookResponse struct {
	Webhook *domain.Webhook `json:"webhook"`
	Secret  string          `json:"secret"`
}

func (r *WebhookRequest) retryPolicy() domain.RetryPolicy {
	policy := domain.DefaultRetryPolicy()
	if r.MaxAttempts != 0 {
		policy.MaxAttempts = r.MaxAttempts
	}
	if r.RetryDelaySecs != 0 {
		policy.RetryDelay = time.Duration(r.RetryDelaySecs) * time.Second
	}
	if r.TimeoutSecs != 0 {
		policy.Timeout = time.Duration(r.TimeoutSecs) * time.Second
	}
	return policy
}

func (r *WebhookRequest) eventTypes() []domain.EventType {
	types := make([]domain.EventType, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, domain.EventType(e))
	}
	return types
}

// Create POST /v1/webhooks - register a webhook
func (h *WebhooksHandler) Create(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	var req WebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	secret, err := domain.GenerateWebhookSecret()
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	webhook := &domain.Webhook{
		TenantID:       tenantID,
		Name:           req.Name,
		Description:    req.Description,
		URL:            req.URL,
		Secret:         secret,
		Events:         req.eventTypes(),
		ProjectFilter:  req.ProjectFilter,
		WorkflowFilter: req.WorkflowFilter,
		Headers:        req.Headers,
		RetryPolicy:    req.retryPolicy(),
		IsActive:       true,
	}
	if req.Active != nil {
		webhook.IsActive = *req.Active
	}

	if err := h.webhooks.Create(c.Context(), webhook); err != nil {
		return err
	}

	h.logger.Info("webhook registered",
		"webhook_id", webhook.ID,
		"tenant_id", tenantID,
		"events", req.Events,
	)

	return c.Status(fiber.StatusCreated).JSON(CreateWebhookResponse{
		Webhook: webhook,
		Secret:  secret,
	})
}

// List GET /v1/webhooks
func (h *WebhooksHandler) List(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	webhooks, err := h.webhooks.ListByTenant(c.Context(), tenantID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"webhooks": webhooks,
		"count":    len(webhooks),
	})
}

// Get GET /v1/webhooks/:id
func (h *WebhooksHandler) Get(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := parseWebhookID(c)
	if err != nil {
		return err
	}

	webhook, err := h.webhooks.GetByID(c.Context(), tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(webhook)
}

// Update PUT /v1/webhooks/:id - replace the tenant-editable config
func (h *WebhooksHandler) Update(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := parseWebhookID(c)
	if err != nil {
		return err
	}

	var req WebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	// Load first so counters and the secret carry over untouched.
	current, err := h.webhooks.GetByID(c.Context(), tenantID, id)
	if err != nil {
		return err
	}

	current.Name = req.Name
	current.Description = req.Description
	current.URL = req.URL
	current.Events = req.eventTypes()
	current.ProjectFilter = req.ProjectFilter
	current.WorkflowFilter = req.WorkflowFilter
	current.Headers = req.Headers
	current.RetryPolicy = req.retryPolicy()
	if req.Active != nil {
		current.IsActive = *req.Active
	}

	if err := h.webhooks.Update(c.Context(), current); err != nil {
		return err
	}

	return c.JSON(current)
}

// Delete DELETE /v1/webhooks/:id - deactivate; in-flight deliveries finish
func (h *WebhooksHandler) Delete(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := parseWebhookID(c)
	if err != nil {
		return err
	}

	if err := h.webhooks.Deactivate(c.Context(), tenantID, id); err != nil {
		return err
	}

	h.logger.Info("webhook deactivated",
		"webhook_id", id,
		"tenant_id", tenantID,
	)

	return c.SendStatus(fiber.StatusNoContent)
}

// Deliveries GET /v1/webhooks/:id/deliveries - delivery history, newest first
func (h *WebhooksHandler) Deliveries(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := parseWebhookID(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 50)

	deliveries, err := h.deliveries.ListByWebhook(c.Context(), tenantID, id, limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"deliveries": deliveries,
		"count":      len(deliveries),
	})
}

// Stats GET /v1/webhooks/:id/stats
func (h *WebhooksHandler) Stats(c *fiber.Ctx) error {
	tenantID, err := middleware.GetTenantID(c)
	if err != nil {
		return err
	}

	id, err := parseWebhookID(c)
	if err != nil {
		return err
	}

	report, err := h.stats.WebhookStats(c.Context(), tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(report)
}

func parseWebhookID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrValidationFailed.WithError(errors.New("id must be a valid UUID"))
	}
	return id, nil
}
