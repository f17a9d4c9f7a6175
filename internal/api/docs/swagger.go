package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// PublishEventRequest represents the event submission body
type PublishEventRequest struct {
	ID         string                 `json:"id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Type       string                 `json:"type" example:"task.completed"`
	Source     string                 `json:"source" example:"orchestrator"`
	Payload    map[string]interface{} `json:"payload"`
	ProjectID  string                 `json:"project_id,omitempty" example:"proj-42"`
	WorkflowID string                 `json:"workflow_id,omitempty" example:"wf-7"`
}

// PublishEventResponse represents the response after publishing an event
type PublishEventResponse struct {
	EventID           string `json:"event_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	TriggeredWebhooks int    `json:"triggered_webhooks" example:"2"`
	Duplicate         bool   `json:"duplicate,omitempty" example:"false"`
}

// EventResponse represents an event read back from the log
type EventResponse struct {
	ID                string                 `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Type              string                 `json:"type" example:"task.completed"`
	Source            string                 `json:"source" example:"orchestrator"`
	Payload           map[string]interface{} `json:"payload"`
	ProjectID         string                 `json:"project_id,omitempty" example:"proj-42"`
	WorkflowID        string                 `json:"workflow_id,omitempty" example:"wf-7"`
	TriggeredWebhooks int                    `json:"triggered_webhooks" example:"2"`
	CreatedAt         string                 `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// ListEventsResponse wraps the recent events list
type ListEventsResponse struct {
	Events []EventResponse `json:"events"`
	Count  int             `json:"count" example:"50"`
}

// EventTypeCount is one row of the per-type event breakdown
type EventTypeCount struct {
	EventType string `json:"event_type" example:"task.completed"`
	Count     int64  `json:"count" example:"120"`
	Triggered int64  `json:"triggered" example:"95"`
}

// EventStatsResponse represents event log aggregates for a window
type EventStatsResponse struct {
	From   string           `json:"from" example:"2024-01-01T00:00:00Z"`
	To     string           `json:"to" example:"2024-01-02T00:00:00Z"`
	Total  int64            `json:"total" example:"340"`
	ByType []EventTypeCount `json:"by_type"`
}

// WebhookRequest represents the webhook create/update body
type WebhookRequest struct {
	Name           string            `json:"name" example:"CI notifications"`
	Description    string            `json:"description,omitempty" example:"Notify the CI dashboard"`
	URL            string            `json:"url" example:"https://example.com/hooks/ci"`
	Events         []string          `json:"events" example:"task.completed,task.failed"`
	ProjectFilter  string            `json:"project_filter,omitempty" example:"proj-42"`
	WorkflowFilter string            `json:"workflow_filter,omitempty" example:"wf-7"`
	Headers        map[string]string `json:"headers,omitempty"`
	MaxAttempts    int               `json:"max_attempts,omitempty" example:"3"`
	RetryDelaySecs int               `json:"retry_delay_secs,omitempty" example:"60"`
	TimeoutSecs    int               `json:"timeout_secs,omitempty" example:"30"`
	Active         bool              `json:"active,omitempty" example:"true"`
}

// WebhookResponse represents a registered webhook
type WebhookResponse struct {
	ID                   string            `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name                 string            `json:"name" example:"CI notifications"`
	URL                  string            `json:"url" example:"https://example.com/hooks/ci"`
	Events               []string          `json:"events" example:"task.completed,task.failed"`
	ProjectFilter        string            `json:"project_filter,omitempty" example:"proj-42"`
	WorkflowFilter       string            `json:"workflow_filter,omitempty" example:"wf-7"`
	Headers              map[string]string `json:"headers,omitempty"`
	IsActive             bool              `json:"is_active" example:"true"`
	IsVerified           bool              `json:"is_verified" example:"true"`
	TotalDeliveries      int64             `json:"total_deliveries" example:"120"`
	SuccessfulDeliveries int64             `json:"successful_deliveries" example:"115"`
	FailedDeliveries     int64             `json:"failed_deliveries" example:"5"`
	CreatedAt            string            `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// CreateWebhookResponse carries the signing secret, returned only at creation
type CreateWebhookResponse struct {
	Webhook WebhookResponse `json:"webhook"`
	Secret  string          `json:"secret" example:"a3f1c2d4e5b6978813579bdf02468ace"`
}

// ListWebhooksResponse wraps the tenant's webhook list
type ListWebhooksResponse struct {
	Webhooks []WebhookResponse `json:"webhooks"`
	Count    int               `json:"count" example:"3"`
}

// DeliveryResponse represents one delivery attempt record
type DeliveryResponse struct {
	ID             string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	EventID        string `json:"event_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	WebhookID      string `json:"webhook_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status         string `json:"status" example:"delivered"`
	Attempts       int    `json:"attempts" example:"1"`
	MaxAttempts    int    `json:"max_attempts" example:"3"`
	ResponseStatus int    `json:"response_status,omitempty" example:"200"`
	ErrorMessage   string `json:"error_message,omitempty"`
	NextRetryAt    string `json:"next_retry_at,omitempty" example:"2024-01-01T00:05:00Z"`
	DeliveredAt    string `json:"delivered_at,omitempty" example:"2024-01-01T00:00:01Z"`
	CreatedAt      string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// ListDeliveriesResponse wraps a webhook's delivery history
type ListDeliveriesResponse struct {
	Deliveries []DeliveryResponse `json:"deliveries"`
	Count      int                `json:"count" example:"50"`
}

// WebhookStatsResponse represents the per-webhook health report
type WebhookStatsResponse struct {
	WebhookID            string  `json:"webhook_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	TotalDeliveries      int64   `json:"total_deliveries" example:"120"`
	SuccessfulDeliveries int64   `json:"successful_deliveries" example:"115"`
	FailedDeliveries     int64   `json:"failed_deliveries" example:"5"`
	SuccessRate          float64 `json:"success_rate" example:"0.958"`
	PendingDeliveries    int64   `json:"pending_deliveries" example:"2"`
	RetryingDeliveries   int64   `json:"retrying_deliveries" example:"1"`
	FailuresLastHour     int64   `json:"failures_last_hour" example:"0"`
	LastTriggeredAt      string  `json:"last_triggered_at,omitempty" example:"2024-01-01T00:00:00Z"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Hookline Event Notification API",
		Version:     "v1.0.0",
		Description: "Event notification and webhook delivery engine with multi-tenancy support",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// Events endpoints

		// POST /v1/events - Publish Event
		endpoint.New(
			endpoint.POST,
			"/events",
			endpoint.WithTags("Events"),
			endpoint.WithSummary("Publish an event"),
			endpoint.WithDescription("Appends an event to the log and creates one delivery per matching webhook. Supplying an id makes the publish idempotent: republishing returns the original result."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(PublishEventRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(PublishEventResponse{}, "201", "Event published successfully"),
				response.New(PublishEventResponse{Duplicate: true}, "200", "Event already published"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Unknown event type"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/events - List Events
		endpoint.New(
			endpoint.GET,
			"/events",
			endpoint.WithTags("Events"),
			endpoint.WithSummary("List recent events"),
			endpoint.WithDescription("Returns the tenant's most recent events, newest first"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of events (default: 50)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListEventsResponse{}, "200", "Events retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/events/:id - Get Event
		endpoint.New(
			endpoint.GET,
			"/events/{id}",
			endpoint.WithTags("Events"),
			endpoint.WithSummary("Get an event"),
			endpoint.WithDescription("Reads a single event back from the append-only log"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Event UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EventResponse{}, "200", "Event retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "EVENT_NOT_FOUND", Message: "Event not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid event ID format"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/stats/events - Event Stats
		endpoint.New(
			endpoint.GET,
			"/stats/events",
			endpoint.WithTags("Stats"),
			endpoint.WithSummary("Get event log aggregates"),
			endpoint.WithDescription("Returns event counts per type for a time window (default: last 24h)"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("window", parameter.Query, parameter.WithDescription("Aggregation window as a Go duration, e.g. 24h or 30m (default: 24h)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EventStatsResponse{}, "200", "Stats retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid window format"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// Webhooks endpoints

		// POST /v1/webhooks - Register Webhook
		endpoint.New(
			endpoint.POST,
			"/webhooks",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Register a webhook"),
			endpoint.WithDescription("Registers a webhook subscription. The signing secret is returned once in this response and never again."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(WebhookRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CreateWebhookResponse{}, "201", "Webhook registered successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "URL must be http or https"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/webhooks - List Webhooks
		endpoint.New(
			endpoint.GET,
			"/webhooks",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("List webhooks"),
			endpoint.WithDescription("Returns all webhooks registered by the tenant"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListWebhooksResponse{}, "200", "Webhooks retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/webhooks/:id - Get Webhook
		endpoint.New(
			endpoint.GET,
			"/webhooks/{id}",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Get a webhook"),
			endpoint.WithDescription("Retrieves a single webhook with its delivery counters"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Webhook UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(WebhookResponse{}, "200", "Webhook retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "WEBHOOK_NOT_FOUND", Message: "Webhook not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// PUT /v1/webhooks/:id - Update Webhook
		endpoint.New(
			endpoint.PUT,
			"/webhooks/{id}",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Update a webhook"),
			endpoint.WithDescription("Replaces the webhook's editable configuration. Counters and the signing secret are preserved."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(WebhookRequest{}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Webhook UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(WebhookResponse{}, "200", "Webhook updated successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "WEBHOOK_NOT_FOUND", Message: "Webhook not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// DELETE /v1/webhooks/:id - Deactivate Webhook
		endpoint.New(
			endpoint.DELETE,
			"/webhooks/{id}",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Deactivate a webhook"),
			endpoint.WithDescription("Deactivates the webhook so it stops matching new events. In-flight deliveries still finish."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Webhook UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Webhook deactivated successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "WEBHOOK_NOT_FOUND", Message: "Webhook not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/webhooks/:id/deliveries - Delivery History
		endpoint.New(
			endpoint.GET,
			"/webhooks/{id}/deliveries",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Get a webhook's delivery history"),
			endpoint.WithDescription("Returns recent delivery attempts for the webhook, newest first"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Webhook UUID")),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of deliveries (default: 50)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListDeliveriesResponse{}, "200", "Deliveries retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "WEBHOOK_NOT_FOUND", Message: "Webhook not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/webhooks/:id/stats - Webhook Stats
		endpoint.New(
			endpoint.GET,
			"/webhooks/{id}/stats",
			endpoint.WithTags("Stats"),
			endpoint.WithSummary("Get a webhook's health report"),
			endpoint.WithDescription("Returns delivery counters, success rate, queue depth and recent failure count for the webhook"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Webhook UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(WebhookStatsResponse{}, "200", "Stats retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "WEBHOOK_NOT_FOUND", Message: "Webhook not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
