package dispatch

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

const (
	headerSignature  = "X-Hookline-Signature"
	headerEventType  = "X-Hookline-Event"
	headerDeliveryID = "X-Hookline-Delivery"
	userAgent        = "Hookline-Webhook/1.0"

	// Response bodies are kept only as a diagnostic excerpt.
	maxResponseBytes = 1024
)

// AttemptResult captures one HTTP attempt. StatusCode is nil when the
// request never produced a response.
type AttemptResult struct {
	StatusCode *int
	Body       string
	Err        error
}

// Outcome classifies the result.
func (r AttemptResult) Outcome() Outcome {
	code := 0
	if r.StatusCode != nil {
		code = *r.StatusCode
	}
	return Classify(code, r.Err)
}

// Sender performs signed delivery attempts. One shared client; the
// per-webhook timeout is applied through the request context so a slow
// receiver can never hold a worker past the webhook's own budget.
type Sender struct {
	client *http.Client
}

func NewSender() *Sender {
	return &Sender{
		client: &http.Client{
			// Bounded per attempt via context; hard ceiling here as a
			// backstop for webhooks persisted before the cap existed.
			Timeout: domain.MaxDeliveryTimeout,
		},
	}
}

// Attempt posts the delivery's payload snapshot to the webhook's URL with
// the custom headers plus signature, event type and delivery id headers.
func (s *Sender) Attempt(ctx context.Context, webhook *domain.Webhook, delivery *domain.Delivery) AttemptResult {
	timeout := webhook.RetryPolicy.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return AttemptResult{Err: err}
	}

	for k, v := range webhook.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerSignature, Sign(webhook.Secret, delivery.Payload))
	req.Header.Set(headerEventType, string(delivery.EventType))
	req.Header.Set(headerDeliveryID, delivery.ID.String())
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return AttemptResult{Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	code := resp.StatusCode
	return AttemptResult{
		StatusCode: &code,
		Body:       string(excerpt),
	}
}
