package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/hookline/internal/domain"
)

// DeliveryStore is the slice of the delivery repository the workers need.
type DeliveryStore interface {
	ClaimDue(ctx context.Context, batch int, lease time.Duration) ([]*domain.Delivery, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, attempts int, statusCode int, response string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, attempts int, nextRetryAt time.Time, statusCode *int, response, errMsg string) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, statusCode *int, response, errMsg string) error
}

// WebhookStore resolves webhook config and reports terminal outcomes.
// The registry owns the counters; workers never increment them directly.
type WebhookStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Webhook, error)
	RecordOutcome(ctx context.Context, webhookID uuid.UUID, success bool) error
}

// Config tunes the worker pool.
type Config struct {
	Workers      int
	PollInterval time.Duration
	BatchSize    int
	Lease        time.Duration
	MaxBackoff   time.Duration

	// CountRetryFailures makes every failed attempt increment the
	// webhook's failure counter. Default counts only terminal failures,
	// so retries do not inflate the stats.
	CountRetryFailures bool
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.Lease <= 0 {
		c.Lease = 60 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = domain.MaxBackoffDelay
	}
	return c
}

// Pool runs the delivery workers. Each worker independently claims a
// batch of due deliveries and attempts them; no lock is held across an
// HTTP call. The only mutual exclusion is the claim itself and the
// registry's atomic counter updates.
type Pool struct {
	deliveries DeliveryStore
	webhooks   WebhookStore
	sender     *Sender
	logger     *slog.Logger
	cfg        Config
	stopCh     chan struct{}
	stopOnce   sync.Once
}

func NewPool(deliveries DeliveryStore, webhooks WebhookStore, sender *Sender, logger *slog.Logger, cfg Config) *Pool {
	return &Pool{
		deliveries: deliveries,
		webhooks:   webhooks,
		sender:     sender,
		logger:     logger,
		cfg:        cfg.withDefaults(),
		stopCh:     make(chan struct{}),
	}
}

// Run starts the workers and blocks until ctx is cancelled or Stop is
// called.
func (p *Pool) Run(ctx context.Context) {
	p.logger.Info("delivery worker pool started",
		"workers", p.cfg.Workers,
		"poll_interval", p.cfg.PollInterval,
		"batch_size", p.cfg.BatchSize,
		"lease", p.cfg.Lease,
	)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			p.runWorker(ctx, worker)
		}(i)
	}
	wg.Wait()

	p.logger.Info("delivery worker pool stopped")
}

func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *Pool) runWorker(ctx context.Context, worker int) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error("failed to process delivery batch",
					"worker", worker,
					"error", err,
				)
			}
		}
	}
}

func (p *Pool) processBatch(ctx context.Context) error {
	deliveries, err := p.deliveries.ClaimDue(ctx, p.cfg.BatchSize, p.cfg.Lease)
	if err != nil {
		return err
	}

	for _, d := range deliveries {
		if err := p.ProcessDelivery(ctx, d); err != nil {
			p.logger.Error("failed to process delivery",
				"delivery_id", d.ID,
				"webhook_id", d.WebhookID,
				"attempts", d.Attempts,
				"error", err,
			)
		}
	}

	return nil
}

// ProcessDelivery runs one attempt for a claimed delivery and records the
// outcome. Deactivated webhooks still get their in-flight deliveries;
// deactivation only stops new matches.
func (p *Pool) ProcessDelivery(ctx context.Context, d *domain.Delivery) error {
	webhook, err := p.webhooks.Get(ctx, d.WebhookID)
	if err != nil {
		if errors.Is(err, domain.ErrWebhookNotFound) {
			// Webhook row gone mid-flight; nothing left to notify.
			return p.deliveries.MarkFailed(ctx, d.ID, d.Attempts, nil, "", "webhook no longer exists")
		}
		return err
	}

	attempt := d.Attempts + 1
	result := p.sender.Attempt(ctx, webhook, d)

	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}

	switch result.Outcome() {
	case OutcomeSuccess:
		if err := p.deliveries.MarkDelivered(ctx, d.ID, attempt, *result.StatusCode, result.Body); err != nil {
			return err
		}

		p.logger.Info("delivery succeeded",
			"delivery_id", d.ID,
			"webhook_id", webhook.ID,
			"attempts", attempt,
			"status_code", *result.StatusCode,
		)
		return p.webhooks.RecordOutcome(ctx, webhook.ID, true)

	case OutcomeRetryable:
		if attempt < d.MaxAttempts {
			backoff := Backoff{Base: webhook.RetryPolicy.RetryDelay, Max: p.cfg.MaxBackoff}
			nextRetryAt := time.Now().Add(backoff.Delay(attempt))

			if err := p.deliveries.ScheduleRetry(ctx, d.ID, attempt, nextRetryAt, result.StatusCode, result.Body, errMsg); err != nil {
				return err
			}

			p.logger.Warn("delivery attempt failed, scheduled retry",
				"delivery_id", d.ID,
				"webhook_id", webhook.ID,
				"attempts", attempt,
				"next_retry_at", nextRetryAt,
				"error", errMsg,
			)

			if p.cfg.CountRetryFailures {
				return p.webhooks.RecordOutcome(ctx, webhook.ID, false)
			}
			return nil
		}
		return p.failTerminally(ctx, d, webhook, attempt, result, "retries exhausted: "+errMsg)

	default:
		return p.failTerminally(ctx, d, webhook, attempt, result, "non-retryable response")
	}
}

func (p *Pool) failTerminally(ctx context.Context, d *domain.Delivery, webhook *domain.Webhook, attempt int, result AttemptResult, reason string) error {
	errMsg := reason
	if result.Err != nil {
		errMsg = result.Err.Error()
	}

	if err := p.deliveries.MarkFailed(ctx, d.ID, attempt, result.StatusCode, result.Body, errMsg); err != nil {
		return err
	}

	p.logger.Warn("delivery failed permanently",
		"delivery_id", d.ID,
		"webhook_id", webhook.ID,
		"attempts", attempt,
		"error", errMsg,
	)

	return p.webhooks.RecordOutcome(ctx, webhook.ID, false)
}
