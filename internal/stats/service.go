package stats

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const DefaultEventWindow = 24 * time.Hour

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// WebhookStats assembles the per-webhook report. The success rate is
// computed over terminal outcomes only; a webhook that never delivered
// reports 0.
func (s *Service) WebhookStats(ctx context.Context, tenantID, webhookID uuid.UUID) (*WebhookStats, error) {
	stats, err := s.repo.WebhookCounters(ctx, tenantID, webhookID)
	if err != nil {
		return nil, err
	}

	pending, retrying, err := s.repo.QueueDepth(ctx, webhookID)
	if err != nil {
		return nil, err
	}
	stats.PendingDeliveries = pending
	stats.RetryingDeliveries = retrying

	failures, err := s.repo.FailuresSince(ctx, webhookID, time.Now().Add(-time.Hour))
	if err != nil {
		return nil, err
	}
	stats.FailuresLastHour = failures

	if stats.TotalDeliveries > 0 {
		stats.SuccessRate = float64(stats.SuccessfulDeliveries) / float64(stats.TotalDeliveries)
	}

	return stats, nil
}

// EventStats summarizes the tenant's event log over the window ending now.
// A non-positive window falls back to the default 24 hours.
func (s *Service) EventStats(ctx context.Context, tenantID uuid.UUID, window time.Duration) (*EventStats, error) {
	if window <= 0 {
		window = DefaultEventWindow
	}

	to := time.Now()
	from := to.Add(-window)

	counts, err := s.repo.EventCounts(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, c := range counts {
		total += c.Count
	}

	return &EventStats{
		From:   from,
		To:     to,
		Total:  total,
		ByType: counts,
	}, nil
}
