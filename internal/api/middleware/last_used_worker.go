package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/hookline/internal/repository"
)

// LastUsedWorker batches API key last_used_at updates off the request
// path, debouncing repeated hits on the same key.
type LastUsedWorker struct {
	apiKeyRepo repository.APIKeyRepositoryInterface
	logger     *slog.Logger

	updateCh chan string

	recentlyUpdated map[string]time.Time
	mu              sync.RWMutex

	debounceInterval time.Duration
	batchInterval    time.Duration
	maxBatchSize     int

	done chan struct{}
	wg   sync.WaitGroup
}

type LastUsedWorkerConfig struct {
	BufferSize       int           // Channel buffer size (default: 1000)
	DebounceInterval time.Duration // Min interval between updates for same key (default: 1 minute)
	BatchInterval    time.Duration // Interval to process batch (default: 5 seconds)
	MaxBatchSize     int           // Max keys per batch (default: 100)
}

func DefaultLastUsedWorkerConfig() LastUsedWorkerConfig {
	return LastUsedWorkerConfig{
		BufferSize:       1000,
		DebounceInterval: 1 * time.Minute,
		BatchInterval:    5 * time.Second,
		MaxBatchSize:     100,
	}
}

func NewLastUsedWorker(
	apiKeyRepo repository.APIKeyRepositoryInterface,
	logger *slog.Logger,
	config LastUsedWorkerConfig,
) *LastUsedWorker {
	if config.BufferSize == 0 {
		config.BufferSize = 1000
	}
	if config.DebounceInterval == 0 {
		config.DebounceInterval = 1 * time.Minute
	}
	if config.BatchInterval == 0 {
		config.BatchInterval = 5 * time.Second
	}
	if config.MaxBatchSize == 0 {
		config.MaxBatchSize = 100
	}

	return &LastUsedWorker{
		apiKeyRepo:       apiKeyRepo,
		logger:           logger,
		updateCh:         make(chan string, config.BufferSize),
		recentlyUpdated:  make(map[string]time.Time),
		debounceInterval: config.DebounceInterval,
		batchInterval:    config.BatchInterval,
		maxBatchSize:     config.MaxBatchSize,
		done:             make(chan struct{}),
	}
}

func (w *LastUsedWorker) Start() {
	w.wg.Add(1)
	go w.run()
	w.logger.Info("last used worker started",
		"buffer_size", cap(w.updateCh),
		"debounce_interval", w.debounceInterval,
		"batch_interval", w.batchInterval,
	)
}

func (w *LastUsedWorker) Stop() {
	close(w.done)
	w.wg.Wait()
	w.logger.Info("last used worker stopped")
}

// Enqueue schedules a last_used update for the key hash. Non-blocking:
// when the buffer is full the update is dropped, it is not critical data.
func (w *LastUsedWorker) Enqueue(keyHash string) {
	w.mu.RLock()
	lastUpdate, exists := w.recentlyUpdated[keyHash]
	w.mu.RUnlock()

	if exists && time.Since(lastUpdate) < w.debounceInterval {
		return
	}

	select {
	case w.updateCh <- keyHash:
	default:
		w.logger.Debug("last used update dropped, buffer full")
	}
}

func (w *LastUsedWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.batchInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(5 * time.Minute)
	defer cleanupTicker.Stop()

	var batch []string

	for {
		select {
		case <-w.done:
			if len(batch) > 0 {
				w.processBatch(batch)
			}
			return

		case keyHash := <-w.updateCh:
			batch = append(batch, keyHash)
			if len(batch) >= w.maxBatchSize {
				w.processBatch(batch)
				batch = nil
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.processBatch(batch)
				batch = nil
			}

		case <-cleanupTicker.C:
			w.cleanupDebounceMap()
		}
	}
}

func (w *LastUsedWorker) processBatch(keyHashes []string) {
	seen := make(map[string]struct{})
	unique := make([]string, 0, len(keyHashes))
	for _, h := range keyHashes {
		if _, ok := seen[h]; !ok {
			seen[h] = struct{}{}
			unique = append(unique, h)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var successCount int
	for _, keyHash := range unique {
		if err := w.apiKeyRepo.UpdateLastUsedByHash(ctx, keyHash); err != nil {
			w.logger.Error("failed to update last used", "error", err)
			continue
		}

		w.mu.Lock()
		w.recentlyUpdated[keyHash] = time.Now()
		w.mu.Unlock()

		successCount++
	}

	if successCount > 0 {
		w.logger.Debug("batch last used update", "count", successCount)
	}
}

func (w *LastUsedWorker) cleanupDebounceMap() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	for keyHash, lastUpdate := range w.recentlyUpdated {
		if now.Sub(lastUpdate) > 2*w.debounceInterval {
			delete(w.recentlyUpdated, keyHash)
		}
	}
}
