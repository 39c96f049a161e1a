// Package scheduler drives one independent polling task per registered
// source. Each task fetches through the source adapter, atomically replaces
// the in-memory snapshot and the persisted item set on success, and keeps
// the previous snapshot on failure. A failing or slow source never blocks
// another source's task.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evgeniytob14/table/internal/adapter"
	"github.com/evgeniytob14/table/internal/models"
	"github.com/evgeniytob14/table/internal/repository"
	"github.com/evgeniytob14/table/internal/snapshot"
)

// ErrUnknownSource is returned by ForceRefresh for an unregistered id.
var ErrUnknownSource = errors.New("unknown source")

// ErrNotRunning is returned when a refresh is requested before Start.
var ErrNotRunning = errors.New("scheduler is not running")

// Config holds the generic polling policy shared by every source.
type Config struct {
	DefaultInterval time.Duration // used when a source has no interval of its own
	MaxAttempts     int           // fetch attempts per cycle, including the first
	RetryDelay      time.Duration // fixed delay between attempts
	FetchTimeout    time.Duration // per-attempt timeout
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultInterval: 5 * time.Minute,
		MaxAttempts:     3,
		RetryDelay:      5 * time.Second,
		FetchTimeout:    30 * time.Second,
	}
}

// RefreshResult is the outcome of one out-of-band fetch.
type RefreshResult struct {
	ItemCount int    `json:"itemCount"`
	Error     string `json:"error,omitempty"`
}

type refreshRequest struct {
	reply chan RefreshResult
}

// Scheduler owns the polling goroutines. Construct with New, then Start
// once; Stop waits for every task to finish its current attempt.
type Scheduler struct {
	cfg      Config
	registry *adapter.Registry
	store    *snapshot.Store
	repo     repository.ItemRepository
	log      *slog.Logger

	refresh map[string]chan refreshRequest

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler for every source in the registry.
func New(
	cfg Config,
	registry *adapter.Registry,
	store *snapshot.Store,
	repo repository.ItemRepository,
	log *slog.Logger,
) *Scheduler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	refresh := make(map[string]chan refreshRequest, registry.Len())
	for _, id := range registry.IDs() {
		refresh[id] = make(chan refreshRequest)
	}

	return &Scheduler{
		cfg:      cfg,
		registry: registry,
		store:    store,
		repo:     repo,
		log:      log,
		refresh:  refresh,
	}
}

// Start launches one polling goroutine per source. Each polls immediately,
// then on its own interval until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, id := range s.registry.IDs() {
		src, _ := s.registry.Get(id)
		s.wg.Add(1)
		go s.runSource(src)
	}

	s.log.InfoContext(ctx, "poll scheduler started", "sources", s.registry.Len())
}

// Stop cancels every polling task and waits for them to exit, or until ctx
// expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("poll scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for pollers to stop: %w", ctx.Err())
	}
}

// runSource is the polling loop of one source. The refresh channel serves
// out-of-band fetches without touching the ticker, so a forced refresh
// never shifts the regular schedule.
func (s *Scheduler) runSource(src adapter.Source) {
	defer s.wg.Done()

	interval := src.Interval
	if interval <= 0 {
		interval = s.cfg.DefaultInterval
	}
	log := s.log.With("source", src.ID)

	s.pollSource(src, log)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Info("poller exiting")
			return
		case <-ticker.C:
			s.pollSource(src, log)
		case req := <-s.refresh[src.ID]:
			count, err := s.pollSource(src, log)
			result := RefreshResult{ItemCount: count}
			if err != nil {
				result.Error = err.Error()
			}
			req.reply <- result
		}
	}
}

// pollSource runs one fetch cycle: bounded retries with a fixed delay, then
// either an atomic snapshot replace plus persistence, or an error status
// with the previous snapshot retained.
func (s *Scheduler) pollSource(src adapter.Source, log *slog.Logger) (int, error) {
	start := time.Now()

	items, err := s.fetchWithRetry(src)
	if err != nil {
		log.Warn("fetch failed, keeping previous snapshot",
			"attempts", s.cfg.MaxAttempts, "error", err)
		s.store.SetError(src.ID, err)
		return 0, err
	}

	now := time.Now()
	snap := s.store.Replace(src.ID, items, now)

	// The persisted write must not be cut short by shutdown: a cancelled
	// transaction would roll back and lose the fetched set.
	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = s.repo.ReplaceItems(persistCtx, src.ID, itemsOf(snap)); err != nil {
		log.Error("failed to persist snapshot", "error", err)
	}

	log.Info("source updated", "items", len(snap.Items), "duration", time.Since(start))

	return len(snap.Items), nil
}

// fetchWithRetry calls the adapter up to MaxAttempts times with a fixed
// delay in between. The delay is a cooperative wait: cancellation abandons
// the pending sleep.
func (s *Scheduler) fetchWithRetry(src adapter.Source) ([]models.Item, error) {
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		fetchCtx, cancel := context.WithTimeout(s.ctx, s.cfg.FetchTimeout)
		items, err := src.Adapter.Fetch(fetchCtx)
		cancel()
		if err == nil {
			return items, nil
		}
		lastErr = err

		if attempt == s.cfg.MaxAttempts {
			break
		}
		select {
		case <-s.ctx.Done():
			return nil, lastErr
		case <-time.After(s.cfg.RetryDelay):
		}
	}

	return nil, lastErr
}

// itemsOf flattens a published snapshot back into the slice shape the
// repository persists.
func itemsOf(snap *models.Snapshot) []models.Item {
	items := make([]models.Item, 0, len(snap.Items))
	for _, item := range snap.Items {
		items = append(items, item)
	}
	return items
}

// ForceRefresh triggers an out-of-band fetch for one source and waits for
// its outcome.
func (s *Scheduler) ForceRefresh(ctx context.Context, sourceID string) (RefreshResult, error) {
	ch, ok := s.refresh[sourceID]
	if !ok {
		return RefreshResult{}, fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	if s.ctx == nil {
		return RefreshResult{}, ErrNotRunning
	}

	req := refreshRequest{reply: make(chan RefreshResult, 1)}
	select {
	case ch <- req:
	case <-ctx.Done():
		return RefreshResult{}, fmt.Errorf("refresh request: %w", ctx.Err())
	case <-s.ctx.Done():
		return RefreshResult{}, ErrNotRunning
	}

	select {
	case result := <-req.reply:
		return result, nil
	case <-ctx.Done():
		return RefreshResult{}, fmt.Errorf("waiting for refresh: %w", ctx.Err())
	}
}

// ForceRefreshAll refreshes every registered source sequentially and
// reports the per-source outcome. One source's failure does not stop the
// rest.
func (s *Scheduler) ForceRefreshAll(ctx context.Context) map[string]RefreshResult {
	results := make(map[string]RefreshResult, s.registry.Len())
	for _, id := range s.registry.IDs() {
		result, err := s.ForceRefresh(ctx, id)
		if err != nil {
			result = RefreshResult{Error: err.Error()}
		}
		results[id] = result
	}
	return results
}
