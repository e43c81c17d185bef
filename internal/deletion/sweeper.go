package deletion

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tutela/internal/platform/metrics"
)

// Sweeper drives the scheduler's purge execution on a fixed interval. A tick
// that arrives while the previous sweep is still running is skipped rather
// than queued: purges are idempotent and the next tick will pick up whatever
// is still due.
type Sweeper struct {
	scheduler *Scheduler
	interval  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewSweeper(scheduler *Scheduler, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		scheduler: scheduler,
		interval:  interval,
		logger:    logger,
		metrics:   m,
	}
}

// Start launches the sweep loop. An immediate first sweep runs so purges due
// across a restart are not delayed by a full interval.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop cancels the loop and waits for an in-flight sweep to finish its
// current subject.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass. Returns false when a pass was already in
// flight and this one was skipped.
func (s *Sweeper) Sweep(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		if s.metrics != nil {
			s.metrics.SweepsSkipped.Inc()
		}
		s.logger.WarnContext(ctx, "purge sweep skipped: previous sweep still running")
		return false
	}
	defer s.running.Store(false)

	purged, err := s.scheduler.RunDuePurges(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "purge sweep failed", "purged", purged, "error", err)
		return true
	}
	if purged > 0 {
		s.logger.InfoContext(ctx, "purge sweep completed", "purged", purged)
	}
	return true
}
