package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/przemekbroda/sessionstore/internal/metrics"
	"github.com/przemekbroda/sessionstore/metadata"
)

// ExpirySweeper periodically deletes session metadata rows whose expiry has
// passed. Cache entries expire on their own; the sweeper only keeps the
// durable table from growing without bound. It never blocks request
// processing and a failed tick is logged and retried by the next tick.
type ExpirySweeper struct {
	repo       metadata.Repository
	interval   time.Duration
	maxRetries uint
	log        zerolog.Logger
	metrics    *metrics.Metrics

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewExpirySweeper creates a sweeper; it does nothing until Start.
func NewExpirySweeper(repo metadata.Repository, cfg SweeperConfig, logger zerolog.Logger, m *metrics.Metrics) *ExpirySweeper {
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 1
	}
	return &ExpirySweeper{
		repo:       repo,
		interval:   cfg.Interval,
		maxRetries: maxRetries,
		log:        logger,
		metrics:    m,
	}
}

// Start launches the sweep loop on its own goroutine. The loop stops when
// ctx is cancelled or Stop is called; a pending tick is abandoned, an
// in-flight delete completes or rolls back on its own. Start is idempotent,
// and a no-op once Stop has been called.
func (s *ExpirySweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop cancels the loop and waits for it to exit. Safe to call more than
// once, and before Start; the loop can never be launched afterwards.
func (s *ExpirySweeper) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *ExpirySweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("expiry sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.metrics.Inc(metrics.MetricSweepFailure)
				s.log.Error().Err(err).Msg("sweep tick failed")
			}
		}
	}
}

// SweepOnce performs a single sweep pass and reports how many rows it
// removed. Transient repository failures are retried with exponential
// backoff within the pass; the pass is idempotent, so a second call right
// after a successful one deletes nothing.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	removed, err := backoff.Retry(ctx, func() (int, error) {
		return s.repo.DeleteExpired(ctx, time.Now())
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxRetries),
	)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.metrics.Add(metrics.MetricRowsSwept, uint64(removed))
		s.log.Info().Int("removed", removed).Msg("swept expired session records")
	}
	return removed, nil
}
