package enrichment

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// SweepBackend is the storage surface the scheduler's periodic sweeps
// need. *storage.Store satisfies it.
type SweepBackend interface {
	ReapStaleLeases(ctx context.Context, ttl time.Duration) (int, error)
	EnqueueNeedyPeople(ctx context.Context, limit int) (int, error)
}

// Scheduler is the singleton background ticker loop: it feeds the queue,
// returns stale leases, and kicks off the importance sweep. It owns no
// worker threads of its own; workers drain the queue independently.
type Scheduler struct {
	backend SweepBackend
	logger  *slog.Logger

	// SweepEvery is the cadence of the stale-lease and re-enqueue sweeps.
	SweepEvery time.Duration
	// LeaseTTL is how long an in_progress lease may live.
	LeaseTTL time.Duration
	// EnqueueBatch bounds how many needy people one sweep queues.
	EnqueueBatch int
	// ScoreSweep, when set, runs the importance scorer each cadence.
	ScoreSweep func(ctx context.Context) error
}

// NewScheduler creates a scheduler with production defaults.
func NewScheduler(backend SweepBackend) *Scheduler {
	return &Scheduler{
		backend:      backend,
		logger:       slog.Default().With("component", "scheduler"),
		SweepEvery:   time.Hour,
		LeaseTTL:     15 * time.Minute,
		EnqueueBatch: 500,
	}
}

// Run ticks until the context is cancelled. The sweep in flight finishes
// before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.SweepEvery)
	defer ticker.Stop()

	// One sweep immediately at startup so a restart does not wait a full
	// cadence to recover stale leases.
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reaped, err := s.backend.ReapStaleLeases(gctx, s.LeaseTTL)
		if err != nil {
			s.logger.Error("stale lease reap failed", "error", err)
			return nil
		}
		if reaped > 0 {
			s.logger.Info("stale leases returned to pending", "count", reaped)
		}
		return nil
	})

	g.Go(func() error {
		queued, err := s.backend.EnqueueNeedyPeople(gctx, s.EnqueueBatch)
		if err != nil {
			s.logger.Error("re-enqueue sweep failed", "error", err)
			return nil
		}
		if queued > 0 {
			s.logger.Info("needy people queued", "count", queued)
		}
		return nil
	})

	if s.ScoreSweep != nil {
		g.Go(func() error {
			if err := s.ScoreSweep(gctx); err != nil {
				s.logger.Error("importance sweep failed", "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
}
