package session

import (
	"context"
	"sync"
	"time"

	"nutriiq/pkg/logger"
)

// Sweepable is anything with TTL-bounded entries the sweeper can evict.
// Both the session store and the OAuth attempt store satisfy it.
type Sweepable interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Sweeper eagerly evicts expired entries on a fixed interval. Lazy expiry on
// read still applies; the sweeper exists so abandoned entries do not
// accumulate between reads.
type Sweeper struct {
	interval time.Duration
	targets  []Sweepable
	log      logger.Logger
	done     chan struct{}
	once     sync.Once
}

func NewSweeper(interval time.Duration, log logger.Logger, targets ...Sweepable) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		interval: interval,
		targets:  targets,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start launches the background loop. Call Stop to terminate it.
func (s *Sweeper) Start() {
	go s.run()
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepNow(context.Background(), time.Now())
		case <-s.done:
			return
		}
	}
}

// SweepNow runs one pass over every target and returns the total removed.
func (s *Sweeper) SweepNow(ctx context.Context, now time.Time) int {
	total := 0
	for _, target := range s.targets {
		removed, err := target.Sweep(ctx, now)
		if err != nil {
			s.log.Warn(ctx, "sweep failed", logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		total += removed
	}
	if total > 0 {
		s.log.Debug(ctx, "swept expired entries", logger.Field{Key: "removed", Value: total})
	}
	return total
}

// Stop terminates the background loop. Idempotent.
func (s *Sweeper) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
}
