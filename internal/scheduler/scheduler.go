// Package scheduler runs the execution loop: wake up, execute whatever
// is due, sleep.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/teetime-agent/internal/engine"
)

// Scheduler ticks the engine at a fixed interval. Passes are serialized:
// one browser, one batch at a time. A pass that overruns the interval
// simply delays the next one instead of stacking a second browser on top.
type Scheduler struct {
	Engine   *engine.Engine
	Interval time.Duration
	Log      *zap.Logger

	mu sync.Mutex
}

func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// kick immediately
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	report, err := s.Engine.ExecuteDueBookings(ctx, start)
	if err != nil {
		s.Log.Error("execution pass failed", zap.Error(err))
		return
	}
	if report.TotalDue == 0 {
		return
	}
	s.Log.Info("execution pass done",
		zap.Int("due", report.TotalDue),
		zap.Int("executed", report.Executed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("took", time.Since(start)))
}
