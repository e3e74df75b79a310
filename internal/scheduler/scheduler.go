package scheduler

import (
	"context"
	"time"
)

// Scheduler invokes a job immediately and then on a fixed interval. The job
// itself never touches timers, which keeps it directly callable from tests
// and from the manual-refresh endpoint.
type Scheduler struct {
	interval time.Duration
}

func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{interval: interval}
}

// Start blocks until ctx is done. Run it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context, job func(context.Context)) {
	job(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}
