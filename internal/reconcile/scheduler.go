package reconcile

import (
	"context"
	"log"
	"time"
)

// Scheduler triggers a reconcile run once per day at the configured time.
type Scheduler struct {
	runner  *Runner
	dailyAt string
	logger  *log.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(runner *Runner, dailyAt string, logger *log.Logger) *Scheduler {
	return &Scheduler{runner: runner, dailyAt: dailyAt, logger: logger}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.runner == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.shouldRun(now.UTC()) {
				continue
			}
			monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			if _, err := s.runner.Run(ctx, monthStart); err != nil && s.logger != nil {
				s.logger.Printf("reconcile schedule error: month=%s err=%v", monthStart.Format("2006-01"), err)
			}
		}
	}
}

func (s *Scheduler) shouldRun(now time.Time) bool {
	t, err := time.Parse("15:04", s.dailyAt)
	if err != nil {
		return false
	}
	return now.Hour() == t.Hour() && now.Minute() == t.Minute()
}
