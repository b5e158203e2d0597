// Package scheduler runs the bot's jobs on cron schedules in the configured
// timezone.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner. Jobs receive a context that is cancelled
// when the scheduler's parent context ends.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *slog.Logger
}

// New creates a scheduler whose cron expressions are evaluated in loc.
func New(ctx context.Context, loc *time.Location, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		ctx:    ctx,
		logger: logger,
	}
}

// Add registers fn under the given cron spec. Job errors are logged, never
// fatal; the next tick runs regardless.
func (s *Scheduler) Add(spec, name string, fn func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Info("scheduled job starting", "job", name)
		if err := fn(s.ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Info("scheduled job finished", "job", name)
	})
	if err != nil {
		return fmt.Errorf("register %s schedule %q: %w", name, spec, err)
	}
	return nil
}

// Start begins dispatching jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts dispatch and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
