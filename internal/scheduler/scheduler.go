// Package scheduler runs the periodic maintenance jobs: idle session
// sweeps and nightly index rebuilds.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

var specParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithParser(specParser)),
		logger: logger.With("component", "scheduler"),
	}
}

// Add registers a named job. Specs accept standard five-field cron
// expressions and descriptors like "@every 1m".
func (s *Scheduler) Add(spec, name string, job func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("job started", "job", name)
		job(context.Background())
	})
	if err != nil {
		return fmt.Errorf("add job %s (%q): %w", name, spec, err)
	}
	return nil
}

// Start runs jobs until ctx is cancelled, then waits for in-flight jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
	return nil
}
