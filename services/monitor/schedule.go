package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs Poll on a cron spec.
type Scheduler struct {
	cron    *cron.Cron
	monitor *Monitor
	logger  *slog.Logger
}

// NewScheduler registers monitor.Poll under spec. Specs take an optional
// seconds field, e.g. "*/30 * * * * *" or "@every 1m".
func NewScheduler(ctx context.Context, monitor *Monitor, spec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithParser(cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
		monitor: monitor,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(ctx) }); err != nil {
		return nil, fmt.Errorf("monitor: register poll %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.monitor.Poll(ctx); err != nil {
		s.logger.Error("scheduled poll finished with errors", slog.String("error", err.Error()))
	}
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("monitor scheduler started")
}

// Stop stops scheduling and waits for a running poll to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("monitor scheduler stopped")
}
