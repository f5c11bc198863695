package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

// Runner executes one monitoring pass.
type Runner interface {
	Run(ctx context.Context) (domain.RunReport, error)
}

// Scheduler wires the cron driver with the pipeline and guarantees at most
// one run in flight per process.
type Scheduler struct {
	driver  ports.Scheduler
	runner  Runner
	logger  *slog.Logger
	running atomic.Bool
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, runner: runner, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.Trigger(ctx, trigger)
	})
}

// Trigger runs the pipeline unless a run is already active, in which case
// the trigger is skipped. It reports whether a run happened.
func (s *Scheduler) Trigger(ctx context.Context, trigger time.Time) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous run still active, trigger skipped", "trigger", trigger)
		return false
	}
	defer s.running.Store(false)

	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
	}
	return true
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
