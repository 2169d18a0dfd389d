package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cuongbtq/agency-be/internal/recurrence"
)

// Runner runs one recurrence cycle
type Runner interface {
	CheckAndSpawnRecurringJobs(ctx context.Context) (*recurrence.Summary, error)
}

// Scheduler triggers the recurrence engine on a cron schedule. Overlapping
// ticks are skipped while a cycle is still running.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	logger  *slog.Logger
	timeout time.Duration
	ctx     context.Context
}

// NewScheduler parses spec, a standard cron expression or an @every descriptor
func NewScheduler(spec string, runner Runner, logger *slog.Logger, timeout time.Duration) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:  runner,
		logger:  logger,
		timeout: timeout,
		ctx:     context.Background(),
	}

	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(s.ctx) }); err != nil {
		return nil, fmt.Errorf("invalid recurrence schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins ticking. Cycles run under ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("Recurrence scheduler started")
}

// Stop waits for a running cycle or until ctx expires
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Recurrence scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Recurrence scheduler stop timed out")
	}
}

// RunOnce runs a single cycle and logs its outcome
func (s *Scheduler) RunOnce(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	summary, err := s.runner.CheckAndSpawnRecurringJobs(ctx)
	if err != nil {
		s.logger.Error("Recurrence cycle failed", slog.Any("error", err))
		return
	}

	if summary.Skipped {
		s.logger.Info("Recurrence cycle skipped, lock held elsewhere")
		return
	}
	s.logger.Info("Recurrence cycle finished",
		slog.Int("jobs_spawned", summary.Spawned),
		slog.Int("templates", len(summary.Results)),
		slog.Duration("duration", time.Since(start)),
	)
}
