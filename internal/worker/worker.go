// Package worker runs the API's background jobs on a cron schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// HoldExpirer cancels reservations whose slot hold has timed out.
type HoldExpirer interface {
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

// Scheduler owns the cron runner. Jobs never overlap with themselves: a run
// that is still going when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// New constructs a Scheduler. A nil logger discards log output.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger}))),
		log:  logger,
	}
}

// AddHoldSweep schedules ExpireStale(ttl). Each run gets its own timeout.
func (s *Scheduler) AddHoldSweep(schedule string, exp HoldExpirer, ttl, timeout time.Duration) error {
	_, err := s.cron.AddFunc(schedule, func() {
		SweepHolds(context.Background(), exp, ttl, timeout, s.log)
	})
	if err != nil {
		return fmt.Errorf("worker.Scheduler.AddHoldSweep: %w", err)
	}
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SweepHolds runs one hold expiry pass and logs the outcome.
func SweepHolds(ctx context.Context, exp HoldExpirer, ttl, timeout time.Duration, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	n, err := exp.ExpireStale(ctx, ttl)
	if err != nil {
		log.ErrorContext(ctx, "hold sweep failed", "expired", n, "error", err)
		return
	}
	if n > 0 {
		log.InfoContext(ctx, "hold sweep", "expired", n, "duration_ms", time.Since(start).Milliseconds())
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
