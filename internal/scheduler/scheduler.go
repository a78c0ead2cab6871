// Package scheduler re-runs the pipeline on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is one scheduled unit of work.
type Task func(ctx context.Context) error

// Scheduler owns a seconds-resolution cron. A tick that fires while the
// previous run of the same task is still going is skipped.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  *zap.Logger
	task Task
}

func New(ctx context.Context, log *zap.Logger) *Scheduler {
	cl := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx: ctx,
		log: log,
	}
}

// Register schedules task under spec, a six-field cron expression or a
// descriptor such as "@every 1h".
func (s *Scheduler) Register(spec string, task Task) error {
	if _, err := s.cron.AddFunc(spec, func() { s.execute(task) }); err != nil {
		return fmt.Errorf("register %q: %w", spec, err)
	}
	s.task = task
	s.log.Info("task scheduled", zap.String("spec", spec))
	return nil
}

// RunNow executes the registered task immediately on the caller's
// goroutine.
func (s *Scheduler) RunNow() error {
	if s.task == nil {
		return fmt.Errorf("run now: no task registered")
	}
	return s.execute(s.task)
}

func (s *Scheduler) execute(task Task) error {
	start := time.Now()
	err := task(s.ctx)
	if err != nil {
		s.log.Error("scheduled run failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return err
	}
	s.log.Info("scheduled run complete", zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron and waits up to ctx for a running task to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out with a run in progress")
	}
	s.log.Info("scheduler stopped")
}
