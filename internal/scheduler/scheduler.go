// Package scheduler drives the timer-based execution of pipeline stages.
// Each stage is one repeating cron entry guarded by a run lock: a scheduled
// or manual trigger that would overlap a running cycle of the same stage is
// rejected, never queued. Different stages run independently.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/intelpipe/internal/application"
	"github.com/turtacn/intelpipe/internal/infrastructure/monitoring"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/errors"
	"github.com/turtacn/intelpipe/pkg/logger"
)

// RunLock serializes runs of one stage. TryLock never blocks; callers skip
// the cycle when the lock is held. On success the returned release function
// is bound to that acquisition: a holder whose lock lapsed and was taken over
// by a later run must not be able to free the later run's lock.
type RunLock interface {
	TryLock(ctx context.Context) (release func(ctx context.Context) error, acquired bool, err error)
}

// LocalLock is the in-process RunLock used when no redis is configured.
type LocalLock struct {
	mu sync.Mutex
}

// TryLock implements RunLock.
func (l *LocalLock) TryLock(ctx context.Context) (func(ctx context.Context) error, bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		l.mu.Unlock()
		return nil
	}, true, nil
}

type stageEntry struct {
	runner application.StageRunner
	lock   RunLock
}

// Scheduler owns the cron instance and the per-stage locks.
type Scheduler struct {
	cron    *cron.Cron
	stages  map[constants.Stage]*stageEntry
	timeout time.Duration
	tracer  *monitoring.Tracer
	logger  logger.Logger
}

// New creates a scheduler. runTimeout bounds a single stage run; it doubles
// as the deadline manual triggers inherit.
func New(runTimeout time.Duration, log logger.Logger) *Scheduler {
	if runTimeout <= 0 {
		runTimeout = constants.DefaultRunLockTTL
	}
	return &Scheduler{
		cron:    cron.New(),
		stages:  make(map[constants.Stage]*stageEntry),
		timeout: runTimeout,
		logger:  log.WithComponent("scheduler"),
	}
}

// WithTracer enables one span per stage run.
func (s *Scheduler) WithTracer(tracer *monitoring.Tracer) *Scheduler {
	s.tracer = tracer
	return s
}

// Register schedules a stage to run at the given interval under the given
// lock.
func (s *Scheduler) Register(runner application.StageRunner, interval time.Duration, lock RunLock) error {
	stage := runner.Stage()
	if _, dup := s.stages[stage]; dup {
		return errors.New(errors.CodeInvalidConfig, "stage %s registered twice", stage)
	}
	s.stages[stage] = &stageEntry{runner: runner, lock: lock}

	_, err := s.cron.AddFunc("@every "+interval.String(), func() {
		if err := s.runStage(context.Background(), stage, false); err != nil && !errors.HasCode(err, errors.CodeConflict) {
			s.logger.Error(context.Background(), "scheduled run failed", err, logger.Fields{"stage": stage})
		}
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidConfig, "scheduling stage %s", stage)
	}
	return nil
}

// Trigger performs a manual run of the stage, bypassing the schedule but not
// the run lock. It returns a conflict error when a run of the same stage is
// already in progress.
func (s *Scheduler) Trigger(ctx context.Context, stage constants.Stage) error {
	return s.runStage(ctx, stage, true)
}

// Runner exposes the registered runner for a stage, for summary queries.
func (s *Scheduler) Runner(stage constants.Stage) (application.StageRunner, bool) {
	entry, ok := s.stages[stage]
	if !ok {
		return nil, false
	}
	return entry.runner, true
}

func (s *Scheduler) runStage(ctx context.Context, stage constants.Stage, force bool) error {
	entry, ok := s.stages[stage]
	if !ok {
		return errors.New(errors.CodeNotFound, "unknown stage %s", stage)
	}

	release, acquired, err := entry.lock.TryLock(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		s.logger.Warn(ctx, "stage run already in progress, skipping", logger.Fields{"stage": stage})
		return errors.New(errors.CodeConflict, "stage %s run already in progress", stage)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if s.tracer != nil {
		var span trace.Span
		runCtx, span = s.tracer.StartSpan(runCtx, "stage."+string(stage))
		defer span.End()
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.logger.Error(ctx, "failed to release run lock", err, logger.Fields{"stage": stage})
		}
	}()

	_, err = entry.runner.Run(runCtx, force)
	return err
}

// Start begins scheduled execution.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(context.Background(), "scheduler started", logger.Fields{"stages": len(s.stages)})
}

// Stop halts scheduling and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info(context.Background(), "scheduler stopped")
}
