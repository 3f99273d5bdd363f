// Package jobs runs the engine's periodic background work on a cron
// scheduler: the unassigned-case sweep, the pending SLA report and the
// idempotency purge.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler wraps cron.Cron. Overlapping runs of the same job are skipped
// and panics are recovered and logged.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// NewScheduler builds a stopped scheduler. Each run gets its own context
// bounded by timeout (0 means unbounded).
func NewScheduler(timeout time.Duration) *Scheduler {
	logger := cronLogger{log.Logger.With().Str("component", "cron").Logger()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
}

// Add registers job on spec. An empty spec leaves the job disabled.
func (s *Scheduler) Add(spec string, job Job) error {
	if spec == "" {
		log.Info().Str("job", job.Name()).Msg("job disabled")
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() { s.runOnce(job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	log.Info().Str("job", job.Name()).Str("spec", spec).Msg("job scheduled")
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels in-flight runs and waits for them to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries reports how many jobs are scheduled.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) runOnce(job Job) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	l := log.Logger.With().Str("job", job.Name()).Logger()
	ctx = l.WithContext(ctx)

	start := time.Now()
	err := job.Run(ctx)
	jobRuns.WithLabelValues(job.Name(), resultLabel(err)).Inc()
	if err != nil {
		l.Error().Err(err).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	l.Debug().Dur("took", time.Since(start)).Msg("job finished")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
