package jobs

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/domain"
	"github.com/tbourn/go-case-router/internal/repo"
	"github.com/tbourn/go-case-router/internal/services"
)

// Assigner is the engine operation the sweep drives.
type Assigner interface {
	Assign(ctx context.Context, caseID string, priority domain.Priority) (*domain.Assignment, error)
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Visited  int
	Assigned int64
	NoLawyer int64
	Skipped  int64
	Failed   int64
}

// Sweep retries assignment for open cases that have no lawyer, e.g. after a
// rejection found no replacement or an earlier Assign saw nobody eligible.
type Sweep struct {
	DB          *gorm.DB
	Engine      Assigner
	Concurrency int
	Batch       int
}

// Name implements Job.
func (s *Sweep) Name() string { return "unassigned_sweep" }

// Run implements Job.
func (s *Sweep) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}

// Sweep assigns up to Batch unassigned open cases, oldest first, with at
// most Concurrency in flight. Per-case failures are counted and logged; only
// a failure to list cases fails the run.
func (s *Sweep) Sweep(ctx context.Context) (SweepResult, error) {
	cases, err := repo.ListUnassignedOpenCases(ctx, s.DB, s.Batch)
	if err != nil {
		return SweepResult{}, err
	}
	res := SweepResult{Visited: len(cases)}
	if len(cases) == 0 {
		return res, nil
	}

	limit := s.Concurrency
	if limit < 1 {
		limit = 1
	}
	var assigned, noLawyer, skipped, failed atomic.Int64
	logger := zerolog.Ctx(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, c := range cases {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			_, err := s.Engine.Assign(gctx, c.ID, c.Priority)
			switch {
			case err == nil:
				assigned.Add(1)
				sweepCases.WithLabelValues("assigned").Inc()
			case errors.Is(err, services.ErrNoLawyerAvailable):
				noLawyer.Add(1)
				sweepCases.WithLabelValues("no_lawyer").Inc()
			case errors.Is(err, services.ErrCaseAlreadyAssigned), errors.Is(err, services.ErrCaseClosed),
				errors.Is(err, services.ErrCaseNotFound):
				skipped.Add(1)
				sweepCases.WithLabelValues("skipped").Inc()
			default:
				failed.Add(1)
				sweepCases.WithLabelValues("failed").Inc()
				logger.Warn().Err(err).Str("case_id", c.ID).Msg("sweep assign failed")
			}
			return nil
		})
	}
	err = g.Wait()

	res.Assigned, res.NoLawyer = assigned.Load(), noLawyer.Load()
	res.Skipped, res.Failed = skipped.Load(), failed.Load()
	logger.Info().
		Int("visited", res.Visited).
		Int64("assigned", res.Assigned).
		Int64("no_lawyer", res.NoLawyer).
		Int64("failed", res.Failed).
		Msg("unassigned sweep done")
	return res, err
}
