// Package services – AssignmentService
//
// This file implements the assignment selector: it asks the lawyer directory
// for candidates, filters and ranks them, and atomically creates a pending
// assignment for the best one. Lifecycle transitions live in lifecycle.go.
//
// Concurrency: capacity check and insert for a lawyer are serialized by an
// in-process per-lawyer lock, and repeated inside one database transaction
// against a fresh count. A race detected there is retried a bounded number
// of times before surfacing ErrStorageConflict.
//
// Observability: public methods open OpenTelemetry spans and log through
// the request-scoped zerolog logger found in ctx.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/domain"
	"github.com/tbourn/go-case-router/internal/repo"
	"github.com/tbourn/go-case-router/internal/utils"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxAttempts   = 3
	defaultRetryBackoff  = 20 * time.Millisecond
	defaultNotifyTimeout = 5 * time.Second
)

// AssignmentService is the case assignment engine.
type AssignmentService struct {
	DB        *gorm.DB
	Directory LawyerDirectory
	Cases     CaseStore
	Notifier  Notifier

	Weights       ScoreWeights
	MaxAttempts   int
	RetryBackoff  time.Duration
	NotifyTimeout time.Duration

	locks    lawyerLocks
	inflight sync.WaitGroup
}

// NewAssignmentService wires the engine to the GORM-backed directory and
// case store with default tuning. A nil notifier disables notifications.
func NewAssignmentService(db *gorm.DB, n Notifier) *AssignmentService {
	return &AssignmentService{
		DB:            db,
		Directory:     RepoDirectory{},
		Cases:         RepoCaseStore{},
		Notifier:      n,
		Weights:       DefaultScoreWeights(),
		MaxAttempts:   defaultMaxAttempts,
		RetryBackoff:  defaultRetryBackoff,
		NotifyTimeout: defaultNotifyTimeout,
	}
}

// AssignmentStats is the operator view returned by Stats.
type AssignmentStats struct {
	ByStatus []repo.StatusCount `json:"by_status"`
	Lawyers  []repo.LawyerLoad  `json:"lawyers"`
}

// Assign selects the best eligible lawyer for caseID and creates a pending
// assignment. It returns ErrNoLawyerAvailable when nobody is eligible, in
// which case nothing is written.
func (s *AssignmentService) Assign(ctx context.Context, caseID string, priority domain.Priority) (*domain.Assignment, error) {
	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "Assign",
		trace.WithAttributes(
			attribute.String("case.id", caseID),
			attribute.String("case.priority", string(priority)),
		),
	)
	defer span.End()

	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	a, err := s.assign(ctx, caseID, priority, nil)
	assignOutcomes.WithLabelValues(outcomeLabel(err)).Inc()
	if err != nil {
		if !errors.Is(err, ErrNoLawyerAvailable) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("lawyer.id", a.LawyerID))
	return a, nil
}

// Candidates returns the ranked eligible set for a priority, best first.
// Lawyers in exclude are left out.
func (s *AssignmentService) Candidates(ctx context.Context, priority domain.Priority, exclude []string) ([]ScoredLawyer, error) {
	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "Candidates",
		trace.WithAttributes(attribute.String("case.priority", string(priority))),
	)
	defer span.End()

	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}
	set := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		set[id] = struct{}{}
	}
	return s.rank(ctx, s.DB, priority, set)
}

// History returns a page of a case's assignments, newest first, plus the
// total count.
func (s *AssignmentService) History(ctx context.Context, caseID string, page, pageSize int) ([]domain.Assignment, int64, error) {
	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("case.id", caseID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if _, err := s.caseStore().GetCase(ctx, s.DB, caseID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrCaseNotFound
		}
		return nil, 0, err
	}
	_, pageSize, offset := utils.ClampPage(page, pageSize)

	total, err := repo.CountAssignmentsForCase(ctx, s.DB, caseID)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListAssignmentsForCasePage(ctx, s.DB, caseID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// HistoryStamp returns the number of assignment rows for caseID and the
// latest UpdatedAt among them (nil when there are none). Handlers derive
// the history ETag from it.
func (s *AssignmentService) HistoryStamp(ctx context.Context, caseID string) (int64, *time.Time, error) {
	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "HistoryStamp",
		trace.WithAttributes(attribute.String("case.id", caseID)),
	)
	defer span.End()

	count, updated, err := repo.AssignmentsStats(ctx, s.DB, caseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, nil, err
	}
	span.SetAttributes(attribute.Int64("assignments.count", count))
	return count, updated, nil
}

// Stats returns assignment counts by status and the live load per lawyer.
func (s *AssignmentService) Stats(ctx context.Context) (*AssignmentStats, error) {
	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "Stats")
	defer span.End()

	byStatus, err := repo.AssignmentStatusCounts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	loads, err := repo.LawyerLoads(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	return &AssignmentStats{ByStatus: byStatus, Lawyers: loads}, nil
}

// assign runs the selection with bounded retries on write conflicts and
// notifies the chosen lawyer after commit.
func (s *AssignmentService) assign(ctx context.Context, caseID string, priority domain.Priority, exclude map[string]struct{}) (*domain.Assignment, error) {
	var (
		a    *domain.Assignment
		pick *ScoredLawyer
		c    *domain.Case
	)
	err := s.withRetry(ctx, "assign", func() error {
		var err error
		a, pick, c, err = s.tryAssign(ctx, caseID, priority, exclude)
		return err
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("case_id", caseID).
		Str("lawyer_id", a.LawyerID).
		Str("assignment_id", a.ID).
		Float64("score", pick.Score).
		Msg("case assigned")

	s.notify(ctx, pick.UserID, c.Summary, caseID)
	return a, nil
}

// tryAssign is one selection attempt. Errors wrapping errConflict are
// retryable.
func (s *AssignmentService) tryAssign(ctx context.Context, caseID string, priority domain.Priority, exclude map[string]struct{}) (*domain.Assignment, *ScoredLawyer, *domain.Case, error) {
	if err := s.checkAssignable(ctx, s.DB, caseID); err != nil {
		return nil, nil, nil, err
	}

	ranked, err := s.rank(ctx, s.DB, priority, exclude)
	if err != nil {
		return nil, nil, nil, classifyWrite(err)
	}
	if len(ranked) == 0 {
		return nil, nil, nil, ErrNoLawyerAvailable
	}
	best := ranked[0]

	unlock := s.locks.Lock(best.ID)
	defer unlock()

	var (
		created *domain.Assignment
		c       *domain.Case
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkAssignable(ctx, tx, caseID); err != nil {
			return err
		}

		l, err := repo.LockLawyer(ctx, tx, best.ID)
		if err != nil {
			return fmt.Errorf("%w: lawyer %s vanished: %v", errConflict, best.ID, err)
		}
		if l.VerificationStatus != domain.VerificationVerified || l.AccountStatus != domain.AccountActive {
			return fmt.Errorf("%w: lawyer %s no longer eligible", errConflict, best.ID)
		}
		n, err := repo.CountActiveAssignments(ctx, tx, best.ID)
		if err != nil {
			return err
		}
		if n >= int64(l.MaxConcurrentCases) {
			return fmt.Errorf("%w: lawyer %s reached capacity", errConflict, best.ID)
		}

		created, err = repo.CreateAssignment(ctx, tx, caseID, best.ID, priority)
		if err != nil {
			if repo.IsUniqueViolation(err) {
				return ErrCaseAlreadyAssigned
			}
			return err
		}
		if err := s.caseStore().SetCaseLawyer(ctx, tx, caseID, best.ID, priority); err != nil {
			return err
		}
		c, err = s.caseStore().GetCase(ctx, tx, caseID)
		return err
	})
	if err != nil {
		return nil, nil, nil, classifyWrite(err)
	}
	return created, &best, c, nil
}

// checkAssignable verifies the case exists, is open and has no active
// assignment.
func (s *AssignmentService) checkAssignable(ctx context.Context, db *gorm.DB, caseID string) error {
	c, err := s.caseStore().GetCase(ctx, db, caseID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCaseNotFound
		}
		return err
	}
	if c.Status != domain.CaseOpen {
		return ErrCaseClosed
	}
	if _, err := repo.GetActiveAssignment(ctx, db, caseID); err == nil {
		return ErrCaseAlreadyAssigned
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}

func (s *AssignmentService) rank(ctx context.Context, db *gorm.DB, priority domain.Priority, exclude map[string]struct{}) ([]ScoredLawyer, error) {
	dir := s.Directory
	if dir == nil {
		dir = RepoDirectory{}
	}
	cands, err := dir.ListLawyerCandidates(ctx, db, priority)
	if err != nil {
		return nil, err
	}
	w := s.Weights
	if w.Validate() != nil {
		w = DefaultScoreWeights()
	}
	return Rank(FilterEligible(cands, exclude), w), nil
}

// withRetry runs fn until it succeeds, fails with a non-conflict error, or
// the attempt budget is spent.
func (s *AssignmentService) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := s.MaxAttempts
	if attempts < 1 {
		attempts = defaultMaxAttempts
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, errConflict) {
			return err
		}
		last = err
		storageConflicts.Inc()
		zerolog.Ctx(ctx).Debug().Err(err).Str("op", op).Int("attempt", attempt).Msg("write conflict, retrying")

		if attempt < attempts && s.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.RetryBackoff * time.Duration(attempt)):
			}
		}
	}
	zerolog.Ctx(ctx).Warn().Err(last).Str("op", op).Int("attempts", attempts).Msg("write conflict retries exhausted")
	return fmt.Errorf("%w: %s after %d attempts: %v", ErrStorageConflict, op, attempts, last)
}

// notify delivers the assigned event in the background after commit. Each
// delivery runs under NotifyTimeout, detached from caller cancellation, and
// never fails or delays the operation.
func (s *AssignmentService) notify(ctx context.Context, lawyerUserID, summary, caseID string) {
	if s.Notifier == nil {
		return
	}
	timeout := s.NotifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()
		if err := s.Notifier.NotifyAssigned(nctx, lawyerUserID, summary, caseID); err != nil {
			notifierFailures.Inc()
			zerolog.Ctx(nctx).Warn().Err(err).
				Str("case_id", caseID).
				Str("lawyer_user_id", lawyerUserID).
				Msg("assignment notification failed")
		}
	}()
}

// DrainNotifications waits for in-flight notifications, or for ctx.
func (s *AssignmentService) DrainNotifications(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AssignmentService) caseStore() CaseStore {
	if s.Cases == nil {
		return RepoCaseStore{}
	}
	return s.Cases
}

// classifyWrite turns driver busy/serialization failures into retryable
// conflicts and leaves everything else alone.
func classifyWrite(err error) error {
	if err == nil || errors.Is(err, errConflict) {
		return err
	}
	if repo.IsBusy(err) {
		return fmt.Errorf("%w: %v", errConflict, err)
	}
	return err
}
