package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-case-router/internal/domain"
	"github.com/tbourn/go-case-router/internal/repo"
)

// assignedEngine seeds lawyers and one case, and assigns it.
func assignedEngine(t *testing.T, seeds ...lawyerSeed) (*AssignmentService, *recordingNotifier, *domain.Assignment) {
	t.Helper()
	db := newTestDB(t)
	seedLawyers(t, db, seeds...)
	seedCases(t, db, "C1")
	n := &recordingNotifier{}
	s := newEngine(db, n)
	a, err := s.Assign(context.Background(), "C1", domain.PriorityHigh)
	require.NoError(t, err)
	return s, n, a
}

func TestAccept_ThenComplete(t *testing.T) {
	s, _, a := assignedEngine(t, lawyerSeed{id: "L1", max: 2})
	ctx := context.Background()

	acc, err := s.Accept(ctx, "L1", "C1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, acc.ID)
	assert.Equal(t, domain.AssignmentAccepted, acc.Status)
	assert.NotNil(t, acc.AcceptedAt)
	assert.EqualValues(t, 1, activeCount(t, s.DB, "L1"))

	_, err = s.Accept(ctx, "L1", "C1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := s.Complete(ctx, "L1", "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)
	assert.Zero(t, activeCount(t, s.DB, "L1"))

	c, err := repo.GetCase(ctx, s.DB, "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseClosed, c.Status)
	require.NotNil(t, c.LawyerID)
	assert.Equal(t, "L1", *c.LawyerID)

	_, err = s.Complete(ctx, "L1", "C1")
	assert.ErrorIs(t, err, ErrStaleTransition)
}

func TestAccept_WrongLawyerIsStale(t *testing.T) {
	s, _, _ := assignedEngine(t, lawyerSeed{id: "L1", max: 2, ratings: []float64{5}}, lawyerSeed{id: "L2", max: 2})

	_, err := s.Accept(context.Background(), "L2", "C1")
	assert.ErrorIs(t, err, ErrStaleTransition)

	a, err := repo.GetActiveAssignment(context.Background(), s.DB, "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentPending, a.Status)
}

func TestComplete_FromPendingIsInvalid(t *testing.T) {
	s, _, _ := assignedEngine(t, lawyerSeed{id: "L1", max: 2})

	_, err := s.Complete(context.Background(), "L1", "C1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	a, err := repo.GetActiveAssignment(context.Background(), s.DB, "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentPending, a.Status)
}

func TestReject_ReassignsExcludingRejecter(t *testing.T) {
	s, n, first := assignedEngine(t,
		lawyerSeed{id: "L1", max: 2, ratings: []float64{5}},
		lawyerSeed{id: "L2", max: 2, ratings: []float64{2}},
	)
	ctx := context.Background()
	require.Equal(t, "L1", first.LawyerID)
	require.EqualValues(t, 1, activeCount(t, s.DB, "L1"))

	out, err := s.Reject(ctx, "L1", "C1", "  conflicto de interés ")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, domain.AssignmentRejected, out.Rejected.Status)
	require.NotNil(t, out.Rejected.RejectionReason)
	assert.Equal(t, "conflicto de interés", *out.Rejected.RejectionReason)
	assert.NotNil(t, out.Rejected.RejectedAt)

	require.NotNil(t, out.Reassigned)
	assert.Equal(t, "L2", out.Reassigned.LawyerID)
	assert.Equal(t, domain.PriorityHigh, out.Reassigned.Priority)
	assert.Zero(t, activeCount(t, s.DB, "L1"))
	assert.EqualValues(t, 1, activeCount(t, s.DB, "L2"))

	lid := caseLawyer(t, s.DB, "C1")
	require.NotNil(t, lid)
	assert.Equal(t, "L2", *lid)

	calls := drainedCalls(t, s, n)
	require.Len(t, calls, 2)
	assert.Equal(t, "user-L2", calls[1].UserID)
}

func TestReject_NoReplacementLeavesCaseUnassigned(t *testing.T) {
	s, _, _ := assignedEngine(t, lawyerSeed{id: "L1", max: 2})
	ctx := context.Background()

	out, err := s.Reject(ctx, "L1", "C1", "too busy")
	require.ErrorIs(t, err, ErrNoLawyerAvailable)
	require.NotNil(t, out)
	assert.Equal(t, domain.AssignmentRejected, out.Rejected.Status)
	assert.Nil(t, out.Reassigned)
	assert.Nil(t, caseLawyer(t, s.DB, "C1"))

	_, err = repo.GetActiveAssignment(ctx, s.DB, "C1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestReject_RequiresReason(t *testing.T) {
	s, _, a := assignedEngine(t, lawyerSeed{id: "L1", max: 2})
	ctx := context.Background()

	_, err := s.Reject(ctx, "L1", "C1", "   ")
	assert.ErrorIs(t, err, ErrReasonRequired)

	_, err = s.Reject(ctx, "L1", "C1", strings.Repeat("x", MaxReasonRunes+1))
	assert.ErrorIs(t, err, ErrReasonTooLong)

	got, err := repo.GetAssignment(ctx, s.DB, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentPending, got.Status)
	assert.Nil(t, got.RejectionReason)
}

func TestReject_AfterAcceptIsInvalid(t *testing.T) {
	s, _, _ := assignedEngine(t, lawyerSeed{id: "L1", max: 2})
	ctx := context.Background()

	_, err := s.Accept(ctx, "L1", "C1")
	require.NoError(t, err)
	_, err = s.Reject(ctx, "L1", "C1", "changed my mind")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReject_NormalizesToNFC(t *testing.T) {
	got, err := normalizeReason("se\u0301")
	require.NoError(t, err)
	assert.Equal(t, "s\u00e9", got)
}

func TestCancel(t *testing.T) {
	s, _, a := assignedEngine(t, lawyerSeed{id: "L1", max: 2}, lawyerSeed{id: "L2", max: 2})
	ctx := context.Background()

	got, err := s.Cancel(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, domain.AssignmentRejected, got.Status)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, WithdrawnReason, *got.RejectionReason)
	assert.Nil(t, caseLawyer(t, s.DB, "C1"))

	total, err := repo.CountAssignmentsForCase(ctx, s.DB, "C1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "cancel must not reassign")

	_, err = s.Cancel(ctx, "C1")
	assert.ErrorIs(t, err, ErrStaleTransition)
}

func TestCancel_AcceptedIsInvalid(t *testing.T) {
	s, _, _ := assignedEngine(t, lawyerSeed{id: "L1", max: 2})
	ctx := context.Background()

	_, err := s.Accept(ctx, "L1", "C1")
	require.NoError(t, err)
	_, err = s.Cancel(ctx, "C1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLifecycle_UnknownCaseIsStale(t *testing.T) {
	db := newTestDB(t)
	s := newEngine(db, nil)
	ctx := context.Background()

	_, err := s.Accept(ctx, "L1", "nope")
	assert.ErrorIs(t, err, ErrStaleTransition)
	_, err = s.Cancel(ctx, "nope")
	assert.ErrorIs(t, err, ErrStaleTransition)
}

func TestAccept_ConcurrentOnlyOneWins(t *testing.T) {
	s, _, _ := assignedEngine(t, lawyerSeed{id: "L1", max: 2})

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		other []error
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Accept(context.Background(), "L1", "C1")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else {
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	for _, err := range other {
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}
}
