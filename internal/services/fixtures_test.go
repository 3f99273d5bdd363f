package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-case-router/internal/domain"
	"github.com/tbourn/go-case-router/internal/repo"
)

// newTestDB opens a private in-memory database. A single pooled connection
// keeps SQLite shared-cache locking out of concurrency tests.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

type lawyerSeed struct {
	id      string
	max     int
	ratings []float64
	v       domain.VerificationStatus
	a       domain.AccountStatus
}

func seedLawyers(t *testing.T, db *gorm.DB, seeds ...lawyerSeed) {
	t.Helper()
	for _, s := range seeds {
		if s.v == "" {
			s.v = domain.VerificationVerified
		}
		if s.a == "" {
			s.a = domain.AccountActive
		}
		require.NoError(t, db.Create(&domain.Lawyer{
			ID: s.id, UserID: "user-" + s.id, Name: s.id,
			VerificationStatus: s.v, AccountStatus: s.a, MaxConcurrentCases: s.max,
		}).Error)
		for _, r := range s.ratings {
			require.NoError(t, db.Create(&domain.Review{ID: uuid.NewString(), LawyerID: s.id, Rating: r}).Error)
		}
	}
}

func seedCases(t *testing.T, db *gorm.DB, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, db.Create(&domain.Case{
			ID: id, UserID: "client-" + id, Summary: "summary " + id,
			Priority: domain.PriorityNormal, Status: domain.CaseOpen,
		}).Error)
	}
}

func activeCount(t *testing.T, db *gorm.DB, lawyerID string) int64 {
	t.Helper()
	n, err := repo.CountActiveAssignments(context.Background(), db, lawyerID)
	require.NoError(t, err)
	return n
}

func caseLawyer(t *testing.T, db *gorm.DB, caseID string) *string {
	t.Helper()
	c, err := repo.GetCase(context.Background(), db, caseID)
	require.NoError(t, err)
	return c.LawyerID
}

type notifyCall struct {
	UserID, Summary, CaseID string
}

// recordingNotifier records calls and fails when err is set.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (n *recordingNotifier) NotifyAssigned(_ context.Context, userID, summary, caseID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{userID, summary, caseID})
	return n.err
}

func (n *recordingNotifier) Calls() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

// drainedCalls waits for background notifications, then returns the calls.
func drainedCalls(t *testing.T, s *AssignmentService, n *recordingNotifier) []notifyCall {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.DrainNotifications(ctx))
	return n.Calls()
}

func newEngine(db *gorm.DB, n Notifier) *AssignmentService {
	s := NewAssignmentService(db, n)
	s.RetryBackoff = 0
	return s
}

// failAssignmentCreates makes the first `times` inserts into assignments fail
// with a SQLite busy error. times < 0 fails forever. It returns a counter of
// attempted inserts.
func failAssignmentCreates(t *testing.T, db *gorm.DB, times int) *int {
	t.Helper()
	var mu sync.Mutex
	attempts := 0
	err := db.Callback().Create().Before("gorm:create").Register("test:busy_assignments", func(tx *gorm.DB) {
		if tx.Statement.Table != "assignments" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if times < 0 || attempts <= times {
			_ = tx.AddError(errors.New("database is locked (5) (SQLITE_BUSY)"))
		}
	})
	require.NoError(t, err)
	return &attempts
}

type failingDirectory struct{ err error }

func (d failingDirectory) ListLawyerCandidates(context.Context, *gorm.DB, domain.Priority) ([]domain.LawyerCandidate, error) {
	return nil, d.err
}
