package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/domain"
	"github.com/tbourn/go-case-router/internal/repo"
)

// LawyerDirectory is the read-only view of lawyers supplied by the
// lawyer-management collaborator. Implementations must compute ActiveCases
// from live assignments visible through db, so that a call made inside a
// transaction sees that transaction's writes.
type LawyerDirectory interface {
	ListLawyerCandidates(ctx context.Context, db *gorm.DB, priority domain.Priority) ([]domain.LawyerCandidate, error)
}

// CaseStore is the chat subsystem's case persistence. The engine only reads
// cases, sets/clears the lawyer reference and closes cases.
type CaseStore interface {
	GetCase(ctx context.Context, db *gorm.DB, caseID string) (*domain.Case, error)
	SetCaseLawyer(ctx context.Context, db *gorm.DB, caseID, lawyerID string, priority domain.Priority) error
	ClearCaseLawyer(ctx context.Context, db *gorm.DB, caseID string) error
	SetCaseStatus(ctx context.Context, db *gorm.DB, caseID string, status domain.CaseStatus) error
}

// Notifier delivers the "assigned" event to a lawyer. Delivery is best
// effort: a returned error is logged by the engine and never undoes an
// assignment.
type Notifier interface {
	NotifyAssigned(ctx context.Context, lawyerUserID, caseSummary, caseID string) error
}

// RepoDirectory adapts repo.ListLawyerCandidates to LawyerDirectory.
type RepoDirectory struct{}

// ListLawyerCandidates proxies repo.ListLawyerCandidates.
func (RepoDirectory) ListLawyerCandidates(ctx context.Context, db *gorm.DB, priority domain.Priority) ([]domain.LawyerCandidate, error) {
	return repo.ListLawyerCandidates(ctx, db, priority)
}

// RepoCaseStore adapts the repo case functions to CaseStore.
type RepoCaseStore struct{}

// GetCase proxies repo.GetCase.
func (RepoCaseStore) GetCase(ctx context.Context, db *gorm.DB, caseID string) (*domain.Case, error) {
	return repo.GetCase(ctx, db, caseID)
}

// SetCaseLawyer proxies repo.SetCaseLawyer.
func (RepoCaseStore) SetCaseLawyer(ctx context.Context, db *gorm.DB, caseID, lawyerID string, priority domain.Priority) error {
	return repo.SetCaseLawyer(ctx, db, caseID, lawyerID, priority)
}

// ClearCaseLawyer proxies repo.ClearCaseLawyer.
func (RepoCaseStore) ClearCaseLawyer(ctx context.Context, db *gorm.DB, caseID string) error {
	return repo.ClearCaseLawyer(ctx, db, caseID)
}

// SetCaseStatus proxies repo.SetCaseStatus.
func (RepoCaseStore) SetCaseStatus(ctx context.Context, db *gorm.DB, caseID string, status domain.CaseStatus) error {
	return repo.SetCaseStatus(ctx, db, caseID, status)
}
