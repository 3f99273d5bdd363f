// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the Lawyer Directory queries.
//
// The candidate query computes each lawyer's active load and average rating
// in one aggregate read, so the engine never relies on a stored counter that
// could go stale.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-case-router/internal/domain"
)

// candidateSQL selects verified lawyers with an active account, together
// with their live non-terminal assignment count and review aggregate.
const candidateSQL = `
SELECT l.id, l.user_id, l.name, l.verification_status, l.account_status, l.max_concurrent_cases,
       (SELECT COUNT(*) FROM assignments a WHERE a.lawyer_id = l.id AND a.status IN ?) AS active_cases,
       (SELECT AVG(r.rating) FROM reviews r WHERE r.lawyer_id = l.id) AS avg_rating,
       (SELECT COUNT(*) FROM reviews r WHERE r.lawyer_id = l.id) AS review_count
FROM lawyers l
WHERE l.verification_status = ? AND l.account_status = ?
ORDER BY l.id`

// ListLawyerCandidates returns verified lawyers whose account is active,
// ordered by id. Lawyers at or over capacity are included; capacity is the
// eligibility filter's decision.
//
// The priority tier is accepted for directories that partition lawyers by
// tier; this implementation serves every tier from the same pool.
func ListLawyerCandidates(ctx context.Context, db *gorm.DB, _ domain.Priority) ([]domain.LawyerCandidate, error) {
	out := []domain.LawyerCandidate{}
	err := db.WithContext(ctx).
		Raw(candidateSQL, domain.ActiveAssignmentStatuses, domain.VerificationVerified, domain.AccountActive).
		Scan(&out).Error
	return out, err
}

// GetLawyer fetches a lawyer by id, or ErrNotFound.
func GetLawyer(ctx context.Context, db *gorm.DB, id string) (*domain.Lawyer, error) {
	var l domain.Lawyer
	if err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// LockLawyer re-reads a lawyer inside a transaction with a row lock
// (SELECT ... FOR UPDATE). SQLite has no row locks and the clause is dropped
// there; its single-writer transactions give the same ordering.
func LockLawyer(ctx context.Context, tx *gorm.DB, id string) (*domain.Lawyer, error) {
	var l domain.Lawyer
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CountActiveAssignments returns the number of pending/aceptado assignments
// held by lawyerID. Called inside the assignment transaction to re-check
// capacity right before the insert.
func CountActiveAssignments(ctx context.Context, db *gorm.DB, lawyerID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Assignment{}).
		Where("lawyer_id = ? AND status IN ?", lawyerID, domain.ActiveAssignmentStatuses).
		Count(&n).Error
	return n, err
}
