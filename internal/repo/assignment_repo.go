// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the Assignment Store functions.
//
// Status changes go through TransitionAssignment, a compare-and-set update
// guarded by the expected current status. Zero affected rows means another
// writer moved the row first; callers treat that as a stale transition.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/domain"
)

// CreateAssignment inserts a pending assignment for (caseID, lawyerID).
// A second active assignment for the same case trips the partial unique
// index and surfaces as a unique violation (see IsUniqueViolation).
func CreateAssignment(ctx context.Context, db *gorm.DB, caseID, lawyerID string, priority domain.Priority) (*domain.Assignment, error) {
	now := time.Now().UTC()
	a := &domain.Assignment{
		ID:        uuid.NewString(),
		CaseID:    caseID,
		LawyerID:  lawyerID,
		Priority:  priority,
		Status:    domain.AssignmentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetAssignment fetches an assignment by id, or ErrNotFound.
func GetAssignment(ctx context.Context, db *gorm.DB, id string) (*domain.Assignment, error) {
	var a domain.Assignment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActiveAssignment returns the non-terminal assignment of a case, or
// ErrNotFound when the case has none.
func GetActiveAssignment(ctx context.Context, db *gorm.DB, caseID string) (*domain.Assignment, error) {
	var a domain.Assignment
	err := db.WithContext(ctx).
		Where("case_id = ? AND status IN ?", caseID, domain.ActiveAssignmentStatuses).
		Order("created_at desc").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// TransitionUpdate carries the optional columns written with a status change.
type TransitionUpdate struct {
	At     time.Time
	Reason *string
}

// TransitionAssignment moves assignment id from status `from` to `to`,
// stamping the matching timestamp column. It returns ErrNotFound when no row
// with that id is currently in `from`.
func TransitionAssignment(ctx context.Context, db *gorm.DB, id string, from, to domain.AssignmentStatus, upd TransitionUpdate) error {
	at := upd.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	cols := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case domain.AssignmentAccepted:
		cols["accepted_at"] = at
	case domain.AssignmentRejected:
		cols["rejected_at"] = at
		if upd.Reason != nil {
			cols["rejection_reason"] = *upd.Reason
		}
	case domain.AssignmentCompleted:
		cols["completed_at"] = at
	}

	res := db.WithContext(ctx).
		Model(&domain.Assignment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAssignmentsForCase returns the number of assignment rows (any status)
// for a case.
func CountAssignmentsForCase(ctx context.Context, db *gorm.DB, caseID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Assignment{}).
		Where("case_id = ?", caseID).
		Count(&n).Error
	return n, err
}

// ListAssignmentsForCasePage returns a case's assignment history, newest
// first.
func ListAssignmentsForCasePage(ctx context.Context, db *gorm.DB, caseID string, offset, limit int) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListPendingOlderThan returns pending assignments created before cutoff,
// oldest first.
func ListPendingOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.AssignmentPending, cutoff).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}
