// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the Case Store functions.
//
// The engine only touches the lawyer reference, the priority set alongside
// it, and the status on completion. Everything else on a case belongs to the
// chat subsystem.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/domain"
)

// GetCase fetches a single case by id, or ErrNotFound.
func GetCase(ctx context.Context, db *gorm.DB, id string) (*domain.Case, error) {
	var c domain.Case
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// SetCaseLawyer points the case at lawyerID and records the priority the
// assignment was made with. Returns ErrNotFound if the case is missing.
func SetCaseLawyer(ctx context.Context, db *gorm.DB, caseID, lawyerID string, priority domain.Priority) error {
	res := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("id = ?", caseID).
		Updates(map[string]any{
			"lawyer_id":  lawyerID,
			"priority":   priority,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCaseLawyer removes the lawyer reference from a case.
func ClearCaseLawyer(ctx context.Context, db *gorm.DB, caseID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("id = ?", caseID).
		Updates(map[string]any{
			"lawyer_id":  gorm.Expr("NULL"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCaseStatus updates the chat-side case status.
func SetCaseStatus(ctx context.Context, db *gorm.DB, caseID string, status domain.CaseStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("id = ?", caseID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnassignedOpenCases returns open cases with no lawyer reference and no
// non-terminal assignment, oldest first. Cases whose latest assignment was
// withdrawn (domain.WithdrawnReason) are left out. Used by the retry sweep.
func ListUnassignedOpenCases(ctx context.Context, db *gorm.DB, limit int) ([]domain.Case, error) {
	var out []domain.Case
	q := db.WithContext(ctx).
		Where("status = ? AND lawyer_id IS NULL", domain.CaseOpen).
		Where("NOT EXISTS (SELECT 1 FROM assignments a WHERE a.case_id = cases.id AND a.status IN ?)", domain.ActiveAssignmentStatuses).
		Where(`NOT EXISTS (SELECT 1 FROM assignments w WHERE w.case_id = cases.id AND w.rejection_reason = ?
  AND NOT EXISTS (SELECT 1 FROM assignments n WHERE n.case_id = w.case_id AND n.created_at > w.created_at))`, domain.WithdrawnReason).
		Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
