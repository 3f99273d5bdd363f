// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries over the
// assignment set, used by the stats endpoint and by ETag generation for
// assignment history.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/domain"
)

// StatusCount is one row of AssignmentStatusCounts.
type StatusCount struct {
	Status domain.AssignmentStatus `json:"status"`
	Count  int64                   `json:"count"`
}

// LawyerLoad is one row of LawyerLoads.
type LawyerLoad struct {
	LawyerID           string `json:"lawyer_id"`
	ActiveCases        int64  `json:"active_cases"`
	MaxConcurrentCases int    `json:"max_concurrent_cases"`
}

// AssignmentStatusCounts returns the number of assignments per status.
func AssignmentStatusCounts(ctx context.Context, db *gorm.DB) ([]StatusCount, error) {
	var out []StatusCount
	err := db.WithContext(ctx).
		Model(&domain.Assignment{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&out).Error
	return out, err
}

// LawyerLoads returns every lawyer's live active count next to its cap,
// ordered by lawyer id. Lawyers over their cap (grandfathered after a cap
// reduction) show ActiveCases > MaxConcurrentCases.
func LawyerLoads(ctx context.Context, db *gorm.DB) ([]LawyerLoad, error) {
	var out []LawyerLoad
	err := db.WithContext(ctx).
		Raw(`SELECT l.id AS lawyer_id, l.max_concurrent_cases,
       (SELECT COUNT(*) FROM assignments a WHERE a.lawyer_id = l.id AND a.status IN ?) AS active_cases
FROM lawyers l ORDER BY l.id`, domain.ActiveAssignmentStatuses).
		Scan(&out).Error
	return out, err
}

// AssignmentsStats returns aggregate metadata for a case's assignments: the
// total number of rows and the greatest UpdatedAt, or nil with no rows.
func AssignmentsStats(ctx context.Context, db *gorm.DB, caseID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Assignment{}).Where("case_id = ?", caseID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
