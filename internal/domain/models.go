// Package domain defines the persistence models for lawyers, cases, reviews
// and assignments. These types are mapped with GORM and form the core data
// layer of the case assignment engine.
package domain

import (
	"time"
)

// Lawyer is a professional who can be assigned consultation cases. The
// record is owned by the lawyer-management collaborator; the engine only
// reads it.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the owning user account (notification target).
//   - VerificationStatus: pending|verified|rejected|suspended.
//   - AccountStatus: status of the owning user account (active|inactive|blocked).
//   - MaxConcurrentCases: capacity, always positive.
//
// The active case count is never stored here. It is derived from live
// Assignment rows (see repo.ListLawyerCandidates).
type Lawyer struct {
	ID                 string             `json:"id"                   gorm:"type:char(36);primaryKey"`
	UserID             string             `json:"user_id"              gorm:"type:varchar(64);not null;index"`
	Name               string             `json:"name"                 gorm:"type:varchar(255);not null;default:''"`
	VerificationStatus VerificationStatus `json:"verification_status"  gorm:"type:varchar(16);not null;default:'pending';index:idx_lawyer_eligibility,priority:1"`
	AccountStatus      AccountStatus      `json:"account_status"       gorm:"type:varchar(16);not null;default:'active';index:idx_lawyer_eligibility,priority:2"`
	MaxConcurrentCases int                `json:"max_concurrent_cases" gorm:"not null;default:1;check:max_concurrent_cases > 0"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// TableName returns the database table name for Lawyer.
func (Lawyer) TableName() string { return "lawyers" }

// Review is a single client rating of a lawyer on a 0–5 scale. The average
// over all reviews is the lawyer's rating.
type Review struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	LawyerID  string    `json:"lawyer_id"  gorm:"type:char(36);not null;index"`
	Rating    float64   `json:"rating"     gorm:"not null;check:rating >= 0 AND rating <= 5"`
	CreatedAt time.Time `json:"created_at"`

	Lawyer Lawyer `json:"-" gorm:"foreignKey:LawyerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Review.
func (Review) TableName() string { return "reviews" }

// Case is a consultation session requiring a lawyer. It is owned by the chat
// subsystem; the engine only sets or clears LawyerID (and Priority alongside
// it) and closes the case on completion.
type Case struct {
	ID        string     `json:"id"                  gorm:"type:char(36);primaryKey"`
	UserID    string     `json:"user_id"             gorm:"type:varchar(64);not null;index"`
	Summary   string     `json:"summary"             gorm:"type:text;not null;default:''"`
	Priority  Priority   `json:"priority"            gorm:"type:varchar(16);not null;default:'normal'"`
	LawyerID  *string    `json:"lawyer_id,omitempty" gorm:"type:char(36);index"`
	Status    CaseStatus `json:"status"              gorm:"type:varchar(16);not null;default:'open';index"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Case.
func (Case) TableName() string { return "cases" }

// Assignment links a case to a lawyer and tracks its acceptance lifecycle.
// It is the only record the engine owns exclusively.
//
// Invariants:
//   - at most one Assignment per case is pending or aceptado (enforced by the
//     partial unique index ux_assignments_active_case, see repo.AutoMigrate);
//   - Priority is copied from the case at creation and never changes;
//   - rechazado and completado rows are immutable history.
type Assignment struct {
	ID              string           `json:"id"                         gorm:"type:char(36);primaryKey"`
	CaseID          string           `json:"case_id"                    gorm:"type:char(36);not null;index:idx_assignment_case,priority:1"`
	LawyerID        string           `json:"lawyer_id"                  gorm:"type:char(36);not null;index:idx_assignment_lawyer_status,priority:1"`
	Priority        Priority         `json:"priority"                   gorm:"type:varchar(16);not null"`
	Status          AssignmentStatus `json:"status"                     gorm:"type:varchar(16);not null;default:'pending';index:idx_assignment_lawyer_status,priority:2"`
	RejectionReason *string          `json:"rejection_reason,omitempty" gorm:"type:text"`
	CreatedAt       time.Time        `json:"created_at"                 gorm:"index:idx_assignment_case,priority:2"`
	AcceptedAt      *time.Time       `json:"accepted_at,omitempty"`
	RejectedAt      *time.Time       `json:"rejected_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName returns the database table name for Assignment.
func (Assignment) TableName() string { return "assignments" }

// IsActive reports whether the assignment currently counts toward its
// lawyer's load.
func (a Assignment) IsActive() bool { return a.Status.IsActive() }
