package domain

// VerificationStatus is the vetting state of a lawyer profile.
type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "pending"
	VerificationVerified  VerificationStatus = "verified"
	VerificationRejected  VerificationStatus = "rejected"
	VerificationSuspended VerificationStatus = "suspended"
)

// AccountStatus is the state of the user account that owns a lawyer profile.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
	AccountBlocked  AccountStatus = "blocked"
)

// Priority is the urgency tier of a case.
type Priority string

const (
	PriorityLow    Priority = "baja"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "alta"
	PriorityUrgent Priority = "urgente"
)

// Valid reports whether p is one of the known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// CaseStatus is the chat-side status of a case.
type CaseStatus string

const (
	CaseOpen   CaseStatus = "open"
	CaseClosed CaseStatus = "closed"
)

// AssignmentStatus is a state of the assignment lifecycle.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentAccepted  AssignmentStatus = "aceptado"
	AssignmentRejected  AssignmentStatus = "rechazado"
	AssignmentCompleted AssignmentStatus = "completado"
)

// WithdrawnReason is the rejection reason of an assignment closed because
// the case itself was withdrawn. Such cases are not picked up for automatic
// reassignment.
const WithdrawnReason = "case_withdrawn"

// ActiveAssignmentStatuses lists the statuses that count toward lawyer load.
var ActiveAssignmentStatuses = []AssignmentStatus{AssignmentPending, AssignmentAccepted}

// IsActive reports whether s is non-terminal.
func (s AssignmentStatus) IsActive() bool {
	return s == AssignmentPending || s == AssignmentAccepted
}

// IsTerminal reports whether s is a final, immutable state.
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentRejected || s == AssignmentCompleted
}

// transitions is the lifecycle table. Anything absent is invalid.
var transitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentPending:  {AssignmentAccepted, AssignmentRejected},
	AssignmentAccepted: {AssignmentCompleted},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to AssignmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
