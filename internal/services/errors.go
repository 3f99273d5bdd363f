// Package services defines the business logic of the case assignment engine.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Assignment selection outcomes.
var (
	// ErrNoLawyerAvailable is the expected, non-fatal outcome when the
	// eligibility filter yields no candidate. The case stays unassigned and
	// may be retried later by a scheduler.
	ErrNoLawyerAvailable = errors.New("no lawyers available")

	// ErrCaseNotFound indicates that the case does not exist.
	ErrCaseNotFound = errors.New("case not found")

	// ErrCaseClosed is returned when assigning a case that is no longer open.
	ErrCaseClosed = errors.New("case is closed")

	// ErrCaseAlreadyAssigned is returned when the case already has a pending
	// or accepted assignment.
	ErrCaseAlreadyAssigned = errors.New("case already has an active assignment")

	// ErrInvalidPriority is returned for an unknown priority tier.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrStorageConflict is returned once the engine has exhausted its retry
	// budget on concurrent write conflicts. The operation may be retried.
	ErrStorageConflict = errors.New("storage conflict")
)

// Lifecycle errors. Neither mutates anything.
var (
	// ErrStaleTransition indicates the caller's view is out of date: there is
	// no active assignment for the case, or it belongs to another lawyer.
	ErrStaleTransition = errors.New("stale transition")

	// ErrInvalidTransition indicates the move is not allowed from the
	// assignment's current status.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrReasonRequired is returned when a rejection carries no reason.
	ErrReasonRequired = errors.New("rejection reason is required")

	// ErrReasonTooLong is returned when a rejection reason exceeds the limit.
	ErrReasonTooLong = errors.New("rejection reason too long")
)

// errConflict marks a benign race detected at the capacity-check/write
// boundary. It never leaves the package; retries exhaust into
// ErrStorageConflict.
var errConflict = errors.New("write conflict")
