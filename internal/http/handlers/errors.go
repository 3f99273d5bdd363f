// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses via fail(), and the translation of engine errors into status
// and code pairs. Clients branch on the code, never on the message.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "stale_transition",
//	  "message": "case has no active assignment for this lawyer"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-case-router/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeNoLawyers         = "no_lawyers_available"
	ErrCodeStaleTransition   = "stale_transition"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeAlreadyAssigned   = "already_assigned"
	ErrCodeCaseClosed        = "case_closed"
	ErrCodeStorageConflict   = "storage_conflict"
	ErrCodeReassignFailed    = "reassignment_failed"
	ErrCodeMissingLawyer     = "missing_lawyer_id"
	ErrCodeInvalidPriority   = "invalid_priority"
	ErrCodeInvalidReason     = "invalid_reason"
	ErrCodeAssignFailed      = "assign_failed"
	ErrCodeTransitionFailed  = "transition_failed"
	ErrCodeListFailed        = "list_failed"
)

// storageRetryAfter is the Retry-After hint, in seconds, sent with
// storage_conflict responses.
const storageRetryAfter = "1"

// failEngine maps an engine error onto the standard envelope. fallback is
// the code used for unclassified (500) errors.
func failEngine(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrCaseNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "case not found")
	case errors.Is(err, services.ErrInvalidPriority):
		fail(c, http.StatusBadRequest, ErrCodeInvalidPriority, "priority must be one of baja, normal, alta, urgente")
	case errors.Is(err, services.ErrReasonRequired), errors.Is(err, services.ErrReasonTooLong):
		fail(c, http.StatusBadRequest, ErrCodeInvalidReason, err.Error())
	case errors.Is(err, services.ErrStaleTransition):
		fail(c, http.StatusConflict, ErrCodeStaleTransition, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, services.ErrCaseAlreadyAssigned):
		fail(c, http.StatusConflict, ErrCodeAlreadyAssigned, "case already has an active assignment")
	case errors.Is(err, services.ErrCaseClosed):
		fail(c, http.StatusConflict, ErrCodeCaseClosed, "case is closed")
	case errors.Is(err, services.ErrStorageConflict):
		c.Header("Retry-After", storageRetryAfter)
		fail(c, http.StatusServiceUnavailable, ErrCodeStorageConflict, "concurrent update, retry the request")
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}
