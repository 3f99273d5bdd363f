// Lifecycle HTTP handlers.
//
// This file exposes the lawyer-facing transitions of an assignment:
//   - POST /cases/{id}/accept     (pending -> aceptado)
//   - POST /cases/{id}/reject     (pending -> rechazado, then one reassignment)
//   - POST /cases/{id}/complete   (aceptado -> completado, closes the case)
//
// The acting lawyer is identified by the X-Lawyer-ID header.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-case-router/internal/services"
)

// RejectRequest is the JSON payload for POST /cases/{id}/reject.
type RejectRequest struct {
	// Reason is required and limited to 500 characters after normalization.
	Reason string `json:"reason" binding:"required" example:"conflict of interest"`
}

// RejectResponse reports a committed rejection. ReassignedTo is null when no
// replacement was found, in which case Error explains why.
type RejectResponse struct {
	Success      bool    `json:"success"                example:"true"`
	RejectedID   string  `json:"rejected_assignment_id" example:"a0d1c5a2-0c43-4b1e-9a0e-7f2b4a0b8d11"`
	ReassignedTo *string `json:"reassigned_to"          example:"5b0c7a51-8f0e-4c39-9a55-3e5f3f0f6c1d"`
	AssignmentID *string `json:"assignment_id,omitempty" example:"c2e9d7f4-6a1b-4d8e-b3f0-9a7c5e1d2b4f"`
	Error        string  `json:"error,omitempty"        example:"no_lawyers_available"`
}

// requireLawyer returns the X-Lawyer-ID value or fails the request.
func requireLawyer(c *gin.Context) (string, bool) {
	id := lawyerID(c)
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeMissingLawyer, "X-Lawyer-ID header required")
		return "", false
	}
	return id, true
}

// AcceptAssignment godoc
// @ID          acceptAssignment
// @Summary     Accept a pending assignment
// @Tags        Lifecycle
// @Produce     json
//
// @Param       X-Lawyer-ID      header  string  true  "Acting lawyer ID"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Case ID"
//
// @Success     200  {object}  handlers.AssignmentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing lawyer"
// @Failure     409  {object}  handlers.ErrorResponse  "Stale or invalid transition"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage conflict, retry"
// @Router      /cases/{id}/accept [post]
func (h *Handlers) AcceptAssignment(c *gin.Context) {
	lid, okLawyer := requireLawyer(c)
	if !okLawyer {
		return
	}
	a, err := h.engine.Accept(c.Request.Context(), lid, c.Param("id"))
	if err != nil {
		failEngine(c, err, ErrCodeTransitionFailed)
		return
	}
	ok(c, http.StatusOK, AssignmentResponse{Success: true, Assignment: a})
}

// RejectAssignment godoc
// @ID          rejectAssignment
// @Summary     Reject a pending assignment
// @Description Records the rejection and tries one reassignment that excludes the rejecting lawyer.
// @Description If nobody is available the rejection still succeeds with reassigned_to=null and error=no_lawyers_available.
// @Tags        Lifecycle
// @Accept      json
// @Produce     json
//
// @Param       X-Lawyer-ID      header  string  true  "Acting lawyer ID"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Case ID"
// @Param       body             body    handlers.RejectRequest  true  "Rejection reason"
//
// @Success     200  {object}  handlers.RejectResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing lawyer or invalid reason"
// @Failure     409  {object}  handlers.ErrorResponse  "Stale or invalid transition"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage conflict, retry"
// @Router      /cases/{id}/reject [post]
func (h *Handlers) RejectAssignment(c *gin.Context) {
	lid, okLawyer := requireLawyer(c)
	if !okLawyer {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidReason, "reason required")
		return
	}

	out, err := h.engine.Reject(c.Request.Context(), lid, c.Param("id"), req.Reason)
	if out == nil {
		failEngine(c, err, ErrCodeTransitionFailed)
		return
	}

	resp := RejectResponse{Success: true}
	if out.Rejected != nil {
		resp.RejectedID = out.Rejected.ID
	}
	if out.Reassigned != nil {
		resp.ReassignedTo = &out.Reassigned.LawyerID
		resp.AssignmentID = &out.Reassigned.ID
	}
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNoLawyerAvailable):
		resp.Error = ErrCodeNoLawyers
	case errors.Is(err, services.ErrStorageConflict):
		resp.Error = ErrCodeStorageConflict
	default:
		resp.Error = ErrCodeReassignFailed
	}
	ok(c, http.StatusOK, resp)
}

// CompleteAssignment godoc
// @ID          completeAssignment
// @Summary     Complete an accepted assignment
// @Description Marks the assignment completado and closes the case.
// @Tags        Lifecycle
// @Produce     json
//
// @Param       X-Lawyer-ID      header  string  true  "Acting lawyer ID"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Case ID"
//
// @Success     200  {object}  handlers.AssignmentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing lawyer"
// @Failure     409  {object}  handlers.ErrorResponse  "Stale or invalid transition"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage conflict, retry"
// @Router      /cases/{id}/complete [post]
func (h *Handlers) CompleteAssignment(c *gin.Context) {
	lid, okLawyer := requireLawyer(c)
	if !okLawyer {
		return
	}
	a, err := h.engine.Complete(c.Request.Context(), lid, c.Param("id"))
	if err != nil {
		failEngine(c, err, ErrCodeTransitionFailed)
		return
	}
	ok(c, http.StatusOK, AssignmentResponse{Success: true, Assignment: a})
}
