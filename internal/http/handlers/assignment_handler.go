// Assignment HTTP handlers.
//
// This file exposes the selection and operator endpoints:
//   - POST /cases/{id}/assign        (pick a lawyer and create a pending assignment)
//   - POST /cases/{id}/cancel        (withdraw the pending assignment)
//   - GET  /cases/{id}/assignments   (assignment history, ETag support)
//   - GET  /lawyers/candidates       (ranked eligible lawyers)
//   - GET  /stats/assignments        (counts by status, per-lawyer load)
//
// No lawyer being available is an expected outcome of assign and is
// reported with 200 and success=false.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-case-router/internal/domain"
	"github.com/tbourn/go-case-router/internal/services"
)

//
// DTOs
//

// AssignRequest is the JSON payload for POST /cases/{id}/assign.
type AssignRequest struct {
	// Priority is one of baja, normal, alta, urgente.
	Priority domain.Priority `json:"priority" binding:"required" example:"alta"`
}

// AssignResponse reports the outcome of an assignment attempt.
type AssignResponse struct {
	Success      bool    `json:"success"                 example:"true"`
	LawyerID     *string `json:"lawyer_id,omitempty"     example:"5b0c7a51-8f0e-4c39-9a55-3e5f3f0f6c1d"`
	AssignmentID *string `json:"assignment_id,omitempty" example:"a0d1c5a2-0c43-4b1e-9a0e-7f2b4a0b8d11"`
	Error        string  `json:"error,omitempty"         example:"no_lawyers_available"`
}

// AssignmentResponse wraps a single assignment after a lifecycle move.
type AssignmentResponse struct {
	Success    bool               `json:"success" example:"true"`
	Assignment *domain.Assignment `json:"assignment"`
}

// ListAssignmentsResponse contains a page of a case's assignments.
type ListAssignmentsResponse struct {
	Assignments []domain.Assignment `json:"assignments"`
	Pagination  Pagination          `json:"pagination"`
}

// CandidatesResponse lists eligible lawyers, best first.
type CandidatesResponse struct {
	Priority   domain.Priority         `json:"priority" example:"normal"`
	Candidates []services.ScoredLawyer `json:"candidates"`
}

//
// Handlers
//

// AssignCase godoc
// @ID          assignCase
// @Summary     Assign a lawyer to a case
// @Description Selects the highest scoring eligible lawyer and creates a pending assignment.
// @Description When nobody is eligible the response is 200 with success=false and error=no_lawyers_available.
// @Tags        Assignments
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Case ID"
// @Param       body             body    handlers.AssignRequest  true  "Priority tier"
//
// @Success     200  {object}  handlers.AssignResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Case not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already assigned or closed"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage conflict, retry"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cases/{id}/assign [post]
func (h *Handlers) AssignCase(c *gin.Context) {
	caseID := c.Param("id")

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "priority required")
		return
	}
	req.Priority = domain.Priority(strings.ToLower(strings.TrimSpace(string(req.Priority))))

	a, err := h.engine.Assign(c.Request.Context(), caseID, req.Priority)
	if errors.Is(err, services.ErrNoLawyerAvailable) {
		ok(c, http.StatusOK, AssignResponse{Success: false, Error: ErrCodeNoLawyers})
		return
	}
	if err != nil {
		failEngine(c, err, ErrCodeAssignFailed)
		return
	}
	ok(c, http.StatusOK, AssignResponse{
		Success:      true,
		LawyerID:     &a.LawyerID,
		AssignmentID: &a.ID,
	})
}

// CancelAssignment godoc
// @ID          cancelAssignment
// @Summary     Withdraw a pending assignment
// @Description Marks the case's pending assignment rejected with reason case_withdrawn and clears the case's lawyer. No reassignment happens.
// @Tags        Assignments
// @Produce     json
//
// @Param       id  path  string  true  "Case ID"
//
// @Success     200  {object}  handlers.AssignmentResponse
// @Failure     409  {object}  handlers.ErrorResponse  "No pending assignment"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage conflict, retry"
// @Router      /cases/{id}/cancel [post]
func (h *Handlers) CancelAssignment(c *gin.Context) {
	a, err := h.engine.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		failEngine(c, err, ErrCodeTransitionFailed)
		return
	}
	ok(c, http.StatusOK, AssignmentResponse{Success: true, Assignment: a})
}

// ListAssignments godoc
// @ID          listAssignments
// @Summary     Assignment history of a case
// @Description Returns a case's assignments, newest first. Supports If-None-Match.
// @Tags        Assignments
// @Produce     json
//
// @Param       id         path   string  true  "Case ID"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListAssignmentsResponse
// @Success     304  "Not modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Case not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /cases/{id}/assignments [get]
func (h *Handlers) ListAssignments(c *gin.Context) {
	ctx := c.Request.Context()
	caseID := c.Param("id")
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort). The page is part of the tag.
	if st, isStamper := h.engine.(HistoryStamper); isStamper {
		if count, maxTS, err := st.HistoryStamp(ctx, caseID); err == nil && count > 0 {
			etag := fmt.Sprintf(`W/"assignments:%s:%d:%d:%d:%d"`, caseID, count, maxTS.UnixNano(), page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.engine.History(ctx, caseID, page, pageSize)
	if err != nil {
		failEngine(c, err, ErrCodeListFailed)
		return
	}
	if items == nil {
		items = []domain.Assignment{}
	}
	ok(c, http.StatusOK, ListAssignmentsResponse{
		Assignments: items,
		Pagination:  newPagination(page, pageSize, total),
	})
}

// ListCandidates godoc
// @ID          listCandidates
// @Summary     Ranked eligible lawyers
// @Description Returns the lawyers that would be considered for a case of the given priority, best first, with their scores.
// @Tags        Lawyers
// @Produce     json
//
// @Param       priority  query  string  false "Priority tier"  Enums(baja, normal, alta, urgente) default(normal)
// @Param       exclude   query  string  false "Comma-separated lawyer IDs to leave out"
//
// @Success     200  {object}  handlers.CandidatesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid priority"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /lawyers/candidates [get]
func (h *Handlers) ListCandidates(c *gin.Context) {
	priority := domain.Priority(strings.ToLower(strings.TrimSpace(c.DefaultQuery("priority", string(domain.PriorityNormal)))))

	var exclude []string
	for _, id := range strings.Split(c.Query("exclude"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			exclude = append(exclude, id)
		}
	}

	list, err := h.engine.Candidates(c.Request.Context(), priority, exclude)
	if err != nil {
		failEngine(c, err, ErrCodeListFailed)
		return
	}
	if list == nil {
		list = []services.ScoredLawyer{}
	}
	ok(c, http.StatusOK, CandidatesResponse{Priority: priority, Candidates: list})
}

// AssignmentStats godoc
// @ID          assignmentStats
// @Summary     Assignment statistics
// @Description Returns assignment counts by status and the live load of every lawyer.
// @Tags        Stats
// @Produce     json
//
// @Success     200  {object}  services.AssignmentStats
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats/assignments [get]
func (h *Handlers) AssignmentStats(c *gin.Context) {
	st, err := h.engine.Stats(c.Request.Context())
	if err != nil {
		failEngine(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, st)
}
