package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-case-router/internal/domain"
	"github.com/tbourn/go-case-router/internal/http/middleware"
	"github.com/tbourn/go-case-router/internal/services"
	"github.com/tbourn/go-case-router/internal/utils"
)

//
// Service contracts (context-aware)
//

// AssignmentEngine is the case assignment engine as consumed by HTTP
// handlers. *services.AssignmentService implements it.
//
// Implementations must be safe for concurrent use and honor ctx.
type AssignmentEngine interface {
	Assign(ctx context.Context, caseID string, priority domain.Priority) (*domain.Assignment, error)
	Accept(ctx context.Context, lawyerID, caseID string) (*domain.Assignment, error)
	// Reject returns a non-nil outcome whenever the rejection committed,
	// even when err describes a failed reassignment.
	Reject(ctx context.Context, lawyerID, caseID, reason string) (*services.RejectOutcome, error)
	Complete(ctx context.Context, lawyerID, caseID string) (*domain.Assignment, error)
	Cancel(ctx context.Context, caseID string) (*domain.Assignment, error)

	History(ctx context.Context, caseID string, page, pageSize int) ([]domain.Assignment, int64, error)
	Candidates(ctx context.Context, priority domain.Priority, exclude []string) ([]services.ScoredLawyer, error)
	Stats(ctx context.Context) (*services.AssignmentStats, error)
}

// HistoryStamper is implemented by engines that can describe a case's
// assignment history cheaply. When available, ListAssignments answers
// conditional requests with 304.
type HistoryStamper interface {
	HistoryStamp(ctx context.Context, caseID string) (count int64, maxUpdatedAt *time.Time, err error)
}

//
// Handler wiring
//

// Handlers groups the assignment API endpoints.
type Handlers struct {
	engine AssignmentEngine
}

// New constructs Handlers bound to engine.
func New(engine AssignmentEngine) *Handlers {
	return &Handlers{engine: engine}
}

// lawyerID reads the acting lawyer from X-Lawyer-ID.
func lawyerID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(middleware.HeaderLawyerID))
}

//
// Shared DTOs
//

// Pagination describes the page returned by list endpoints.
type Pagination struct {
	Page       int   `json:"page"        example:"1"`
	PageSize   int   `json:"page_size"   example:"20"`
	Total      int64 `json:"total"       example:"3"`
	TotalPages int   `json:"total_pages" example:"1"`
	HasNext    bool  `json:"has_next"    example:"false"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses page/page_size from the query, applying defaults
// and caps.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}
