// Package handlers exposes the case assignment engine over HTTP.
//
// Every failure is written as an ErrorResponse carrying a stable snake_case
// code (see errors.go). Successful calls return the operation's DTO as-is:
//
//	HTTP/1.1 200 OK
//	{ "success": true, "lawyer_id": "9b2f...", "assignment_id": "41c0..." }
//
//	HTTP/1.1 409 Conflict
//	{ "request_id": "123e...", "code": "stale_transition", "message": "..." }
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-case-router/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Machine-readable code
	Code string `json:"code" example:"stale_transition"`
	// Human-readable message
	Message string `json:"message" example:"case has no pending assignment for this lawyer"`
}

// fail aborts with an ErrorResponse. Server-side failures are logged with
// the request logger and the case and lawyer the request acted on.
func fail(c *gin.Context, status int, code, msg string) {
	rid := middleware.RequestIDFrom(c)
	if rid == "" {
		rid = c.Writer.Header().Get(middleware.HeaderRequestID)
	}

	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code)
		if id := c.Param("id"); id != "" {
			ev = ev.Str("case_id", id)
		}
		if lid := strings.TrimSpace(c.GetHeader(middleware.HeaderLawyerID)); lid != "" {
			ev = ev.Str("lawyer_id", lid)
		}
		ev.Msg(msg)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{RequestID: rid, Code: code, Message: msg})
}

// Fail writes an ErrorResponse from outside the package (router fallbacks).
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
