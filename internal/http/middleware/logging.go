// Package middleware contains the Gin middleware used by the HTTP layer.
//
// This file provides request correlation, the access log and panic
// recovery. AccessLog builds one zerolog logger per request and attaches it
// to both the Gin context (LoggerFrom) and the request context.Context
// (zerolog.Ctx), so the assignment engine logs with the same request id.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// HeaderRequestID carries the correlation id in and out.
	HeaderRequestID = "X-Request-ID"
	// HeaderLawyerID identifies the acting lawyer on lifecycle endpoints.
	HeaderLawyerID = "X-Lawyer-ID"

	requestIDKey = "requestID"
	loggerKey    = "logger"

	maxQueryLogLength = 2048
)

// RequestID propagates X-Request-ID or generates a UUID when absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Next()
	}
}

// RequestIDFrom returns the id set by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	s, _ := v.(string)
	return s
}

// AccessLogOptions configures AccessLog.
type AccessLogOptions struct {
	// Redactor scrubs the query string and headers. Nil uses NewRedactor().
	Redactor *Redactor
	// LogHeaders includes redacted request headers in the access line.
	LogHeaders bool
}

// AccessLog emits one structured line per request, leveled by status:
// error for 5xx or recorded gin errors, warn for 4xx, info otherwise.
func AccessLog(opts AccessLogOptions) gin.HandlerFunc {
	red := opts.Redactor
	if red == nil {
		red = NewRedactor()
	}

	return func(c *gin.Context) {
		start := time.Now()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		lctx := log.With().
			Ctx(c.Request.Context()).
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("route", route)
		if id := c.Param("id"); id != "" {
			lctx = lctx.Str("case_id", id)
		}
		if lid := strings.TrimSpace(c.GetHeader(HeaderLawyerID)); lid != "" {
			lctx = lctx.Str("lawyer_id", lid)
		}
		l := lctx.Logger()

		c.Set(loggerKey, &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case len(c.Errors) > 0 || status >= http.StatusInternalServerError:
			ev = l.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= http.StatusBadRequest:
			ev = l.Warn()
		default:
			ev = l.Info()
		}
		ev = ev.
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Str("remote_ip", c.ClientIP()).
			Str("query", red.String(truncate(c.Request.URL.RawQuery, maxQueryLogLength)))
		if opts.LogHeaders {
			ev = ev.Interface("headers", red.Headers(c.Request.Header))
		}
		ev.Msg("http_request")
	}
}

// Recovery converts panics into a JSON 500 carrying the request id.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(HeaderRequestID, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger set by AccessLog, or the
// global logger.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
