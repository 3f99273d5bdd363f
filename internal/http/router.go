// Package httpapi wires the HTTP transport (Gin) to the assignment engine,
// middleware and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, access logging with redaction, panic
// recovery, metrics, compression, idempotency, rate limiting, CORS and
// security headers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/config"
	"github.com/tbourn/go-case-router/internal/http/docs"
	"github.com/tbourn/go-case-router/internal/http/handlers"
	"github.com/tbourn/go-case-router/internal/http/middleware"
	"github.com/tbourn/go-case-router/internal/repo"
)

// maxBodyBytes caps request bodies; the largest payload is a rejection reason.
const maxBodyBytes = 64 << 10

// idempotencyStore adapts the repo helpers to middleware.IdempotencyStore.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup proxies repo.FindReplay.
func (s idempotencyStore) Lookup(ctx context.Context, scope, key string, now time.Time) (int, []byte, bool, error) {
	rec, err := repo.FindReplay(ctx, s.db, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return rec.Status, rec.Body, true, nil
}

// Save proxies repo.StoreReplay. A concurrent first execution with the
// same key loses the insert race; the stored response wins.
func (s idempotencyStore) Save(ctx context.Context, scope, key string, status int, body []byte) error {
	_, err := repo.StoreReplay(ctx, s.db, repo.Replay{Scope: scope, Key: key, Status: status, Body: body}, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// RegisterRoutes attaches all middleware and HTTP endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. AccessLog: request-scoped logger + one line per request
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip (outside idempotency, so stored bodies are uncompressed)
//  8. Idempotency (before rate limiter, replays bypass it)
//  9. Rate limiter (per lawyer/IP)
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, engine handlers.AssignmentEngine, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(middleware.AccessLogOptions{
		Redactor: middleware.NewRedactor("X-API-Key"),
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Idempotency(
		middleware.IdempotencyOptions{MaxLen: 200},
		idempotencyStore{db: db, ttl: cfg.IdempotencyTTL},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByLawyerOrIP())
	r.Use(rl.Handler())

	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.HeaderLawyerID, middleware.HeaderIdempotencyKey, middleware.HeaderRequestID,
	}
	exposeHeaders := []string{middleware.HeaderRequestID, middleware.HeaderIdempotentReplay, "Retry-After", "ETag"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(engine)

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.NoStore())
	{
		api.POST("/cases/:id/assign", h.AssignCase)
		api.POST("/cases/:id/accept", h.AcceptAssignment)
		api.POST("/cases/:id/reject", h.RejectAssignment)
		api.POST("/cases/:id/complete", h.CompleteAssignment)
		api.POST("/cases/:id/cancel", h.CancelAssignment)
		api.GET("/cases/:id/assignments", h.ListAssignments)

		api.GET("/lawyers/candidates", h.ListCandidates)
		api.GET("/stats/assignments", h.AssignmentStats)
	}
}

// limitBody caps the request body size using http.MaxBytesReader.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
