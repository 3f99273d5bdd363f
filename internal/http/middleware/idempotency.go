package middleware

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets clients retry unsafe requests safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay is set on responses served from the store.
const HeaderIdempotentReplay = "Idempotent-Replay"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyStore persists completed responses by (scope, key).
type IdempotencyStore interface {
	// Lookup returns a stored, unexpired response. found=false with a nil
	// error means a miss.
	Lookup(ctx context.Context, scope, key string, now time.Time) (status int, body []byte, found bool, err error)
	// Save stores a completed response. Saving an existing (scope, key) is
	// not an error worth surfacing to the client.
	Save(ctx context.Context, scope, key string, status int, body []byte) error
}

// IdempotencyOptions configures Idempotency.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; nil uses ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// GetIdempotencyKey returns the validated key stashed by Idempotency.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the response was served from the store.
func IsReplay(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyIdemReplay)
	b, _ := v.(bool)
	return b
}

// IdempotencyScope is the replay scope of a request: the route template,
// the case id and the acting lawyer. The same client key on another case or
// by another lawyer is a different operation.
func IdempotencyScope(c *gin.Context) string {
	return strings.Join([]string{
		c.Request.Method,
		c.FullPath(),
		c.Param("id"),
		strings.TrimSpace(c.GetHeader(HeaderLawyerID)),
	}, "|")
}

// Idempotency replays stored responses for POST requests carrying an
// Idempotency-Key and stores the response of first executions.
//
// Behavior:
//   - no header or not a POST: no-op;
//   - malformed key: 400 bad_idempotency_key;
//   - stored response found: written verbatim with Idempotent-Replay: true,
//     the handler is not run and rate limiting is bypassed;
//   - otherwise the handler runs and any response below 500, other than
//     429, is saved. Store errors never fail the request.
func Idempotency(opts IdempotencyOptions, store IdempotencyStore) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)
		if store == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		scope := IdempotencyScope(c)
		status, body, found, err := store.Lookup(ctx, scope, key, time.Now().UTC())
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
		}
		if found {
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(status, "application/json; charset=utf-8", body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		st := c.Writer.Status()
		if st >= http.StatusInternalServerError || st == http.StatusTooManyRequests {
			return
		}
		if err := store.Save(ctx, scope, key, st, rec.buf.Bytes()); err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("idempotency save failed")
		}
	}
}

// bodyRecorder tees the response body so it can be stored.
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
