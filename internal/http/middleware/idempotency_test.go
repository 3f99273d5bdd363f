package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type memStore struct {
	mu      sync.Mutex
	rows    map[string]memRow
	lookErr error
	saves   int
}

type memRow struct {
	status int
	body   []byte
}

func newMemStore() *memStore { return &memStore{rows: map[string]memRow{}} }

func (m *memStore) Lookup(_ context.Context, scope, key string, _ time.Time) (int, []byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookErr != nil {
		return 0, nil, false, m.lookErr
	}
	r, ok := m.rows[scope+"#"+key]
	return r.status, r.body, ok, nil
}

func (m *memStore) Save(_ context.Context, scope, key string, status int, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.rows[scope+"#"+key] = memRow{status, append([]byte(nil), body...)}
	return nil
}

func idemRouter(store IdempotencyStore, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Idempotency(IdempotencyOptions{}, store))
	r.POST("/cases/:id/assign", func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusOK, gin.H{"success": true, "n": *calls})
	})
	r.POST("/cases/:id/reject", func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "storage_conflict"})
	})
	r.GET("/cases/:id/assignments", func(c *gin.Context) {
		*calls++
		c.Status(http.StatusOK)
	})
	return r
}

func post(r *gin.Engine, path, key, lawyer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	if lawyer != "" {
		req.Header.Set(HeaderLawyerID, lawyer)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newMemStore()
	calls := 0
	r := idemRouter(store, &calls)

	first := post(r, "/cases/C1/assign", "k-1", "")
	second := post(r, "/cases/C1/assign", "k-1", "")

	if calls != 1 {
		t.Fatalf("handler should run once, ran %d", calls)
	}
	if second.Code != first.Code || second.Body.String() != first.Body.String() {
		t.Fatalf("replay mismatch: %d %s vs %d %s", first.Code, first.Body, second.Code, second.Body)
	}
	if second.Header().Get(HeaderIdempotentReplay) != "true" || first.Header().Get(HeaderIdempotentReplay) != "" {
		t.Fatalf("replay header wrong")
	}
}

func TestIdempotency_ScopeIncludesCaseAndLawyer(t *testing.T) {
	store := newMemStore()
	calls := 0
	r := idemRouter(store, &calls)

	post(r, "/cases/C1/assign", "k", "")
	post(r, "/cases/C2/assign", "k", "")
	post(r, "/cases/C2/assign", "k", "L1")
	if calls != 3 {
		t.Fatalf("different scopes must not replay, calls=%d", calls)
	}
}

func TestIdempotency_DoesNotStoreServerErrors(t *testing.T) {
	store := newMemStore()
	calls := 0
	r := idemRouter(store, &calls)

	post(r, "/cases/C1/reject", "k", "L1")
	post(r, "/cases/C1/reject", "k", "L1")
	if calls != 2 || store.saves != 0 {
		t.Fatalf("5xx must not be stored: calls=%d saves=%d", calls, store.saves)
	}
}

func TestIdempotency_NoHeaderNonPostAndBadKey(t *testing.T) {
	store := newMemStore()
	calls := 0
	r := idemRouter(store, &calls)

	post(r, "/cases/C1/assign", "", "")
	if store.saves != 0 {
		t.Fatal("no header: nothing stored")
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cases/C1/assignments", nil)
	req.Header.Set(HeaderIdempotencyKey, "k")
	r.ServeHTTP(w, req)
	if store.saves != 0 {
		t.Fatal("GET must be ignored")
	}

	if w := post(r, "/cases/C1/assign", "bad key!", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad key -> %d", w.Code)
	}
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	if w := post(r, "/cases/C1/assign", string(long), ""); w.Code != http.StatusBadRequest {
		t.Fatalf("long key -> %d", w.Code)
	}
}

func TestIdempotency_LookupErrorFallsThrough(t *testing.T) {
	store := newMemStore()
	store.lookErr = errors.New("db down")
	calls := 0
	r := idemRouter(store, &calls)

	if w := post(r, "/cases/C1/assign", "k", ""); w.Code != http.StatusOK || calls != 1 {
		t.Fatalf("lookup error should not block: %d calls=%d", w.Code, calls)
	}
}

func TestIdempotency_ContextHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if _, ok := GetIdempotencyKey(c); ok || IsReplay(c) || IsRateBypass(c) {
		t.Fatal("expected empty state")
	}
	c.Set(ctxKeyIdemKey, 5)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatal("non-string key must be ignored")
	}
}
