package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoggedRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	lg := zerolog.New(buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		c.Set("logger", &lg)
		c.Next()
	})
	return r
}

func TestFail_ServerErrorLogsCaseAndLawyer(t *testing.T) {
	var buf bytes.Buffer
	r := newLoggedRouter(&buf)
	r.POST("/cases/:id/accept", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeTransitionFailed, "db down")
	})

	req := httptest.NewRequest(http.MethodPost, "/cases/c-9/accept", nil)
	req.Header.Set("X-Lawyer-ID", " L1 ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ErrorResponse{RequestID: "rid-1", Code: ErrCodeTransitionFailed, Message: "db down"}, resp)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "c-9", line["case_id"])
	assert.Equal(t, "L1", line["lawyer_id"])
	assert.Equal(t, "db down", line["message"])
}

func TestFail_ClientErrorIsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	r := newLoggedRouter(&buf)
	r.GET("/missing", func(c *gin.Context) {
		Fail(c, http.StatusConflict, ErrCodeStaleTransition, "moved")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, buf.String())
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rid-1", resp.RequestID)
	assert.Equal(t, ErrCodeStaleTransition, resp.Code)
}

func TestOK_WritesBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) {
		ok(c, http.StatusOK, AssignResponse{Success: false, Error: ErrCodeNoLawyers})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"no_lawyers_available"}`, w.Body.String())
}
