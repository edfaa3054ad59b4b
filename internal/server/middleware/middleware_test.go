// file: internal/server/middleware/middleware_test.go
// version: 3.0.0
// guid: b31f3de0-b0bc-4cbf-8448-7309df38f7c0

package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return req
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewRateLimiter(1, 1).Handler())
	router.GET("/api/v1/collections", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/collections", nil)
		req.RemoteAddr = remote
		return serve(router, req)
	}

	assert.Equal(t, http.StatusOK, get("192.0.2.1:1234").Code)

	limited := get("192.0.2.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), "RATE_LIMITED")
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, get("198.51.100.3:4321").Code)
}

func TestRateLimiterRaisesLowValues(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(0, -3)
	assert.Equal(t, 1, l.burst)
	assert.InDelta(t, 1.0/60, float64(l.limit), 1e-9)
}

func TestRateLimiterRefusalKeepsTokens(t *testing.T) {
	t.Parallel()

	start := time.Now()
	clock := start
	l := NewRateLimiter(60, 1)
	l.now = func() time.Time { return clock }

	assert.Zero(t, l.reserve("a"))
	assert.Positive(t, l.reserve("a"))
	assert.Positive(t, l.reserve("a"))

	clock = start.Add(1500 * time.Millisecond)
	assert.Zero(t, l.reserve("a"))
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	t.Parallel()

	start := time.Now()
	clock := start
	l := NewRateLimiter(60, 1)
	l.idleTTL = 100 * time.Second
	l.now = func() time.Time { return clock }

	l.reserve("192.0.2.1")
	l.reserve("192.0.2.2")
	require.Len(t, l.buckets, 2)

	clock = start.Add(30 * time.Second)
	l.reserve("192.0.2.2")

	clock = start.Add(2 * time.Minute)
	l.reserve("192.0.2.3")
	assert.Len(t, l.buckets, 2)
	assert.NotContains(t, l.buckets, "192.0.2.1")
}

func TestJSONBody(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JSONBody(8))
	router.POST("/api/v1/imports", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})
	router.GET("/api/v1/settings", func(c *gin.Context) { c.Status(http.StatusOK) })

	resp := serve(router, jsonRequest(http.MethodPost, "/api/v1/imports", strings.Repeat("a", 9)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	assert.Contains(t, resp.Body.String(), "BODY_TOO_LARGE")

	assert.Equal(t, http.StatusOK, serve(router, jsonRequest(http.MethodPost, "/api/v1/imports", "{}")).Code)

	chunked := jsonRequest(http.MethodPost, "/api/v1/imports", strings.Repeat("b", 32))
	chunked.ContentLength = -1
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(router, chunked).Code)

	form := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader("a=b"))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp = serve(router, form)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.Code)

	empty := httptest.NewRequest(http.MethodPost, "/api/v1/imports", nil)
	assert.Equal(t, http.StatusOK, serve(router, empty).Code)

	get := httptest.NewRequest(http.MethodGet, "/api/v1/settings", strings.NewReader("ignored"))
	assert.Equal(t, http.StatusOK, serve(router, get).Code)
}

func TestJSONBodyDefaultLimit(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JSONBody(0))
	router.PUT("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPut, "/x", bytes.NewReader(bytes.Repeat([]byte("a"), 1024)))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusOK, serve(router, req).Code)
}
