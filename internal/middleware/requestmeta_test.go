package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/serroba/tinylink/internal/handlers"
	"github.com/serroba/tinylink/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOutput struct {
	Body string `json:"body"`
}

// serve registers a capturing route, sends req through it and returns the captured metadata.
func serve(t *testing.T, req *http.Request) (handlers.RequestMeta, *httptest.ResponseRecorder) {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RequestMeta(api))

	captured := make(chan handlers.RequestMeta, 1)

	huma.Get(api, "/test", func(ctx context.Context, _ *struct{}) (*testOutput, error) {
		captured <- handlers.RequestMetaFromContext(ctx)

		return &testOutput{Body: "ok"}, nil
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	return <-captured, w
}

func TestRequestMeta(t *testing.T) {
	t.Run("carries only the request id and client ip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-1")
		req.Header.Set("X-Real-IP", "10.0.0.1")
		req.Header.Set("User-Agent", "TestAgent/1.0")
		req.Header.Set("Referer", "https://example.com")

		meta, _ := serve(t, req)

		assert.Equal(t, handlers.RequestMeta{RequestID: "req-1", ClientIP: "10.0.0.1"}, meta)
	})

	t.Run("extracts IP from X-Forwarded-For with single IP", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1")

		meta, _ := serve(t, req)

		assert.Equal(t, "192.168.1.1", meta.ClientIP)
	})

	t.Run("extracts first IP from X-Forwarded-For with multiple IPs", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1, 172.16.0.1")

		meta, _ := serve(t, req)

		assert.Equal(t, "192.168.1.1", meta.ClientIP)
	})

	t.Run("extracts IP from X-Real-IP when X-Forwarded-For is absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")

		meta, _ := serve(t, req)

		assert.Equal(t, "10.0.0.1", meta.ClientIP)
	})

	t.Run("falls back to remote address without port", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "203.0.113.7:51234"

		meta, _ := serve(t, req)

		assert.Equal(t, "203.0.113.7", meta.ClientIP)
	})

	t.Run("generates a request id and echoes it", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)

		meta, w := serve(t, req)

		_, err := uuid.Parse(meta.RequestID)
		require.NoError(t, err)
		assert.Equal(t, meta.RequestID, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("keeps an incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-42")

		meta, w := serve(t, req)

		assert.Equal(t, "req-42", meta.RequestID)
		assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
	})
}
