package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusnote/scan-api/internal/config"
	"focusnote/scan-api/internal/interfaces/httpserver/handlers"
)

func newTestServer(checks ...ReadinessCheck) *HttpServer {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{ServiceName: "scan-api", MaxFiles: 1, MaxFileBytes: 1024, MaxArtifactBytes: 1024}
	provider := handlers.NewProvider(cfg, nil, nil, nil, nil, zerolog.Nop())
	return New(cfg, zerolog.Nop(), provider, nil, checks...)
}

func TestCoreRoutes(t *testing.T) {
	srv := newTestServer()

	for _, path := range []string{"/", "/healthz", "/readyz", "/health/auth"} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestReadinessReportsFailedChecks(t *testing.T) {
	srv := newTestServer(
		ReadinessCheck{Name: "database", Check: func(context.Context) error { return nil }},
		ReadinessCheck{Name: "storage", Check: func(context.Context) error { return errors.New("bucket unreachable") }},
	)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "bucket unreachable")
	assert.NotContains(t, w.Body.String(), "database")
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-Id"))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestErrorsCarryRequestID(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/v1/scans", strings.NewReader("not a form"))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-Request-Id", "req-err")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"request_id":"req-err"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "focusnote_scan_api_requests_total")
}
