package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-relay/internal/config"
	"github.com/JakeFAU/progress-relay/internal/metrics"
	"github.com/JakeFAU/progress-relay/internal/progress"
)

const waitFor = 2 * time.Second

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, config.Config{})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_RequestIDPassthrough(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestServer_ApplyUpdate(t *testing.T) {
	t.Parallel()

	server, tracker := newTestServer(t, config.Config{})

	rec := postUpdate(server, `{"kind":"set_target","amount":4}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"kind":"set_target","amount":4}`, rec.Body.String())

	rec = postUpdate(server, `{"kind":"increment"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool { return tracker.Emitted() == 2 }, waitFor, 5*time.Millisecond)
	last, ok := tracker.Last()
	require.True(t, ok)
	require.Equal(t, progress.NewReport(1).WithTarget(4), last)
}

func TestServer_ApplyUpdate_Invalid(t *testing.T) {
	t.Parallel()

	server, tracker := newTestServer(t, config.Config{})
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", "{invalid", "invalid JSON"},
		{"missing kind", `{"amount":1}`, ErrMissingKind.Error()},
		{"unknown kind", `{"kind":"multiply","amount":2}`, "unknown update kind"},
	}
	for _, tc := range tests {
		rec := postUpdate(server, tc.body)
		require.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
		require.Contains(t, rec.Body.String(), tc.want, tc.name)
	}
	require.Zero(t, tracker.Emitted())
}

func TestServer_LastReport(t *testing.T) {
	t.Parallel()

	server, tracker := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"report":null,"emitted":0,"subscribers":0}`, rec.Body.String())

	tracker.SetTarget(4)
	tracker.Increment()
	require.Eventually(t, func() bool { return tracker.Emitted() == 2 }, waitFor, 5*time.Millisecond)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t,
		`{"report":{"value":1,"target":4,"percent":25,"done":false},"emitted":2,"subscribers":0}`,
		rec.Body.String(),
	)
}

func TestServer_APIKey(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, config.Config{Auth: config.AuthConfig{Enabled: true, APIKey: "secret"}})

	rec := postUpdate(server, `{"kind":"increment"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/progress/updates", strings.NewReader(`{"kind":"increment"}`))
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RecoverMiddleware(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, config.Config{})
	handler := server.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}

func TestServer_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	httpMetrics, err := metrics.NewHTTP(reg)
	require.NoError(t, err)
	tracker := progress.New()
	t.Cleanup(func() { require.NoError(t, tracker.Close(context.Background())) })
	require.NoError(t, metrics.RegisterTracker(reg, tracker))
	server := NewServer(tracker, config.Config{}, zap.NewNop(), httpMetrics, reg)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "http_requests_total")
	require.Contains(t, body, "progress_tracker_reports_emitted_total")
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *progress.Tracker) {
	t.Helper()
	tracker := progress.New()
	t.Cleanup(func() {
		require.NoError(t, tracker.Close(context.Background()))
	})
	return NewServer(tracker, cfg, zap.NewNop(), nil, prometheus.NewRegistry()), tracker
}

func postUpdate(server *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/progress/updates", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeReport(t *testing.T, data string) progress.Report {
	t.Helper()
	var r progress.Report
	require.NoError(t, json.Unmarshal([]byte(data), &r))
	return r
}
