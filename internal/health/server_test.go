package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/better-bets/internal/datasource"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

// steppingClock advances by step on every call
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}

func newTestServer(upstream Pinger, now func() time.Time) *Server {
	logger, _ := test.NewNullLogger()
	return NewServer(Config{
		ServiceName: "better-bets",
		Version:     "1.0.0",
		Logger:      logger,
		Upstream:    upstream,
		Now:         now,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("better_bets_up 1\n"))
		}),
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthReportsUptime(t *testing.T) {
	start := time.Date(2025, 12, 31, 18, 0, 0, 0, time.UTC)
	srv := newTestServer(nil, steppingClock(start, 90*time.Second))

	rec := get(t, srv.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.0.0", body.Version)
	assert.Equal(t, int64(90), body.UptimeSeconds)
	assert.Equal(t, "2025-12-31T18:01:30Z", body.Timestamp)
}

func TestLive(t *testing.T) {
	rec := get(t, newTestServer(nil, nil).Handler(), "/live")
	require.Equal(t, http.StatusOK, rec.Code)

	var body Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "better-bets", body.Service)
	assert.Empty(t, body.Version)
}

func TestReady(t *testing.T) {
	authErr := datasource.NewDataSourceError("the_odds_api", datasource.ErrCodeAuthenticationFailed, "invalid API key", nil)

	tests := []struct {
		name       string
		ready      bool
		upstream   Pinger
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "not marked ready",
			upstream:   stubPinger{},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"service": "not_ready", "odds_api": "ok"},
		},
		{
			name:       "ready with healthy upstream",
			ready:      true,
			upstream:   stubPinger{},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"service": "ok", "odds_api": "ok"},
		},
		{
			name:       "upstream rejects key",
			ready:      true,
			upstream:   stubPinger{err: authErr},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"service": "ok", "odds_api": datasource.ErrCodeAuthenticationFailed + ": " + authErr.Error()},
		},
		{
			name:       "plain upstream error",
			ready:      true,
			upstream:   stubPinger{err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"service": "ok", "odds_api": "error: connection refused"},
		},
		{
			name:       "no upstream configured",
			ready:      true,
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"service": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(tt.upstream, nil)
			srv.SetReady(tt.ready)
			assert.Equal(t, tt.ready, srv.IsReady())

			rec := get(t, srv.Handler(), "/ready")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body Readiness
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantChecks, body.Checks)
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	rec := get(t, newTestServer(nil, nil).Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "better_bets_up")
}

func TestUnknownRoute(t *testing.T) {
	rec := get(t, newTestServer(nil, nil).Handler(), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShutdownWithoutStart(t *testing.T) {
	assert.NoError(t, newTestServer(nil, nil).Shutdown(context.Background()))
}
