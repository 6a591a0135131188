package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	// Initialize the registry
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestRecordEVCalculation(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(EVCalculationsTotal.WithLabelValues("positive"))
	warningsBefore := testutil.ToFloat64(EVWarningsTotal)

	RecordEVCalculation("positive", 12, false)
	RecordEVCalculation("positive", 45, true)

	assert.Equal(t, before+2, testutil.ToFloat64(EVCalculationsTotal.WithLabelValues("positive")))
	assert.Equal(t, warningsBefore+1, testutil.ToFloat64(EVWarningsTotal))
}

func TestRecordEVError(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(EVCalculationErrorsTotal.WithLabelValues("stale_data"))
	RecordEVError("stale_data")
	assert.Equal(t, before+1, testutil.ToFloat64(EVCalculationErrorsTotal.WithLabelValues("stale_data")))
}

func TestOddsMetrics(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name   string
		unit   string
		reason string
	}{
		{name: "unsupported sportsbook", unit: "bookmaker", reason: "unsupported_sportsbook"},
		{name: "stale bookmaker", unit: "bookmaker", reason: "stale"},
		{name: "low price", unit: "outcome", reason: "price_too_low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(OddsRecordsDroppedTotal.WithLabelValues(tt.unit, tt.reason))
			RecordOddsDrop(tt.unit, tt.reason)
			assert.Equal(t, before+1, testutil.ToFloat64(OddsRecordsDroppedTotal.WithLabelValues(tt.unit, tt.reason)))
		})
	}

	UpdateEventsValidated("basketball_nba", 7)
	assert.Equal(t, 7.0, testutil.ToFloat64(OddsEventsValidated.WithLabelValues("basketball_nba")))

	UpdateRequestsRemaining(481)
	assert.Equal(t, 481.0, testutil.ToFloat64(OddsAPIRequestsRemaining))

	UpdateCacheHitRatio(0.5)
	assert.Equal(t, 0.5, testutil.ToFloat64(OddsCacheHitRatio))

	streams := testutil.ToFloat64(OddsStreamsActive)
	StreamOpened()
	StreamOpened()
	StreamClosed()
	assert.Equal(t, streams+1, testutil.ToFloat64(OddsStreamsActive))

	assert.NotPanics(t, func() {
		RecordOddsFetch("basketball_nba", "success", 0.2)
		RecordCircuitBreakerTrip()
		RecordHTTPRequest("/api/ev/calculate", "200", 0.01)
	})
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()
	RecordEVError("invalid_odds")

	handler := Handler()
	require.NotNil(t, handler)
	assert.Implements(t, (*http.Handler)(nil), handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "better_bets_ev_calculation_errors_total")
}

func BenchmarkRecordEVCalculation(b *testing.B) {
	InitRegistry()

	for i := 0; i < b.N; i++ {
		RecordEVCalculation("positive", 10, false)
	}
}
