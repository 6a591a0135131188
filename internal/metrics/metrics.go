// Package metrics provides centralized Prometheus metrics registry for the EV service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "better_bets"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	EVCalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ev_calculations_total",
		Help:      "Total number of EV calculations by outcome (positive, negative, zero)",
	}, []string{"outcome"})
	EVCalculationErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ev_calculation_errors_total",
		Help:      "Total number of rejected EV calculations by error kind",
	}, []string{"kind"})
	EVWarningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ev_warnings_total",
		Help:      "Total number of EV results carrying a freshness warning",
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of API requests by route and status code",
	}, []string{"route", "status"})
)

// Histogram metrics
var (
	OddsAgeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ev_odds_age_seconds",
		Help:      "Age of odds at calculation time",
		Buckets:   []float64{1, 5, 10, 20, 30, 45, 60},
	})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of API requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(EVCalculationsTotal)
		registry.MustRegister(EVCalculationErrorsTotal)
		registry.MustRegister(EVWarningsTotal)
		registry.MustRegister(HTTPRequestsTotal)

		registry.MustRegister(OddsAgeSeconds)
		registry.MustRegister(HTTPRequestDuration)

		// Register odds feed metrics
		registry.MustRegister(OddsFetchTotal)
		registry.MustRegister(OddsFetchDuration)
		registry.MustRegister(OddsRecordsDroppedTotal)
		registry.MustRegister(OddsEventsValidated)
		registry.MustRegister(OddsAPIRequestsRemaining)
		registry.MustRegister(OddsCacheHitRatio)
		registry.MustRegister(OddsStreamsActive)
		registry.MustRegister(CircuitBreakerTripsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordEVCalculation records a successful calculation.
func RecordEVCalculation(outcome string, oddsAgeSeconds float64, warned bool) {
	EVCalculationsTotal.WithLabelValues(outcome).Inc()
	OddsAgeSeconds.Observe(oddsAgeSeconds)
	if warned {
		EVWarningsTotal.Inc()
	}
}

// RecordEVError records a rejected calculation.
func RecordEVError(kind string) {
	EVCalculationErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(route, status string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}
