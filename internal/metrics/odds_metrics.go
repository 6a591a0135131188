// Package metrics defines odds-feed metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Odds feed counter vectors
var (
	OddsFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "odds_fetch_total",
		Help:      "Total number of upstream odds fetches by sport and status",
	}, []string{"sport_key", "status"})

	OddsRecordsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "odds_records_dropped_total",
		Help:      "Total number of odds records dropped by the validator",
	}, []string{"unit", "reason"})

	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "odds_api_circuit_breaker_trips_total",
		Help:      "Total number of upstream HTTP circuit breaker trips",
	})
)

// Odds feed histogram vectors
var (
	OddsFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "odds_fetch_duration_seconds",
		Help:      "Duration of upstream odds fetches in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"sport_key"})
)

// Odds feed gauges
var (
	OddsEventsValidated = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "odds_events_validated",
		Help:      "Number of events surviving validation in the latest document per sport",
	}, []string{"sport_key"})

	OddsAPIRequestsRemaining = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "odds_api_requests_remaining",
		Help:      "Upstream API quota remaining as last reported",
	})

	OddsCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "odds_cache_hit_ratio",
		Help:      "Hit ratio of the raw odds feed cache",
	})

	OddsStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "odds_streams_active",
		Help:      "Number of open odds WebSocket streams",
	})
)

// RecordOddsFetch records an upstream fetch.
func RecordOddsFetch(sportKey, status string, durationSeconds float64) {
	OddsFetchTotal.WithLabelValues(sportKey, status).Inc()
	OddsFetchDuration.WithLabelValues(sportKey).Observe(durationSeconds)
}

// RecordOddsDrop records a record skipped by the validator.
func RecordOddsDrop(unit, reason string) {
	OddsRecordsDroppedTotal.WithLabelValues(unit, reason).Inc()
}

// UpdateEventsValidated sets the surviving event count for a sport.
func UpdateEventsValidated(sportKey string, count int) {
	OddsEventsValidated.WithLabelValues(sportKey).Set(float64(count))
}

// UpdateRequestsRemaining sets the upstream quota gauge.
func UpdateRequestsRemaining(remaining float64) {
	OddsAPIRequestsRemaining.Set(remaining)
}

// UpdateCacheHitRatio sets the feed cache hit ratio.
func UpdateCacheHitRatio(ratio float64) {
	OddsCacheHitRatio.Set(ratio)
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// StreamOpened increments the open stream gauge.
func StreamOpened() {
	OddsStreamsActive.Inc()
}

// StreamClosed decrements the open stream gauge.
func StreamClosed() {
	OddsStreamsActive.Dec()
}
