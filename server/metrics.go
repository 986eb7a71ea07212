package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ytsum_request_duration_seconds",
			Help:    "Duration of summarization requests in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytsum_requests_total",
			Help: "Total number of summarization requests",
		},
		[]string{"status"},
	)

	validationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytsum_url_validation_failures_total",
			Help: "Total number of rejected YouTube URLs",
		},
		[]string{"stage"},
	)

	outboundCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytsum_outbound_calls_total",
			Help: "Total number of outbound collaborator calls",
		},
		[]string{"service", "outcome"},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytsum_cache_results_total",
			Help: "Summary cache lookups by result",
		},
		[]string{"result"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ytsum_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service"},
	)
)

// recordRequest records a finished request with its HTTP status.
func recordRequest(status int, elapsed time.Duration) {
	labels := prometheus.Labels{"status": strconv.Itoa(status)}
	requestDuration.With(labels).Observe(elapsed.Seconds())
	requestsTotal.With(labels).Inc()
}

// recordOutbound records one collaborator call.
func recordOutbound(service string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	outboundCalls.With(prometheus.Labels{"service": service, "outcome": outcome}).Inc()
}

// RecordBreakerState publishes a circuit breaker state change. Wire it as
// the OnBreakerChange callback when constructing API clients.
func RecordBreakerState(service string, state gobreaker.State) {
	var value float64
	switch state {
	case gobreaker.StateClosed:
		value = 0
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	breakerState.With(prometheus.Labels{"service": service}).Set(value)
}
