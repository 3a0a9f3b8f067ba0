package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	apiRequestsTotal         *prometheus.CounterVec
	apiLatencySeconds        *prometheus.HistogramVec
	apiErrorsTotal           *prometheus.CounterVec
	validationOutcomesTotal  *prometheus.CounterVec
	validationRejectsTotal   *prometheus.CounterVec
	validationDurationSecond prometheus.Histogram
	validationInFlight       prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proof_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proof_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proof_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		validationOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proof_validation_outcomes_total",
			Help: "Terminal validation statuses written to materials.",
		}, []string{"status"})

		validationRejectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proof_validation_failures_total",
			Help: "Validation runs that ended in the error state, by failure kind.",
		}, []string{"kind"})

		validationDurationSecond = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "proof_validation_duration_seconds",
			Help:    "End-to-end duration of a validation run.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		})

		validationInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "proof_validation_in_flight",
			Help: "Validation runs currently executing in this process.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			validationOutcomesTotal,
			validationRejectsTotal,
			validationDurationSecond,
			validationInFlight,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// ValidationOutcomes counts terminal statuses by value.
func ValidationOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return validationOutcomesTotal
}

// ValidationFailures counts error-state runs by failure kind.
func ValidationFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return validationRejectsTotal
}

// ValidationDuration observes the end-to-end run duration.
func ValidationDuration() prometheus.Histogram {
	RegisterMetrics()
	return validationDurationSecond
}

// ValidationInFlight tracks concurrently executing runs.
func ValidationInFlight() prometheus.Gauge {
	RegisterMetrics()
	return validationInFlight
}
