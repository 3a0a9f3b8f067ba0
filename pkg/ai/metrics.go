package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "proof",
		Subsystem: "ai",
		Name:      "verification_duration_seconds",
		Help:      "Duration of document verification requests",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
	}, []string{"provider", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proof",
		Subsystem: "ai",
		Name:      "verification_failures_total",
		Help:      "Number of document verification requests that failed",
	}, []string{"provider", "model"})
)
