package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	phaseBefore  = "before"
	phaseHandler = "handler"
	phaseAfter   = "after"
)

var (
	invocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "funcware",
		Name:      "invocations_total",
		Help:      "Total function invocations by function and outcome.",
	}, []string{"function", "outcome"})

	invocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "funcware",
		Name:      "invocation_duration_seconds",
		Help:      "Invocation latency in seconds, checks included.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"function"})

	invocationsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "funcware",
		Name:      "invocations_in_flight",
		Help:      "Number of invocations currently running through a chain.",
	})

	checkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "funcware",
		Name:      "check_failures_total",
		Help:      "Failures raised per phase (before, handler, after).",
	}, []string{"function", "phase"})
)

func observeInvocation(function string, failed bool, d time.Duration) {
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	invocationsTotal.WithLabelValues(function, outcome).Inc()
	invocationDuration.WithLabelValues(function).Observe(d.Seconds())
}
