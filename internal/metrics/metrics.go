package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Benchmark Lifecycle Metrics
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "benchmark_phase_duration_seconds",
		Help:    "Wall time spent in each benchmark lifecycle phase",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 18), // 1ms to ~2m
	}, []string{"benchmark", "phase"})

	KernelRepetitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "benchmark_kernel_repetitions_total",
		Help: "Number of timed kernel repetitions recorded per timing label",
	}, []string{"benchmark", "label"})

	ValidationVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "benchmark_validation_total",
		Help: "Validation outcomes by verdict (success, failed, skipped)",
	}, []string{"benchmark", "verdict"})

	ResultValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "benchmark_result_value",
		Help: "Reported result values by metric name and unit",
	}, []string{"benchmark", "metric", "unit"})

	SetupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "benchmark_setup_failures_total",
		Help: "Number of failed benchmark setups",
	}, []string{"benchmark"})
)
