package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleMetrics(t *testing.T) {
	t.Run("PhaseDuration", func(t *testing.T) {
		PhaseDuration.WithLabelValues("STREAM", "execute").Observe(0.5)
		PhaseDuration.WithLabelValues("STREAM", "validate").Observe(0.1)

		assert.NotPanics(t, func() {
			PhaseDuration.WithLabelValues("STREAM", "generate").Observe(0.01)
		})
	})

	t.Run("KernelRepetitions", func(t *testing.T) {
		before := testutil.ToFloat64(KernelRepetitions.WithLabelValues("STREAM", "Triad"))
		KernelRepetitions.WithLabelValues("STREAM", "Triad").Add(10)
		after := testutil.ToFloat64(KernelRepetitions.WithLabelValues("STREAM", "Triad"))
		assert.Equal(t, float64(10), after-before)
	})

	t.Run("ValidationVerdicts", func(t *testing.T) {
		before := testutil.ToFloat64(ValidationVerdicts.WithLabelValues("GEMM", "success"))
		ValidationVerdicts.WithLabelValues("GEMM", "success").Inc()
		after := testutil.ToFloat64(ValidationVerdicts.WithLabelValues("GEMM", "success"))
		assert.Equal(t, float64(1), after-before)
	})

	t.Run("ResultValue", func(t *testing.T) {
		ResultValue.WithLabelValues("GEMM", "GFLOPS", "GFLOP/s").Set(123.45)
		value := testutil.ToFloat64(ResultValue.WithLabelValues("GEMM", "GFLOPS", "GFLOP/s"))
		assert.Equal(t, 123.45, value)
	})

	t.Run("SetupFailures", func(t *testing.T) {
		before := testutil.ToFloat64(SetupFailures.WithLabelValues("STREAM"))
		SetupFailures.WithLabelValues("STREAM").Inc()
		after := testutil.ToFloat64(SetupFailures.WithLabelValues("STREAM"))
		assert.Equal(t, float64(1), after-before)
	})
}

func TestMetricsRegistration(t *testing.T) {
	metrics := []prometheus.Collector{
		PhaseDuration,
		KernelRepetitions,
		ValidationVerdicts,
		ResultValue,
		SetupFailures,
	}

	// all collectors register with the default registry at init
	for _, metric := range metrics {
		err := prometheus.Register(metric)
		var already prometheus.AlreadyRegisteredError
		assert.ErrorAs(t, err, &already)
	}
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.prom")
	ResultValue.WithLabelValues("STREAM", "Triad", "GB/s").Set(42)

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "benchmark_result_value")
}
