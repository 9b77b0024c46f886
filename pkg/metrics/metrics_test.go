package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitai-reporter/promptfit/pkg/types"
)

func TestMemoryBackendSendAndQuery(t *testing.T) {
	backend := NewMemoryBackend(0)
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, backend.Send(types.MetricSample{
			Name:      "fit_duration",
			Value:     float64(i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := backend.Query("fit_duration", time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	recent, err := backend.Query("fit_duration", base.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 3.0, recent[0].Value)
	assert.Equal(t, 4.0, recent[1].Value)
}

func TestMemoryBackendUnknownMetric(t *testing.T) {
	backend := NewMemoryBackend(0)

	samples, err := backend.Query("absent", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestMemoryBackendBoundsSamplesPerKey(t *testing.T) {
	backend := NewMemoryBackend(3)

	for i := 0; i < 10; i++ {
		require.NoError(t, backend.Send(types.MetricSample{
			Name:  "bounded",
			Value: float64(i),
		}))
	}

	samples, err := backend.Query("bounded", time.Time{})
	require.NoError(t, err)
	require.Len(t, samples, 3)
	// Oldest samples are dropped first.
	assert.Equal(t, 7.0, samples[0].Value)
	assert.Equal(t, 9.0, samples[2].Value)
}

func TestMemoryBackendDefaultsTimestamp(t *testing.T) {
	backend := NewMemoryBackend(0)
	require.NoError(t, backend.Send(types.MetricSample{Name: "stamped", Value: 1}))

	samples, err := backend.Query("stamped", time.Time{})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.False(t, samples[0].Timestamp.IsZero())
}

func TestMemoryBackendMetricsSurface(t *testing.T) {
	backend := NewMemoryBackend(0)

	backend.Counter("ops", 1, map[string]string{"strategy": "adaptive"})
	backend.Gauge("depth", 4, nil)
	backend.Histogram("sizes", 128, nil)
	backend.Timer("latency", 12.5, nil)

	assert.ElementsMatch(t, []string{"ops", "depth", "sizes", "latency"}, backend.Names())

	ops, err := backend.Query("ops", time.Time{})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "adaptive", ops[0].Tags["strategy"])

	backend.Reset()
	assert.Empty(t, backend.Names())
}

func TestNoOpMetricsIsSafe(t *testing.T) {
	m := NewNoOpMetrics()
	m.Counter("a", 1, nil)
	m.Gauge("b", 2, nil)
	m.Histogram("c", 3, nil)
	m.Timer("d", 4, nil)
}
