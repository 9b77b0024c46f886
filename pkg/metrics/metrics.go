// Package metrics provides metrics implementations for PromptFit
package metrics

import (
	"sync"
	"time"

	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// NoOpMetrics is a no-operation metrics implementation
type NoOpMetrics struct{}

// Counter increments a counter metric
func (m *NoOpMetrics) Counter(name string, value float64, labels map[string]string) {}

// Gauge sets a gauge metric
func (m *NoOpMetrics) Gauge(name string, value float64, labels map[string]string) {}

// Histogram records a histogram metric
func (m *NoOpMetrics) Histogram(name string, value float64, labels map[string]string) {}

// Timer records timing metrics
func (m *NoOpMetrics) Timer(name string, duration float64, labels map[string]string) {}

// NewNoOpMetrics creates a new no-op metrics implementation
func NewNoOpMetrics() interfaces.Metrics {
	return &NoOpMetrics{}
}

// MemoryBackend stores metric samples in memory. It implements both the
// general Metrics surface and the monitoring send/query backend, and is the
// backend used in tests.
type MemoryBackend struct {
	mu        sync.RWMutex
	samples   map[string][]types.MetricSample
	maxPerKey int
}

// NewMemoryBackend creates an in-memory metrics backend. maxPerKey bounds the
// retained samples per metric name; zero means unbounded.
func NewMemoryBackend(maxPerKey int) *MemoryBackend {
	return &MemoryBackend{
		samples:   make(map[string][]types.MetricSample),
		maxPerKey: maxPerKey,
	}
}

// Send pushes one named numeric sample
func (m *MemoryBackend) Send(sample types.MetricSample) error {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	samples := append(m.samples[sample.Name], sample)
	if m.maxPerKey > 0 && len(samples) > m.maxPerKey {
		samples = samples[len(samples)-m.maxPerKey:]
	}
	m.samples[sample.Name] = samples
	return nil
}

// Query returns samples for a metric name recorded at or after since
func (m *MemoryBackend) Query(name string, since time.Time) ([]types.MetricSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.MetricSample
	for _, sample := range m.samples[name] {
		if !sample.Timestamp.Before(since) {
			out = append(out, sample)
		}
	}
	return out, nil
}

// Names returns all metric names with at least one sample
func (m *MemoryBackend) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.samples))
	for name := range m.samples {
		names = append(names, name)
	}
	return names
}

// Reset discards all recorded samples
func (m *MemoryBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = make(map[string][]types.MetricSample)
}

// Counter increments a counter metric
func (m *MemoryBackend) Counter(name string, value float64, labels map[string]string) {
	m.Send(types.MetricSample{Name: name, Value: value, Tags: labels})
}

// Gauge sets a gauge metric
func (m *MemoryBackend) Gauge(name string, value float64, labels map[string]string) {
	m.Send(types.MetricSample{Name: name, Value: value, Tags: labels})
}

// Histogram records a histogram metric
func (m *MemoryBackend) Histogram(name string, value float64, labels map[string]string) {
	m.Send(types.MetricSample{Name: name, Value: value, Tags: labels})
}

// Timer records timing metrics
func (m *MemoryBackend) Timer(name string, duration float64, labels map[string]string) {
	m.Send(types.MetricSample{Name: name, Value: duration, Tags: labels})
}

var _ interfaces.Metrics = (*NoOpMetrics)(nil)
var _ interfaces.Metrics = (*MemoryBackend)(nil)
var _ interfaces.MetricsBackend = (*MemoryBackend)(nil)

// NewTestMetrics creates a metrics implementation for testing
func NewTestMetrics() interfaces.Metrics {
	return &NoOpMetrics{}
}
