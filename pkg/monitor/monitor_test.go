package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitai-reporter/promptfit/pkg/errors"
	"github.com/gitai-reporter/promptfit/pkg/logger"
	"github.com/gitai-reporter/promptfit/pkg/metrics"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

func newTestMonitor(rules []ThresholdRule) (*Monitor, *metrics.MemoryBackend) {
	backend := metrics.NewMemoryBackend(1000)
	return NewMonitor(backend, logger.NewTestLogger(), rules), backend
}

func preservedResult() *types.FittingResult {
	return &types.FittingResult{
		FittedContent: "fitted",
		OriginalSize:  200,
		FittedSize:    100,
		DataPreserved: true,
	}
}

func TestRecordOperationAggregatesStats(t *testing.T) {
	mon, _ := newTestMonitor(nil)

	mon.RecordOperation(types.StrategyOverlappingChunks, preservedResult(), nil, 10*time.Millisecond)
	mon.RecordOperation(types.StrategyOverlappingChunks, nil,
		errors.NewChunkingError("failed"), 5*time.Millisecond)

	stats := mon.Snapshot()[types.StrategyOverlappingChunks]
	assert.Equal(t, int64(2), stats.Operations)
	assert.Equal(t, int64(1), stats.Successes)
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(0), stats.DataPreservationViolations)
	assert.InDelta(t, 0.5, stats.AvgCompressionRatio, 1e-9)
	assert.Equal(t, 15*time.Millisecond, stats.TotalDuration)
}

func TestUnpreservedResultRaisesImmediateCriticalAlert(t *testing.T) {
	mon, _ := newTestMonitor(nil)

	lossy := preservedResult()
	lossy.DataPreserved = false
	mon.RecordOperation(types.StrategyTemporalLog, lossy, nil, time.Millisecond)

	// No Tick needed: the integrity alert is out-of-band.
	active := mon.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, "data_integrity_violation", active[0].Name)
	assert.Equal(t, types.AlertSeverityCritical, active[0].Severity)
	assert.NotEmpty(t, active[0].ID)

	stats := mon.Snapshot()[types.StrategyTemporalLog]
	assert.Equal(t, int64(1), stats.DataPreservationViolations)
}

func TestTickFiresAfterConsecutiveViolations(t *testing.T) {
	rules := []ThresholdRule{{
		Name:            "high_error_rate",
		Metric:          MetricErrorRate,
		Op:              CompareGT,
		Threshold:       0.5,
		Severity:        types.AlertSeverityWarning,
		Window:          5 * time.Minute,
		Consecutive:     2,
		MessageTemplate: "error rate %.2f exceeds %.2f",
		AutoResolve:     true,
	}}
	mon, _ := newTestMonitor(rules)

	mon.RecordOperation(types.StrategyAdaptiveChunks, nil,
		errors.NewChunkingError("failed"), time.Millisecond)

	mon.Tick()
	assert.Empty(t, mon.ActiveAlerts(), "one violation should not fire yet")

	mon.Tick()
	active := mon.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, "high_error_rate", active[0].Name)
	assert.Equal(t, types.AlertSeverityWarning, active[0].Severity)
}

func TestTickAutoResolvesClearedAlert(t *testing.T) {
	rules := []ThresholdRule{{
		Name:            "high_error_rate",
		Metric:          MetricErrorRate,
		Op:              CompareGT,
		Threshold:       0.5,
		Severity:        types.AlertSeverityWarning,
		Window:          5 * time.Minute,
		Consecutive:     1,
		MessageTemplate: "error rate %.2f exceeds %.2f",
		AutoResolve:     true,
	}}
	mon, _ := newTestMonitor(rules)

	mon.RecordOperation(types.StrategyAdaptiveChunks, nil,
		errors.NewChunkingError("failed"), time.Millisecond)
	mon.Tick()
	require.Len(t, mon.ActiveAlerts(), 1)

	// Enough successes pull the windowed rate under the threshold.
	for i := 0; i < 3; i++ {
		mon.RecordOperation(types.StrategyAdaptiveChunks, preservedResult(), nil, time.Millisecond)
	}
	mon.Tick()

	assert.Empty(t, mon.ActiveAlerts())
	resolved := mon.Alerts()
	require.Len(t, resolved, 1)
	assert.True(t, resolved[0].Resolved)
	require.NotNil(t, resolved[0].ResolvedAt)
}

func TestTickRefiresAfterAutoResolve(t *testing.T) {
	rules := []ThresholdRule{{
		Name:            "high_error_rate",
		Metric:          MetricErrorRate,
		Op:              CompareGT,
		Threshold:       0.5,
		Severity:        types.AlertSeverityWarning,
		Window:          5 * time.Minute,
		Consecutive:     1,
		MessageTemplate: "error rate %.2f exceeds %.2f",
		AutoResolve:     true,
	}}
	mon, _ := newTestMonitor(rules)

	mon.RecordOperation(types.StrategyAdaptiveChunks, nil,
		errors.NewChunkingError("failed"), time.Millisecond)
	mon.Tick()
	require.Len(t, mon.ActiveAlerts(), 1)
	firstID := mon.ActiveAlerts()[0].ID

	for i := 0; i < 3; i++ {
		mon.RecordOperation(types.StrategyAdaptiveChunks, preservedResult(), nil, time.Millisecond)
	}
	mon.Tick()
	require.Empty(t, mon.ActiveAlerts())

	// A fresh violation streak raises a new alert; the resolved one must not
	// suppress it.
	for i := 0; i < 4; i++ {
		mon.RecordOperation(types.StrategyAdaptiveChunks, nil,
			errors.NewChunkingError("failed"), time.Millisecond)
	}
	mon.Tick()

	active := mon.ActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, "high_error_rate", active[0].Name)
	assert.NotEqual(t, firstID, active[0].ID)
}

func TestIntegrityAlertDoesNotAutoResolve(t *testing.T) {
	mon, _ := newTestMonitor(DefaultRules())

	lossy := preservedResult()
	lossy.DataPreserved = false
	mon.RecordOperation(types.StrategyTemporalLog, lossy, nil, time.Millisecond)

	for i := 0; i < 10; i++ {
		mon.RecordOperation(types.StrategyTemporalLog, preservedResult(), nil, time.Millisecond)
	}
	mon.Tick()

	names := make(map[string]bool)
	for _, alert := range mon.ActiveAlerts() {
		names[alert.Name] = true
	}
	assert.True(t, names["data_integrity_violation"])
}

func TestResetClearsState(t *testing.T) {
	mon, _ := newTestMonitor(nil)

	lossy := preservedResult()
	lossy.DataPreserved = false
	mon.RecordOperation(types.StrategyTemporalLog, lossy, nil, time.Millisecond)
	require.NotEmpty(t, mon.ActiveAlerts())
	require.NotEmpty(t, mon.Snapshot())

	mon.Reset()
	assert.Empty(t, mon.ActiveAlerts())
	assert.Empty(t, mon.Snapshot())
}

func TestCompareOperators(t *testing.T) {
	tests := []struct {
		op        Comparison
		value     float64
		threshold float64
		expected  bool
	}{
		{CompareGT, 2, 1, true},
		{CompareGT, 1, 1, false},
		{CompareLT, 0.5, 1, true},
		{CompareLT, 1, 1, false},
		{CompareGTE, 1, 1, true},
		{CompareLTE, 1, 1, true},
		{CompareLTE, 2, 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, compare(tt.op, tt.value, tt.threshold),
			"%s %v vs %v", tt.op, tt.value, tt.threshold)
	}
}
