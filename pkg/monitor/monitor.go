// Package monitor records fitting operation outcomes, aggregates
// per-strategy statistics, and raises threshold-based alerts. Monitor state
// is explicit: construct with NewMonitor, clear with Reset. Nothing here is
// a package-level singleton.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// Metric names pushed to the backend. Error and preservation samples are 0/1
// so a windowed average yields a rate directly.
const (
	MetricOperations       = "promptfit_operations"
	MetricErrorRate        = "promptfit_error"
	MetricDurationMs       = "promptfit_duration_ms"
	MetricCompressionRatio = "promptfit_compression_ratio"
	MetricDataPreserved    = "promptfit_data_preserved"
)

// Comparison is a threshold comparison operator
type Comparison string

const (
	CompareGT  Comparison = "gt"
	CompareLT  Comparison = "lt"
	CompareGTE Comparison = "gte"
	CompareLTE Comparison = "lte"
)

// ThresholdRule declares one alert condition evaluated on each tick
type ThresholdRule struct {
	Name            string
	Metric          string
	Op              Comparison
	Threshold       float64
	Severity        types.AlertSeverity
	Window          time.Duration
	Consecutive     int
	MessageTemplate string // fmt template receiving (value, threshold)
	AutoResolve     bool
}

// StrategyStats aggregates outcomes for one strategy
type StrategyStats struct {
	Operations                 int64         `json:"operations"`
	Successes                  int64         `json:"successes"`
	Errors                     int64         `json:"errors"`
	DataPreservationViolations int64         `json:"data_preservation_violations"`
	AvgCompressionRatio        float64       `json:"avg_compression_ratio"`
	TotalDuration              time.Duration `json:"total_duration"`

	compressionSum   float64
	compressionCount int64
}

// Monitor is the process-wide monitoring state, injected into components
// rather than looked up implicitly
type Monitor struct {
	mu         sync.RWMutex
	stats      map[types.StrategyType]*StrategyStats
	rules      []ThresholdRule
	alerts     map[string]*types.Alert
	violations map[string]int
	backend    interfaces.MetricsBackend
	logger     interfaces.Logger

	// now is replaceable for tests
	now func() time.Time
}

// NewMonitor creates a monitor pushing samples to the given backend
func NewMonitor(backend interfaces.MetricsBackend, log interfaces.Logger, rules []ThresholdRule) *Monitor {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Monitor{
		stats:      make(map[types.StrategyType]*StrategyStats),
		rules:      rules,
		alerts:     make(map[string]*types.Alert),
		violations: make(map[string]int),
		backend:    backend,
		logger:     log,
		now:        time.Now,
	}
}

// DefaultRules returns the standing alert conditions. The data preservation
// rule is mandatory; integrity violations additionally alert out-of-band in
// RecordOperation without waiting for a tick.
func DefaultRules() []ThresholdRule {
	return []ThresholdRule{
		{
			Name:            "high_error_rate",
			Metric:          MetricErrorRate,
			Op:              CompareGT,
			Threshold:       0.5,
			Severity:        types.AlertSeverityWarning,
			Window:          5 * time.Minute,
			Consecutive:     2,
			MessageTemplate: "fitting error rate %.2f exceeds %.2f",
			AutoResolve:     true,
		},
		{
			Name:            "data_preservation_violations",
			Metric:          MetricDataPreserved,
			Op:              CompareLT,
			Threshold:       1.0,
			Severity:        types.AlertSeverityCritical,
			Window:          5 * time.Minute,
			Consecutive:     1,
			MessageTemplate: "data preservation rate %.2f below %.2f",
			AutoResolve:     false,
		},
		{
			Name:            "slow_fitting",
			Metric:          MetricDurationMs,
			Op:              CompareGT,
			Threshold:       30000,
			Severity:        types.AlertSeverityWarning,
			Window:          5 * time.Minute,
			Consecutive:     3,
			MessageTemplate: "average fitting duration %.0fms exceeds %.0fms",
			AutoResolve:     true,
		},
	}
}

// RecordOperation records one fitting outcome. A result carrying
// data_preserved=false raises a critical alert immediately.
func (m *Monitor) RecordOperation(strategy types.StrategyType, result *types.FittingResult, err error, duration time.Duration) {
	m.mu.Lock()
	stats, ok := m.stats[strategy]
	if !ok {
		stats = &StrategyStats{}
		m.stats[strategy] = stats
	}

	stats.Operations++
	stats.TotalDuration += duration

	errValue := 0.0
	preservedValue := 1.0
	if err != nil {
		stats.Errors++
		errValue = 1.0
	} else {
		stats.Successes++
	}

	if result != nil {
		if !result.DataPreserved {
			stats.DataPreservationViolations++
			preservedValue = 0.0
		}
		if result.OriginalSize > 0 {
			ratio := float64(result.FittedSize) / float64(result.OriginalSize)
			stats.compressionSum += ratio
			stats.compressionCount++
			stats.AvgCompressionRatio = stats.compressionSum / float64(stats.compressionCount)
		}
	}
	m.mu.Unlock()

	m.send(MetricOperations, 1, strategy)
	m.send(MetricErrorRate, errValue, strategy)
	m.send(MetricDurationMs, float64(duration.Milliseconds()), strategy)
	if result != nil {
		m.send(MetricDataPreserved, preservedValue, strategy)
		if result.OriginalSize > 0 {
			m.send(MetricCompressionRatio,
				float64(result.FittedSize)/float64(result.OriginalSize), strategy)
		}
	}

	if result != nil && !result.DataPreserved {
		m.raiseIntegrityAlert(strategy)
	}
}

// raiseIntegrityAlert fires the mandatory out-of-band critical alert for a
// data preservation violation
func (m *Monitor) raiseIntegrityAlert(strategy types.StrategyType) {
	alert := &types.Alert{
		ID:       uuid.New().String(),
		Name:     "data_integrity_violation",
		Message:  fmt.Sprintf("strategy %s produced a result without data preservation", strategy),
		Severity: types.AlertSeverityCritical,

		Timestamp:      m.now(),
		MetricValue:    0,
		ThresholdValue: 1,
	}

	m.mu.Lock()
	m.alerts["data_integrity_violation|"+string(strategy)] = alert
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Error("data integrity violation", nil, map[string]interface{}{
			"strategy": string(strategy),
			"alert_id": alert.ID,
		})
	}
}

// Tick evaluates every threshold rule over its window, firing new alerts and
// auto-resolving cleared ones
func (m *Monitor) Tick() {
	if m.backend == nil {
		return
	}
	now := m.now()

	for _, rule := range m.rules {
		value, sampled := m.windowAverage(rule.Metric, now.Add(-rule.Window))
		key := fmt.Sprintf("%s|%g", rule.Metric, rule.Threshold)

		if sampled && compare(rule.Op, value, rule.Threshold) {
			m.mu.Lock()
			m.violations[key]++
			violations := m.violations[key]
			alert, ok := m.alerts[key]
			active := ok && !alert.Resolved
			m.mu.Unlock()

			if violations >= max(rule.Consecutive, 1) && !active {
				m.fireAlert(key, rule, value)
			}
			continue
		}

		m.mu.Lock()
		m.violations[key] = 0
		if alert, ok := m.alerts[key]; ok && rule.AutoResolve && !alert.Resolved {
			resolvedAt := now
			alert.Resolved = true
			alert.ResolvedAt = &resolvedAt
		}
		m.mu.Unlock()
	}
}

func (m *Monitor) fireAlert(key string, rule ThresholdRule, value float64) {
	alert := &types.Alert{
		ID:             uuid.New().String(),
		Name:           rule.Name,
		Message:        fmt.Sprintf(rule.MessageTemplate, value, rule.Threshold),
		Severity:       rule.Severity,
		Timestamp:      m.now(),
		MetricValue:    value,
		ThresholdValue: rule.Threshold,
	}

	m.mu.Lock()
	m.alerts[key] = alert
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Warn("alert fired", map[string]interface{}{
			"alert":    rule.Name,
			"severity": string(rule.Severity),
			"value":    value,
		})
	}
}

// windowAverage averages samples for a metric since the given time
func (m *Monitor) windowAverage(metric string, since time.Time) (float64, bool) {
	samples, err := m.backend.Query(metric, since)
	if err != nil || len(samples) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, sample := range samples {
		sum += sample.Value
	}
	return sum / float64(len(samples)), true
}

// Alerts returns a copy of all alerts, active and resolved
func (m *Monitor) Alerts() []types.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Alert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		out = append(out, *alert)
	}
	return out
}

// ActiveAlerts returns unresolved alerts
func (m *Monitor) ActiveAlerts() []types.Alert {
	var out []types.Alert
	for _, alert := range m.Alerts() {
		if !alert.Resolved {
			out = append(out, alert)
		}
	}
	return out
}

// Snapshot returns a copy of per-strategy statistics
func (m *Monitor) Snapshot() map[types.StrategyType]StrategyStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[types.StrategyType]StrategyStats, len(m.stats))
	for strategy, stats := range m.stats {
		out[strategy] = *stats
	}
	return out
}

// Reset clears all counters, alerts, and violation streaks
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats = make(map[types.StrategyType]*StrategyStats)
	m.alerts = make(map[string]*types.Alert)
	m.violations = make(map[string]int)
}

func (m *Monitor) send(name string, value float64, strategy types.StrategyType) {
	if m.backend == nil {
		return
	}
	m.backend.Send(types.MetricSample{
		Name:      name,
		Value:     value,
		Tags:      map[string]string{"strategy": string(strategy), "operation": "fit"},
		Timestamp: m.now(),
	})
}

func compare(op Comparison, value, threshold float64) bool {
	switch op {
	case CompareGT:
		return value > threshold
	case CompareLT:
		return value < threshold
	case CompareGTE:
		return value >= threshold
	case CompareLTE:
		return value <= threshold
	}
	return false
}
