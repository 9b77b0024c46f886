// Package interfaces defines the core interfaces for PromptFit components
package interfaces

import (
	"context"
	"time"

	"github.com/gitai-reporter/promptfit/pkg/types"
)

// TokenCounter converts content to a token count. Implementations must return
// a non-negative count even when the backing service fails, falling back to a
// cheap estimate.
type TokenCounter interface {
	// CountTokens returns the number of tokens in the text
	CountTokens(ctx context.Context, text string) (int, error)

	// CountTokensBatch returns token counts for multiple texts, ordered by
	// input index regardless of completion order
	CountTokensBatch(ctx context.Context, texts []string) ([]int, error)

	// Name returns a human-readable name for this counter (for logging)
	Name() string
}

// Fitter is one algorithm for fitting content under a token budget without
// losing information
type Fitter interface {
	// Fit transforms content so its token count is at or below targetTokens
	Fit(ctx context.Context, content string, targetTokens int) (*types.FittingResult, error)

	// Strategy returns the strategy type this fitter implements
	Strategy() types.StrategyType

	// ValidatePreservation verifies that a produced result still carries all
	// of the original content
	ValidatePreservation(original string, result *types.FittingResult) error
}

// ContentFitter is the caller-facing fitting entry point, implemented by the
// fallback chain and by caching wrappers around it
type ContentFitter interface {
	// FitContent fits content under targetTokens, choosing a strategy
	FitContent(ctx context.Context, content string, targetTokens int) (*types.FittingResult, error)
}

// CacheBackend stores fitting results keyed by composite cache keys
type CacheBackend interface {
	// Get retrieves an entry by key, refreshing its access bookkeeping
	Get(key string) (*types.CacheEntry, bool)

	// Set stores an entry, evicting per backend policy when full
	Set(key string, entry *types.CacheEntry) error

	// Delete removes an entry by key
	Delete(key string) error

	// Keys returns cached keys, most recently used first
	Keys() []string

	// Len returns the number of live entries
	Len() int

	// Purge removes all entries
	Purge() error
}

// MetricsBackend is the minimal send/query surface monitoring exports
// through. In-memory for tests, an external time-series service in production.
type MetricsBackend interface {
	// Send pushes one named numeric sample
	Send(sample types.MetricSample) error

	// Query returns samples for a metric name recorded at or after since
	Query(name string, since time.Time) ([]types.MetricSample, error)
}

// Logger defines the interface for logging implementations
type Logger interface {
	// Debug logs debug level messages
	Debug(msg string, fields ...map[string]interface{})

	// Info logs info level messages
	Info(msg string, fields ...map[string]interface{})

	// Warn logs warning level messages
	Warn(msg string, fields ...map[string]interface{})

	// Error logs error level messages
	Error(msg string, err error, fields ...map[string]interface{})

	// Fatal logs fatal level messages and exits
	Fatal(msg string, err error, fields ...map[string]interface{})

	// WithFields returns a logger with additional fields
	WithFields(fields map[string]interface{}) Logger
}

// Metrics defines the interface for metrics collection
type Metrics interface {
	// Counter increments a counter metric
	Counter(name string, value float64, labels map[string]string)

	// Gauge sets a gauge metric
	Gauge(name string, value float64, labels map[string]string)

	// Histogram records a histogram metric
	Histogram(name string, value float64, labels map[string]string)

	// Timer records timing metrics
	Timer(name string, duration float64, labels map[string]string)
}
