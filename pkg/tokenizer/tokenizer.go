// Package tokenizer provides token counting for PromptFit.
//
// Two counters are available: a heuristic estimator that never fails, and a
// remote counter that calls a token-counting HTTP service and falls back to
// the estimate when the service is unavailable.
package tokenizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"

	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/parallel"
)

// HeuristicCounter estimates tokens as len(content)/4, the conventional
// characters-per-token ratio for English-heavy LLM input
type HeuristicCounter struct{}

// NewHeuristicCounter creates a heuristic token counter
func NewHeuristicCounter() *HeuristicCounter {
	return &HeuristicCounter{}
}

// CountTokens returns the estimated token count; it never fails
func (h *HeuristicCounter) CountTokens(ctx context.Context, text string) (int, error) {
	return EstimateTokens(text), nil
}

// CountTokensBatch estimates token counts for multiple texts
func (h *HeuristicCounter) CountTokensBatch(ctx context.Context, texts []string) ([]int, error) {
	counts := make([]int, len(texts))
	for i, text := range texts {
		counts[i] = EstimateTokens(text)
	}
	return counts, nil
}

// Name returns the counter name
func (h *HeuristicCounter) Name() string {
	return "heuristic"
}

// EstimateTokens is the cheap fallback estimate used whenever an exact count
// is unavailable
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// RemoteConfig configures the remote token counting client
type RemoteConfig struct {
	// Endpoint is the base URL of the token counting service
	Endpoint string

	// RequestTimeout for API requests
	RequestTimeout time.Duration

	// RetryAttempts for failed requests
	RetryAttempts int

	// CacheSize bounds the token count cache; zero disables caching
	CacheSize int

	// MaxWorkers bounds batch counting concurrency
	MaxWorkers int
}

// DefaultRemoteConfig returns sensible defaults for the remote counter
func DefaultRemoteConfig(endpoint string) *RemoteConfig {
	return &RemoteConfig{
		Endpoint:       endpoint,
		RequestTimeout: 10 * time.Second,
		RetryAttempts:  3,
		CacheSize:      1024,
		MaxWorkers:     4,
	}
}

type countRequest struct {
	Content string `json:"content"`
}

type countResponse struct {
	Tokens int `json:"tokens"`
}

// RemoteCounter counts tokens through an external HTTP service. Failures are
// logged and degrade to the heuristic estimate, so a count is always
// returned.
type RemoteCounter struct {
	config   *RemoteConfig
	client   *resty.Client
	executor *parallel.Executor
	logger   interfaces.Logger

	mu    sync.Mutex
	cache map[string]int
}

// NewRemoteCounter creates a remote token counter
func NewRemoteCounter(config *RemoteConfig, log interfaces.Logger) *RemoteCounter {
	if config == nil {
		config = DefaultRemoteConfig("")
	}

	client := resty.New().
		SetBaseURL(config.Endpoint).
		SetTimeout(config.RequestTimeout).
		SetHeader("Content-Type", "application/json")

	return &RemoteCounter{
		config:   config,
		client:   client,
		executor: parallel.NewExecutor(config.MaxWorkers),
		logger:   log,
		cache:    make(map[string]int),
	}
}

// CountTokens returns the token count for text. The returned count is always
// non-negative; a service failure degrades to the heuristic estimate.
func (r *RemoteCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	key := cacheKey(text)
	if count, ok := r.cacheGet(key); ok {
		return count, nil
	}

	count, err := r.countRemote(ctx, text)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("token service unavailable, using estimate",
				map[string]interface{}{"error": err.Error()})
		}
		return EstimateTokens(text), nil
	}

	r.cachePut(key, count)
	return count, nil
}

// CountTokensBatch counts tokens for multiple texts concurrently, bounded by
// MaxWorkers. Results are ordered by input index.
func (r *RemoteCounter) CountTokensBatch(ctx context.Context, texts []string) ([]int, error) {
	return r.executor.MapInts(ctx, texts, func(ctx context.Context, text string) (int, error) {
		return r.CountTokens(ctx, text)
	})
}

// Name returns the counter name
func (r *RemoteCounter) Name() string {
	return "remote"
}

func (r *RemoteCounter) countRemote(ctx context.Context, text string) (int, error) {
	var out countResponse

	err := retry.Do(
		func() error {
			resp, err := r.client.R().
				SetContext(ctx).
				SetBody(countRequest{Content: text}).
				SetResult(&out).
				Post("/v1/tokens/count")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("token service returned %s", resp.Status())
			}
			return nil
		},
		retry.Attempts(uint(r.config.RetryAttempts)),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return 0, err
	}

	if out.Tokens < 0 {
		return 0, fmt.Errorf("token service returned negative count %d", out.Tokens)
	}
	return out.Tokens, nil
}

func (r *RemoteCounter) cacheGet(key string) (int, bool) {
	if r.config.CacheSize <= 0 {
		return 0, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	count, ok := r.cache[key]
	return count, ok
}

func (r *RemoteCounter) cachePut(key string, count int) {
	if r.config.CacheSize <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cache) >= r.config.CacheSize {
		// Full reset is cheaper than tracking recency for a count cache.
		r.cache = make(map[string]int)
	}
	r.cache[key] = count
}

// cacheKey samples long content instead of hashing all of it
func cacheKey(text string) string {
	if len(text) <= 128 {
		return text
	}
	return fmt.Sprintf("%d:%s:%s", len(text), text[:64], text[len(text)-64:])
}

var _ interfaces.TokenCounter = (*HeuristicCounter)(nil)
var _ interfaces.TokenCounter = (*RemoteCounter)(nil)
