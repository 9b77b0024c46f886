package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sync"

	"github.com/gitai-reporter/promptfit/pkg/config"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// Stats counts cache outcomes
type Stats struct {
	Hits           int64 `json:"hits"`
	Misses         int64 `json:"misses"`
	SimilarityHits int64 `json:"similarity_hits"`
}

// CachingFitter memoizes a wrapped fitter. Exact hits return the stored
// result; optional similarity matching returns results computed for
// near-identical inputs (same strategy, target tokens within ±10%, content
// length within ±20% by default).
type CachingFitter struct {
	inner   interfaces.ContentFitter
	backend interfaces.CacheBackend
	config  *config.FittingConfig
	logger  interfaces.Logger

	mu    sync.Mutex
	stats Stats
}

// NewCachingFitter wraps a fitter with the given cache backend
func NewCachingFitter(inner interfaces.ContentFitter, backend interfaces.CacheBackend, cfg *config.FittingConfig, log interfaces.Logger) *CachingFitter {
	if cfg == nil {
		cfg = config.DefaultFittingConfig()
	}
	return &CachingFitter{
		inner:   inner,
		backend: backend,
		config:  cfg,
		logger:  log,
	}
}

// Key builds the composite cache key: a sampled content hash plus target
// tokens, strategy, and a hash of the fitting-relevant config fields
func (c *CachingFitter) Key(content string, targetTokens int) string {
	return fmt.Sprintf("%s|%d|%s|%s",
		contentDigest(content), targetTokens, c.strategyLabel(), c.config.Hash())
}

// FitContent returns a cached result when available, otherwise delegates to
// the wrapped fitter and stores the outcome
func (c *CachingFitter) FitContent(ctx context.Context, content string, targetTokens int) (*types.FittingResult, error) {
	key := c.Key(content, targetTokens)

	if entry, ok := c.backend.Get(key); ok {
		c.count(func(s *Stats) { s.Hits++ })
		return annotated(entry.Result, "hit"), nil
	}

	if c.config.Cache.SimilarityEnabled {
		if entry := c.similarityScan(content, targetTokens); entry != nil {
			c.count(func(s *Stats) { s.SimilarityHits++ })
			return annotated(entry.Result, "similarity_hit"), nil
		}
	}

	result, err := c.inner.FitContent(ctx, content, targetTokens)
	if err != nil {
		return nil, err
	}

	c.backend.Set(key, &types.CacheEntry{
		Result:        result,
		TargetTokens:  targetTokens,
		ContentLength: len(content),
		Strategy:      c.strategyLabel(),
	})
	c.count(func(s *Stats) { s.Misses++ })
	return annotated(result, "miss"), nil
}

// similarityScan walks recent keys looking for an entry with the same
// strategy whose target tokens and content length fall inside the configured
// tolerance windows. Approximate by design; the tolerances are tunable.
func (c *CachingFitter) similarityScan(content string, targetTokens int) *types.CacheEntry {
	keys := c.backend.Keys()
	limit := c.config.Cache.SimilarityScanLimit
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	for _, key := range keys {
		entry, ok := c.backend.Get(key)
		if !ok || entry.Result == nil {
			continue
		}
		if entry.Strategy != c.strategyLabel() {
			continue
		}
		if !within(float64(entry.TargetTokens), float64(targetTokens), c.config.Cache.SimilarityTokenTolerance) {
			continue
		}
		if !within(float64(entry.ContentLength), float64(len(content)), c.config.Cache.SimilarityLengthTolerance) {
			continue
		}
		return entry
	}
	return nil
}

// Stats returns a copy of the hit/miss counters
func (c *CachingFitter) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *CachingFitter) count(update func(*Stats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}

func (c *CachingFitter) strategyLabel() string {
	if c.config.Strategy != "" {
		return c.config.Strategy
	}
	return "auto"
}

// annotated returns a shallow copy of the result with cache metadata so the
// stored result is never mutated
func annotated(result *types.FittingResult, outcome string) *types.FittingResult {
	copied := *result
	copied.Metadata = make(map[string]interface{}, len(result.Metadata)+1)
	for k, v := range result.Metadata {
		copied.Metadata[k] = v
	}
	copied.Metadata["cache"] = outcome
	return &copied
}

// within reports whether candidate is inside tolerance (a fraction of
// reference) of reference
func within(candidate, reference, tolerance float64) bool {
	if reference == 0 {
		return candidate == 0
	}
	return math.Abs(candidate-reference) <= tolerance*reference
}

// contentDigest samples content length with head and tail windows instead of
// hashing entire large inputs
func contentDigest(content string) string {
	head := content
	tail := ""
	if len(content) > 512 {
		head = content[:512]
		tail = content[len(content)-512:]
	}
	digest := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s", len(content), head, tail)))
	return hex.EncodeToString(digest[:])
}

var _ interfaces.ContentFitter = (*CachingFitter)(nil)
