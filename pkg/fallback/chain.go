// Package fallback orchestrates fitting strategies in priority order with
// retries, per-attempt timeouts, and circuit-breaker blacklisting. The
// caller receives either a result with data_preserved=true or a terminal
// error naming every attempted strategy.
package fallback

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gitai-reporter/promptfit/pkg/analyzer"
	"github.com/gitai-reporter/promptfit/pkg/config"
	"github.com/gitai-reporter/promptfit/pkg/errors"
	"github.com/gitai-reporter/promptfit/pkg/fitters"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/monitor"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

const (
	breakerInitialDelay = 5 * time.Second
	breakerMaxDelay     = 5 * time.Minute

	retryInitialDelay = 100 * time.Millisecond
	retryMaxDelay     = 2 * time.Second
)

// Chain tries candidate strategies in descending priority until one yields a
// valid, data-preserving result
type Chain struct {
	descriptors []fitters.Descriptor
	breakers    map[types.StrategyType]*CircuitBreaker
	classifier  *analyzer.Classifier
	config      *config.FittingConfig
	logger      interfaces.Logger
	monitor     *monitor.Monitor
}

// NewChain creates a fallback chain over the given strategy descriptors.
// The monitor is optional.
func NewChain(descriptors []fitters.Descriptor, classifier *analyzer.Classifier, cfg *config.FittingConfig, log interfaces.Logger, mon *monitor.Monitor) *Chain {
	if cfg == nil {
		cfg = config.DefaultFittingConfig()
	}
	if classifier == nil {
		classifier = analyzer.NewClassifier(nil)
	}

	breakers := make(map[types.StrategyType]*CircuitBreaker, len(descriptors))
	for _, desc := range descriptors {
		breakers[desc.Fitter.Strategy()] = NewCircuitBreaker(
			defaultFailureThreshold, breakerInitialDelay, breakerMaxDelay)
	}

	return &Chain{
		descriptors: descriptors,
		breakers:    breakers,
		classifier:  classifier,
		config:      cfg,
		logger:      log,
		monitor:     mon,
	}
}

// Breaker returns the circuit breaker for a strategy, or nil
func (c *Chain) Breaker(strategy types.StrategyType) *CircuitBreaker {
	return c.breakers[strategy]
}

// FitContent runs candidates in priority order. Strategy-level errors are
// recorded and do not propagate until every candidate is exhausted.
func (c *Chain) FitContent(ctx context.Context, content string, targetTokens int) (*types.FittingResult, error) {
	if content == "" {
		return nil, errors.NewChunkingError("Cannot chunk empty content")
	}

	characteristics := c.classifier.Classify(content)
	candidates := c.candidates(characteristics)
	if len(candidates) == 0 {
		return nil, errors.NewChunkingError("no applicable fitting strategies")
	}

	var attempts []types.StrategyAttempt
	for _, desc := range candidates {
		strategy := desc.Fitter.Strategy()
		started := time.Now()

		result, err := c.attemptStrategy(ctx, desc.Fitter, content, targetTokens)
		duration := time.Since(started)

		if err == nil {
			c.breakers[strategy].RecordSuccess()
			result.WithMetadata("attempts", len(attempts)+1)
			result.WithMetadata("strategy_attempts", attempts)
			if c.monitor != nil {
				c.monitor.RecordOperation(strategy, result, nil, duration)
			}
			return result, nil
		}

		attempts = append(attempts, types.StrategyAttempt{
			Strategy: strategy,
			Success:  false,
			Error:    errorType(err),
			Duration: duration,
		})
		c.breakers[strategy].RecordFailure()
		if c.monitor != nil {
			c.monitor.RecordOperation(strategy, nil, err, duration)
		}
		if c.logger != nil {
			c.logger.Warn("fitting strategy failed, falling back", map[string]interface{}{
				"strategy": string(strategy),
				"error":    err.Error(),
			})
		}
		if ctx.Err() != nil {
			break
		}
	}

	return nil, errors.NewTokenLimitExceededError(attempts)
}

// candidates filters by applicability predicate and breaker blacklist, then
// sorts by descending priority. A pinned strategy in config restricts the
// set to that strategy alone.
func (c *Chain) candidates(characteristics *types.ContentCharacteristics) []fitters.Descriptor {
	var out []fitters.Descriptor
	for _, desc := range c.descriptors {
		strategy := desc.Fitter.Strategy()
		if c.config.Strategy != "" && string(strategy) != c.config.Strategy {
			continue
		}
		if desc.AppliesTo != nil && !desc.AppliesTo(characteristics) {
			continue
		}
		if breaker := c.breakers[strategy]; breaker != nil && !breaker.Allow() {
			continue
		}
		out = append(out, desc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// attemptStrategy runs one fitter with a per-attempt timeout and up to
// MaxRetries attempts with exponential backoff between them
func (c *Chain) attemptStrategy(ctx context.Context, fitter interfaces.Fitter, content string, targetTokens int) (*types.FittingResult, error) {
	timeout := time.Duration(c.config.TimeoutSeconds) * time.Second

	delays := backoff.NewExponentialBackOff()
	delays.InitialInterval = retryInitialDelay
	delays.MaxInterval = retryMaxDelay
	delays.MaxElapsedTime = 0
	delays.Reset()

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := fitter.Fit(attemptCtx, content, targetTokens)
		cancel()

		if err == nil {
			err = c.validateResult(fitter, content, result)
		}
		if err == nil {
			return result, nil
		}
		if attemptCtx.Err() == context.DeadlineExceeded {
			err = errors.NewTimeoutError(string(fitter.Strategy()))
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < c.config.MaxRetries {
			select {
			case <-time.After(delays.NextBackOff()):
			case <-ctx.Done():
				return nil, errors.NewStrategyError(fitter.Strategy(), ctx.Err())
			}
		}
	}
	return nil, errors.NewStrategyError(fitter.Strategy(), lastErr)
}

// validateResult enforces the success contract before a result leaves the
// chain: data preserved, sane sizes, non-empty output, and the strategy's
// own preservation check.
func (c *Chain) validateResult(fitter interfaces.Fitter, content string, result *types.FittingResult) error {
	if result == nil {
		return errors.NewValidationError("strategy returned no result")
	}
	if !result.DataPreserved {
		return errors.NewValidationError("strategy returned data_preserved=false")
	}
	if result.OriginalSize < 0 || result.FittedSize < 0 {
		return errors.NewValidationError(fmt.Sprintf(
			"negative sizes: original %d fitted %d", result.OriginalSize, result.FittedSize))
	}
	if result.FittedContent == "" {
		return errors.NewValidationError("strategy returned empty fitted content")
	}
	return fitter.ValidatePreservation(content, result)
}

// errorType names the underlying error class for attempt bookkeeping. The
// attempt wrapper is unwrapped to the innermost structured error so the
// terminal error reports the cause (chunking, validation, timeout) rather
// than the wrapper itself.
func errorType(err error) string {
	pfErr := errors.GetPromptFitError(err)
	if pfErr == nil {
		return err.Error()
	}
	for {
		inner := errors.GetPromptFitError(pfErr.Cause)
		if inner == nil {
			return string(pfErr.Code)
		}
		pfErr = inner
	}
}

var _ interfaces.ContentFitter = (*Chain)(nil)
