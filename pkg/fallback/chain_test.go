package fallback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitai-reporter/promptfit/pkg/config"
	"github.com/gitai-reporter/promptfit/pkg/errors"
	"github.com/gitai-reporter/promptfit/pkg/fitters"
	"github.com/gitai-reporter/promptfit/pkg/logger"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// stubFitter is a scriptable strategy for chain tests
type stubFitter struct {
	strategy types.StrategyType
	result   *types.FittingResult
	err      error
	calls    int
}

func (s *stubFitter) Fit(ctx context.Context, content string, targetTokens int) (*types.FittingResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubFitter) Strategy() types.StrategyType { return s.strategy }

func (s *stubFitter) ValidatePreservation(original string, result *types.FittingResult) error {
	return nil
}

func goodResult(strategy types.StrategyType) *types.FittingResult {
	return &types.FittingResult{
		FittedContent: "fitted",
		OriginalSize:  100,
		FittedSize:    50,
		StrategyUsed:  strategy,
		DataPreserved: true,
		Metrics: types.FittingMetrics{
			ChunksCreated:      2,
			CoveragePercentage: 100,
		},
	}
}

func chainConfig() *config.FittingConfig {
	cfg := config.DefaultFittingConfig()
	cfg.MaxRetries = 1
	return cfg
}

func descriptor(fitter *stubFitter, priority int) fitters.Descriptor {
	return fitters.Descriptor{
		Fitter:    fitter,
		Priority:  priority,
		AppliesTo: func(*types.ContentCharacteristics) bool { return true },
	}
}

func TestChainFirstSuccessShortCircuits(t *testing.T) {
	high := &stubFitter{
		strategy: types.StrategyAdaptiveChunks,
		result:   goodResult(types.StrategyAdaptiveChunks),
	}
	low := &stubFitter{
		strategy: types.StrategyOverlappingChunks,
		result:   goodResult(types.StrategyOverlappingChunks),
	}

	chain := NewChain([]fitters.Descriptor{
		descriptor(low, 50),
		descriptor(high, 70),
	}, nil, chainConfig(), logger.NewTestLogger(), nil)

	result, err := chain.FitContent(context.Background(), "some content", 100)
	require.NoError(t, err)

	assert.Equal(t, types.StrategyAdaptiveChunks, result.StrategyUsed)
	assert.Equal(t, 1, high.calls)
	assert.Equal(t, 0, low.calls)
	assert.Equal(t, 1, result.Metadata["attempts"])
}

func TestChainFallsBackInPriorityOrder(t *testing.T) {
	failing := &stubFitter{
		strategy: types.StrategyAdaptiveChunks,
		err:      errors.NewChunkingError("window failure"),
	}
	recovering := &stubFitter{
		strategy: types.StrategyOverlappingChunks,
		result:   goodResult(types.StrategyOverlappingChunks),
	}

	chain := NewChain([]fitters.Descriptor{
		descriptor(recovering, 50),
		descriptor(failing, 70),
	}, nil, chainConfig(), logger.NewTestLogger(), nil)

	result, err := chain.FitContent(context.Background(), "some content", 100)
	require.NoError(t, err)

	assert.Equal(t, types.StrategyOverlappingChunks, result.StrategyUsed)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, recovering.calls)
	assert.Equal(t, 2, result.Metadata["attempts"])

	attempts := result.Metadata["strategy_attempts"].([]types.StrategyAttempt)
	require.Len(t, attempts, 1)
	assert.Equal(t, types.StrategyAdaptiveChunks, attempts[0].Strategy)
	assert.False(t, attempts[0].Success)
}

func TestChainExhaustionNamesEveryAttemptedStrategy(t *testing.T) {
	first := &stubFitter{
		strategy: types.StrategyAdaptiveChunks,
		err:      errors.NewChunkingError("failure one"),
	}
	second := &stubFitter{
		strategy: types.StrategySemanticChunks,
		err:      errors.NewValidationError("failure two"),
	}
	third := &stubFitter{
		strategy: types.StrategyOverlappingChunks,
		err:      errors.NewChunkingError("failure three"),
	}

	chain := NewChain([]fitters.Descriptor{
		descriptor(third, 50),
		descriptor(first, 70),
		descriptor(second, 60),
	}, nil, chainConfig(), logger.NewTestLogger(), nil)

	_, err := chain.FitContent(context.Background(), "some content", 100)
	require.Error(t, err)
	assert.True(t, errors.IsTokenLimitExceeded(err))

	// Terminal error lists every attempted strategy in the order tried.
	assert.Equal(t, []string{
		string(types.StrategyAdaptiveChunks),
		string(types.StrategySemanticChunks),
		string(types.StrategyOverlappingChunks),
	}, errors.StrategiesAttempted(err))
}

func TestChainEmptyContent(t *testing.T) {
	chain := NewChain(nil, nil, chainConfig(), logger.NewTestLogger(), nil)

	_, err := chain.FitContent(context.Background(), "", 100)
	require.Error(t, err)
	assert.True(t, errors.IsChunkingError(err))
	assert.Contains(t, err.Error(), "Cannot chunk empty content")
}

func TestChainPinnedStrategy(t *testing.T) {
	pinned := &stubFitter{
		strategy: types.StrategyOverlappingChunks,
		result:   goodResult(types.StrategyOverlappingChunks),
	}
	other := &stubFitter{
		strategy: types.StrategyAdaptiveChunks,
		result:   goodResult(types.StrategyAdaptiveChunks),
	}

	cfg := chainConfig()
	cfg.Strategy = string(types.StrategyOverlappingChunks)

	chain := NewChain([]fitters.Descriptor{
		descriptor(other, 70),
		descriptor(pinned, 50),
	}, nil, cfg, logger.NewTestLogger(), nil)

	result, err := chain.FitContent(context.Background(), "some content", 100)
	require.NoError(t, err)

	assert.Equal(t, types.StrategyOverlappingChunks, result.StrategyUsed)
	assert.Equal(t, 0, other.calls)
}

func TestChainRejectsUnpreservedResult(t *testing.T) {
	lossy := goodResult(types.StrategyAdaptiveChunks)
	lossy.DataPreserved = false

	unpreserving := &stubFitter{strategy: types.StrategyAdaptiveChunks, result: lossy}
	safe := &stubFitter{
		strategy: types.StrategyOverlappingChunks,
		result:   goodResult(types.StrategyOverlappingChunks),
	}

	chain := NewChain([]fitters.Descriptor{
		descriptor(unpreserving, 70),
		descriptor(safe, 50),
	}, nil, chainConfig(), logger.NewTestLogger(), nil)

	result, err := chain.FitContent(context.Background(), "some content", 100)
	require.NoError(t, err)
	assert.Equal(t, types.StrategyOverlappingChunks, result.StrategyUsed)
}

func TestChainBreakerBlacklistsRepeatedFailures(t *testing.T) {
	failing := &stubFitter{
		strategy: types.StrategyOverlappingChunks,
		err:      errors.NewChunkingError("persistent failure"),
	}

	chain := NewChain([]fitters.Descriptor{descriptor(failing, 50)},
		nil, chainConfig(), logger.NewTestLogger(), nil)

	for i := 0; i < defaultFailureThreshold; i++ {
		_, err := chain.FitContent(context.Background(), "some content", 100)
		require.Error(t, err, "round %d", i)
		assert.True(t, errors.IsTokenLimitExceeded(err))
	}

	breaker := chain.Breaker(types.StrategyOverlappingChunks)
	require.NotNil(t, breaker)
	assert.Equal(t, BreakerOpen, breaker.State())

	// With the only strategy blacklisted there is nothing left to try.
	_, err := chain.FitContent(context.Background(), "some content", 100)
	require.Error(t, err)
	assert.True(t, errors.IsChunkingError(err))
	assert.Equal(t, defaultFailureThreshold, failing.calls)
}

func TestChainAttemptErrorTypes(t *testing.T) {
	invalid := &stubFitter{
		strategy: types.StrategySemanticChunks,
		err:      errors.NewValidationError("coverage gap"),
	}
	unchunkable := &stubFitter{
		strategy: types.StrategyOverlappingChunks,
		err:      errors.NewChunkingError("no structure"),
	}

	chain := NewChain([]fitters.Descriptor{
		descriptor(invalid, 60),
		descriptor(unchunkable, 50),
	}, nil, chainConfig(), logger.NewTestLogger(), nil)

	_, err := chain.FitContent(context.Background(), "some content", 100)
	require.Error(t, err)

	// The terminal error reports each attempt's underlying cause code, not
	// the generic attempt wrapper.
	pfErr := errors.GetPromptFitError(err)
	require.NotNil(t, pfErr)
	causes := pfErr.Details["strategy_errors"].(map[string]string)
	require.Len(t, causes, 2)
	assert.Equal(t, string(errors.ErrCodeValidation),
		causes[string(types.StrategySemanticChunks)])
	assert.Equal(t, string(errors.ErrCodeChunking),
		causes[string(types.StrategyOverlappingChunks)])
}
