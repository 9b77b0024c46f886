package fitters

import (
	"context"
	"fmt"

	"github.com/gitai-reporter/promptfit/pkg/config"
	"github.com/gitai-reporter/promptfit/pkg/errors"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// temporalLengthRatio is the minimum fitted/original length for the
// preservation proxy check
const temporalLengthRatio = 0.95

// TemporalLogFitter segments log content into ordered, non-overlapping
// segments with explicit line-range headers, preserving every line.
type TemporalLogFitter struct {
	baseFitter
}

// NewTemporalLogFitter creates a log-oriented fitter
func NewTemporalLogFitter(counter interfaces.TokenCounter, cfg *config.FittingConfig) *TemporalLogFitter {
	return &TemporalLogFitter{baseFitter: newBaseFitter(counter, cfg)}
}

// Strategy returns the strategy type
func (f *TemporalLogFitter) Strategy() types.StrategyType {
	return types.StrategyTemporalLog
}

// Fit cuts the log into consecutive segments sized to the budget. Log lines
// are independent records, so segments do not overlap.
func (f *TemporalLogFitter) Fit(ctx context.Context, content string, targetTokens int) (*types.FittingResult, error) {
	originalTokens, err := f.ensureFittable(ctx, content, targetTokens)
	if err != nil {
		return nil, err
	}
	if originalTokens <= targetTokens {
		return f.unchangedResult(f.Strategy(), content, originalTokens), nil
	}

	lines := splitLines(content)
	size := linesPerChunk(targetTokens, len(lines), originalTokens)

	chunks := windowChunks(lines, size, size)
	return f.chunkedResult(ctx, f.Strategy(), content, chunks, originalTokens, "LOG SEGMENT")
}

// ValidatePreservation uses a length-ratio proxy: once segment headers are
// interleaved the exact line set is not recoverable from the fitted string,
// so fitted length must be at least 95% of the original length. This is
// deliberately weaker than the coverage check the other strategies use.
func (f *TemporalLogFitter) ValidatePreservation(original string, result *types.FittingResult) error {
	if err := validatePreserved(result); err != nil {
		return err
	}
	if len(original) == 0 {
		return nil
	}
	ratio := float64(len(result.FittedContent)) / float64(len(original))
	if ratio < temporalLengthRatio {
		return errors.NewValidationError(fmt.Sprintf(
			"fitted length ratio %.3f below %.2f", ratio, temporalLengthRatio))
	}
	return nil
}

var _ interfaces.Fitter = (*TemporalLogFitter)(nil)
