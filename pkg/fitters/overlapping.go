package fitters

import (
	"context"

	"github.com/gitai-reporter/promptfit/pkg/config"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// OverlappingFitter slides a fixed window across content with a step of half
// the window, so consecutive chunks share at least 50% of their lines.
type OverlappingFitter struct {
	baseFitter
}

// NewOverlappingFitter creates an overlapping-window fitter
func NewOverlappingFitter(counter interfaces.TokenCounter, cfg *config.FittingConfig) *OverlappingFitter {
	return &OverlappingFitter{baseFitter: newBaseFitter(counter, cfg)}
}

// Strategy returns the strategy type
func (f *OverlappingFitter) Strategy() types.StrategyType {
	return types.StrategyOverlappingChunks
}

// Fit returns content unchanged when it already fits; otherwise it windows
// the lines with >=50% overlap and full coverage.
func (f *OverlappingFitter) Fit(ctx context.Context, content string, targetTokens int) (*types.FittingResult, error) {
	originalTokens, err := f.ensureFittable(ctx, content, targetTokens)
	if err != nil {
		return nil, err
	}
	if originalTokens <= targetTokens {
		return f.unchangedResult(f.Strategy(), content, originalTokens), nil
	}

	lines := splitLines(content)
	size := linesPerChunk(targetTokens, len(lines), originalTokens)
	step := size / 2
	if step < 1 {
		step = 1
	}

	chunks := windowChunks(lines, size, step)
	result, err := f.chunkedResult(ctx, f.Strategy(), content, chunks, originalTokens, "")
	if err != nil {
		return nil, err
	}
	result.WithMetadata("lines_per_chunk", size)
	result.WithMetadata("chunk_step", step)
	return result, nil
}

// ValidatePreservation applies the default coverage-based check
func (f *OverlappingFitter) ValidatePreservation(original string, result *types.FittingResult) error {
	return validatePreserved(result)
}

var _ interfaces.Fitter = (*OverlappingFitter)(nil)
