package fitters

import (
	"context"

	"github.com/gitai-reporter/promptfit/pkg/analyzer"
	"github.com/gitai-reporter/promptfit/pkg/config"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// adaptiveMode is one per-content-type chunking parameter set
type adaptiveMode struct {
	name          string
	windowScale   float64
	overlapRatio  float64
	snapThreshold float64
}

// modeFor maps detected content types to chunking parameters
func modeFor(contentType types.ContentType) adaptiveMode {
	switch contentType {
	case types.ContentTypeDiff:
		return adaptiveMode{name: "diff-aware", windowScale: 1.0, overlapRatio: 0.2, snapThreshold: 0.7}
	case types.ContentTypeCode:
		return adaptiveMode{name: "semantic-code", windowScale: 0.9, overlapRatio: 0.3, snapThreshold: 0.8}
	case types.ContentTypeMarkdown, types.ContentTypeJSON:
		return adaptiveMode{name: "structure-aware", windowScale: 1.0, overlapRatio: 0.25, snapThreshold: 0.75}
	default:
		return adaptiveMode{name: "standard", windowScale: 1.0, overlapRatio: 0.5, snapThreshold: 1.1}
	}
}

// AdaptiveFitter selects chunk size, overlap ratio, and boundary snapping per
// detected content type: diff-aware, semantic-code, structure-aware, or
// standard overlapping windows.
type AdaptiveFitter struct {
	baseFitter
	analyzer   *analyzer.Analyzer
	classifier *analyzer.Classifier
}

// NewAdaptiveFitter creates a content-type-adaptive fitter
func NewAdaptiveFitter(counter interfaces.TokenCounter, cfg *config.FittingConfig, a *analyzer.Analyzer, c *analyzer.Classifier) *AdaptiveFitter {
	if a == nil {
		a = analyzer.NewAnalyzer()
	}
	if c == nil {
		c = analyzer.NewClassifier(a)
	}
	return &AdaptiveFitter{
		baseFitter: newBaseFitter(counter, cfg),
		analyzer:   a,
		classifier: c,
	}
}

// Strategy returns the strategy type
func (f *AdaptiveFitter) Strategy() types.StrategyType {
	return types.StrategyAdaptiveChunks
}

// Fit classifies the content and chunks it with parameters tuned to its type
func (f *AdaptiveFitter) Fit(ctx context.Context, content string, targetTokens int) (*types.FittingResult, error) {
	originalTokens, err := f.ensureFittable(ctx, content, targetTokens)
	if err != nil {
		return nil, err
	}
	if originalTokens <= targetTokens {
		return f.unchangedResult(f.Strategy(), content, originalTokens), nil
	}

	characteristics := f.classifier.Classify(content)
	mode := modeFor(characteristics.ContentType)

	lines := splitLines(content)
	size := int(float64(linesPerChunk(targetTokens, len(lines), originalTokens)) * mode.windowScale)
	if size < minLinesPerChunk {
		size = minLinesPerChunk
	}
	if size > len(lines) {
		size = len(lines)
	}
	overlap := int(float64(size) * mode.overlapRatio)

	snapPoints := snapPointsAbove(characteristics.Boundaries, mode.snapThreshold)

	var chunks []types.Chunk
	if len(snapPoints) == 0 {
		step := size - overlap
		chunks = windowChunks(lines, size, step)
	} else {
		chunks = snappedChunks(lines, size, overlap, snapPoints)
	}

	result, err := f.chunkedResult(ctx, f.Strategy(), content, chunks, originalTokens, "")
	if err != nil {
		return nil, err
	}
	result.WithMetadata("adaptive_mode", mode.name)
	result.WithMetadata("content_type", string(characteristics.ContentType))
	result.WithMetadata("complexity", string(characteristics.Complexity))
	return result, nil
}

// ValidatePreservation applies the default coverage-based check
func (f *AdaptiveFitter) ValidatePreservation(original string, result *types.FittingResult) error {
	return validatePreserved(result)
}

var _ interfaces.Fitter = (*AdaptiveFitter)(nil)
