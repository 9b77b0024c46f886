// Package fitters provides the content fitting strategies for PromptFit.
//
// Every fitter implements the same contract: transform content so its token
// count is at or below a target, without ever dropping data. Oversized
// content is turned into an ordered sequence of chunks whose union covers
// 100% of the original lines, enforced by the integrity validator.
package fitters

import (
	"context"
	"fmt"
	"strings"

	"github.com/gitai-reporter/promptfit/pkg/config"
	"github.com/gitai-reporter/promptfit/pkg/errors"
	"github.com/gitai-reporter/promptfit/pkg/integrity"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/tokenizer"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// minLinesPerChunk is the lower clamp for computed window sizes
const minLinesPerChunk = 10

// windowFillFactor leaves headroom under the target so chunk token counts
// stay below budget despite estimation drift
const windowFillFactor = 0.8

// baseFitter carries the collaborators every strategy shares
type baseFitter struct {
	counter   interfaces.TokenCounter
	config    *config.FittingConfig
	validator *integrity.Validator
}

func newBaseFitter(counter interfaces.TokenCounter, cfg *config.FittingConfig) baseFitter {
	if cfg == nil {
		cfg = config.DefaultFittingConfig()
	}
	return baseFitter{
		counter:   counter,
		config:    cfg,
		validator: integrity.NewValidator(cfg.StrictMode),
	}
}

// ensureFittable rejects empty content and returns the original token count
func (b *baseFitter) ensureFittable(ctx context.Context, content string, targetTokens int) (int, error) {
	if content == "" {
		return 0, errors.NewChunkingError("Cannot chunk empty content")
	}
	if targetTokens <= 0 {
		return 0, errors.NewChunkingError(fmt.Sprintf("invalid target tokens %d", targetTokens))
	}
	tokens, err := b.counter.CountTokens(ctx, content)
	if err != nil {
		return 0, errors.NewTokenCountError(err)
	}
	return tokens, nil
}

// unchangedResult returns content as-is when it already fits the budget
func (b *baseFitter) unchangedResult(strategy types.StrategyType, content string, tokens int) *types.FittingResult {
	return &types.FittingResult{
		FittedContent: content,
		OriginalSize:  tokens,
		FittedSize:    tokens,
		StrategyUsed:  strategy,
		DataPreserved: true,
		Metrics: types.FittingMetrics{
			ChunksCreated:      1,
			CoveragePercentage: 100,
		},
	}
}

// chunkedResult validates coverage, assembles the fitted content, and builds
// the result. It raises rather than returning data_preserved=false when
// validation is enabled.
func (b *baseFitter) chunkedResult(ctx context.Context, strategy types.StrategyType, original string, chunks []types.Chunk, originalTokens int, headerKind string) (*types.FittingResult, error) {
	if len(chunks) == 0 {
		return nil, errors.NewChunkingError("chunking produced no chunks")
	}

	coverage := 100.0
	if b.config.ValidationEnabled {
		validation := b.validator.ValidateChunkCoverage(original, chunks)
		coverage = validation.CoveragePercentage
		if err := b.validator.RaiseIfInvalid(validation); err != nil {
			return nil, err
		}
	}

	fitted := assembleChunks(chunks, headerKind)
	fittedTokens, err := b.counter.CountTokens(ctx, fitted)
	if err != nil {
		return nil, errors.NewTokenCountError(err)
	}

	result := &types.FittingResult{
		FittedContent: fitted,
		OriginalSize:  originalTokens,
		FittedSize:    fittedTokens,
		StrategyUsed:  strategy,
		DataPreserved: coverage >= 100,
		Metrics: types.FittingMetrics{
			ChunksCreated:      len(chunks),
			CoveragePercentage: coverage,
		},
	}
	result.WithMetadata("chunk_ranges", chunkRanges(chunks))
	attachChunkStats(result, chunks)
	return result, nil
}

// attachChunkStats estimates per-chunk token counts and records min/max/avg
// in the result metadata
func attachChunkStats(result *types.FittingResult, chunks []types.Chunk) {
	if len(chunks) == 0 {
		return
	}
	min, max, sum := 0, 0, 0
	for i := range chunks {
		chunks[i].TokenCount = tokenizer.EstimateTokens(chunks[i].Content)
		n := chunks[i].TokenCount
		if i == 0 || n < min {
			min = n
		}
		if n > max {
			max = n
		}
		sum += n
	}
	result.WithMetadata("chunk_tokens_min", min)
	result.WithMetadata("chunk_tokens_max", max)
	result.WithMetadata("chunk_tokens_avg", sum/len(chunks))
}

// validatePreserved is the default preservation check shared by strategies
// without a domain-specific one
func validatePreserved(result *types.FittingResult) error {
	if result == nil {
		return errors.NewValidationError("missing fitting result")
	}
	if !result.DataPreserved {
		return errors.NewValidationError("result does not preserve data")
	}
	if result.Metrics.CoveragePercentage < 100 && result.Metrics.ChunksCreated > 1 {
		return errors.NewValidationError(fmt.Sprintf(
			"coverage %.2f%% is below 100%%", result.Metrics.CoveragePercentage))
	}
	return nil
}

// splitLines splits content into lines without dropping trailing content
func splitLines(content string) []string {
	return strings.Split(content, "\n")
}

// linesPerChunk converts the token budget into a window size in lines,
// clamped to [minLinesPerChunk, totalLines]
func linesPerChunk(targetTokens, totalLines, originalTokens int) int {
	if originalTokens <= 0 {
		return totalLines
	}
	linesPerToken := float64(totalLines) / float64(originalTokens)
	size := int(float64(targetTokens) * windowFillFactor * linesPerToken)
	if size < minLinesPerChunk {
		size = minLinesPerChunk
	}
	if size > totalLines {
		size = totalLines
	}
	return size
}

// windowChunks slides a window of the given size across the lines with the
// given step until the last chunk's end reaches the final line. The step
// based advance (never a truncating division of the line count) guarantees
// the tail of the content is always emitted.
func windowChunks(lines []string, size, step int) []types.Chunk {
	total := len(lines)
	if step < 1 {
		step = 1
	}
	if size < 1 {
		size = 1
	}

	var chunks []types.Chunk
	for start := 0; ; start += step {
		end := start + size
		if end > total {
			end = total
		}
		chunks = append(chunks, types.Chunk{
			Index:     len(chunks),
			StartLine: start,
			EndLine:   end - 1,
			Content:   strings.Join(lines[start:end], "\n"),
		})
		if end >= total {
			break
		}
	}

	// Guard against rounding ever excluding the final line.
	last := chunks[len(chunks)-1]
	if last.EndLine < total-1 {
		chunks = append(chunks, types.Chunk{
			Index:     len(chunks),
			StartLine: total - 1,
			EndLine:   total - 1,
			Content:   lines[total-1],
		})
	}
	return chunks
}

// assembleChunks joins chunks with headers naming their index and the
// inclusive line range they carry
func assembleChunks(chunks []types.Chunk, headerKind string) string {
	if len(chunks) == 1 && headerKind == "" {
		return chunks[0].Content
	}
	kind := headerKind
	if kind == "" {
		kind = "CHUNK"
	}

	var sb strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("=== %s %d/%d (lines %d-%d) ===\n",
			kind, i+1, len(chunks), chunk.StartLine+1, chunk.EndLine+1))
		sb.WriteString(chunk.Content)
	}
	return sb.String()
}

func chunkRanges(chunks []types.Chunk) [][2]int {
	ranges := make([][2]int, len(chunks))
	for i, chunk := range chunks {
		ranges[i] = [2]int{chunk.StartLine, chunk.EndLine}
	}
	return ranges
}
