package fitters

import (
	"context"
	"fmt"
	"strings"

	"github.com/gitai-reporter/promptfit/pkg/config"
	"github.com/gitai-reporter/promptfit/pkg/errors"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/tokenizer"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

const diffFileHeaderPrefix = "diff --git "

// diffSection is one file's portion of a diff
type diffSection struct {
	startLine int
	endLine   int // inclusive
	header    string
}

// StructuralDiffFitter segments diffs along file boundaries, never splitting
// a file unless it alone exceeds the budget, in which case it splits at hunk
// boundaries. Every file header must survive into the fitted output.
type StructuralDiffFitter struct {
	baseFitter
}

// NewStructuralDiffFitter creates a diff-structure-aware fitter
func NewStructuralDiffFitter(counter interfaces.TokenCounter, cfg *config.FittingConfig) *StructuralDiffFitter {
	return &StructuralDiffFitter{baseFitter: newBaseFitter(counter, cfg)}
}

// Strategy returns the strategy type
func (f *StructuralDiffFitter) Strategy() types.StrategyType {
	return types.StrategyStructuralDiff
}

// Fit groups whole files into segments under the budget
func (f *StructuralDiffFitter) Fit(ctx context.Context, content string, targetTokens int) (*types.FittingResult, error) {
	originalTokens, err := f.ensureFittable(ctx, content, targetTokens)
	if err != nil {
		return nil, err
	}
	if originalTokens <= targetTokens {
		return f.unchangedResult(f.Strategy(), content, originalTokens), nil
	}

	lines := splitLines(content)
	sections := parseDiffSections(lines)
	if len(sections) == 0 {
		return nil, errors.NewChunkingError("content has no diff file headers")
	}

	segmentBudget := int(float64(targetTokens) * windowFillFactor)
	chunks := f.packSections(lines, sections, segmentBudget)

	result, err := f.chunkedResult(ctx, f.Strategy(), content, chunks, originalTokens, "DIFF SEGMENT")
	if err != nil {
		return nil, err
	}
	result.WithMetadata("file_count", len(sections))
	return result, nil
}

// ValidatePreservation requires set equality of file headers between the
// original and the fitted output
func (f *StructuralDiffFitter) ValidatePreservation(original string, result *types.FittingResult) error {
	if err := validatePreserved(result); err != nil {
		return err
	}

	originalHeaders := diffHeaders(original)
	fittedHeaders := diffHeaders(result.FittedContent)
	if len(originalHeaders) != len(fittedHeaders) {
		return errors.NewValidationError(fmt.Sprintf(
			"diff file headers lost: original %d, fitted %d",
			len(originalHeaders), len(fittedHeaders)))
	}
	for header := range originalHeaders {
		if !fittedHeaders[header] {
			return errors.NewValidationError(fmt.Sprintf("diff file header missing: %s", header))
		}
	}
	return nil
}

// parseDiffSections splits the diff at file headers. Any preamble before the
// first header is folded into the first section.
func parseDiffSections(lines []string) []diffSection {
	var sections []diffSection
	for i, line := range lines {
		if !strings.HasPrefix(line, diffFileHeaderPrefix) {
			continue
		}
		if len(sections) > 0 {
			sections[len(sections)-1].endLine = i - 1
		}
		start := i
		if len(sections) == 0 {
			start = 0
		}
		sections = append(sections, diffSection{
			startLine: start,
			endLine:   len(lines) - 1,
			header:    line,
		})
	}
	return sections
}

// packSections greedily groups consecutive file sections into segments whose
// estimated token count stays under the budget. A single file over budget is
// split at hunk boundaries instead of being truncated.
func (f *StructuralDiffFitter) packSections(lines []string, sections []diffSection, budget int) []types.Chunk {
	var chunks []types.Chunk

	segStart := -1
	segTokens := 0
	flush := func(endLine int) {
		if segStart < 0 {
			return
		}
		chunks = append(chunks, newChunk(len(chunks), lines, segStart, endLine+1))
		segStart = -1
		segTokens = 0
	}

	for _, section := range sections {
		sectionTokens := tokenizer.EstimateTokens(joinRange(lines, section.startLine, section.endLine+1))

		if sectionTokens > budget {
			flush(section.startLine - 1)
			chunks = appendHunkSplit(chunks, lines, section, budget)
			continue
		}

		if segStart >= 0 && segTokens+sectionTokens > budget {
			flush(section.startLine - 1)
		}
		if segStart < 0 {
			segStart = section.startLine
		}
		segTokens += sectionTokens
	}
	flush(sections[len(sections)-1].endLine)
	return chunks
}

// appendHunkSplit splits one oversized file section at its hunk headers.
// The file header lines stay with the first piece; line coverage of the
// section is complete.
func appendHunkSplit(chunks []types.Chunk, lines []string, section diffSection, budget int) []types.Chunk {
	var hunkStarts []int
	for i := section.startLine; i <= section.endLine; i++ {
		if strings.HasPrefix(lines[i], "@@ ") {
			hunkStarts = append(hunkStarts, i)
		}
	}
	if len(hunkStarts) == 0 {
		// No hunks to split at; emit the section whole.
		return append(chunks, newChunk(len(chunks), lines, section.startLine, section.endLine+1))
	}

	pieceStart := section.startLine
	pieceTokens := 0
	for idx, hunkStart := range hunkStarts {
		hunkEnd := section.endLine
		if idx+1 < len(hunkStarts) {
			hunkEnd = hunkStarts[idx+1] - 1
		}
		hunkTokens := tokenizer.EstimateTokens(joinRange(lines, hunkStart, hunkEnd+1))

		if pieceTokens > 0 && pieceTokens+hunkTokens > budget && pieceStart < hunkStart {
			chunks = append(chunks, newChunk(len(chunks), lines, pieceStart, hunkStart))
			pieceStart = hunkStart
			pieceTokens = 0
		}
		pieceTokens += hunkTokens
	}
	return append(chunks, newChunk(len(chunks), lines, pieceStart, section.endLine+1))
}

// diffHeaders returns the set of file header lines in content
func diffHeaders(content string) map[string]bool {
	headers := make(map[string]bool)
	for _, line := range splitLines(content) {
		if strings.HasPrefix(line, diffFileHeaderPrefix) {
			headers[strings.TrimSpace(line)] = true
		}
	}
	return headers
}

var _ interfaces.Fitter = (*StructuralDiffFitter)(nil)
