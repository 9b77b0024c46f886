package fitters

import (
	"context"
	"sort"

	"github.com/gitai-reporter/promptfit/pkg/analyzer"
	"github.com/gitai-reporter/promptfit/pkg/config"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// SemanticFitter chunks like the overlapping fitter but snaps chunk edges to
// high-importance structural boundaries, so functions, classes, and sections
// are not cut mid-body when a nearby boundary exists.
type SemanticFitter struct {
	baseFitter
	analyzer *analyzer.Analyzer
}

// NewSemanticFitter creates a boundary-snapping fitter
func NewSemanticFitter(counter interfaces.TokenCounter, cfg *config.FittingConfig, a *analyzer.Analyzer) *SemanticFitter {
	if a == nil {
		a = analyzer.NewAnalyzer()
	}
	return &SemanticFitter{
		baseFitter: newBaseFitter(counter, cfg),
		analyzer:   a,
	}
}

// Strategy returns the strategy type
func (f *SemanticFitter) Strategy() types.StrategyType {
	return types.StrategySemanticChunks
}

// Fit chunks content along structural boundaries with importance at or above
// the configured snap threshold, falling back to plain overlapping windows
// where no boundary is near.
func (f *SemanticFitter) Fit(ctx context.Context, content string, targetTokens int) (*types.FittingResult, error) {
	originalTokens, err := f.ensureFittable(ctx, content, targetTokens)
	if err != nil {
		return nil, err
	}
	if originalTokens <= targetTokens {
		return f.unchangedResult(f.Strategy(), content, originalTokens), nil
	}

	lines := splitLines(content)
	size := linesPerChunk(targetTokens, len(lines), originalTokens)
	overlap := int(float64(size) * f.config.OverlapRatio)

	boundaries := f.analyzer.AnalyzeStructure(content)
	snapPoints := snapPointsAbove(boundaries, f.config.BoundarySnapThreshold)

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
	result.WithMetadata("snap_points", len(snapPoints))
	result.WithMetadata("boundary_count", len(boundaries))
	return result, nil
}

// ValidatePreservation applies the default coverage-based check
func (f *SemanticFitter) ValidatePreservation(original string, result *types.FittingResult) error {
	return validatePreserved(result)
}

// snapPointsAbove collects boundary start lines with importance at or above
// the threshold, sorted ascending
func snapPointsAbove(boundaries []types.StructuralBoundary, threshold float64) []int {
	var points []int
	for _, b := range boundaries {
		if b.Importance >= threshold && b.StartLine > 0 {
			points = append(points, b.StartLine)
		}
	}
	sort.Ints(points)
	return points
}

// snappedChunks emits chunks of roughly the window size whose ends are pulled
// back to the nearest snap point in the window's second half. Each next chunk
// starts overlap lines before the previous end, so coverage is contiguous by
// construction.
func snappedChunks(lines []string, size, overlap int, snapPoints []int) []types.Chunk {
	total := len(lines)
	if size < 1 {
		size = 1
	}
	if overlap >= size {
		overlap = size - 1
	}

	var chunks []types.Chunk
	start := 0
	for {
		end := start + size
		if end >= total {
			chunks = append(chunks, newChunk(len(chunks), lines, start, total))
			break
		}

		if snapped, ok := snapBack(snapPoints, start+size/2, end); ok {
			end = snapped
		}
		chunks = append(chunks, newChunk(len(chunks), lines, start, end))

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// snapBack returns the largest snap point p with lo < p <= hi
func snapBack(points []int, lo, hi int) (int, bool) {
	idx := sort.SearchInts(points, hi+1) - 1
	if idx >= 0 && points[idx] > lo {
		return points[idx], true
	}
	return 0, false
}

// newChunk builds a chunk for lines[start:end] (end exclusive)
func newChunk(index int, lines []string, start, end int) types.Chunk {
	return types.Chunk{
		Index:     index,
		StartLine: start,
		EndLine:   end - 1,
		Content:   joinRange(lines, start, end),
	}
}

func joinRange(lines []string, start, end int) string {
	out := ""
	for i := start; i < end; i++ {
		if i > start {
			out += "\n"
		}
		out += lines[i]
	}
	return out
}

var _ interfaces.Fitter = (*SemanticFitter)(nil)
