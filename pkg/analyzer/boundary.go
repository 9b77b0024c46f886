// Package analyzer provides structural analysis and classification of
// content prior to fitting.
package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"github.com/gitai-reporter/promptfit/pkg/types"
)

// Importance weights per structure type. Higher wins overlap resolution.
const (
	importanceClass           = 0.95
	importanceFunction        = 0.9
	importanceDiffFile        = 0.85
	importanceImportBlock     = 0.8
	importanceMarkdownSection = 0.8
	importanceJSONObject      = 0.75
	importanceDiffHunk        = 0.7
	importanceCommentBlock    = 0.6
	importanceParagraph       = 0.5
)

const (
	minCommentBlockLines = 3
	minParagraphLines    = 2
)

var (
	functionRe = regexp.MustCompile(`^\s*(func\s+\w|def\s+\w|function\s+\w|(public|private|protected|static)\s.*\(|\w+\s*=\s*(async\s*)?\(.*\)\s*=>)`)
	classRe    = regexp.MustCompile(`^\s*(class\s+\w|type\s+\w+\s+(struct|interface)\b|interface\s+\w+\s*\{)`)
	importRe   = regexp.MustCompile(`^\s*(import\b|from\s+\S+\s+import\b|#include\b|use\s+\w|require\s*\()`)
	commentRe  = regexp.MustCompile(`^\s*(//|#(?:[^!]|$)|/\*|\*|--\s)`)
	diffFileRe = regexp.MustCompile(`^diff --git `)
	diffHunkRe = regexp.MustCompile(`^@@ `)
)

// Analyzer extracts importance-weighted structural boundaries from content.
// It is stateless; AnalyzeStructure is a pure function of its input.
type Analyzer struct {
	markdown goldmark.Markdown
}

// NewAnalyzer creates a structural boundary analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		markdown: goldmark.New(),
	}
}

// AnalyzeStructure scans content with a fixed set of independent detectors
// and returns a strictly ordered, non-overlapping boundary set. Overlaps are
// resolved in favor of the highest importance, tie-broken by smallest span.
func (a *Analyzer) AnalyzeStructure(content string) []types.StructuralBoundary {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")

	var candidates []types.StructuralBoundary
	candidates = append(candidates, detectClasses(lines)...)
	candidates = append(candidates, detectFunctions(lines)...)
	candidates = append(candidates, detectDiffFiles(lines)...)
	candidates = append(candidates, detectDiffHunks(lines)...)
	candidates = append(candidates, detectImportBlocks(lines)...)
	candidates = append(candidates, a.detectMarkdownSections(content, lines)...)
	candidates = append(candidates, detectJSONObjects(lines)...)
	candidates = append(candidates, detectCommentBlocks(lines)...)
	candidates = append(candidates, detectParagraphs(lines)...)

	return resolveOverlaps(candidates)
}

// resolveOverlaps sorts candidates by (start_line, -importance) and sweeps
// left to right keeping one boundary per overlapping region
func resolveOverlaps(candidates []types.StructuralBoundary) []types.StructuralBoundary {
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].StartLine != candidates[j].StartLine {
			return candidates[i].StartLine < candidates[j].StartLine
		}
		return candidates[i].Importance > candidates[j].Importance
	})

	resolved := make([]types.StructuralBoundary, 0, len(candidates))
	current := candidates[0]
	for _, next := range candidates[1:] {
		if !current.Overlaps(next) {
			resolved = append(resolved, current)
			current = next
			continue
		}
		if next.Importance > current.Importance ||
			(next.Importance == current.Importance && next.Span() < current.Span()) {
			current = next
		}
	}
	resolved = append(resolved, current)

	// The sweep can leave a replacement overlapping an earlier survivor;
	// run again until stable.
	if len(resolved) < len(candidates) {
		for i := 1; i < len(resolved); i++ {
			if resolved[i-1].Overlaps(resolved[i]) {
				return resolveOverlaps(resolved)
			}
		}
	}
	return resolved
}

func detectFunctions(lines []string) []types.StructuralBoundary {
	return detectBlocks(lines, functionRe, types.StructureFunction, importanceFunction)
}

func detectClasses(lines []string) []types.StructuralBoundary {
	return detectBlocks(lines, classRe, types.StructureClass, importanceClass)
}

// detectBlocks finds definition lines and extends each to the end of its
// block: brace matching when the signature opens a brace, indentation scan
// otherwise.
func detectBlocks(lines []string, re *regexp.Regexp, st types.StructureType, importance float64) []types.StructuralBoundary {
	var boundaries []types.StructuralBoundary
	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		end := blockEnd(lines, i)
		boundaries = append(boundaries, types.StructuralBoundary{
			StartLine:  i,
			EndLine:    end,
			Type:       st,
			Importance: importance,
			Metadata:   map[string]interface{}{"signature": strings.TrimSpace(line)},
		})
	}
	return boundaries
}

func blockEnd(lines []string, start int) int {
	if strings.Contains(lines[start], "{") {
		return braceBlockEnd(lines, start)
	}
	return indentBlockEnd(lines, start)
}

func braceBlockEnd(lines []string, start int) int {
	depth := 0
	for i := start; i < len(lines); i++ {
		depth += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		if depth <= 0 && i > start {
			return i
		}
	}
	return len(lines) - 1
}

func indentBlockEnd(lines []string, start int) int {
	base := indentOf(lines[start])
	end := start
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if indentOf(lines[i]) <= base {
			break
		}
		end = i
	}
	return end
}

func indentOf(line string) int {
	indent := 0
	for _, r := range line {
		switch r {
		case ' ':
			indent++
		case '\t':
			indent += 4
		default:
			return indent
		}
	}
	return indent
}

func detectImportBlocks(lines []string) []types.StructuralBoundary {
	return detectRuns(lines, importRe, 1, types.StructureImportBlock, importanceImportBlock)
}

func detectCommentBlocks(lines []string) []types.StructuralBoundary {
	return detectRuns(lines, commentRe, minCommentBlockLines, types.StructureCommentBlock, importanceCommentBlock)
}

// detectRuns collects contiguous runs of matching lines of at least minLen
func detectRuns(lines []string, re *regexp.Regexp, minLen int, st types.StructureType, importance float64) []types.StructuralBoundary {
	var boundaries []types.StructuralBoundary
	start := -1
	for i := 0; i <= len(lines); i++ {
		matches := i < len(lines) && re.MatchString(lines[i])
		if matches && start < 0 {
			start = i
		}
		if !matches && start >= 0 {
			if i-start >= minLen {
				boundaries = append(boundaries, types.StructuralBoundary{
					StartLine:  start,
					EndLine:    i - 1,
					Type:       st,
					Importance: importance,
				})
			}
			start = -1
		}
	}
	return boundaries
}

// detectDiffFiles spans each "diff --git" header to the line before the next
func detectDiffFiles(lines []string) []types.StructuralBoundary {
	return detectDelimited(lines, diffFileRe, nil, types.StructureDiffFile, importanceDiffFile)
}

// detectDiffHunks spans each "@@" hunk header to the next hunk or file header
func detectDiffHunks(lines []string) []types.StructuralBoundary {
	return detectDelimited(lines, diffHunkRe, diffFileRe, types.StructureDiffHunk, importanceDiffHunk)
}

// detectDelimited spans each startRe line up to the next startRe or stopRe
// line (exclusive), or end of content
func detectDelimited(lines []string, startRe, stopRe *regexp.Regexp, st types.StructureType, importance float64) []types.StructuralBoundary {
	var boundaries []types.StructuralBoundary
	for i, line := range lines {
		if !startRe.MatchString(line) {
			continue
		}
		end := len(lines) - 1
		for j := i + 1; j < len(lines); j++ {
			if startRe.MatchString(lines[j]) || (stopRe != nil && stopRe.MatchString(lines[j])) {
				end = j - 1
				break
			}
		}
		boundaries = append(boundaries, types.StructuralBoundary{
			StartLine:  i,
			EndLine:    end,
			Type:       st,
			Importance: importance,
			Metadata:   map[string]interface{}{"header": strings.TrimSpace(line)},
		})
	}
	return boundaries
}

// detectMarkdownSections parses content as markdown and spans each heading
// to the line before the next heading
func (a *Analyzer) detectMarkdownSections(content string, lines []string) []types.StructuralBoundary {
	source := []byte(content)
	root := a.markdown.Parser().Parse(gtext.NewReader(source))

	lineStarts := lineStartOffsets(content)

	var headingLines []int
	var headingTexts []string
	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Lines().Len() == 0 {
			continue
		}
		offset := heading.Lines().At(0).Start
		headingLines = append(headingLines, lineForOffset(lineStarts, offset))
		headingTexts = append(headingTexts, string(heading.Text(source)))
	}

	var boundaries []types.StructuralBoundary
	for i, start := range headingLines {
		end := len(lines) - 1
		if i+1 < len(headingLines) {
			end = headingLines[i+1] - 1
		}
		boundaries = append(boundaries, types.StructuralBoundary{
			StartLine:  start,
			EndLine:    end,
			Type:       types.StructureMarkdownSection,
			Importance: importanceMarkdownSection,
			Metadata:   map[string]interface{}{"heading": headingTexts[i]},
		})
	}
	return boundaries
}

func lineStartOffsets(content string) []int {
	starts := []int{0}
	for i, r := range content {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineForOffset(starts []int, offset int) int {
	line := sort.Search(len(starts), func(i int) bool { return starts[i] > offset })
	return line - 1
}

// detectJSONObjects spans top-level brace-balanced objects
func detectJSONObjects(lines []string) []types.StructuralBoundary {
	var boundaries []types.StructuralBoundary
	depth := 0
	start := -1
	for i, line := range lines {
		for _, r := range line {
			switch r {
			case '{':
				if depth == 0 && start < 0 && looksLikeJSONStart(line) {
					start = i
				}
				depth++
			case '}':
				depth--
				if depth == 0 && start >= 0 {
					boundaries = append(boundaries, types.StructuralBoundary{
						StartLine:  start,
						EndLine:    i,
						Type:       types.StructureJSONObject,
						Importance: importanceJSONObject,
					})
					start = -1
				}
			}
		}
		if depth < 0 {
			depth = 0
		}
	}
	return boundaries
}

// looksLikeJSONStart filters out code braces: a JSON object line opens with
// '{' after optional whitespace
func looksLikeJSONStart(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "{")
}

// detectParagraphs collects blank-line separated runs of at least two lines
func detectParagraphs(lines []string) []types.StructuralBoundary {
	var boundaries []types.StructuralBoundary
	start := -1
	for i := 0; i <= len(lines); i++ {
		nonEmpty := i < len(lines) && strings.TrimSpace(lines[i]) != ""
		if nonEmpty && start < 0 {
			start = i
		}
		if !nonEmpty && start >= 0 {
			if i-start >= minParagraphLines {
				boundaries = append(boundaries, types.StructuralBoundary{
					StartLine:  start,
					EndLine:    i - 1,
					Type:       types.StructureParagraph,
					Importance: importanceParagraph,
				})
			}
			start = -1
		}
	}
	return boundaries
}
