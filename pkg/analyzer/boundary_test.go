package analyzer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitai-reporter/promptfit/pkg/types"
)

func TestAnalyzeStructureEmptyContent(t *testing.T) {
	analyzer := NewAnalyzer()
	assert.Nil(t, analyzer.AnalyzeStructure(""))
}

func TestAnalyzeStructureGoFunctions(t *testing.T) {
	content := strings.Join([]string{
		"func First() {",
		"\treturn",
		"}",
		"",
		"func Second() {",
		"\tif true {",
		"\t\treturn",
		"\t}",
		"}",
	}, "\n")

	boundaries := NewAnalyzer().AnalyzeStructure(content)
	require.Len(t, boundaries, 2)

	assert.Equal(t, types.StructureFunction, boundaries[0].Type)
	assert.Equal(t, 0, boundaries[0].StartLine)
	assert.Equal(t, 2, boundaries[0].EndLine)

	assert.Equal(t, types.StructureFunction, boundaries[1].Type)
	assert.Equal(t, 4, boundaries[1].StartLine)
	assert.Equal(t, 8, boundaries[1].EndLine)
}

func TestAnalyzeStructurePythonIndentedBlocks(t *testing.T) {
	content := strings.Join([]string{
		"def process(items):",
		"    for item in items:",
		"        handle(item)",
		"",
		"def other():",
		"    pass",
	}, "\n")

	boundaries := NewAnalyzer().AnalyzeStructure(content)
	require.Len(t, boundaries, 2)
	assert.Equal(t, 0, boundaries[0].StartLine)
	assert.Equal(t, 2, boundaries[0].EndLine)
	assert.Equal(t, 4, boundaries[1].StartLine)
	assert.Equal(t, 5, boundaries[1].EndLine)
}

func TestAnalyzeStructureClassBeatsOverlappingFunction(t *testing.T) {
	content := strings.Join([]string{
		"type Server struct {",
		"\taddr string",
		"}",
	}, "\n")

	boundaries := NewAnalyzer().AnalyzeStructure(content)
	require.Len(t, boundaries, 1)
	assert.Equal(t, types.StructureClass, boundaries[0].Type)
	assert.InDelta(t, 0.95, boundaries[0].Importance, 1e-9)
}

func TestAnalyzeStructureDiff(t *testing.T) {
	content := strings.Join([]string{
		"diff --git a/a.go b/a.go",
		"index 111..222 100644",
		"--- a/a.go",
		"+++ b/a.go",
		"@@ -1,2 +1,2 @@",
		"+added",
		"diff --git a/b.go b/b.go",
		"index 333..444 100644",
		"--- a/b.go",
		"+++ b/b.go",
		"@@ -5,1 +5,2 @@",
		"+more",
	}, "\n")

	boundaries := NewAnalyzer().AnalyzeStructure(content)

	var files, hunks int
	for _, b := range boundaries {
		switch b.Type {
		case types.StructureDiffFile:
			files++
		case types.StructureDiffHunk:
			hunks++
		}
	}
	// File boundaries outrank and absorb the hunks they cover.
	assert.Equal(t, 2, files)
	assert.Equal(t, 0, hunks)
}

func TestAnalyzeStructureMarkdownSections(t *testing.T) {
	content := strings.Join([]string{
		"# Title",
		"",
		"intro text",
		"",
		"## Usage",
		"",
		"usage text",
		"more usage text",
	}, "\n")

	boundaries := NewAnalyzer().AnalyzeStructure(content)

	var sections []types.StructuralBoundary
	for _, b := range boundaries {
		if b.Type == types.StructureMarkdownSection {
			sections = append(sections, b)
		}
	}
	require.Len(t, sections, 2)
	assert.Equal(t, 0, sections[0].StartLine)
	assert.Equal(t, 3, sections[0].EndLine)
	assert.Equal(t, "Title", sections[0].Metadata["heading"])
	assert.Equal(t, 4, sections[1].StartLine)
	assert.Equal(t, 7, sections[1].EndLine)
	assert.Equal(t, "Usage", sections[1].Metadata["heading"])
}

func TestAnalyzeStructureJSONObjects(t *testing.T) {
	content := strings.Join([]string{
		`{`,
		`  "name": "first",`,
		`  "nested": {"k": "v"}`,
		`}`,
		`{`,
		`  "name": "second"`,
		`}`,
	}, "\n")

	boundaries := NewAnalyzer().AnalyzeStructure(content)
	require.Len(t, boundaries, 2)
	assert.Equal(t, types.StructureJSONObject, boundaries[0].Type)
	assert.Equal(t, 0, boundaries[0].StartLine)
	assert.Equal(t, 3, boundaries[0].EndLine)
	assert.Equal(t, 4, boundaries[1].StartLine)
	assert.Equal(t, 6, boundaries[1].EndLine)
}

func TestAnalyzeStructureOutputInvariants(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("# Heading\n\n")
	sb.WriteString("import \"fmt\"\n\n")
	for i := 0; i < 10; i++ {
		sb.WriteString(fmt.Sprintf("func f%d() {\n\treturn\n}\n", i))
	}
	sb.WriteString("// comment one\n// comment two\n// comment three\n")
	sb.WriteString("closing paragraph line one\nclosing paragraph line two\n")
	content := sb.String()

	analyzer := NewAnalyzer()
	boundaries := analyzer.AnalyzeStructure(content)
	require.NotEmpty(t, boundaries)

	// Strictly ordered, non-overlapping, within bounds.
	totalLines := len(strings.Split(content, "\n"))
	for i, b := range boundaries {
		assert.LessOrEqual(t, b.StartLine, b.EndLine)
		assert.GreaterOrEqual(t, b.StartLine, 0)
		assert.Less(t, b.EndLine, totalLines)
		if i > 0 {
			assert.Greater(t, b.StartLine, boundaries[i-1].EndLine,
				"boundary %d overlaps %d", i, i-1)
		}
	}

	// Deterministic across runs.
	again := analyzer.AnalyzeStructure(content)
	assert.Equal(t, boundaries, again)
}

func TestResolveOverlapsPrefersImportanceThenSmallerSpan(t *testing.T) {
	candidates := []types.StructuralBoundary{
		{StartLine: 0, EndLine: 10, Type: types.StructureParagraph, Importance: 0.5},
		{StartLine: 2, EndLine: 6, Type: types.StructureFunction, Importance: 0.9},
		{StartLine: 3, EndLine: 5, Type: types.StructureCommentBlock, Importance: 0.6},
		{StartLine: 20, EndLine: 30, Type: types.StructureParagraph, Importance: 0.5},
		{StartLine: 20, EndLine: 25, Type: types.StructureParagraph, Importance: 0.5},
	}

	resolved := resolveOverlaps(candidates)
	require.Len(t, resolved, 2)
	assert.Equal(t, types.StructureFunction, resolved[0].Type)
	assert.Equal(t, 2, resolved[0].StartLine)
	// Equal importance resolves to the smaller span.
	assert.Equal(t, 25, resolved[1].EndLine)
}
