package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gitai-reporter/promptfit/pkg/types"
)

// classifierSampleLines bounds how many leading lines type detection reads
const classifierSampleLines = 50

// typeRule is one content-type detection heuristic: the type matches when at
// least Threshold sampled lines match any of its patterns
type typeRule struct {
	contentType types.ContentType
	patterns    []*regexp.Regexp
	threshold   int
}

// typeRules are evaluated in fixed priority order; the first rule whose
// threshold is met wins
var typeRules = []typeRule{
	{
		contentType: types.ContentTypeDiff,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^diff --git `),
			regexp.MustCompile(`^@@ .* @@`),
			regexp.MustCompile(`^(\+\+\+|---) `),
			regexp.MustCompile(`^index [0-9a-f]+\.\.[0-9a-f]+`),
		},
		threshold: 2,
	},
	{
		contentType: types.ContentTypeCode,
		patterns: []*regexp.Regexp{
			functionRe,
			classRe,
			importRe,
			regexp.MustCompile(`^\s*(return|if|for|while|switch|var|let|const)\b`),
			regexp.MustCompile(`[;{}]\s*$`),
		},
		threshold: 3,
	},
	{
		contentType: types.ContentTypeMarkdown,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^#{1,6}\s+\S`),
			regexp.MustCompile(`^\s*[-*+]\s+\S`),
			regexp.MustCompile("^```"),
			regexp.MustCompile(`\[.+\]\(.+\)`),
		},
		threshold: 2,
	},
	{
		contentType: types.ContentTypeJSON,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^\s*[{\[]`),
			regexp.MustCompile(`^\s*"[^"]+"\s*:`),
			regexp.MustCompile(`^\s*[}\]],?\s*$`),
		},
		threshold: 3,
	},
	{
		contentType: types.ContentTypeLog,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`),
			regexp.MustCompile(`\b(DEBUG|INFO|WARN(ING)?|ERROR|FATAL|TRACE)\b`),
			regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}`),
		},
		threshold: 2,
	},
	{
		contentType: types.ContentTypeShell,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^#!/bin/(ba|z|da)?sh`),
			regexp.MustCompile(`^\s*(export|echo|cd|mkdir|rm|cp|mv|curl|wget|grep)\b`),
			regexp.MustCompile(`\$\{?\w+\}?`),
			regexp.MustCompile(`\|\s*\w+`),
		},
		threshold: 2,
	},
	{
		contentType: types.ContentTypeSQL,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^\s*(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)\b`),
			regexp.MustCompile(`(?i)\b(FROM|WHERE|JOIN|GROUP BY|ORDER BY)\b`),
		},
		threshold: 2,
	},
	{
		contentType: types.ContentTypeConfig,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^\s*\w[\w.-]*\s*[=:]\s*\S`),
			regexp.MustCompile(`^\s*\[[\w.-]+\]\s*$`),
		},
		threshold: 2,
	},
}

// complexity score weights per content type
var complexityBase = map[types.ContentType]float64{
	types.ContentTypeDiff:     0.5,
	types.ContentTypeCode:     0.45,
	types.ContentTypeJSON:     0.35,
	types.ContentTypeMarkdown: 0.3,
	types.ContentTypeSQL:      0.3,
	types.ContentTypeShell:    0.3,
	types.ContentTypeLog:      0.25,
	types.ContentTypeConfig:   0.2,
	types.ContentTypeText:     0.15,
}

// complexity band thresholds
const (
	complexityModerateAt = 0.35
	complexityComplexAt  = 0.55
	complexityHighAt     = 0.75
)

// Classifier determines content type and complexity. Classification is
// deterministic given identical input.
type Classifier struct {
	analyzer *Analyzer
}

// NewClassifier creates a content classifier backed by the given analyzer
func NewClassifier(analyzer *Analyzer) *Classifier {
	if analyzer == nil {
		analyzer = NewAnalyzer()
	}
	return &Classifier{analyzer: analyzer}
}

// Classify detects the content type, computes line metrics, extracts
// structural boundaries, and bands a complexity score.
func (c *Classifier) Classify(content string) *types.ContentCharacteristics {
	lines := strings.Split(content, "\n")
	contentType, patterns := detectContentType(lines)
	metrics := computeMetrics(lines)
	boundaries := c.analyzer.AnalyzeStructure(content)

	score := complexityScore(contentType, metrics, boundaries, patterns)

	return &types.ContentCharacteristics{
		ContentType:    contentType,
		Complexity:     bandComplexity(score),
		Metrics:        metrics,
		Boundaries:     boundaries,
		Patterns:       patterns,
		SimilarityHash: similarityHash(content),
	}
}

// detectContentType runs the rules in priority order over a bounded sample
func detectContentType(lines []string) (types.ContentType, []string) {
	sample := lines
	if len(sample) > classifierSampleLines {
		sample = sample[:classifierSampleLines]
	}

	var matched []string
	for _, rule := range typeRules {
		count := 0
		for _, line := range sample {
			for _, re := range rule.patterns {
				if re.MatchString(line) {
					count++
					break
				}
			}
		}
		if count >= rule.threshold {
			matched = append(matched, string(rule.contentType))
			return rule.contentType, matched
		}
		if count > 0 {
			matched = append(matched, fmt.Sprintf("%s:%d", rule.contentType, count))
		}
	}
	return types.ContentTypeText, matched
}

func computeMetrics(lines []string) types.ContentMetrics {
	metrics := types.ContentMetrics{TotalLines: len(lines)}

	totalLen := 0
	indents := map[int]bool{}
	for _, line := range lines {
		totalLen += len(line)
		if len(line) > metrics.MaxLineLength {
			metrics.MaxLineLength = len(line)
		}
		if strings.TrimSpace(line) != "" {
			metrics.NonEmptyLines++
			indents[indentOf(line)] = true
		}
	}
	if len(lines) > 0 {
		metrics.AvgLineLength = float64(totalLen) / float64(len(lines))
	}

	for level := range indents {
		metrics.IndentationLevels = append(metrics.IndentationLevels, level)
	}
	sort.Ints(metrics.IndentationLevels)

	var variance float64
	for _, line := range lines {
		d := float64(len(line)) - metrics.AvgLineLength
		variance += d * d
	}
	if len(lines) > 0 {
		metrics.LineLengthVariance = variance / float64(len(lines))
	}
	return metrics
}

// complexityScore combines the type base weight with boundary density,
// pattern diversity, indentation spread, and line length variance
func complexityScore(contentType types.ContentType, metrics types.ContentMetrics, boundaries []types.StructuralBoundary, patterns []string) float64 {
	score := complexityBase[contentType]

	if metrics.TotalLines > 0 {
		density := float64(len(boundaries)) / float64(metrics.TotalLines)
		score += clamp01(density*10) * 0.2
	}

	boundaryTypes := map[types.StructureType]bool{}
	for _, b := range boundaries {
		boundaryTypes[b.Type] = true
	}
	score += clamp01(float64(len(boundaryTypes))/6) * 0.1

	score += clamp01(float64(len(metrics.IndentationLevels))/8) * 0.1
	score += clamp01(metrics.LineLengthVariance/5000) * 0.05
	score += clamp01(float64(len(patterns))/8) * 0.05

	return score
}

func bandComplexity(score float64) types.ComplexityLevel {
	switch {
	case score < complexityModerateAt:
		return types.ComplexitySimple
	case score < complexityComplexAt:
		return types.ComplexityModerate
	case score < complexityHighAt:
		return types.ComplexityComplex
	default:
		return types.ComplexityHighlyComplex
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// similarityHash digests content length with head and tail samples so
// near-identical inputs collide cheaply
func similarityHash(content string) string {
	head := content
	tail := ""
	if len(content) > 256 {
		head = content[:256]
		tail = content[len(content)-256:]
	}
	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s", len(content), head, tail)))
	return hex.EncodeToString(h[:])[:32]
}
