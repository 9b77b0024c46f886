// Package types defines core data structures for PromptFit
package types

import (
	"time"
)

// ContentType identifies the detected kind of input content
type ContentType string

const (
	ContentTypeDiff     ContentType = "diff"
	ContentTypeCode     ContentType = "code"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeJSON     ContentType = "json"
	ContentTypeLog      ContentType = "log"
	ContentTypeShell    ContentType = "shell"
	ContentTypeSQL      ContentType = "sql"
	ContentTypeConfig   ContentType = "config"
	ContentTypeText     ContentType = "text"
)

// ComplexityLevel bands the structural complexity of content
type ComplexityLevel string

const (
	ComplexitySimple        ComplexityLevel = "simple"
	ComplexityModerate      ComplexityLevel = "moderate"
	ComplexityComplex       ComplexityLevel = "complex"
	ComplexityHighlyComplex ComplexityLevel = "highly_complex"
)

// StructureType identifies the kind of structural boundary detected in content
type StructureType string

const (
	StructureFunction        StructureType = "function"
	StructureClass           StructureType = "class"
	StructureImportBlock     StructureType = "import_block"
	StructureCommentBlock    StructureType = "comment_block"
	StructureDiffFile        StructureType = "diff_file"
	StructureDiffHunk        StructureType = "diff_hunk"
	StructureMarkdownSection StructureType = "markdown_section"
	StructureJSONObject      StructureType = "json_object"
	StructureParagraph       StructureType = "paragraph"
)

// StrategyType identifies a content fitting strategy
type StrategyType string

const (
	// StrategyOverlappingChunks slides a fixed window with >=50% overlap
	StrategyOverlappingChunks StrategyType = "overlapping_chunks"

	// StrategySemanticChunks snaps chunk edges to high-importance boundaries
	StrategySemanticChunks StrategyType = "semantic_chunks"

	// StrategyAdaptiveChunks tunes window size and overlap per content type
	StrategyAdaptiveChunks StrategyType = "adaptive_chunks"

	// StrategyStructuralDiff segments diffs along file and hunk boundaries
	StrategyStructuralDiff StrategyType = "structural_diff"

	// StrategyTemporalLog segments logs with explicit line-range headers
	StrategyTemporalLog StrategyType = "temporal_log"
)

// SupportedStrategyTypes returns all supported fitting strategies
func SupportedStrategyTypes() []StrategyType {
	return []StrategyType{
		StrategyOverlappingChunks,
		StrategySemanticChunks,
		StrategyAdaptiveChunks,
		StrategyStructuralDiff,
		StrategyTemporalLog,
	}
}

// IsValidStrategyType checks if a strategy type is supported
func IsValidStrategyType(strategy StrategyType) bool {
	for _, supported := range SupportedStrategyTypes() {
		if supported == strategy {
			return true
		}
	}
	return false
}

// StructuralBoundary is a contiguous line range recognized as a semantic unit.
// StartLine and EndLine are inclusive, 0-indexed line numbers.
type StructuralBoundary struct {
	StartLine  int                    `json:"start_line"`
	EndLine    int                    `json:"end_line"`
	Type       StructureType          `json:"type"`
	Importance float64                `json:"importance"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Span returns the number of lines the boundary covers
func (b StructuralBoundary) Span() int {
	return b.EndLine - b.StartLine + 1
}

// Overlaps reports whether two boundaries share at least one line
func (b StructuralBoundary) Overlaps(other StructuralBoundary) bool {
	return b.StartLine <= other.EndLine && other.StartLine <= b.EndLine
}

// ContentMetrics holds line-level measurements of content
type ContentMetrics struct {
	TotalLines         int     `json:"total_lines"`
	NonEmptyLines      int     `json:"non_empty_lines"`
	AvgLineLength      float64 `json:"avg_line_length"`
	MaxLineLength      int     `json:"max_line_length"`
	IndentationLevels  []int   `json:"indentation_levels"`
	LineLengthVariance float64 `json:"line_length_variance"`
}

// ContentCharacteristics describes classified content. It is derived per fit
// call and never persisted.
type ContentCharacteristics struct {
	ContentType    ContentType          `json:"content_type"`
	Complexity     ComplexityLevel      `json:"complexity"`
	Metrics        ContentMetrics       `json:"metrics"`
	Boundaries     []StructuralBoundary `json:"boundaries"`
	Patterns       []string             `json:"patterns"`
	SimilarityHash string               `json:"similarity_hash"`
}

// Chunk is one ordered segment of chunked content. Line numbers are inclusive
// and 0-indexed relative to the original content.
type Chunk struct {
	Index      int    `json:"index"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
}

// FittingMetrics summarizes how content was chunked
type FittingMetrics struct {
	ChunksCreated      int     `json:"chunks_created"`
	CoveragePercentage float64 `json:"coverage_percentage"`
}

// FittingResult is the outcome of fitting content under a token budget
type FittingResult struct {
	FittedContent string                 `json:"fitted_content"`
	OriginalSize  int                    `json:"original_size"`
	FittedSize    int                    `json:"fitted_size"`
	StrategyUsed  StrategyType           `json:"strategy_used"`
	DataPreserved bool                   `json:"data_preserved"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Metrics       FittingMetrics         `json:"metrics"`
}

// WithMetadata sets a metadata entry, allocating the map on first use
func (r *FittingResult) WithMetadata(key string, value interface{}) *FittingResult {
	if r.Metadata == nil {
		r.Metadata = make(map[string]interface{})
	}
	r.Metadata[key] = value
	return r
}

// ValidationResult is the outcome of a chunk coverage check
type ValidationResult struct {
	IsValid            bool                   `json:"is_valid"`
	CoveragePercentage float64                `json:"coverage_percentage"`
	MissingLines       []int                  `json:"missing_lines,omitempty"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

// CacheEntry is a cached fitting result with access bookkeeping
type CacheEntry struct {
	Key           string         `json:"key"`
	Result        *FittingResult `json:"result"`
	TargetTokens  int            `json:"target_tokens"`
	ContentLength int            `json:"content_length"`
	Strategy      string         `json:"strategy"`
	CreatedAt     time.Time      `json:"created_at"`
	AccessCount   int64          `json:"access_count"`
	LastAccessed  time.Time      `json:"last_accessed"`
}

// StrategyAttempt records one strategy attempt during a fallback run.
// Attempts are accumulated per fit call and discarded after.
type StrategyAttempt struct {
	Strategy StrategyType  `json:"strategy"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// AlertSeverity defines alert severity levels
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityError    AlertSeverity = "error"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Alert is a raised monitoring condition
type Alert struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Message        string        `json:"message"`
	Severity       AlertSeverity `json:"severity"`
	Timestamp      time.Time     `json:"timestamp"`
	MetricValue    float64       `json:"metric_value"`
	ThresholdValue float64       `json:"threshold_value"`
	Resolved       bool          `json:"resolved"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
}

// MetricSample is one named numeric measurement pushed to a metrics backend
type MetricSample struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Tags      map[string]string `json:"tags,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// ErrorType categorizes errors across the module
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeExternal   ErrorType = "external"
)
