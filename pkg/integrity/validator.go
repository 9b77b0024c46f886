// Package integrity enforces the no-data-loss invariant: the union of all
// produced chunks must cover every line of the original content.
package integrity

import (
	"fmt"
	"strings"

	"github.com/gitai-reporter/promptfit/pkg/errors"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// Validator verifies chunk coverage against original content. Every chunking
// strategy must run it before returning a chunked result.
type Validator struct {
	strictMode bool
}

// NewValidator creates an integrity validator. In strict mode coverage below
// 100% raises instead of warning.
func NewValidator(strictMode bool) *Validator {
	return &Validator{strictMode: strictMode}
}

// StrictMode reports whether violations raise
func (v *Validator) StrictMode() bool {
	return v.strictMode
}

// ValidateChunkCoverage computes the original line set minus the union of
// all chunk line ranges. Coverage is (original − missing) / original × 100.
func (v *Validator) ValidateChunkCoverage(original string, chunks []types.Chunk) *types.ValidationResult {
	totalLines := len(strings.Split(original, "\n"))
	if original == "" {
		totalLines = 0
	}

	result := &types.ValidationResult{
		Metadata: map[string]interface{}{
			"total_lines": totalLines,
			"chunk_count": len(chunks),
		},
	}

	if totalLines == 0 {
		result.IsValid = len(chunks) == 0
		result.CoveragePercentage = 100
		return result
	}

	covered := make([]bool, totalLines)
	for _, chunk := range chunks {
		for line := chunk.StartLine; line <= chunk.EndLine && line < totalLines; line++ {
			if line >= 0 {
				covered[line] = true
			}
		}
	}

	var missing []int
	for line, ok := range covered {
		if !ok {
			missing = append(missing, line)
		}
	}

	result.MissingLines = missing
	result.CoveragePercentage = float64(totalLines-len(missing)) / float64(totalLines) * 100
	result.IsValid = len(missing) == 0
	result.Metadata["missing_count"] = len(missing)
	return result
}

// RaiseIfInvalid returns a ValidationError when coverage is below 100% and
// strict mode is enabled. Violations are never downgraded in strict mode.
func (v *Validator) RaiseIfInvalid(result *types.ValidationResult) error {
	if result.IsValid || !v.strictMode {
		return nil
	}
	return errors.NewValidationError(fmt.Sprintf(
		"chunk coverage %.2f%% is below 100%%: %d lines missing",
		result.CoveragePercentage, len(result.MissingLines))).
		WithDetail("coverage_percentage", result.CoveragePercentage).
		WithDetail("missing_lines", len(result.MissingLines))
}
