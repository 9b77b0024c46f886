package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupportedStrategyTypes(t *testing.T) {
	strategies := SupportedStrategyTypes()
	assert.Len(t, strategies, 5)

	for _, strategy := range strategies {
		assert.True(t, IsValidStrategyType(strategy), "strategy=%s", strategy)
	}
	assert.False(t, IsValidStrategyType("sliding_window"))
	assert.False(t, IsValidStrategyType(""))
}

func TestBoundarySpan(t *testing.T) {
	assert.Equal(t, 1, StructuralBoundary{StartLine: 5, EndLine: 5}.Span())
	assert.Equal(t, 10, StructuralBoundary{StartLine: 0, EndLine: 9}.Span())
}

func TestBoundaryOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     StructuralBoundary
		expected bool
	}{
		{
			name:     "disjoint",
			a:        StructuralBoundary{StartLine: 0, EndLine: 4},
			b:        StructuralBoundary{StartLine: 5, EndLine: 9},
			expected: false,
		},
		{
			name:     "shared edge line",
			a:        StructuralBoundary{StartLine: 0, EndLine: 5},
			b:        StructuralBoundary{StartLine: 5, EndLine: 9},
			expected: true,
		},
		{
			name:     "contained",
			a:        StructuralBoundary{StartLine: 0, EndLine: 20},
			b:        StructuralBoundary{StartLine: 5, EndLine: 9},
			expected: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.expected, tt.b.Overlaps(tt.a))
		})
	}
}

func TestFittingResultWithMetadata(t *testing.T) {
	result := &FittingResult{}
	result.WithMetadata("first", 1).WithMetadata("second", "two")

	assert.Equal(t, 1, result.Metadata["first"])
	assert.Equal(t, "two", result.Metadata["second"])

	result.WithMetadata("first", 10)
	assert.Equal(t, 10, result.Metadata["first"])
}
