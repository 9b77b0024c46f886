package fitters

import (
	"fmt"
	"strings"

	"github.com/gitai-reporter/promptfit/pkg/analyzer"
	"github.com/gitai-reporter/promptfit/pkg/config"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// Descriptor pairs a fitter with its fallback priority and an applicability
// predicate evaluated against classified content. The fallback chain holds
// descriptors rather than inspecting fitter types at runtime.
type Descriptor struct {
	Fitter    interfaces.Fitter
	Priority  int
	AppliesTo func(characteristics *types.ContentCharacteristics) bool
}

// Factory creates fitter instances wired with shared collaborators
type Factory struct {
	counter    interfaces.TokenCounter
	config     *config.FittingConfig
	analyzer   *analyzer.Analyzer
	classifier *analyzer.Classifier
}

// NewFactory creates a fitter factory
func NewFactory(counter interfaces.TokenCounter, cfg *config.FittingConfig) *Factory {
	if cfg == nil {
		cfg = config.DefaultFittingConfig()
	}
	a := analyzer.NewAnalyzer()
	return &Factory{
		counter:    counter,
		config:     cfg,
		analyzer:   a,
		classifier: analyzer.NewClassifier(a),
	}
}

// CreateFitter creates a fitter for the given strategy type
func (f *Factory) CreateFitter(strategy types.StrategyType) (interfaces.Fitter, error) {
	if !types.IsValidStrategyType(strategy) {
		return nil, fmt.Errorf("unsupported strategy type: %s. Supported types: %v",
			strategy, types.SupportedStrategyTypes())
	}

	switch strategy {
	case types.StrategyOverlappingChunks:
		return NewOverlappingFitter(f.counter, f.config), nil
	case types.StrategySemanticChunks:
		return NewSemanticFitter(f.counter, f.config, f.analyzer), nil
	case types.StrategyAdaptiveChunks:
		return NewAdaptiveFitter(f.counter, f.config, f.analyzer, f.classifier), nil
	case types.StrategyStructuralDiff:
		return NewStructuralDiffFitter(f.counter, f.config), nil
	case types.StrategyTemporalLog:
		return NewTemporalLogFitter(f.counter, f.config), nil
	default:
		return nil, fmt.Errorf("strategy type %s is not implemented", strategy)
	}
}

// CreateFitterFromString creates a fitter from a strategy name
func (f *Factory) CreateFitterFromString(name string) (interfaces.Fitter, error) {
	return f.CreateFitter(types.StrategyType(strings.ToLower(strings.TrimSpace(name))))
}

// Classifier returns the factory's shared content classifier
func (f *Factory) Classifier() *analyzer.Classifier {
	return f.classifier
}

// DefaultDescriptors builds the full strategy set with fallback priorities.
// Domain-specialized strategies rank highest but apply only to their content
// type; the overlapping window is the universal last resort.
func (f *Factory) DefaultDescriptors() []Descriptor {
	overlapping := NewOverlappingFitter(f.counter, f.config)
	semantic := NewSemanticFitter(f.counter, f.config, f.analyzer)
	adaptive := NewAdaptiveFitter(f.counter, f.config, f.analyzer, f.classifier)
	structuralDiff := NewStructuralDiffFitter(f.counter, f.config)
	temporalLog := NewTemporalLogFitter(f.counter, f.config)

	always := func(*types.ContentCharacteristics) bool { return true }

	return []Descriptor{
		{
			Fitter:   structuralDiff,
			Priority: 90,
			AppliesTo: func(c *types.ContentCharacteristics) bool {
				return c != nil && c.ContentType == types.ContentTypeDiff
			},
		},
		{
			Fitter:   temporalLog,
			Priority: 85,
			AppliesTo: func(c *types.ContentCharacteristics) bool {
				return c != nil && c.ContentType == types.ContentTypeLog
			},
		},
		{
			Fitter:    adaptive,
			Priority:  70,
			AppliesTo: always,
		},
		{
			Fitter:   semantic,
			Priority: 60,
			AppliesTo: func(c *types.ContentCharacteristics) bool {
				return c != nil && len(c.Boundaries) > 0
			},
		},
		{
			Fitter:    overlapping,
			Priority:  50,
			AppliesTo: always,
		},
	}
}
