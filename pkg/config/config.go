// Package config provides configuration management for PromptFit
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gitai-reporter/promptfit/pkg/errors"
)

// FittingConfig is the configuration surface consumed by the fitting core
type FittingConfig struct {
	// MaxTokens is the hard upper bound any fitted content must stay under
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" mapstructure:"max_tokens" validate:"required,min=1,max=2000000"`

	// OverlapRatio is the fraction of a chunk shared with its successor
	OverlapRatio float64 `yaml:"overlap_ratio" json:"overlap_ratio" mapstructure:"overlap_ratio" validate:"gte=0,lte=0.8"`

	// MinChunkSize is the smallest chunk, in tokens, a strategy may emit
	MinChunkSize int `yaml:"min_chunk_size" json:"min_chunk_size" mapstructure:"min_chunk_size" validate:"min=1"`

	// MaxIterations bounds iterative refinement inside a strategy
	MaxIterations int `yaml:"max_iterations" json:"max_iterations" mapstructure:"max_iterations" validate:"min=1"`

	// PreserveStructure snaps chunk edges to structural boundaries
	PreserveStructure bool `yaml:"preserve_structure" json:"preserve_structure" mapstructure:"preserve_structure"`

	// ValidationEnabled runs the integrity validator on every chunked result
	ValidationEnabled bool `yaml:"validation_enabled" json:"validation_enabled" mapstructure:"validation_enabled"`

	// StrictMode turns integrity violations into errors instead of warnings
	StrictMode bool `yaml:"strict_mode" json:"strict_mode" mapstructure:"strict_mode"`

	// TimeoutSeconds is the per-strategy attempt deadline
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds" mapstructure:"timeout_seconds" validate:"min=1"`

	// MaxRetries is the attempt count per strategy inside the fallback chain
	MaxRetries int `yaml:"max_retries" json:"max_retries" mapstructure:"max_retries" validate:"min=1"`

	// Strategy pins a single strategy; empty selects automatically
	Strategy string `yaml:"strategy" json:"strategy" mapstructure:"strategy"`

	// BoundarySnapThreshold is the minimum importance for edge snapping
	BoundarySnapThreshold float64 `yaml:"boundary_snap_threshold" json:"boundary_snap_threshold" mapstructure:"boundary_snap_threshold" validate:"gte=0,lte=1"`

	// MaxWorkers bounds parallel token counting and post-processing
	MaxWorkers int `yaml:"max_workers" json:"max_workers" mapstructure:"max_workers" validate:"min=1"`

	Cache CacheConfig `yaml:"cache" json:"cache" mapstructure:"cache"`
}

// CacheConfig configures the optional fitting-result cache
type CacheConfig struct {
	// Enabled turns the caching wrapper on
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`

	// MaxEntries bounds the in-memory backend
	MaxEntries int `yaml:"max_entries" json:"max_entries" mapstructure:"max_entries" validate:"min=1"`

	// TTL expires entries; zero disables expiry
	TTL time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`

	// Dir enables the file backend when non-empty
	Dir string `yaml:"dir" json:"dir" mapstructure:"dir"`

	// MaxFileAge expires file-backend entries by mtime
	MaxFileAge time.Duration `yaml:"max_file_age" json:"max_file_age" mapstructure:"max_file_age"`

	// SimilarityEnabled allows approximate lookups on near-identical inputs
	SimilarityEnabled bool `yaml:"similarity_enabled" json:"similarity_enabled" mapstructure:"similarity_enabled"`

	// SimilarityTokenTolerance is the target-token match window (fraction)
	SimilarityTokenTolerance float64 `yaml:"similarity_token_tolerance" json:"similarity_token_tolerance" mapstructure:"similarity_token_tolerance" validate:"gte=0,lte=1"`

	// SimilarityLengthTolerance is the content-length match window (fraction)
	SimilarityLengthTolerance float64 `yaml:"similarity_length_tolerance" json:"similarity_length_tolerance" mapstructure:"similarity_length_tolerance" validate:"gte=0,lte=1"`

	// SimilarityScanLimit bounds how many recent keys a similarity scan visits
	SimilarityScanLimit int `yaml:"similarity_scan_limit" json:"similarity_scan_limit" mapstructure:"similarity_scan_limit" validate:"min=1"`
}

// DefaultFittingConfig returns a sensible default configuration
func DefaultFittingConfig() *FittingConfig {
	return &FittingConfig{
		MaxTokens:             100000,
		OverlapRatio:          0.5,
		MinChunkSize:          100,
		MaxIterations:         10,
		PreserveStructure:     true,
		ValidationEnabled:     true,
		StrictMode:            true,
		TimeoutSeconds:        30,
		MaxRetries:            2,
		BoundarySnapThreshold: 0.8,
		MaxWorkers:            4,
		Cache: CacheConfig{
			Enabled:                   true,
			MaxEntries:                256,
			TTL:                       time.Hour,
			MaxFileAge:                24 * time.Hour,
			SimilarityEnabled:         false,
			SimilarityTokenTolerance:  0.10,
			SimilarityLengthTolerance: 0.20,
			SimilarityScanLimit:       100,
		},
	}
}

// Validate checks the configuration and fails fast on invalid settings
func (c *FittingConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.NewConfigError(fmt.Sprintf("invalid fitting config: %v", err))
	}
	if c.MinChunkSize > c.MaxTokens/10 {
		return errors.NewConfigError(fmt.Sprintf(
			"min_chunk_size %d must be at most max_tokens/10 (%d)",
			c.MinChunkSize, c.MaxTokens/10))
	}
	return nil
}

// Hash digests the fields that influence fitting output. Cache keys include
// it so config changes never serve stale results.
func (c *FittingConfig) Hash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%.3f|%d|%d|%t|%t|%t|%s|%.3f",
		c.MaxTokens, c.OverlapRatio, c.MinChunkSize, c.MaxIterations,
		c.PreserveStructure, c.ValidationEnabled, c.StrictMode,
		c.Strategy, c.BoundarySnapThreshold)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// FromYAMLFile loads configuration from a YAML file
func (c *FittingConfig) FromYAMLFile(path string) error {
	return c.fromFile(path, "yaml")
}

// FromJSONFile loads configuration from a JSON file
func (c *FittingConfig) FromJSONFile(path string) error {
	return c.fromFile(path, "json")
}

func (c *FittingConfig) fromFile(path, format string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(format)

	if err := v.ReadInConfig(); err != nil {
		return errors.NewConfigError(fmt.Sprintf("failed to read config file %s: %v", path, err))
	}
	if err := v.Unmarshal(c); err != nil {
		return errors.NewConfigError(fmt.Sprintf("failed to unmarshal config: %v", err))
	}
	return c.Validate()
}

// ToYAMLFile saves configuration to a YAML file
func (c *FittingConfig) ToYAMLFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Manager loads a config file and watches it for changes
type Manager struct {
	mu      sync.RWMutex
	viper   *viper.Viper
	path    string
	current *FittingConfig
}

// NewManager creates a config manager for the given file
func NewManager(path string) (*Manager, error) {
	cfg := DefaultFittingConfig()
	if err := cfg.FromYAMLFile(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("failed to read config file %s: %v", path, err))
	}

	return &Manager{
		viper:   v,
		path:    path,
		current: cfg,
	}, nil
}

// Current returns a copy of the active configuration
func (m *Manager) Current() FittingConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.current
}

// Watch reloads the configuration whenever the backing file changes and
// notifies the callback with the new config. Reloads that fail validation are
// dropped; the previous config stays active.
func (m *Manager) Watch(callback func(cfg FittingConfig)) {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		next := DefaultFittingConfig()
		if err := next.FromYAMLFile(m.path); err != nil {
			return
		}

		m.mu.Lock()
		m.current = next
		m.mu.Unlock()

		if callback != nil {
			callback(*next)
		}
	})
}
