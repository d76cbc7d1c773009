package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents cleanplan configuration options
type Config struct {
	// MinSteps is the minimum number of steps a composed workflow must have
	MinSteps int `yaml:"min_steps"`

	// AllowFewerSteps relaxes the minimum by one (floor 2) when at least two
	// steps were composed
	AllowFewerSteps bool `yaml:"allow_fewer_steps"`

	// StepFetchLimit caps how many step candidates are fetched per request
	StepFetchLimit int `yaml:"step_fetch_limit"`

	// ReferenceDocLimit caps how many distinct documents are fetched for
	// safety/tip extraction
	ReferenceDocLimit int `yaml:"reference_doc_limit"`

	// CorpusPath is the path to the corpus database
	CorpusPath string `yaml:"corpus_path"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		MinSteps:          3,
		AllowFewerSteps:   false,
		StepFetchLimit:    20,
		ReferenceDocLimit: 5,
		CorpusPath:        ".cleanplan/corpus.db",
		LogLevel:          "info",
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if fileCfg.MinSteps != 0 {
		cfg.MinSteps = fileCfg.MinSteps
	}
	if fileCfg.StepFetchLimit != 0 {
		cfg.StepFetchLimit = fileCfg.StepFetchLimit
	}
	if fileCfg.ReferenceDocLimit != 0 {
		cfg.ReferenceDocLimit = fileCfg.ReferenceDocLimit
	}
	if fileCfg.CorpusPath != "" {
		cfg.CorpusPath = fileCfg.CorpusPath
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	// AllowFewerSteps is explicitly set if present in YAML
	if fileCfg.AllowFewerSteps {
		cfg.AllowFewerSteps = fileCfg.AllowFewerSteps
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .cleanplan/config.yaml in the
// specified directory, falling back to defaults when absent.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".cleanplan", "config.yaml"))
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(minSteps *int, allowFewer *bool, corpusPath *string, logLevel *string) {
	if minSteps != nil {
		c.MinSteps = *minSteps
	}
	if allowFewer != nil {
		c.AllowFewerSteps = *allowFewer
	}
	if corpusPath != nil {
		c.CorpusPath = *corpusPath
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.MinSteps < 1 {
		return fmt.Errorf("min_steps must be >= 1, got %d", c.MinSteps)
	}
	if c.StepFetchLimit < 1 {
		return fmt.Errorf("step_fetch_limit must be >= 1, got %d", c.StepFetchLimit)
	}
	if c.ReferenceDocLimit < 1 {
		return fmt.Errorf("reference_doc_limit must be >= 1, got %d", c.ReferenceDocLimit)
	}
	if c.CorpusPath == "" {
		return fmt.Errorf("corpus_path cannot be empty")
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	return nil
}
