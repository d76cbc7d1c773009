package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MinSteps != 3 {
		t.Errorf("MinSteps = %d, want 3", cfg.MinSteps)
	}
	if cfg.AllowFewerSteps {
		t.Error("AllowFewerSteps should default to false")
	}
	if cfg.StepFetchLimit != 20 {
		t.Errorf("StepFetchLimit = %d, want 20", cfg.StepFetchLimit)
	}
	if cfg.ReferenceDocLimit != 5 {
		t.Errorf("ReferenceDocLimit = %d, want 5", cfg.ReferenceDocLimit)
	}
	if cfg.CorpusPath != ".cleanplan/corpus.db" {
		t.Errorf("CorpusPath = %q, want .cleanplan/corpus.db", cfg.CorpusPath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should yield defaults, got error: %v", err)
	}
	if cfg.MinSteps != 3 {
		t.Errorf("MinSteps = %d, want default 3", cfg.MinSteps)
	}
}

func TestLoadConfigMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "min_steps: 5\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MinSteps != 5 {
		t.Errorf("MinSteps = %d, want 5", cfg.MinSteps)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	// Unset fields keep their defaults.
	if cfg.StepFetchLimit != 20 {
		t.Errorf("StepFetchLimit = %d, want default 20", cfg.StepFetchLimit)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("min_steps: [not a number"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed YAML should return an error")
	}
}

func TestLoadConfigFromDir(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ".cleanplan")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("min_steps: 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromDir(dir)
	if err != nil {
		t.Fatalf("LoadConfigFromDir failed: %v", err)
	}
	if cfg.MinSteps != 4 {
		t.Errorf("MinSteps = %d, want 4", cfg.MinSteps)
	}
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	minSteps := 2
	allowFewer := true
	logLevel := "trace"

	cfg.MergeWithFlags(&minSteps, &allowFewer, nil, &logLevel)

	if cfg.MinSteps != 2 {
		t.Errorf("MinSteps = %d, want 2", cfg.MinSteps)
	}
	if !cfg.AllowFewerSteps {
		t.Error("AllowFewerSteps should be true after merge")
	}
	if cfg.CorpusPath != ".cleanplan/corpus.db" {
		t.Errorf("nil flag should not override CorpusPath, got %q", cfg.CorpusPath)
	}
	if cfg.LogLevel != "trace" {
		t.Errorf("LogLevel = %q, want trace", cfg.LogLevel)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero min steps", func(c *Config) { c.MinSteps = 0 }},
		{"zero fetch limit", func(c *Config) { c.StepFetchLimit = 0 }},
		{"zero doc limit", func(c *Config) { c.ReferenceDocLimit = 0 }},
		{"empty corpus path", func(c *Config) { c.CorpusPath = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
