// Package config loads the analyser's YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ch097711/fuzz-introspector/internal/lang"
)

// FileName is the config file looked up in the analysed root.
const FileName = ".introspector.yaml"

const defaultMaxFileSize = 1_000_000 // 1 MB

// Config holds the user-overridable settings of a run.
type Config struct {
	// Name is the report name; empty means the root directory's base name.
	Name string `yaml:"name"`
	// Entry is the function the call tree starts from.
	Entry       string   `yaml:"entry"`
	Languages   []string `yaml:"languages"`
	Exclude     []string `yaml:"exclude"`
	SkipTests   bool     `yaml:"skip_tests"`
	MaxFileSize int      `yaml:"max_file_size"`
	Format      string   `yaml:"format"`
	Targets     Targets  `yaml:"targets"`
}

// Targets configures the fuzz-target oracles.
type Targets struct {
	Enabled    bool     `yaml:"enabled"`
	Max        int      `yaml:"max"`
	SkipStatic bool     `yaml:"skip_static"`
	Keywords   []string `yaml:"keywords"`
	// Minimum accumulated complexity per oracle.
	KeywordComplexity  int `yaml:"keyword_complexity"`
	EasyArgsComplexity int `yaml:"easy_args_complexity"`
	FarReachComplexity int `yaml:"far_reach_complexity"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		Entry:       "LLVMFuzzerTestOneInput",
		MaxFileSize: defaultMaxFileSize,
		Format:      "yaml",
		Targets: Targets{
			Max:                5,
			KeywordComplexity:  30,
			EasyArgsComplexity: 150,
			FarReachComplexity: 200,
		},
	}
}

// Load reads the config at path over the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values a run cannot work with.
func (c *Config) Validate() error {
	for _, name := range c.Languages {
		if _, ok := lang.Languages[name]; !ok {
			return fmt.Errorf("unsupported language %q", name)
		}
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	switch c.Format {
	case "yaml", "toon":
	default:
		return fmt.Errorf("unknown format %q (want yaml or toon)", c.Format)
	}
	if c.Targets.Max < 0 {
		return fmt.Errorf("targets.max must not be negative, got %d", c.Targets.Max)
	}
	return nil
}

// Template returns a commented config file that decodes to Default.
func Template() string {
	return `# Report name; defaults to the analysed directory's name.
name: ""
# Function the call tree starts from.
entry: LLVMFuzzerTestOneInput
# Languages to analyse (c, cpp); empty means both.
languages: []
# Extra gitignore-style patterns to skip, e.g. "vendor/" or "*_gen.c".
exclude: []
# Skip files under test directories or named like tests.
skip_tests: false
# Files larger than this many bytes are skipped.
max_file_size: 1000000
# Output format: yaml or toon.
format: yaml
# Fuzz-target suggestions.
targets:
  enabled: false
  # Candidates kept per oracle.
  max: 5
  # Drop functions with internal linkage.
  skip_static: false
  # Name fragments for the keyword oracle; empty means the built-in list.
  keywords: []
  keyword_complexity: 30
  easy_args_complexity: 150
  far_reach_complexity: 200
`
}
