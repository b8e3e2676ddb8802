package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxFileSize != defaultMaxFileSize || cfg.Entry != "LLVMFuzzerTestOneInput" {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `
entry: fuzz_main
languages: [c]
exclude:
  - vendor/
format: toon
targets:
  enabled: true
  max: 3
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Entry != "fuzz_main" || cfg.Format != "toon" {
		t.Errorf("entry/format = %q/%q", cfg.Entry, cfg.Format)
	}
	if len(cfg.Languages) != 1 || cfg.Languages[0] != "c" {
		t.Errorf("languages = %v", cfg.Languages)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "vendor/" {
		t.Errorf("exclude = %v", cfg.Exclude)
	}
	if !cfg.Targets.Enabled || cfg.Targets.Max != 3 {
		t.Errorf("targets = %+v", cfg.Targets)
	}
	// Unset keys keep their defaults.
	if cfg.MaxFileSize != defaultMaxFileSize || cfg.Targets.FarReachComplexity != 200 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "entyr: main\n", "entyr"},
		{"bad language", "languages: [rust]\n", "unsupported language"},
		{"bad format", "format: json\n", "unknown format"},
		{"zero size", "max_file_size: 0\n", "max_file_size"},
		{"negative max", "targets:\n  max: -1\n", "targets.max"},
		{"not yaml", "entry: [\n", "parsing"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestTemplateDecodesToDefault(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, Template()))
	if err != nil {
		t.Fatalf("Load(Template()): %v", err)
	}
	if len(cfg.Languages)+len(cfg.Exclude)+len(cfg.Targets.Keywords) != 0 {
		t.Fatalf("template lists should be empty: %+v", cfg)
	}
	cfg.Languages, cfg.Exclude, cfg.Targets.Keywords = nil, nil, nil
	if want := Default(); !reflect.DeepEqual(cfg, want) {
		t.Errorf("template decodes to %+v, want %+v", cfg, want)
	}
}
