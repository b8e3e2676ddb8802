package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ch097711/fuzz-introspector/internal/config"
)

// TestApplySectionCreate verifies that applySection on empty content yields
// just the sentinel-wrapped section.
func TestApplySectionCreate(t *testing.T) {
	t.Parallel()
	section := sentinelStart + "\nbody: 1\n" + sentinelEnd
	got := applySection("", section)
	if got != section+"\n" {
		t.Errorf("got %q", got)
	}
}

// TestApplySectionAppend verifies that existing content without a sentinel block
// is preserved and the section is appended.
func TestApplySectionAppend(t *testing.T) {
	t.Parallel()
	existing := "# project notes\nextra: true"
	section := sentinelStart + "\nnew: 1\n" + sentinelEnd
	got := applySection(existing, section)

	if !strings.HasPrefix(got, existing+"\n\n") {
		t.Errorf("existing content should be preserved at start:\n%s", got)
	}
	if !strings.HasSuffix(got, section+"\n") {
		t.Errorf("section should be appended:\n%s", got)
	}
}

// TestApplySectionUpdate verifies that an existing sentinel block is replaced
// precisely, leaving surrounding content intact.
func TestApplySectionUpdate(t *testing.T) {
	t.Parallel()
	before := "# local\n\n"
	after := "\n\n# trailing note\n"
	old := before + sentinelStart + "\nold: 1\n" + sentinelEnd + after

	section := sentinelStart + "\nnew: 1\n" + sentinelEnd
	got := applySection(old, section)

	if got != before+section+after {
		t.Errorf("got:\n%s", got)
	}
}

// TestInitCreatesFile verifies that runInit writes a config that loads back
// as the defaults.
func TestInitCreatesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), config.FileName)

	var stdout, stderr bytes.Buffer
	if err := runInit([]string{path}, &stdout, &stderr); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, sentinelStart) || !strings.Contains(content, sentinelEnd) {
		t.Errorf("sentinels missing:\n%s", content)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if cfg.Entry != config.Default().Entry || cfg.MaxFileSize != config.Default().MaxFileSize {
		t.Errorf("loaded %+v, want defaults", cfg)
	}
}

// TestInitDryRun verifies that --dry-run prints the would-be file content and
// does not create the target file.
func TestInitDryRun(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), config.FileName)

	var stdout, stderr bytes.Buffer
	if err := runInit([]string{"--dry-run", path}, &stdout, &stderr); err != nil {
		t.Fatalf("runInit: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("dry run should not create the file")
	}
	if !strings.Contains(stdout.String(), "entry: LLVMFuzzerTestOneInput") {
		t.Errorf("dry run output missing defaults:\n%s", stdout.String())
	}
}

// TestInitDryRunNoPath verifies that --dry-run without a path prints only the
// section.
func TestInitDryRunNoPath(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := runInit([]string{"--dry-run"}, &stdout, &stderr); err != nil {
		t.Fatalf("runInit: %v", err)
	}
	if got := stdout.String(); got != generateSection()+"\n" {
		t.Errorf("got:\n%s", got)
	}
}

// TestInitIdempotent verifies that running init twice leaves one block and
// keeps user content outside it.
func TestInitIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := os.WriteFile(path, []byte("# my notes\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	for i := 0; i < 2; i++ {
		if err := runInit([]string{path}, &buf, &buf); err != nil {
			t.Fatalf("runInit: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if n := strings.Count(content, sentinelStart); n != 1 {
		t.Errorf("expected one block, found %d", n)
	}
	if !strings.HasPrefix(content, "# my notes\n") {
		t.Errorf("user content lost:\n%s", content)
	}
}

// TestRunDispatchesInit verifies that run hands the init subcommand to runInit.
func TestRunDispatchesInit(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"init", "--dry-run"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), sentinelStart) {
		t.Errorf("got:\n%s", stdout.String())
	}
}
