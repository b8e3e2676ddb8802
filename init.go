package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ch097711/fuzz-introspector/internal/config"
)

const (
	sentinelStart = "# introspector:start"
	sentinelEnd   = "# introspector:end"
)

// runInit implements the `introspector init` subcommand, which writes (or
// updates) the default settings block in a config file.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("introspector init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: introspector init [flags] [path-to-config]

Write the default introspector settings to a config file. The settings are
wrapped in sentinel comments so they can be refreshed in place on subsequent
runs without touching surrounding content. Creates the file if it does not
exist. Keys set outside the sentinel block must not repeat keys inside it.

path-to-config defaults to ./%s.

Flags:
`, config.FileName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := config.FileName
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote introspector settings to %s\n", path)
	return nil
}

// generateSection returns the sentinel-wrapped default config.
func generateSection() string {
	return sentinelStart + "\n" + strings.TrimRight(config.Template(), "\n") + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	if content == "" {
		return section + "\n"
	}
	// Append, ensuring a blank line separator.
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
