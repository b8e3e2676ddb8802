// Package report writes an analysis report in one of the supported formats.
package report

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ch097711/fuzz-introspector/internal/model"
	"github.com/ch097711/fuzz-introspector/internal/toon"
)

// Format names an output encoding.
type Format string

const (
	YAML Format = "yaml"
	TOON Format = "toon"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case YAML, TOON:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want yaml or toon)", s)
}

// Write encodes rep to w.
func Write(w io.Writer, rep *model.Report, f Format) error {
	switch f {
	case TOON:
		_, err := fmt.Fprintln(w, toon.Encode(rep))
		return err
	case YAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", f)
}

// Read decodes a YAML report, as written by Write.
func Read(r io.Reader) (*model.Report, error) {
	var rep model.Report
	if err := yaml.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	return &rep, nil
}
