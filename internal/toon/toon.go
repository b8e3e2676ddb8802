// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// analysis reports.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ch097711/fuzz-introspector/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a Report into TOON format.
func Encode(rep *model.Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("report: %s", encodeValue(rep.Name)))
	parts = append(parts, fmt.Sprintf("fuzzer: %s", encodeValue(rep.FuzzerFilename)))

	var fileRows [][]string
	for i := range rep.Sources {
		src := &rep.Sources[i]
		fileRows = append(fileRows, []string{
			src.SourceFile,
			strconv.Itoa(len(src.FunctionNames)),
			strconv.Itoa(len(src.MacroBlocks)),
		})
	}
	parts = append(parts, formatTabular("sources", []string{"path", "functions", "macro_blocks"}, fileRows))

	elems := rep.AllFunctions.Elements
	var funcRows [][]string
	for i := range elems {
		fr := &elems[i]
		funcRows = append(funcRows, []string{
			fr.SourceFile,
			fr.Name,
			strconv.Itoa(fr.LineStart),
			strconv.Itoa(fr.LineEnd),
			strconv.Itoa(fr.Complexity),
			strconv.Itoa(fr.Depth),
			strconv.Itoa(fr.Uses),
			fmt.Sprintf("%.4f", fr.Rank),
			fr.Signature,
		})
	}
	parts = append(parts, formatTabular("functions",
		[]string{"file", "name", "start", "end", "complexity", "depth", "uses", "rank", "signature"}, funcRows))

	var siteRows [][]string
	for i := range elems {
		for _, cs := range elems[i].Callsites {
			siteRows = append(siteRows, []string{elems[i].Name, cs.Dst, cs.Src})
		}
	}
	if len(siteRows) > 0 {
		parts = append(parts, formatTabular("callsites", []string{"caller", "callee", "src"}, siteRows))
	}

	var typeRows [][]string
	for i := range rep.Sources {
		src := &rep.Sources[i]
		for _, group := range [][]model.TypeDef{
			src.Types.Structs, src.Types.Unions, src.Types.Enums, src.Types.Typedefs, src.Types.PreprocDefs,
		} {
			for _, td := range group {
				typeRows = append(typeRows, []string{
					src.SourceFile,
					td.Name,
					string(td.Kind),
					strconv.Itoa(td.Pos.LineStart),
				})
			}
		}
	}
	if len(typeRows) > 0 {
		parts = append(parts, formatTabular("types", []string{"file", "name", "kind", "line"}, typeRows))
	}

	if len(rep.Targets) > 0 {
		var targetRows [][]string
		for _, tg := range rep.Targets {
			targetRows = append(targetRows, []string{
				tg.Oracle,
				tg.Function,
				tg.SourceFile,
				strconv.Itoa(tg.AccumulatedComplexity),
				strconv.Itoa(tg.ArgCount),
			})
		}
		parts = append(parts, formatTabular("targets",
			[]string{"oracle", "function", "file", "accumulated", "args"}, targetRows))
	}

	if len(rep.IncludedHeaders) > 0 {
		parts = append(parts, formatList("headers", rep.IncludedHeaders))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func formatList(name string, values []string) string {
	encoded := make([]string, len(values))
	for i, v := range values {
		encoded[i] = encodeValue(v)
	}
	return fmt.Sprintf("%s[%d]: %s", name, len(values), strings.Join(encoded, ","))
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
