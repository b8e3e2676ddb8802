package ranking

import (
	"sort"
	"strings"

	"github.com/ch097711/fuzz-introspector/internal/model"
)

// Candidate is a function record considered by an oracle.
type Candidate struct {
	Func *model.FunctionReport
	// Accumulated is the function's complexity plus that of every project
	// function it reaches.
	Accumulated int
}

// Oracle decides whether a function is a promising fuzz target.
type Oracle interface {
	Name() string
	Match(c Candidate) bool
}

// DefaultKeywords are name fragments typical of input-handling functions.
var DefaultKeywords = []string{
	"deserialize",
	"parse",
	"parse_xml",
	"read_file",
	"read_json",
	"read_xml",
	"request",
	"parse_header",
	"parse_request",
	"compress",
	"file_read",
	"read_message",
	"load_image",
}

// Keyword matches functions named like input handlers.
type Keyword struct {
	Keywords      []string
	MinComplexity int
}

func (Keyword) Name() string { return "keyword" }

func (o Keyword) Match(c Candidate) bool {
	if c.Accumulated <= o.MinComplexity {
		return false
	}
	name := strings.ToLower(c.Func.Name)
	for _, kw := range o.Keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(name, kw) || strings.Contains(name, strings.ReplaceAll(kw, "_", "")) {
			return true
		}
	}
	return false
}

// EasyArgs matches functions taking a buffer and length, or a single string.
type EasyArgs struct {
	MinComplexity int
}

func (EasyArgs) Name() string { return "easy-args" }

func (o EasyArgs) Match(c Candidate) bool {
	if c.Accumulated < o.MinComplexity {
		return false
	}
	args := c.Func.ArgTypes
	switch len(args) {
	case 1:
		return isStringArg(args[0])
	case 2:
		return isBufferArg(args[0]) && isLengthArg(args[1])
	}
	return false
}

// FarReach matches functions with few arguments that reach a lot of code.
type FarReach struct {
	MinComplexity int
	MaxArgs       int
}

func (FarReach) Name() string { return "far-reach" }

func (o FarReach) Match(c Candidate) bool {
	args := c.Func.ArgTypes
	if c.Accumulated <= o.MinComplexity || len(args) == 0 || len(args) > o.MaxArgs {
		return false
	}
	if len(args) == 1 {
		return isStringArg(args[0])
	}
	return true
}

// DefaultOracles returns the keyword, easy-args and far-reach oracles with
// their usual thresholds.
func DefaultOracles() []Oracle {
	return []Oracle{
		Keyword{Keywords: DefaultKeywords, MinComplexity: 30},
		EasyArgs{MinComplexity: 150},
		FarReach{MinComplexity: 200, MaxArgs: 3},
	}
}

func normalizeType(t string) string {
	return strings.ReplaceAll(t, " ", "")
}

func isStringArg(t string) bool {
	t = normalizeType(t)
	return strings.Contains(t, "string") || strings.Contains(t, "char*")
}

func isBufferArg(t string) bool {
	t = normalizeType(t)
	return strings.Contains(t, "char*") || strings.Contains(t, "uint8_t*")
}

func isLengthArg(t string) bool {
	t = normalizeType(t)
	return strings.Contains(t, "int") || strings.Contains(t, "size_t")
}

// AccumulatedComplexity returns, per element, its own complexity plus the
// complexity of every reached function defined in the report.
func AccumulatedComplexity(elems []model.FunctionReport) []int {
	complexity := make(map[string]int, len(elems))
	for i := range elems {
		if _, ok := complexity[elems[i].Name]; !ok {
			complexity[elems[i].Name] = elems[i].Complexity
		}
	}
	out := make([]int, len(elems))
	for i := range elems {
		total := elems[i].Complexity
		for _, name := range elems[i].Reached {
			if name == elems[i].Name {
				continue
			}
			total += complexity[name]
		}
		out[i] = total
	}
	return out
}

// TargetOptions tune SelectTargets.
type TargetOptions struct {
	// PerOracle caps the targets kept per oracle; <= 0 means no cap.
	PerOracle int
	// SkipStatic drops functions with internal linkage.
	SkipStatic bool
	// Exclude names functions never to propose, such as the harness entry.
	Exclude []string
}

// SelectTargets runs every oracle over the report's functions. Each oracle's
// matches are ordered by accumulated complexity, then rank, then name.
func SelectTargets(rep *model.Report, oracles []Oracle, opts TargetOptions) []model.Target {
	elems := rep.AllFunctions.Elements
	acc := AccumulatedComplexity(elems)
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded[name] = true
	}

	var targets []model.Target
	for _, o := range oracles {
		var matches []model.Target
		for i := range elems {
			fr := &elems[i]
			if excluded[fr.Name] || (opts.SkipStatic && fr.LinkageType != "") {
				continue
			}
			if !o.Match(Candidate{Func: fr, Accumulated: acc[i]}) {
				continue
			}
			matches = append(matches, model.Target{
				Function:              fr.Name,
				SourceFile:            fr.SourceFile,
				Oracle:                o.Name(),
				AccumulatedComplexity: acc[i],
				ArgCount:              fr.ArgCount,
				Rank:                  fr.Rank,
			})
		}
		sort.SliceStable(matches, func(a, b int) bool {
			if matches[a].AccumulatedComplexity != matches[b].AccumulatedComplexity {
				return matches[a].AccumulatedComplexity > matches[b].AccumulatedComplexity
			}
			if matches[a].Rank != matches[b].Rank {
				return matches[a].Rank > matches[b].Rank
			}
			return matches[a].Function < matches[b].Function
		})
		if opts.PerOracle > 0 && len(matches) > opts.PerOracle {
			matches = matches[:opts.PerOracle]
		}
		targets = append(targets, matches...)
	}
	return targets
}
