// Package graph aggregates parsed units into a project and derives the
// call-graph facts of each function: uses, depth, call trees, reachability
// and rank.
package graph

import (
	"sort"
	"strings"

	"github.com/ch097711/fuzz-introspector/internal/model"
	"github.com/ch097711/fuzz-introspector/internal/parse"
	"github.com/ch097711/fuzz-introspector/internal/resolve"
)

// Project owns the units of one analysed codebase. It is not safe for
// concurrent use.
type Project struct {
	Units     []*parse.Unit
	Functions []*parse.Function
	// Includes is the union of every unit's include set.
	Includes map[string]struct{}

	index   *resolve.Index
	ordinal map[*parse.Function]int
	located map[string]*parse.Function

	callers map[string]map[int]struct{}
	targets map[string][]string

	edges    [][]int
	comp     []int
	depth    []int
	elements []model.FunctionReport
}

// New aggregates units into a project.
func New(units []*parse.Unit) *Project {
	p := &Project{
		Units:    units,
		Includes: make(map[string]struct{}),
		ordinal:  make(map[*parse.Function]int),
		located:  make(map[string]*parse.Function),
	}
	for _, u := range units {
		for inc := range u.Includes {
			p.Includes[inc] = struct{}{}
		}
		for _, f := range u.Functions {
			p.ordinal[f] = len(p.Functions)
			p.Functions = append(p.Functions, f)
		}
	}
	p.index = resolve.New(p.Functions)
	p.depth = make([]int, len(p.Functions))
	for i := range p.depth {
		p.depth[i] = -1
	}
	return p
}

// Lookup is the project-wide exact/fuzzy lookup of a qualified name.
func (p *Project) Lookup(name string) *parse.Function {
	return p.index.Lookup(name, "")
}

// ClearCache drops memoized name resolutions. Report calls it when done.
func (p *Project) ClearCache() {
	p.index.Clear()
}

// CallSites returns f's call sites resolved against the project.
func (p *Project) CallSites(f *parse.Function) []model.CallSite {
	return f.CallSites(p.index)
}

// Harness returns the first unit defining the libFuzzer entry, or nil.
func (p *Project) Harness() *parse.Unit {
	for _, u := range p.Units {
		if u.HasLibFuzzerHarness() {
			return u
		}
	}
	return nil
}

// FindSource returns the definition of name when exactly one unit defines it
// exactly, or failing that exactly one unit matches it loosely. Ambiguous
// names are not found.
func (p *Project) FindSource(name string) *parse.Function {
	if f, ok := p.located[name]; ok {
		return f
	}
	f := p.findSource(name, true)
	if f == nil {
		f = p.findSource(name, false)
	}
	p.located[name] = f
	return f
}

func (p *Project) findSource(name string, exact bool) *parse.Function {
	var found *parse.Function
	for _, u := range p.Units {
		f := u.FunctionNode(name, exact)
		if f == nil {
			continue
		}
		if found != nil {
			return nil
		}
		found = f
	}
	return found
}

// resolveName finds the function a call-tree or reachability walk expands
// name into: its unique definition, else the first lookup match.
func (p *Project) resolveName(name string) *parse.Function {
	if f := p.FindSource(name); f != nil {
		return f
	}
	return p.index.Lookup(name, "")
}

// Uses counts the project functions with at least one call site targeting
// name, either exactly or as an unresolved qualified suffix. The suffix must
// start at a "::" boundary: a call to do_parse is not a use of parse.
func (p *Project) Uses(name string) int {
	p.buildCallers()
	suffix := "::" + name
	callers := make(map[int]struct{})
	for _, target := range p.targets[lastSegment(name)] {
		if target != name && !strings.HasSuffix(target, suffix) {
			continue
		}
		for i := range p.callers[target] {
			callers[i] = struct{}{}
		}
	}
	return len(callers)
}

// buildCallers indexes call-site targets by their last name segment.
func (p *Project) buildCallers() {
	if p.callers != nil {
		return
	}
	p.callers = make(map[string]map[int]struct{})
	p.targets = make(map[string][]string)
	for i, f := range p.Functions {
		for _, cs := range p.CallSites(f) {
			set, ok := p.callers[cs.Target]
			if !ok {
				set = make(map[int]struct{})
				p.callers[cs.Target] = set
				last := lastSegment(cs.Target)
				p.targets[last] = append(p.targets[last], cs.Target)
			}
			set[i] = struct{}{}
		}
	}
}

// buildEdges resolves every call site to a function ordinal once.
func (p *Project) buildEdges() {
	if p.edges != nil {
		return
	}
	p.edges = make([][]int, len(p.Functions))
	for i, f := range p.Functions {
		seen := make(map[int]bool)
		for _, cs := range p.CallSites(f) {
			callee := p.FindSource(cs.Target)
			if callee == nil {
				continue
			}
			j := p.ordinal[callee]
			if seen[j] {
				continue
			}
			seen[j] = true
			p.edges[i] = append(p.edges[i], j)
		}
	}
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
