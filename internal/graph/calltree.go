package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ch097711/fuzz-introspector/internal/parse"
)

// CallTree renders the call tree rooted at entry, one line per node:
// two spaces of indent per level, then name, file and line. Children carry
// the file and line of the call. A function already printed is printed
// again where reached but not expanded.
func (p *Project) CallTree(entry string) string {
	if entry == "" {
		return ""
	}
	type node struct {
		name  string
		file  string
		line  int
		depth int
	}

	root := node{name: entry, line: -1}
	if f := p.resolveName(entry); f != nil {
		root.file, root.line = f.File(), f.StartLine
	}

	var b strings.Builder
	visited := make(map[string]bool)
	stack := []node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		f := p.resolveName(n.name)
		name := n.name
		if f != nil {
			name = f.Name
		}
		fmt.Fprintf(&b, "%s%s %s %d\n", strings.Repeat("  ", n.depth), name, n.file, n.line)

		if f == nil || visited[name] {
			continue
		}
		visited[name] = true

		sites := p.CallSites(f)
		for i := len(sites) - 1; i >= 0; i-- {
			stack = append(stack, node{
				name:  sites[i].Target,
				file:  f.File(),
				line:  sites[i].Line,
				depth: n.depth + 1,
			})
		}
	}
	return b.String()
}

// Reachable returns entry's qualified name and every name transitively called
// from it, sorted. Unresolved names are included but not expanded.
func (p *Project) Reachable(entry string) []string {
	f := p.resolveName(entry)
	if f == nil {
		return nil
	}
	return p.reachableFrom(f)
}

func (p *Project) reachableFrom(f *parse.Function) []string {
	seen := map[string]struct{}{f.Name: {}}
	stack := []*parse.Function{f}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, cs := range p.CallSites(cur) {
			if _, ok := seen[cs.Target]; ok {
				continue
			}
			seen[cs.Target] = struct{}{}
			if callee := p.resolveName(cs.Target); callee != nil {
				stack = append(stack, callee)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
