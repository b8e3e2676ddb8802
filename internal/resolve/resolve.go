// Package resolve implements the memoized, project-wide function lookup used
// to turn call-site text into qualified function names.
//
// An Index belongs to one project. Its memo must be cleared once the
// project's report is produced so resolutions never leak between projects.
package resolve

import (
	"strings"

	"github.com/ch097711/fuzz-introspector/internal/parse"
)

const (
	separator = "::"
	stdPrefix = "std::"
)

type key struct {
	name    string
	scope   string
	shallow bool
}

// Index resolves names against a fixed list of functions. It is not safe for
// concurrent use.
type Index struct {
	funcs []*parse.Function
	exact map[string]*parse.Function
	memo  map[key]*parse.Function
}

// New builds an index over funcs. Where several functions share a qualified
// name the first in declaration order wins.
func New(funcs []*parse.Function) *Index {
	x := &Index{
		funcs: funcs,
		exact: make(map[string]*parse.Function, len(funcs)),
		memo:  make(map[key]*parse.Function),
	}
	for _, f := range funcs {
		if _, ok := x.exact[f.Name]; !ok {
			x.exact[f.Name] = f
		}
	}
	return x
}

// Exact returns the function named exactly name, or nil.
func (x *Index) Exact(name string) *parse.Function {
	return x.exact[name]
}

// Lookup resolves name as seen from scope. It tries, in order: the exact
// name, the scope-qualified name, and for qualified names outside std:: the
// first function whose name ends with a progressively shorter suffix of name.
// Misses are memoized too. A suffix matches only at a "::" boundary, so
// m::read finds n::read but never n::myread.
func (x *Index) Lookup(name, scope string) *parse.Function {
	return x.lookup(key{name: name, scope: scope})
}

// LookupShallow is Lookup with suffix matching limited to the full name and
// the name minus its first scope component.
func (x *Index) LookupShallow(name, scope string) *parse.Function {
	return x.lookup(key{name: name, scope: scope, shallow: true})
}

func (x *Index) lookup(k key) *parse.Function {
	if f, ok := x.memo[k]; ok {
		return f
	}
	f := x.find(k)
	x.memo[k] = f
	return f
}

func (x *Index) find(k key) *parse.Function {
	if f := x.exact[k.name]; f != nil {
		return f
	}
	if k.scope != "" {
		if f := x.exact[k.scope+separator+k.name]; f != nil {
			return f
		}
	}
	if !strings.Contains(k.name, separator) || strings.HasPrefix(k.name, stdPrefix) {
		return nil
	}

	var parts []string
	if k.shallow {
		parts = strings.SplitN(k.name, separator, 2)
	} else {
		parts = strings.Split(k.name, separator)
	}
	for i := range parts {
		suffix := strings.Join(parts[i:], separator)
		if suffix == "" {
			continue
		}
		for _, f := range x.funcs {
			if f.Name == suffix || strings.HasSuffix(f.Name, separator+suffix) {
				return f
			}
		}
	}
	return nil
}

// Clear drops all memoized lookups.
func (x *Index) Clear() {
	clear(x.memo)
}

// Cached returns the number of memoized lookups.
func (x *Index) Cached() int {
	return len(x.memo)
}
