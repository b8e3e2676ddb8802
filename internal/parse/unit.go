// Package parse turns one C/C++ source file into a Unit: its functions, type
// catalog, includes and preprocessor conditional blocks.
package parse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ch097711/fuzz-introspector/internal/lang"
	"github.com/ch097711/fuzz-introspector/internal/model"
)

// HarnessEntry is the libFuzzer entry point name.
const HarnessEntry = "LLVMFuzzerTestOneInput"

// InMemoryPath names units built by AnalyseSource.
const InMemoryPath = "in-memory string"

// maxNestingDepth bounds the syntax-tree walk. Files nested deeper are
// rejected with ErrNestingTooDeep.
const maxNestingDepth = 10000

// ErrNestingTooDeep reports a file whose syntax tree exceeds the walk bound.
var ErrNestingTooDeep = errors.New("syntax tree nesting too deep")

// Unit is one parsed source file.
type Unit struct {
	Path      string
	Language  *lang.Language
	Source    []byte
	Functions []*Function
	Catalog   Catalog
	// Includes is the set of header paths named by #include directives.
	Includes          map[string]struct{}
	ConditionalBlocks []model.ConditionalBlock

	tree *sitter.Tree
}

type frame struct {
	node  *sitter.Node
	scope string
	depth int
}

// Load reads and parses the file at path.
func Load(ctx context.Context, l *lang.Language, parser *sitter.Parser, path string) (*Unit, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(ctx, l, parser, source, path)
}

// Parse builds a Unit from source. A nil parser means a fresh one is created.
// The returned Unit keeps the syntax tree alive so call sites can be
// extracted later.
func Parse(ctx context.Context, l *lang.Language, parser *sitter.Parser, source []byte, path string) (*Unit, error) {
	if l == nil {
		l = lang.Default
	}
	u := &Unit{
		Path:     path,
		Language: l,
		Source:   source,
		Includes: make(map[string]struct{}),
	}
	if len(source) == 0 {
		return u, nil
	}
	if parser == nil {
		parser = l.NewParser()
		defer parser.Close()
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	u.tree = tree

	if err := u.walk(tree.RootNode()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return u, nil
}

// AnalyseSource parses an in-memory snippet with the default grammar.
func AnalyseSource(ctx context.Context, source string) (*Unit, error) {
	return Parse(ctx, lang.Default, nil, []byte(source), InMemoryPath)
}

func (u *Unit) walk(root *sitter.Node) error {
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if fr.depth > maxNestingDepth {
			return ErrNestingTooDeep
		}

		n := fr.node
		scope := fr.scope
		switch n.Type() {
		case "function_definition", "preproc_function_def":
			if f, ok := u.newFunction(n, scope); ok {
				u.Functions = append(u.Functions, f)
			}
		case "namespace_definition":
			scope = u.namespaceScope(n, scope)
		case "enum_specifier":
			u.addEnum(n)
		case "struct_specifier":
			u.addRecord(n, model.Struct)
		case "union_specifier":
			u.addRecord(n, model.Union)
		case "type_definition":
			u.addTypedef(n)
		case "preproc_def":
			u.addMacro(n)
		case "preproc_include":
			u.addInclude(n)
		case "preproc_ifdef", "preproc_if":
			u.addConditional(n)
		}

		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			child := n.Child(i)
			if child == nil {
				continue
			}
			stack = append(stack, frame{node: child, scope: scope, depth: fr.depth + 1})
		}
	}
	return nil
}

// namespaceScope appends the namespace's name, or each component of a
// nested namespace specifier, to scope.
func (u *Unit) namespaceScope(n *sitter.Node, scope string) string {
	name := n.ChildByFieldName("name")
	if name == nil {
		return scope
	}
	for _, part := range strings.Split(u.text(name), "::") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		scope = qualify(scope, part)
	}
	return scope
}

func (u *Unit) text(n *sitter.Node) string {
	return lang.NodeText(n, u.Source)
}

func (u *Unit) position(n *sitter.Node) model.Position {
	return model.Position{
		SourceFile: u.Path,
		LineStart:  int(n.StartPoint().Row) + 1,
		LineEnd:    int(n.EndPoint().Row) + 1,
	}
}

// IncludeList returns the include set sorted.
func (u *Unit) IncludeList() []string {
	out := make([]string, 0, len(u.Includes))
	for inc := range u.Includes {
		out = append(out, inc)
	}
	sort.Strings(out)
	return out
}

// HasLibFuzzerHarness reports whether the unit defines the libFuzzer entry.
func (u *Unit) HasLibFuzzerHarness() bool {
	for _, f := range u.Functions {
		if f.Name == HarnessEntry {
			return true
		}
	}
	return false
}

// HasFunctionDefinition reports whether the unit defines name. Exact matching
// compares qualified names; otherwise the bare name of a global function or
// the last segment of a qualified target also match.
func (u *Unit) HasFunctionDefinition(name string, exact bool) bool {
	return u.FunctionNode(name, exact) != nil
}

// FunctionNode returns the unit's function called name, or nil.
func (u *Unit) FunctionNode(name string, exact bool) *Function {
	for _, f := range u.Functions {
		if f.Name == name {
			return f
		}
	}
	if exact {
		return nil
	}
	last := lastSegment(name)
	for _, f := range u.Functions {
		if f.Name == last {
			return f
		}
	}
	return nil
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "::" + name
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}
