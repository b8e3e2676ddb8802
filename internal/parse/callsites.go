package parse

import (
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ch097711/fuzz-introspector/internal/model"
)

// Resolver answers project-wide function lookups during call-site
// extraction.
type Resolver interface {
	// Lookup runs the scoped, memoized project lookup for name.
	Lookup(name, scope string) *Function
	// Exact returns the function whose qualified name is exactly name.
	Exact(name string) *Function
}

// CallSites returns the function's call sites, deduplicated by (target, line)
// and sorted by byte offset. The list is computed on first use and cached;
// later calls return the same slice regardless of r.
func (f *Function) CallSites(r Resolver) []model.CallSite {
	if f.callSitesDone {
		return f.callSites
	}
	f.callSitesDone = true

	var sites []model.CallSite
	walkTree(f.node, func(n *sitter.Node) {
		for _, cs := range f.callSitesAt(n, r) {
			if !utf8.ValidString(cs.Target) {
				slog.Debug("callsite.decode", "function", f.Name, "file", f.File(), "line", cs.Line)
				continue
			}
			sites = append(sites, cs)
		}
	})
	f.callSites = dedupCallSites(sites)
	return f.callSites
}

func (f *Function) callSitesAt(n *sitter.Node, r Resolver) []model.CallSite {
	switch n.Type() {
	case "call_expression":
		if cs, ok := f.invocation(n, r); ok {
			return []model.CallSite{cs}
		}
	case "new_expression":
		t := n.ChildByFieldName("type")
		if t == nil {
			return nil
		}
		cls := f.unit.typeName(t)
		if cls == "" {
			return nil
		}
		return []model.CallSite{{
			Target: constructorName(cls),
			Offset: int(n.EndByte()),
			Line:   int(n.StartPoint().Row) + 1,
		}}
	case "declaration":
		return f.declaration(n, r)
	}
	return nil
}

func (f *Function) invocation(n *sitter.Node, r Resolver) (model.CallSite, bool) {
	callee := n.ChildByFieldName("function")
	if callee == nil {
		return model.CallSite{}, false
	}
	u := f.unit

	var target string
	switch callee.Type() {
	case "identifier", "qualified_identifier", "template_function":
		target = u.text(callee)
		if m := r.Lookup(target, f.Scope); m != nil {
			target = m.Name
		} else if name := callee.ChildByFieldName("name"); name != nil {
			if m := r.Lookup(u.text(name), f.Scope); m != nil {
				target = m.Name
			}
		}
	case "field_expression":
		target = f.memberTarget(callee, r)
	}
	if target == "" {
		return model.CallSite{}, false
	}
	if f.Scope != "" && !strings.Contains(target, "::") {
		if m := r.Exact(f.Scope + "::" + target); m != nil {
			target = m.Name
		}
	}
	return model.CallSite{
		Target: target,
		Offset: int(callee.EndByte()),
		Line:   int(callee.StartPoint().Row) + 1,
	}, true
}

// memberTarget resolves a chained member call such as this->a.b() or
// obj->get(). Receiver types come from the enclosing scope for this and from
// the variable-type map for identifiers. A call expression as the innermost
// receiver abandons the resolution of the member applied to it.
func (f *Function) memberTarget(fe *sitter.Node, r Resolver) string {
	u := f.unit
	var fields []string
	n := fe
	for n != nil && n.Type() == "field_expression" {
		field := n.ChildByFieldName("field")
		arg := n.ChildByFieldName("argument")
		if field == nil || arg == nil {
			return ""
		}
		fields = append(fields, u.memberName(field))
		n = arg
	}
	if n == nil {
		return ""
	}

	var owner string
	switch n.Type() {
	case "this":
		owner = f.Scope
	case "identifier", "qualified_identifier":
		owner = receiverType(f.VarTypes[u.text(n)])
	case "call_expression":
		if len(fields) == 1 {
			return ""
		}
		fields = fields[:len(fields)-1]
	}
	if owner == "void" {
		owner = ""
	}

	for i := len(fields) - 1; i >= 1; i-- {
		owner = qualify(owner, fields[i])
	}
	target := qualify(owner, fields[0])
	if m := r.Lookup(target, ""); m != nil {
		return m.Name
	}
	return target
}

func (u *Unit) memberName(field *sitter.Node) string {
	if field.Type() == "template_method" {
		if name := field.ChildByFieldName("name"); name != nil {
			return u.text(name)
		}
	}
	return u.text(field)
}

// declaration records the declared type of every declared variable and
// synthesizes a constructor call when the type has a project-defined
// constructor.
func (f *Function) declaration(n *sitter.Node, r Resolver) []model.CallSite {
	u := f.unit
	t := n.ChildByFieldName("type")
	if t == nil || t.Type() == "primitive_type" || t.Type() == "sized_type_specifier" {
		return nil
	}
	varType := u.typeName(t)
	if varType == "" {
		return nil
	}

	var sites []model.CallSite
	for _, d := range declarators(n, t) {
		if constructs(d) {
			ctor := constructorName(varType)
			if r.Exact(ctor) != nil {
				sites = append(sites, model.CallSite{
					Target: ctor,
					Offset: int(n.EndByte()),
					Line:   int(n.StartPoint().Row) + 1,
				})
			}
		}
		if base := declaratorBase(d); base != nil {
			_, _, id := stripPointerArray(base)
			f.VarTypes[strings.ReplaceAll(u.text(id), "&", "")] = varType
		}
	}
	return sites
}

// declarators returns the declarator children of a declaration, in order.
func declarators(n, typ *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.StartByte() == typ.StartByte() && c.EndByte() == typ.EndByte() {
			continue
		}
		switch c.Type() {
		case "identifier", "init_declarator", "pointer_declarator",
			"reference_declarator", "array_declarator", "function_declarator":
			out = append(out, c)
		}
	}
	return out
}

// constructs reports whether a declarator creates an object by value: a bare
// name or an initializer with constructor arguments.
func constructs(d *sitter.Node) bool {
	switch d.Type() {
	case "identifier":
		return true
	case "init_declarator":
		v := d.ChildByFieldName("value")
		return v != nil && (v.Type() == "argument_list" || v.Type() == "initializer_list")
	}
	return false
}

// typeName returns the declared type with explicit qualification and without
// template arguments or elaborated-type keywords.
func (u *Unit) typeName(t *sitter.Node) string {
	var prefix string
	for t != nil && t.Type() == "qualified_identifier" {
		if s := t.ChildByFieldName("scope"); s != nil {
			prefix += u.text(s)
		}
		prefix += "::"
		t = t.ChildByFieldName("name")
	}
	if t == nil {
		return ""
	}
	switch t.Type() {
	case "template_type", "struct_specifier", "class_specifier", "union_specifier":
		name := t.ChildByFieldName("name")
		if name == nil {
			return ""
		}
		return prefix + u.typeName(name)
	}
	return prefix + u.text(t)
}

func constructorName(cls string) string {
	return cls + "::" + lastSegment(cls)
}

// receiverType reduces a declared variable type to the class name used to
// qualify member calls.
func receiverType(t string) string {
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	t = strings.NewReplacer("*", "", "&", "", "[]", "").Replace(t)
	fields := strings.Fields(t)
	out := fields[:0]
	for _, w := range fields {
		switch w {
		case "const", "volatile", "struct", "class", "union":
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, "")
}

func dedupCallSites(sites []model.CallSite) []model.CallSite {
	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].Offset < sites[j].Offset
	})
	type key struct {
		target string
		line   int
	}
	seen := make(map[key]bool, len(sites))
	out := make([]model.CallSite, 0, len(sites))
	for _, cs := range sites {
		k := key{cs.Target, cs.Line}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, cs)
	}
	return out
}
