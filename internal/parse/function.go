package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ch097711/fuzz-introspector/internal/lang"
	"github.com/ch097711/fuzz-introspector/internal/model"
)

// MacroType is the placeholder type of function-like macro parameters and
// return values.
const MacroType = "auto"

// Function is one function definition or function-like macro.
type Function struct {
	// Name is the qualified name, e.g. "ns::Class::method".
	Name string
	// Scope is the enclosing namespace/class qualification of Name.
	Scope      string
	Signature  string
	ReturnType string
	Params     []model.Param
	StartLine  int
	EndLine    int

	Complexity   int
	Instructions int
	BasicBlocks  int
	Asserts      []model.Assert

	// Macro marks a function-like preprocessor macro.
	Macro bool
	// Static marks functions declared with internal linkage.
	Static bool
	// VarTypes maps parameter and local variable names to their declared
	// types. Call-site extraction adds locals to it.
	VarTypes map[string]string

	unit *Unit
	node *sitter.Node

	callSites     []model.CallSite
	callSitesDone bool
}

// File returns the path of the defining source file.
func (f *Function) File() string { return f.unit.Path }

// ArgNames returns the parameter names in order.
func (f *Function) ArgNames() []string {
	out := make([]string, len(f.Params))
	for i, p := range f.Params {
		out[i] = p.Name
	}
	return out
}

// ArgTypes returns the parameter types in order.
func (f *Function) ArgTypes() []string {
	out := make([]string, len(f.Params))
	for i, p := range f.Params {
		out[i] = p.Type
	}
	return out
}

func (u *Unit) newFunction(n *sitter.Node, scope string) (*Function, bool) {
	f := &Function{
		Scope:     scope,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		VarTypes:  make(map[string]string),
		unit:      u,
		node:      n,
	}
	if n.Type() == "preproc_function_def" {
		return f, f.extractMacro()
	}
	if !f.extractDefinition() {
		return nil, false
	}
	f.computeMetrics()
	return f, true
}

func (f *Function) extractMacro() bool {
	u := f.unit
	name := f.node.ChildByFieldName("name")
	params := f.node.ChildByFieldName("parameters")
	value := f.node.ChildByFieldName("value")
	if name == nil || params == nil || value == nil {
		return false
	}

	f.Macro = true
	f.Name = u.text(name)
	f.Scope = ""
	f.ReturnType = MacroType
	f.Signature = f.Name + u.text(params)
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(i)
		switch p.Type() {
		case "(", ")", ",":
			continue
		}
		f.Params = append(f.Params, model.Param{Name: u.text(p), Type: MacroType})
	}
	f.Complexity, f.Instructions, f.BasicBlocks = 1, 1, 1
	return true
}

func (f *Function) extractDefinition() bool {
	u := f.unit
	decl := f.node.ChildByFieldName("declarator")
	if decl == nil || decl.HasError() {
		return false
	}
	sig := u.text(decl)
	if strings.TrimSpace(sig) == "" {
		return false
	}
	f.Signature = lang.CollapseWhitespace(sig)

	if name := u.declaratorName(decl); name != "" {
		f.Name = u.enclosingScope(f.node) + name
		if i := strings.LastIndex(f.Name, "::"); i >= 0 {
			f.Scope = f.Name[:i]
		}
	} else {
		f.Name = f.Signature
	}

	for i := 0; i < int(f.node.NamedChildCount()); i++ {
		c := f.node.NamedChild(i)
		if c.Type() == "storage_class_specifier" && u.text(c) == "static" {
			f.Static = true
		}
	}
	f.ReturnType = "void"
	if t := f.node.ChildByFieldName("type"); t != nil {
		f.ReturnType = u.text(t)
	}
	f.Signature = f.ReturnType + " " + f.Signature
	if fd := functionDeclarator(decl); fd != nil {
		f.extractParams(fd.ChildByFieldName("parameters"))
	}
	return true
}

// declaratorName follows a declarator chain down to the function's own name,
// keeping any explicit qualification written in the declarator.
func (u *Unit) declaratorName(n *sitter.Node) string {
	var qualifier string
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "destructor_name", "operator_name":
			return qualifier + u.text(n)
		case "qualified_identifier":
			if s := n.ChildByFieldName("scope"); s != nil {
				qualifier += u.text(s)
			}
			qualifier += "::"
			n = n.ChildByFieldName("name")
			continue
		case "template_function":
			n = n.ChildByFieldName("name")
			continue
		case "reference_declarator", "parenthesized_declarator":
			n = n.NamedChild(0)
			continue
		}
		n = n.ChildByFieldName("declarator")
	}
	return ""
}

// enclosingScope returns the "A::B::" prefix contributed by enclosing
// classes, structs and namespaces.
func (u *Unit) enclosingScope(n *sitter.Node) string {
	var parts []string
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "class_specifier", "struct_specifier", "namespace_definition":
			if name := p.ChildByFieldName("name"); name != nil {
				parts = append(parts, u.text(name))
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
		b.WriteString("::")
	}
	return b.String()
}

func functionDeclarator(n *sitter.Node) *sitter.Node {
	for n != nil {
		if n.Type() == "function_declarator" {
			return n
		}
		next := n.ChildByFieldName("declarator")
		if next == nil && (n.Type() == "reference_declarator" || n.Type() == "parenthesized_declarator") {
			next = n.NamedChild(0)
		}
		n = next
	}
	return nil
}

func (f *Function) extractParams(list *sitter.Node) {
	if list == nil {
		return
	}
	u := f.unit
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		if p.Type() != "parameter_declaration" && p.Type() != "optional_parameter_declaration" {
			continue
		}
		typ := p.ChildByFieldName("type")
		base := declaratorBase(p.ChildByFieldName("declarator"))
		if typ == nil || base == nil {
			continue
		}
		pointers, arrays, id := stripPointerArray(base)
		name := strings.ReplaceAll(u.text(id), "&", "")
		ptype := u.text(typ) + strings.Repeat("*", pointers) + strings.Repeat("[]", arrays)
		f.Params = append(f.Params, model.Param{Name: name, Type: ptype})
		f.VarTypes[name] = ptype
	}
}

// declaratorBase descends through declarator wrappers (init, attributed)
// until it reaches the identifier or a pointer/array/reference declarator.
func declaratorBase(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "qualified_identifier",
			"pointer_declarator", "array_declarator", "reference_declarator":
			return n
		}
		n = n.ChildByFieldName("declarator")
	}
	return nil
}

// stripPointerArray counts pointer and array layers above the declared name.
func stripPointerArray(n *sitter.Node) (pointers, arrays int, id *sitter.Node) {
	for {
		switch n.Type() {
		case "pointer_declarator":
			pointers++
		case "array_declarator":
			arrays++
		default:
			return pointers, arrays, n
		}
		next := n.ChildByFieldName("declarator")
		if next == nil {
			return pointers, arrays, n
		}
		n = next
	}
}
