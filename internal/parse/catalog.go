package parse

import (
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ch097711/fuzz-introspector/internal/lang"
	"github.com/ch097711/fuzz-introspector/internal/model"
)

// Catalog holds a unit's type definitions grouped by kind.
type Catalog struct {
	Structs  []model.TypeDef
	Unions   []model.TypeDef
	Enums    []model.TypeDef
	Typedefs []model.TypeDef
	Macros   []model.TypeDef
}

// All returns every catalog entry: structs, unions, enums, typedefs, macros.
func (c *Catalog) All() []model.TypeDef {
	var out []model.TypeDef
	out = append(out, c.Structs...)
	out = append(out, c.Unions...)
	out = append(out, c.Enums...)
	out = append(out, c.Typedefs...)
	out = append(out, c.Macros...)
	return out
}

// Types returns the catalog in report layout.
func (c *Catalog) Types() model.SourceTypes {
	return model.SourceTypes{
		Structs:     c.Structs,
		Typedefs:    c.Typedefs,
		PreprocDefs: c.Macros,
		Enums:       c.Enums,
		Unions:      c.Unions,
	}
}

func (u *Unit) addEnum(n *sitter.Node) {
	name := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if name == nil || body == nil {
		return
	}
	td := model.TypeDef{
		Name: u.text(name),
		Kind: model.Enum,
		Pos:  u.position(n),
	}

	q, err := u.Language.Query(lang.QueryEnumerator)
	if err != nil {
		slog.Debug("query.unavailable", "query", lang.QueryEnumerator, "err", err)
		return
	}
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, body)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			en := c.Node.ChildByFieldName("name")
			if en == nil {
				continue
			}
			e := model.Enumerator{Name: u.text(en)}
			if v := c.Node.ChildByFieldName("value"); v != nil {
				e.Value = u.text(v)
			}
			td.Enumerators = append(td.Enumerators, e)
		}
	}
	u.Catalog.Enums = append(u.Catalog.Enums, td)
}

// addRecord catalogs a struct or union with a body. Anonymous records take
// their name from an enclosing typedef or declaration.
func (u *Unit) addRecord(n *sitter.Node, kind model.TypeKind) {
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	var name string
	if nn := n.ChildByFieldName("name"); nn != nil {
		name = u.text(nn)
	} else if p := n.Parent(); p != nil && (p.Type() == "type_definition" || p.Type() == "declaration") {
		if d := p.ChildByFieldName("declarator"); d != nil {
			name = u.text(d)
		}
	}
	if name == "" {
		return
	}

	td := model.TypeDef{Name: name, Kind: kind, Pos: u.position(n)}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		fd := body.NamedChild(i)
		if fd.Type() != "field_declaration" {
			continue
		}
		t := fd.ChildByFieldName("type")
		d := fd.ChildByFieldName("declarator")
		if t == nil || d == nil {
			continue
		}
		td.Fields = append(td.Fields, model.Field{Type: u.text(t), Name: u.text(d)})
	}
	if kind == model.Union {
		u.Catalog.Unions = append(u.Catalog.Unions, td)
	} else {
		u.Catalog.Structs = append(u.Catalog.Structs, td)
	}
}

// addTypedef catalogs typedefs of anything but a struct or union, which are
// catalogued under their own kind.
func (u *Unit) addTypedef(n *sitter.Node) {
	d := n.ChildByFieldName("declarator")
	t := n.ChildByFieldName("type")
	if d == nil || t == nil {
		return
	}
	switch t.Type() {
	case "struct_specifier", "union_specifier":
		return
	}
	u.Catalog.Typedefs = append(u.Catalog.Typedefs, model.TypeDef{
		Name: u.text(d),
		Kind: model.Typedef,
		Type: u.text(t),
		Pos:  u.position(n),
	})
}

func (u *Unit) addMacro(n *sitter.Node) {
	name := n.ChildByFieldName("name")
	value := n.ChildByFieldName("value")
	if name == nil || value == nil {
		return
	}
	u.Catalog.Macros = append(u.Catalog.Macros, model.TypeDef{
		Name:  u.text(name),
		Kind:  model.Macro,
		Value: strings.TrimSpace(u.text(value)),
		Pos:   u.position(n),
	})
}

func (u *Unit) addInclude(n *sitter.Node) {
	path := n.ChildByFieldName("path")
	if path == nil {
		return
	}
	inc := strings.Trim(u.text(path), "\"<> ")
	if inc != "" {
		u.Includes[inc] = struct{}{}
	}
}
