package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ch097711/fuzz-introspector/internal/model"
)

// addConditional records one block per branch of a preprocessor conditional.
// Each alternative negates the condition of the branch before it, so the
// recorded list is what must hold for that branch to be compiled. A branch
// ends on the line before its alternative starts.
func (u *Unit) addConditional(n *sitter.Node) {
	var conds []model.Condition
	for n != nil {
		if len(conds) > 0 {
			conds[len(conds)-1] = conds[len(conds)-1].Negate()
		}

		switch n.Type() {
		case "preproc_ifdef", "preproc_elifdef":
			name := n.ChildByFieldName("name")
			if name == nil {
				return
			}
			kind := model.IfDef
			if tok := n.Child(0); tok != nil && (tok.Type() == "#ifndef" || tok.Type() == "#elifndef") {
				kind = model.IfNDef
			}
			conds = append(conds, model.Condition{Kind: kind, Expr: u.text(name)})
		case "preproc_if", "preproc_elif":
			cond := n.ChildByFieldName("condition")
			if cond == nil {
				return
			}
			conds = append(conds, model.Condition{Kind: model.If, Expr: u.text(cond)})
		}

		pos := u.position(n)
		alt := n.ChildByFieldName("alternative")
		if alt != nil {
			pos.LineEnd = int(alt.StartPoint().Row)
		}
		u.ConditionalBlocks = append(u.ConditionalBlocks, model.ConditionalBlock{
			Conditions: append([]model.Condition(nil), conds...),
			Pos:        pos,
		})
		n = alt
	}
}
