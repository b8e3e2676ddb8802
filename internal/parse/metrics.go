package parse

import (
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ch097711/fuzz-introspector/internal/lang"
	"github.com/ch097711/fuzz-introspector/internal/model"
)

// branchKinds are the node types that each add one to cyclomatic complexity.
var branchKinds = map[string]struct{}{
	"if_statement":        {},
	"switch_statement":    {},
	"do_statement":        {},
	"while_statement":     {},
	"for_statement":       {},
	"for_range_loop":      {},
	"try_statement":       {},
	"seh_try_statement":   {},
	"throw_statement":     {},
	"goto_statement":      {},
	"co_return_statement": {},
	"co_yield_statement":  {},
	"break_statement":     {},
	"continue_statement":  {},
	"&&":                  {},
	"||":                  {},
}

const assertName = "assert"

func (f *Function) computeMetrics() {
	branches, statements := 0, 0
	walkTree(f.node, func(n *sitter.Node) {
		t := n.Type()
		if _, ok := branchKinds[t]; ok {
			branches++
		}
		if strings.Contains(t, "statement") {
			statements++
		}
	})
	f.Complexity = 1 + branches
	f.Instructions = statements
	f.BasicBlocks = 1 + f.countMatches(lang.QueryIf) + f.countMatches(lang.QueryCase)
	f.Asserts = f.findAsserts()
}

func (f *Function) countMatches(name string) int {
	q, err := f.unit.Language.Query(name)
	if err != nil {
		slog.Debug("query.unavailable", "query", name, "err", err)
		return 0
	}
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, f.node)

	count := 0
	for {
		if _, ok := qc.NextMatch(); !ok {
			break
		}
		count++
	}
	return count
}

func (f *Function) findAsserts() []model.Assert {
	q, err := f.unit.Language.Query(lang.QueryCall)
	if err != nil {
		slog.Debug("query.unavailable", "query", lang.QueryCall, "err", err)
		return nil
	}
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, f.node)

	var asserts []model.Assert
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var callee, args, call *sitter.Node
		for _, c := range m.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "callee":
				callee = c.Node
			case "args":
				args = c.Node
			case "call":
				call = c.Node
			}
		}
		if callee == nil || args == nil || call == nil || f.unit.text(callee) != assertName {
			continue
		}
		asserts = append(asserts, model.Assert{
			Condition: f.unit.text(args),
			Pos:       f.unit.position(call),
		})
	}
	return asserts
}

// walkTree visits every node under root, anonymous tokens included, in
// pre-order without recursion.
func walkTree(root *sitter.Node, fn func(*sitter.Node)) {
	c := sitter.NewTreeCursor(root)
	defer c.Close()
	for {
		fn(c.CurrentNode())
		if c.GoToFirstChild() {
			continue
		}
		for !c.GoToNextSibling() {
			if !c.GoToParent() {
				return
			}
		}
	}
}
