// Package ranking narrows a finished report: by rank, by symbol, by file,
// and by fuzz-target oracles.
package ranking

import (
	"sort"
	"strings"

	"github.com/ch097711/fuzz-introspector/internal/model"
)

// SelectFunctions returns a new Report with only the maxFuncs highest-ranked
// functions. Sources are kept. If maxFuncs is <= 0 or >= the number of
// functions, rep is returned unchanged.
func SelectFunctions(rep *model.Report, maxFuncs int) *model.Report {
	elems := rep.AllFunctions.Elements
	if maxFuncs <= 0 || maxFuncs >= len(elems) {
		return rep
	}

	order := make([]int, len(elems))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return elems[order[a]].Rank > elems[order[b]].Rank
	})
	keep := order[:maxFuncs]
	sort.Ints(keep)

	selected := make([]model.FunctionReport, 0, maxFuncs)
	for _, i := range keep {
		selected = append(selected, elems[i])
	}
	return withFunctions(rep, selected, nil)
}

// FilterBySymbol returns a new Report with the functions whose name contains
// substr (case-insensitive), their direct callers and callees, and the
// sources that define any of them.
func FilterBySymbol(rep *model.Report, substr string) *model.Report {
	lower := strings.ToLower(substr)
	elems := rep.AllFunctions.Elements

	matched := make(map[string]struct{})
	for i := range elems {
		if strings.Contains(strings.ToLower(elems[i].Name), lower) {
			matched[elems[i].Name] = struct{}{}
		}
	}

	// Expand to direct callers and callees of matched functions.
	related := make(map[string]struct{})
	for i := range elems {
		fr := &elems[i]
		_, isMatched := matched[fr.Name]
		for _, cs := range fr.Callsites {
			if isMatched {
				related[cs.Dst] = struct{}{}
			}
			if _, ok := matched[cs.Dst]; ok {
				related[fr.Name] = struct{}{}
			}
		}
	}

	var selected []model.FunctionReport
	files := make(map[string]struct{})
	for i := range elems {
		_, isMatched := matched[elems[i].Name]
		_, isRelated := related[elems[i].Name]
		if isMatched || isRelated {
			selected = append(selected, elems[i])
			files[elems[i].SourceFile] = struct{}{}
		}
	}
	return withFunctions(rep, selected, files)
}

// FilterByFile returns a new Report with only the sources whose path
// contains substr (case-insensitive) and the functions they define.
func FilterByFile(rep *model.Report, substr string) *model.Report {
	lower := strings.ToLower(substr)

	files := make(map[string]struct{})
	for i := range rep.Sources {
		if strings.Contains(strings.ToLower(rep.Sources[i].SourceFile), lower) {
			files[rep.Sources[i].SourceFile] = struct{}{}
		}
	}

	var selected []model.FunctionReport
	for i := range rep.AllFunctions.Elements {
		fr := &rep.AllFunctions.Elements[i]
		if _, ok := files[fr.SourceFile]; ok {
			selected = append(selected, *fr)
		}
	}
	return withFunctions(rep, selected, files)
}

// withFunctions copies rep with a new function list. A nil files set keeps
// every source.
func withFunctions(rep *model.Report, funcs []model.FunctionReport, files map[string]struct{}) *model.Report {
	out := *rep
	out.AllFunctions = model.FunctionList{Elements: funcs}

	kept := make(map[string]struct{}, len(funcs))
	for i := range funcs {
		kept[funcs[i].Name] = struct{}{}
	}
	out.Targets = nil
	for _, t := range rep.Targets {
		if _, ok := kept[t.Function]; ok {
			out.Targets = append(out.Targets, t)
		}
	}

	if files == nil {
		return &out
	}
	out.Sources = nil
	for i := range rep.Sources {
		if _, ok := files[rep.Sources[i].SourceFile]; ok {
			out.Sources = append(out.Sources, rep.Sources[i])
		}
	}
	return &out
}
