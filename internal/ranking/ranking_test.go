package ranking

import (
	"testing"

	"github.com/ch097711/fuzz-introspector/internal/model"
)

func makeReport() *model.Report {
	return &model.Report{
		Name: "test",
		Sources: []model.SourceReport{
			{SourceFile: "src/a.c", FunctionNames: []string{"a"}},
			{SourceFile: "src/b.c", FunctionNames: []string{"b"}},
			{SourceFile: "lib/c.c", FunctionNames: []string{"c"}},
		},
		AllFunctions: model.FunctionList{Elements: []model.FunctionReport{
			{Name: "a", SourceFile: "src/a.c", Rank: 0.2, Callsites: []model.CallsiteRef{{Src: "src/a.c:2,1", Dst: "b"}}},
			{Name: "b", SourceFile: "src/b.c", Rank: 0.5, Callsites: []model.CallsiteRef{{Src: "src/b.c:2,1", Dst: "c"}}},
			{Name: "c", SourceFile: "lib/c.c", Rank: 0.3},
		}},
		Targets: []model.Target{{Function: "a"}, {Function: "c"}},
	}
}

func names(rep *model.Report) []string {
	var out []string
	for _, fr := range rep.AllFunctions.Elements {
		out = append(out, fr.Name)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSelectFunctionsAll(t *testing.T) {
	t.Parallel()

	rep := makeReport()
	for _, n := range []int{0, 3, 5} {
		if got := SelectFunctions(rep, n); got != rep {
			t.Errorf("SelectFunctions(%d) should return original", n)
		}
	}
}

func TestSelectFunctionsSubset(t *testing.T) {
	t.Parallel()

	rep := makeReport()
	got := SelectFunctions(rep, 2)
	if want := []string{"b", "c"}; !equal(names(got), want) {
		t.Errorf("functions = %v, want %v (declaration order kept)", names(got), want)
	}
	if len(got.Sources) != 3 {
		t.Errorf("sources = %d, want all 3", len(got.Sources))
	}
	if len(got.Targets) != 1 || got.Targets[0].Function != "c" {
		t.Errorf("targets = %+v", got.Targets)
	}
	if len(rep.AllFunctions.Elements) != 3 {
		t.Error("original report mutated")
	}
}

func TestFilterBySymbol(t *testing.T) {
	t.Parallel()

	got := FilterBySymbol(makeReport(), "B")
	if want := []string{"a", "b", "c"}; !equal(names(got), want) {
		t.Errorf("functions = %v, want %v", names(got), want)
	}

	got = FilterBySymbol(makeReport(), "c")
	if want := []string{"b", "c"}; !equal(names(got), want) {
		t.Errorf("functions = %v, want %v", names(got), want)
	}
	if len(got.Sources) != 2 || got.Sources[0].SourceFile != "src/b.c" {
		t.Errorf("sources = %+v", got.Sources)
	}

	got = FilterBySymbol(makeReport(), "zzz")
	if len(got.AllFunctions.Elements) != 0 || len(got.Sources) != 0 {
		t.Errorf("expected empty report, got %v", names(got))
	}
}

func TestFilterByFile(t *testing.T) {
	t.Parallel()

	got := FilterByFile(makeReport(), "SRC/")
	if want := []string{"a", "b"}; !equal(names(got), want) {
		t.Errorf("functions = %v, want %v", names(got), want)
	}
	if len(got.Sources) != 2 {
		t.Errorf("sources = %d, want 2", len(got.Sources))
	}
	if len(got.Targets) != 1 || got.Targets[0].Function != "a" {
		t.Errorf("targets = %+v", got.Targets)
	}
}
