package graph

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/ch097711/fuzz-introspector/internal/lang"
	"github.com/ch097711/fuzz-introspector/internal/parse"
)

type file struct {
	path string
	src  string
}

func project(t *testing.T, files ...file) *Project {
	t.Helper()
	var units []*parse.Unit
	for _, f := range files {
		u, err := parse.Parse(context.Background(), lang.Default, nil, []byte(f.src), f.path)
		if err != nil {
			t.Fatalf("Parse(%s): %v", f.path, err)
		}
		units = append(units, u)
	}
	return New(units)
}

func fn(t *testing.T, p *Project, name string) *parse.Function {
	t.Helper()
	f := p.FindSource(name)
	if f == nil {
		t.Fatalf("function %q not found", name)
	}
	return f
}

func TestDepthChain(t *testing.T) {
	t.Parallel()

	p := project(t, file{"a.c", "void a(){ b(); }\nvoid b(){}\n"})
	a, b := fn(t, p, "a"), fn(t, p, "b")

	sites := p.CallSites(a)
	if len(sites) != 1 || sites[0].Target != "b" || sites[0].Line != 1 {
		t.Errorf("a call sites = %+v", sites)
	}
	if d := p.Depth(b); d != 0 {
		t.Errorf("depth(b) = %d, want 0", d)
	}
	if d := p.Depth(a); d != 1 {
		t.Errorf("depth(a) = %d, want 1", d)
	}
}

func TestDepthMutualRecursion(t *testing.T) {
	t.Parallel()

	p := project(t, file{"a.c", "void a(){ b(); }\nvoid b(){ a(); }\n"})
	if d := p.Depth(fn(t, p, "a")); d != 1 {
		t.Errorf("depth(a) = %d, want 1", d)
	}
	if d := p.Depth(fn(t, p, "b")); d != 1 {
		t.Errorf("depth(b) = %d, want 1", d)
	}
}

func TestDepthSelfRecursion(t *testing.T) {
	t.Parallel()

	p := project(t, file{"a.c", "int a(int n){ return n ? a(n-1) : 0; }\n"})
	if d := p.Depth(fn(t, p, "a")); d != 1 {
		t.Errorf("depth(a) = %d, want 1", d)
	}
}

func TestDepthLongestChain(t *testing.T) {
	t.Parallel()

	src := `void leaf(){}
void mid(){ leaf(); }
void top(){ leaf(); mid(); printf("x"); }
void loop1(){ loop2(); }
void loop2(){ loop1(); top(); }
`
	p := project(t, file{"a.c", src})
	tests := map[string]int{
		"leaf":  0,
		"mid":   1,
		"top":   2,
		"loop1": 4,
		"loop2": 3,
	}
	for name, want := range tests {
		if d := p.Depth(fn(t, p, name)); d != want {
			t.Errorf("depth(%s) = %d, want %d", name, d, want)
		}
	}
}

func TestDepthCached(t *testing.T) {
	t.Parallel()

	p := project(t, file{"a.c", "void a(){ b(); }\nvoid b(){}\n"})
	a := fn(t, p, "a")
	first := p.Depth(a)
	if p.depth[p.ordinal[a]] != first {
		t.Fatalf("depth not cached")
	}
	if again := p.Depth(a); again != first {
		t.Errorf("second Depth = %d, want %d", again, first)
	}
}

func TestFindSourceAmbiguous(t *testing.T) {
	t.Parallel()

	p := project(t,
		file{"one.c", "static void helper(){}\nvoid one(){ helper(); }\n"},
		file{"two.c", "static void helper(){}\nvoid two(){ helper(); }\n"},
	)
	if f := p.FindSource("helper"); f != nil {
		t.Errorf("FindSource(helper) = %s in %s, want nil", f.Name, f.File())
	}
	if f := p.FindSource("one"); f == nil || f.File() != "one.c" {
		t.Errorf("FindSource(one) = %v", f)
	}
	// ambiguous callees do not count towards depth
	if d := p.Depth(fn(t, p, "one")); d != 0 {
		t.Errorf("depth(one) = %d, want 0", d)
	}
	if p.Lookup("helper") == nil {
		t.Error("Lookup(helper) should return the first match")
	}
}

func TestUses(t *testing.T) {
	t.Parallel()

	src := `namespace ns { void read() {} }
void myread() {}
void a(){ ns::read(); ns::read(); }
void b(){ other::ns::read(); }
void c(){ myread(); }
`
	p := project(t, file{"a.cc", src})
	if got := p.Uses("ns::read"); got != 2 {
		t.Errorf("Uses(ns::read) = %d, want 2", got)
	}
	if got := p.Uses("read"); got != 2 {
		t.Errorf("Uses(read) = %d, want 2", got)
	}
	if got := p.Uses("myread"); got != 1 {
		t.Errorf("Uses(myread) = %d, want 1", got)
	}
	if got := p.Uses("c"); got != 0 {
		t.Errorf("Uses(c) = %d, want 0", got)
	}
}

func TestCallTree(t *testing.T) {
	t.Parallel()

	src := `void leaf(){}
void mid(){
  leaf();
}
int LLVMFuzzerTestOneInput(const char *d, int n){
  mid();
  leaf();
  memcpy(0, d, n);
  LLVMFuzzerTestOneInput(d, n);
  return 0;
}
`
	p := project(t, file{"fuzz.c", src})
	got := p.CallTree(parse.HarnessEntry)
	want := strings.Join([]string{
		"LLVMFuzzerTestOneInput fuzz.c 5",
		"  mid fuzz.c 6",
		"    leaf fuzz.c 3",
		"  leaf fuzz.c 7",
		"  memcpy fuzz.c 8",
		"  LLVMFuzzerTestOneInput fuzz.c 9",
	}, "\n") + "\n"
	if got != want {
		t.Errorf("CallTree =\n%s\nwant\n%s", got, want)
	}
	if p.CallTree("") != "" {
		t.Error("empty entry should render nothing")
	}
	if got := p.CallTree("nowhere"); got != "nowhere  -1\n" {
		t.Errorf("unknown entry = %q", got)
	}
}

func TestReachable(t *testing.T) {
	t.Parallel()

	src := `void leaf(){ strlen("x"); }
void mid(){ leaf(); }
void top(){ mid(); top(); }
`
	p := project(t, file{"a.c", src})
	got := p.Reachable("top")
	want := []string{"leaf", "mid", "strlen", "top"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Reachable(top) = %v, want %v", got, want)
	}
	if got := p.Reachable("leaf"); strings.Join(got, ",") != "leaf,strlen" {
		t.Errorf("Reachable(leaf) = %v", got)
	}
	if p.Reachable("missing") != nil {
		t.Error("unknown entry should have no reachable set")
	}
}

func TestRank(t *testing.T) {
	t.Parallel()

	src := `void hub(){}
void a(){ hub(); }
void b(){ hub(); }
void c(){ hub(); }
`
	p := project(t, file{"a.c", src})
	ranks := p.Rank()
	if len(ranks) != len(p.Functions) {
		t.Fatalf("got %d ranks for %d functions", len(ranks), len(p.Functions))
	}
	var sum float64
	for _, r := range ranks {
		sum += r
	}
	if math.Abs(sum-1) > 1e-3 {
		t.Errorf("ranks sum to %f, want 1", sum)
	}
	hub := p.ordinal[fn(t, p, "hub")]
	for i, r := range ranks {
		if i != hub && r >= ranks[hub] {
			t.Errorf("%s rank %f >= hub rank %f", p.Functions[i].Name, r, ranks[hub])
		}
	}
}

func TestPageRankEmpty(t *testing.T) {
	t.Parallel()

	if r := pageRank(nil, 0.85, 100, 1e-6); r != nil {
		t.Errorf("pageRank(nil) = %v", r)
	}
}
