package toon

import (
	"strings"
	"testing"

	"github.com/ch097711/fuzz-introspector/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"true keyword", "true", `"true"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "0.2500", "0.2500"},
		{"comma", "a,b", `"a,b"`},
		{"scoped name", "ns::parse", `"ns::parse"`},
		{"call src", "src/a.c:12,1", `"src/a.c:12,1"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "buf[4]", `"buf[4]"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/main.c", "src/main.c"},
		{"signature", "parse(char *buf)", "parse(char *buf)"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	rep := &model.Report{
		Name:           "proj",
		FuzzerFilename: "fuzz.c",
		Sources: []model.SourceReport{
			{
				SourceFile:    "src/a.c",
				FunctionNames: []string{"main", "helper"},
				Types: model.SourceTypes{
					Structs: []model.TypeDef{{Name: "S", Kind: model.Struct, Pos: model.Position{LineStart: 3}}},
				},
			},
		},
		AllFunctions: model.FunctionList{Elements: []model.FunctionReport{
			{
				Name: "main", SourceFile: "src/a.c", LineStart: 5, LineEnd: 9,
				Complexity: 2, Depth: 1, Rank: 0.75, Signature: "main()",
				Callsites: []model.CallsiteRef{{Src: "src/a.c:6,1", Dst: "helper"}},
			},
			{
				Name: "helper", SourceFile: "src/a.c", LineStart: 1, LineEnd: 2,
				Complexity: 1, Uses: 1, Rank: 0.25, Signature: "helper(int x)",
			},
		}},
		IncludedHeaders: []string{"stdio.h"},
		Targets:         []model.Target{{Oracle: "keyword", Function: "helper", SourceFile: "src/a.c", AccumulatedComplexity: 31, ArgCount: 1}},
	}

	lines := strings.Split(Encode(rep), "\n")
	want := []string{
		"report: proj",
		"fuzzer: fuzz.c",
		"sources[1]{path,functions,macro_blocks}:",
		"  src/a.c,2,0",
		"functions[2]{file,name,start,end,complexity,depth,uses,rank,signature}:",
		"  src/a.c,main,5,9,2,1,0,0.7500,main()",
		"  src/a.c,helper,1,2,1,0,1,0.2500,helper(int x)",
		"callsites[1]{caller,callee,src}:",
		`  main,helper,"src/a.c:6,1"`,
		"types[1]{file,name,kind,line}:",
		"  src/a.c,S,struct,3",
		"targets[1]{oracle,function,file,accumulated,args}:",
		"  keyword,helper,src/a.c,31,1",
		"headers[1]: stdio.h",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), strings.Join(lines, "\n"))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := Encode(&model.Report{Name: "empty"})
	if !strings.Contains(got, "sources[0]{path,functions,macro_blocks}:") {
		t.Errorf("expected empty sources section, got:\n%s", got)
	}
	if !strings.Contains(got, "functions[0]{") {
		t.Errorf("expected empty functions section, got:\n%s", got)
	}
	if strings.Contains(got, "callsites[") || strings.Contains(got, "targets[") {
		t.Errorf("optional sections should be omitted, got:\n%s", got)
	}
}
