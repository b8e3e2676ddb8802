package lang

import (
	"testing"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".c", "c"},
		{".cc", "cpp"},
		{".cpp", "cpp"},
		{".CPP", "cpp"},
		{".h", "cpp"},
		{".hpp", "cpp"},
		{".py", ""},
		{".go", ""},
		{"", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"c", "cpp"} {
		l, ok := Languages[name]
		if !ok {
			t.Fatalf("%s language not registered", name)
		}
		if l.GetLanguage() == nil {
			t.Errorf("%s language is nil", name)
		}
	}
	if Default != Languages["cpp"] {
		t.Error("default language should be cpp")
	}
}

func TestNewParser(t *testing.T) {
	t.Parallel()

	p := Languages["c"].NewParser()
	if p == nil {
		t.Fatal("NewParser returned nil")
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()

	for _, l := range Languages {
		for _, name := range []string{QueryIf, QueryCase, QueryCall, QueryEnumerator} {
			q, err := l.Query(name)
			if err != nil {
				t.Fatalf("%s: Query(%s): %v", l.Name, name, err)
			}
			if q == nil {
				t.Fatalf("%s: query %s is nil", l.Name, name)
			}
			again, err := l.Query(name)
			if err != nil || again != q {
				t.Errorf("%s: query %s not cached", l.Name, name)
			}
		}
	}
}

func TestQueryUnknown(t *testing.T) {
	t.Parallel()

	if _, err := Default.Query("no_such_query"); err == nil {
		t.Fatal("expected error for unknown query")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	got := CollapseWhitespace("  int\n\t foo ( int   a )  ")
	if got != "int foo ( int a )" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
}
