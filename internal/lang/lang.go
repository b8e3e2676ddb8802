// Package lang provides a language registry mapping file extensions to
// tree-sitter C/C++ grammars and the embedded subtree queries run against them.
package lang

import (
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

//go:embed queries/*.scm
var queryFS embed.FS

var whitespaceRe = regexp.MustCompile(`\s+`)

// Names of the embedded subtree queries.
const (
	QueryIf         = "if_statement"
	QueryCase       = "case_statement"
	QueryCall       = "call_expression"
	QueryEnumerator = "enumerator"
)

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language

	mu      sync.Mutex
	queries map[string]*sitter.Query
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Query returns the named embedded query compiled for this language.
// Compiled queries are cached and safe to share across goroutines.
func (l *Language) Query(name string) (*sitter.Query, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if q, ok := l.queries[name]; ok {
		return q, nil
	}
	data, err := queryFS.ReadFile(fmt.Sprintf("queries/%s.scm", name))
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	q, err := sitter.NewQuery(data, l.lang)
	if err != nil {
		return nil, fmt.Errorf("compiling query %s: %w", name, err)
	}
	if l.queries == nil {
		l.queries = make(map[string]*sitter.Query)
	}
	l.queries[name] = q
	return q, nil
}

// Languages maps language names to their configuration.
var Languages = map[string]*Language{
	"c": {
		Name:       "c",
		Extensions: []string{".c"},
		lang:       c.GetLanguage(),
	},
	"cpp": {
		Name:       "cpp",
		Extensions: []string{".cc", ".cpp", ".cxx", ".c++", ".h", ".hh", ".hpp", ".hxx", ".inl"},
		lang:       cpp.GetLanguage(),
	},
}

// Default is the grammar used when a caller has no file extension to go by.
// Headers and in-memory snippets are parsed as C++, which accepts nearly all C.
var Default = Languages["cpp"]

var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
