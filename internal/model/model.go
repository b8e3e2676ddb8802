// Package model defines core data structures for the analyser and the
// serializable report it produces.
package model

// Position locates an item in a source file. Lines are 1-based and inclusive.
type Position struct {
	SourceFile string `yaml:"source_file"`
	LineStart  int    `yaml:"line_start"`
	LineEnd    int    `yaml:"line_end"`
}

// Param is one declared function parameter.
type Param struct {
	Name string
	Type string
}

// CallSite is one invocation found in a function body. Target is the resolved
// qualified name when resolution succeeded and the raw callee text otherwise.
type CallSite struct {
	Target string
	Offset int
	Line   int
}

// Assert records a call to assert() inside a function.
type Assert struct {
	Condition string   `yaml:"condition"`
	Pos       Position `yaml:"pos"`
}

// TypeKind tags the entries of a unit's type catalog.
type TypeKind string

const (
	Struct  TypeKind = "struct"
	Union   TypeKind = "union"
	Enum    TypeKind = "enum"
	Typedef TypeKind = "typedef"
	Macro   TypeKind = "preproc_def"
)

// Field is a struct or union member.
type Field struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

// Enumerator is one item of an enum.
type Enumerator struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// TypeDef is a type-catalog entry. Which of the optional fields are set
// depends on Kind.
type TypeDef struct {
	Name        string       `yaml:"name"`
	Kind        TypeKind     `yaml:"item_type"`
	Fields      []Field      `yaml:"fields,omitempty"`
	Enumerators []Enumerator `yaml:"enumerators,omitempty"`
	Type        string       `yaml:"type,omitempty"`
	Value       string       `yaml:"type_or_value,omitempty"`
	Pos         Position     `yaml:"pos"`
}

// ConditionKind is the reachability condition of a preprocessor branch.
type ConditionKind string

const (
	IfDef  ConditionKind = "ifdef"
	IfNDef ConditionKind = "ifndef"
	If     ConditionKind = "if"
	Not    ConditionKind = "not"
)

// Condition is one guard of a conditional block.
type Condition struct {
	Kind ConditionKind `yaml:"type"`
	Expr string        `yaml:"condition"`
}

// Negate returns the condition that holds in a later alternative branch.
func (c Condition) Negate() Condition {
	switch c.Kind {
	case IfDef:
		c.Kind = IfNDef
	case IfNDef:
		c.Kind = IfDef
	default:
		c.Kind = Not
	}
	return c
}

func (c Condition) String() string {
	return string(c.Kind) + " " + c.Expr
}

// ConditionalBlock is one branch of a preprocessor conditional together with
// every condition that must hold to reach it.
type ConditionalBlock struct {
	Conditions []Condition `yaml:"conditions"`
	Pos        Position    `yaml:"pos"`
}

// LineRange is the start and end line of a function.
type LineRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// CallsiteRef is the report form of a call site.
type CallsiteRef struct {
	Src string `yaml:"Src"`
	Dst string `yaml:"Dst"`
}

// FunctionReport is the per-function record of the report.
type FunctionReport struct {
	Name             string        `yaml:"functionName"`
	SourceFile       string        `yaml:"functionSourceFile"`
	LineStart        int           `yaml:"functionLinenumber"`
	LineEnd          int           `yaml:"functionLinenumberEnd"`
	LinkageType      string        `yaml:"linkageType"`
	Position         LineRange     `yaml:"func_position"`
	Complexity       int           `yaml:"CyclomaticComplexity"`
	EdgeCount        int           `yaml:"EdgeCount"`
	ICount           int           `yaml:"ICount"`
	ArgNames         []string      `yaml:"argNames"`
	ArgTypes         []string      `yaml:"argTypes"`
	ArgCount         int           `yaml:"argCount"`
	ReturnType       string        `yaml:"returnType"`
	BranchProfiles   []string      `yaml:"BranchProfiles"`
	ConstantsTouched []string      `yaml:"constantsTouched"`
	BBCount          int           `yaml:"BBCount"`
	Signature        string        `yaml:"signature"`
	Asserts          []Assert      `yaml:"assertStmts"`
	Callsites        []CallsiteRef `yaml:"Callsites"`
	Uses             int           `yaml:"functionUses"`
	Depth            int           `yaml:"functionDepth"`
	Reached          []string      `yaml:"functionsReached"`
	Rank             float64       `yaml:"rank"`
}

// SourceTypes groups a file's type catalog the way the report lays it out.
type SourceTypes struct {
	Structs     []TypeDef `yaml:"structs"`
	Typedefs    []TypeDef `yaml:"typedefs"`
	PreprocDefs []TypeDef `yaml:"preproc_defs"`
	Enums       []TypeDef `yaml:"enum"`
	Unions      []TypeDef `yaml:"union"`
}

// SourceReport is the per-file part of the report.
type SourceReport struct {
	SourceFile    string             `yaml:"source_file"`
	FunctionNames []string           `yaml:"function_names"`
	Types         SourceTypes        `yaml:"types"`
	MacroBlocks   []ConditionalBlock `yaml:"macro_blocks"`
}

// FunctionList wraps the function records.
type FunctionList struct {
	Elements []FunctionReport `yaml:"Elements"`
}

// Target is a fuzz-target candidate chosen by a post-filter.
type Target struct {
	Function              string  `yaml:"function"`
	SourceFile            string  `yaml:"source_file"`
	Oracle                string  `yaml:"oracle"`
	AccumulatedComplexity int     `yaml:"accumulated_complexity"`
	ArgCount              int     `yaml:"arg_count"`
	Rank                  float64 `yaml:"rank"`
}

// Report is the complete analysis of one project, ready for serialization.
type Report struct {
	Name            string         `yaml:"report"`
	FuzzingMethod   string         `yaml:"Fuzzing method"`
	FuzzerFilename  string         `yaml:"Fuzzer filename"`
	Sources         []SourceReport `yaml:"sources"`
	AllFunctions    FunctionList   `yaml:"All functions,omitempty"`
	IncludedHeaders []string       `yaml:"included-header-files"`
	Targets         []Target       `yaml:"targets,omitempty"`
}
