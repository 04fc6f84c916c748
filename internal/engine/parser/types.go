package parser

import (
	"time"
)

type File struct {
	Path        string
	Language    string
	Source      []byte
	Imports     []Import
	Definitions []Definition
	// SyntaxError is the first ERROR or MISSING node, nil for a clean parse.
	SyntaxError *Location
	ParsedAt    time.Time
}

type Import struct {
	Module     string   // Dotted module name as written, relative dots stripped
	Alias      string   // Optional alias
	Items      []string // For "from X import Y, Z"
	IsRelative bool
	Location   Location
}

type Definition struct {
	Name  string
	Kind  DefinitionKind
	Index int // Declaration order among top-level definitions
	Async bool

	// Span of the def/class statement itself, excluding decorators.
	StartByte int
	EndByte   int
	StartLine int
	EndLine   int

	Decorators []string
	Parameters []string

	// Docstring is the unquoted first statement of the body when it is a string literal.
	Docstring      string
	DocstringQuote string // `"""`, `'''`, `"` or `'`; empty when there is no docstring

	BodyKinds map[string]int // tree-sitter node kinds found in the body
	Calls     []string       // callee expressions, in source order
}

type DefinitionKind int

const (
	KindFunction DefinitionKind = iota
	KindClass
)

func (k DefinitionKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

type Location struct {
	File   string
	Line   int
	Column int
}
