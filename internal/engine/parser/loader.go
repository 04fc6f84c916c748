package parser

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Grammar ties a tree-sitter language to the file extensions it parses.
type Grammar struct {
	Name       string
	Extensions []string
	Language   *sitter.Language
}

// PythonGrammar is the only grammar submissions are parsed with.
func PythonGrammar() Grammar {
	return Grammar{
		Name:       "python",
		Extensions: []string{".py"},
		Language:   sitter.NewLanguage(tree_sitter_python.Language()),
	}
}

// GrammarLoader holds the grammars a Parser routes files to.
type GrammarLoader struct {
	grammars    map[string]Grammar
	byExtension map[string]string
}

// NewGrammarLoader registers grammars, or the Python grammar when none are
// given. Two grammars may not claim the same extension.
func NewGrammarLoader(grammars ...Grammar) (*GrammarLoader, error) {
	if len(grammars) == 0 {
		grammars = []Grammar{PythonGrammar()}
	}

	gl := &GrammarLoader{
		grammars:    make(map[string]Grammar, len(grammars)),
		byExtension: make(map[string]string),
	}
	for _, g := range grammars {
		if g.Language == nil {
			return nil, fmt.Errorf("grammar %q has no language", g.Name)
		}
		for _, ext := range g.Extensions {
			ext = strings.ToLower(ext)
			if other, ok := gl.byExtension[ext]; ok && other != g.Name {
				return nil, fmt.Errorf("extension %q claimed by both %q and %q", ext, other, g.Name)
			}
			gl.byExtension[ext] = g.Name
		}
		gl.grammars[g.Name] = g
	}
	return gl, nil
}

func (gl *GrammarLoader) Language(name string) *sitter.Language {
	return gl.grammars[name].Language
}

// Names returns the registered grammar names in sorted order.
func (gl *GrammarLoader) Names() []string {
	names := make([]string, 0, len(gl.grammars))
	for name := range gl.grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForExtension returns the grammar name for ext, such as ".py".
func (gl *GrammarLoader) ForExtension(ext string) (string, bool) {
	name, ok := gl.byExtension[strings.ToLower(ext)]
	return name, ok
}
