package parser

import (
	"fmt"
	"path/filepath"

	"gradecheck/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Parser parses files with the grammar matching their extension and hands the
// tree to that grammar's extractor.
type Parser struct {
	loader     *GrammarLoader
	extractors map[string]Extractor // language -> extractor
	pools      map[string]*ParserPool
}

type Extractor interface {
	Extract(node *sitter.Node, source []byte, filePath string) (*File, error)
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		extractors: make(map[string]Extractor),
		pools:      make(map[string]*ParserPool),
	}
	for _, lang := range loader.Names() {
		p.pools[lang] = NewParserPool(loader.Language(lang))
	}
	return p
}

// NewPythonParser is the common setup: Python grammar plus its extractor.
func NewPythonParser() (*Parser, error) {
	loader, err := NewGrammarLoader()
	if err != nil {
		return nil, err
	}
	p := NewParser(loader)
	p.RegisterExtractor("python", &PythonExtractor{})
	return p, nil
}

func (p *Parser) RegisterExtractor(lang string, e Extractor) {
	p.extractors[lang] = e
}

// ParseFile parses content as the file at path. Syntax errors do not fail the
// parse; they are reported on the returned File.
func (p *Parser) ParseFile(path string, content []byte) (*File, error) {
	lang, ok := p.loader.ForExtension(filepath.Ext(path))
	if !ok {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("unsupported file type: %s", path))
	}

	extractor := p.extractors[lang]
	if extractor == nil {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("no extractor for: %s", lang))
	}

	pool := p.pools[lang]
	if pool == nil {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
	}

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeInternal, "parse failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	res, err := extractor.Extract(root, content, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "extraction failed")
	}
	res.Language = lang
	return res, nil
}

func (p *Parser) IsSupportedPath(filePath string) bool {
	_, ok := p.loader.ForExtension(filepath.Ext(filePath))
	return ok
}
