package parser

import (
	"sync"
	"sync/atomic"

	"gradecheck/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParserPool leases tree-sitter parsers for one grammar. A sitter.Parser must
// not be shared between goroutines, so every parse takes its own lease.
type ParserPool struct {
	lang   *sitter.Language
	pool   sync.Pool
	leased atomic.Int64
}

// NewParserPool creates a pool for lang, which must outlive the pool.
func NewParserPool(lang *sitter.Language) *ParserPool {
	p := &ParserPool{lang: lang}
	p.pool.New = func() any {
		sp := sitter.NewParser()
		_ = sp.SetLanguage(lang)
		return sp
	}
	return p
}

// Get leases a parser set to the pool's grammar.
func (p *ParserPool) Get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	// Reset clears the language on some grammar versions.
	_ = sp.SetLanguage(p.lang)
	p.leased.Add(1)
	observability.ParsersLeased.Inc()
	return sp
}

// Put ends the lease on sp. Callers must not use sp afterwards.
func (p *ParserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	sp.Reset()
	p.leased.Add(-1)
	observability.ParsersLeased.Dec()
	p.pool.Put(sp)
}

// Leased returns the number of parsers not yet returned.
func (p *ParserPool) Leased() int {
	return int(p.leased.Load())
}
