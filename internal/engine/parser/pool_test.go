package parser

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

func pythonLanguage() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_python.Language())
}

func TestParserPool_Leases(t *testing.T) {
	pool := NewParserPool(pythonLanguage())

	first, second := pool.Get(), pool.Get()
	require.NotNil(t, first)
	require.NotSame(t, first, second)
	assert.Equal(t, 2, pool.Leased())

	pool.Put(first)
	pool.Put(second)
	pool.Put(nil)
	assert.Equal(t, 0, pool.Leased())
}

func TestParserPool_ReusedParserStillParsesPython(t *testing.T) {
	pool := NewParserPool(pythonLanguage())
	pool.Put(pool.Get())

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse([]byte("def main():\n    \"\"\"Entry.\"\"\"\n    return 1\n"), nil)
	require.NotNil(t, tree)
	defer tree.Close()

	root := tree.RootNode()
	assert.False(t, root.HasError())
	assert.Equal(t, "function_definition", root.Child(0).Kind())
}

func TestParserPool_ConcurrentSubmissions(t *testing.T) {
	pool := NewParserPool(pythonLanguage())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := []byte(fmt.Sprintf("def student_%d():\n    return %d\n", i, i))
			for j := 0; j < 10; j++ {
				sp := pool.Get()
				tree := sp.Parse(src, nil)
				if tree == nil || tree.RootNode().HasError() {
					t.Errorf("submission %d: parse failed", i)
				}
				if tree != nil {
					tree.Close()
				}
				pool.Put(sp)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, pool.Leased())
}
