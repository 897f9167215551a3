package parser

import (
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

func pythonLanguage() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_python.Language())
}

func TestParserPoolLeases(t *testing.T) {
	pool := NewParserPool(pythonLanguage())

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if pool.Leased() != 1 {
		t.Errorf("expected 1 leased parser, got %d", pool.Leased())
	}
	pool.Put(sp)
	if pool.Leased() != 0 {
		t.Errorf("expected 0 leased parsers, got %d", pool.Leased())
	}

	pool.Put(nil)
	if pool.Leased() != 0 {
		t.Errorf("expected Put(nil) to be a no-op, got %d leased", pool.Leased())
	}
}

func TestParserPoolConcurrent(t *testing.T) {
	pool := NewParserPool(pythonLanguage())
	src := []byte("def f():\n    g()\n")

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sp := pool.Get()
			defer pool.Put(sp)
			tree := sp.Parse(src, nil)
			if tree == nil {
				errs <- "nil tree"
				return
			}
			defer tree.Close()
			if kind := tree.RootNode().Kind(); kind != "module" {
				errs <- kind
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("unexpected parse result: %s", e)
	}
}
