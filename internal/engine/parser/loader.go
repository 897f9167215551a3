package parser

import (
	"sort"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
)

var grammarConstructors = map[string]func() *sitter.Language{
	"css":        func() *sitter.Language { return sitter.NewLanguage(tree_sitter_css.Language()) },
	"go":         func() *sitter.Language { return sitter.NewLanguage(tree_sitter_go.Language()) },
	"html":       func() *sitter.Language { return sitter.NewLanguage(tree_sitter_html.Language()) },
	"java":       func() *sitter.Language { return sitter.NewLanguage(tree_sitter_java.Language()) },
	"javascript": func() *sitter.Language { return sitter.NewLanguage(tree_sitter_javascript.Language()) },
	"python":     func() *sitter.Language { return sitter.NewLanguage(tree_sitter_python.Language()) },
	"rust":       func() *sitter.Language { return sitter.NewLanguage(tree_sitter_rust.Language()) },
	"tsx":        func() *sitter.Language { return sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()) },
	"typescript": func() *sitter.Language { return sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) },
}

// SupportedGrammars lists the grammar ids compiled into the binary.
func SupportedGrammars() []string {
	ids := make([]string, 0, len(grammarConstructors))
	for id := range grammarConstructors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GrammarLoader holds one language handle and parser pool per grammar id.
type GrammarLoader struct {
	languages map[string]*sitter.Language
	pools     map[string]*ParserPool
}

// NewGrammarLoader loads every requested grammar up front. Requesting a
// grammar that is not compiled in is a NOT_SUPPORTED error.
func NewGrammarLoader(grammars []string) (*GrammarLoader, error) {
	gl := &GrammarLoader{
		languages: make(map[string]*sitter.Language, len(grammars)),
		pools:     make(map[string]*ParserPool, len(grammars)),
	}
	for _, id := range grammars {
		if _, ok := gl.languages[id]; ok {
			continue
		}
		construct, ok := grammarConstructors[id]
		if !ok {
			err := errors.Newf(errors.CodeNotSupported, "grammar %q is not available", id)
			return nil, errors.AddContext(err, errors.CtxLanguage, id)
		}
		lang := construct()
		gl.languages[id] = lang
		gl.pools[id] = NewParserPool(lang)
	}
	return gl, nil
}

func (gl *GrammarLoader) Language(grammar string) (*sitter.Language, bool) {
	lang, ok := gl.languages[grammar]
	return lang, ok
}

func (gl *GrammarLoader) Pool(grammar string) (*ParserPool, bool) {
	pool, ok := gl.pools[grammar]
	return pool, ok
}

// Grammars returns the loaded grammar ids in sorted order.
func (gl *GrammarLoader) Grammars() []string {
	ids := make([]string, 0, len(gl.languages))
	for id := range gl.languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
