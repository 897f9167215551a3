package parser

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/shared/observability"
)

// Parser selects a language by file extension and parses source with the
// language's grammar.
type Parser struct {
	loader     *GrammarLoader
	extensions map[string]string // extension -> language id
	grammars   map[string]string // language id -> grammar id
}

// NewParser loads the grammars of every enabled language in cfg.
func NewParser(cfg *config.Config) (*Parser, error) {
	p := &Parser{
		extensions: make(map[string]string),
		grammars:   make(map[string]string),
	}
	var grammars []string
	for _, name := range config.EnabledLanguageNames(cfg) {
		lang := cfg.Languages[name]
		p.grammars[name] = lang.Grammar
		grammars = append(grammars, lang.Grammar)
		for _, ext := range lang.Extensions {
			p.extensions[strings.ToLower(ext)] = name
		}
	}

	loader, err := NewGrammarLoader(grammars)
	if err != nil {
		return nil, err
	}
	p.loader = loader
	return p, nil
}

// LanguageFor returns the configured language for path, or false when the
// extension is not supported.
func (p *Parser) LanguageFor(path string) (string, bool) {
	lang, ok := p.extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// SupportedExtensions returns every configured extension in sorted order.
func (p *Parser) SupportedExtensions() []string {
	exts := make([]string, 0, len(p.extensions))
	for ext := range p.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Parse builds a syntax tree for source. A grammar that cannot produce a
// root node yields a PARSE_FAILURE error; recoverable syntax errors are
// reported through Tree.HasError.
func (p *Parser) Parse(language string, source []byte) (*Tree, error) {
	grammar, ok := p.grammars[language]
	if !ok {
		err := errors.Newf(errors.CodeNotSupported, "language %q is not configured", language)
		return nil, errors.AddContext(err, errors.CtxLanguage, language)
	}
	pool, ok := p.loader.Pool(grammar)
	if !ok {
		err := errors.Newf(errors.CodeNotSupported, "grammar %q is not loaded", grammar)
		return nil, errors.AddContext(err, errors.CtxLanguage, language)
	}

	start := time.Now()
	sp := pool.Get()
	tree := sp.Parse(source, nil)
	pool.Put(sp)
	observability.ParsingDuration.WithLabelValues(language).Observe(time.Since(start).Seconds())

	if tree == nil {
		err := errors.New(errors.CodeParseFailure, "grammar produced no syntax tree")
		return nil, errors.AddContext(err, errors.CtxLanguage, language)
	}
	root := tree.RootNode()
	if root == nil {
		tree.Close()
		err := errors.New(errors.CodeParseFailure, "syntax tree has no root node")
		return nil, errors.AddContext(err, errors.CtxLanguage, language)
	}
	return NewTree(newSitterNode(root, source), root.HasError(), tree.Close), nil
}
