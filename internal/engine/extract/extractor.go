// Package extract turns one syntax tree into blocks, import bindings and call
// sites. It is driven entirely by the matcher table and knows nothing about
// any particular language.
package extract

import (
	"path/filepath"

	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/engine/matcher"
	"github.com/getAsterisk/stackwalk/internal/engine/parser"
)

// Extractor is safe for concurrent use; every call to Extract gets its own
// walk state.
type Extractor struct {
	table     *matcher.Table
	languages map[string]config.Language
}

func NewExtractor(table *matcher.Table, languages map[string]config.Language) *Extractor {
	return &Extractor{table: table, languages: languages}
}

// Extract walks root, which was parsed from the file at relPath, and returns
// its blocks, import bindings and call sites. Block ids are local to the
// file and start at zero with the module block.
func (e *Extractor) Extract(relPath, language string, root parser.Node) (*FileResult, error) {
	lang, ok := e.languages[language]
	if !ok || !e.table.Has(language) {
		return nil, errors.AddContext(
			errors.Newf(errors.CodeNotSupported, "language %q is not configured", language),
			errors.CtxPath, relPath)
	}
	if root == nil {
		return nil, errors.AddContext(errors.New(errors.CodeParseFailure, "nil syntax tree"), errors.CtxPath, relPath)
	}

	file := filepath.ToSlash(relPath)
	module := ModuleName(file, lang)
	w := &fileWalker{
		lang:   language,
		table:  e.table,
		module: module,
		blocks: NewBlockExtractor(file),
		calls:  NewCallTracker(file),
		seg:    NewSegmenter(lang),
	}
	w.callTarget, _ = e.table.Lookup(language, matcher.RoleCallTarget)
	w.nameEntries, _ = e.table.Lookup(language, matcher.RoleDefinitionName)
	w.importRoles.path, _ = e.table.Lookup(language, matcher.RoleImportPath)
	w.importRoles.name, _ = e.table.Lookup(language, matcher.RoleImportName)
	w.importRoles.alias, _ = e.table.Lookup(language, matcher.RoleImportAlias)

	implicit := NoBlock
	if e.table.Classify(language, root.Kind()).Block != matcher.RoleModule {
		implicit = w.blocks.Open(KindModule, module, root.Span())
	}

	if err := Walk(root, w); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, file)
	}
	if implicit != NoBlock {
		if err := w.blocks.Close(implicit); err != nil {
			return nil, err
		}
	}
	if err := w.blocks.Finish(); err != nil {
		return nil, err
	}

	return &FileResult{
		Path:     file,
		Language: language,
		Module:   module,
		Blocks:   w.blocks.Blocks(),
		Imports:  w.imports,
		Calls:    w.calls.Calls(),
	}, nil
}

// fileWalker is the Visitor for a single file.
type fileWalker struct {
	lang   string
	table  *matcher.Table
	module string
	seg    Segmenter

	callTarget  config.Kinds
	nameEntries config.Kinds
	importRoles importRoles

	blocks  *BlockExtractor
	calls   *CallTracker
	imports []ImportBinding

	// opened pairs every entered node with the block it opened, or NoBlock.
	opened []BlockID
}

func (w *fileWalker) Enter(n parser.Node) error {
	c := w.table.Classify(w.lang, n.Kind())

	if c.Call {
		w.calls.Record(w.blocks, calleeText(n, w.callTarget), n.Span())
	}
	if c.Import {
		w.imports = append(w.imports, bindings(n, w.importRoles, w.seg)...)
	}

	id := NoBlock
	if c.Block != "" {
		name := definitionName(n, w.nameEntries)
		if c.Block == matcher.RoleModule && name == "" && len(w.opened) == 0 {
			name = w.module
		}
		id = w.blocks.Open(w.kindFor(c.Block), name, n.Span())
	}
	w.opened = append(w.opened, id)
	return nil
}

func (w *fileWalker) Leave(parser.Node) error {
	if len(w.opened) == 0 {
		return errors.New(errors.CodeInconsistent, "leave without matching enter")
	}
	id := w.opened[len(w.opened)-1]
	w.opened = w.opened[:len(w.opened)-1]
	if id == NoBlock {
		return nil
	}
	return w.blocks.Close(id)
}

func (w *fileWalker) kindFor(role matcher.Role) BlockKind {
	switch role {
	case matcher.RoleModule:
		return KindModule
	case matcher.RoleClassDefinition:
		return KindClass
	case matcher.RoleMethodDefinition:
		return KindMethod
	case matcher.RoleFunctionDefinition:
		if k, ok := w.blocks.TopKind(); ok && k == KindClass {
			return KindMethod
		}
		return KindFunction
	default:
		return KindOther
	}
}
