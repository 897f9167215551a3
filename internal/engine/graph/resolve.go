package graph

import (
	"github.com/getAsterisk/stackwalk/internal/core/config"
	"github.com/getAsterisk/stackwalk/internal/engine/extract"
)

// Strategy names the rule that bound a call to its target.
type Strategy string

const (
	StrategyLocal    Strategy = "local"
	StrategyImport   Strategy = "import"
	StrategySibling  Strategy = "sibling"
	StrategyExternal Strategy = "external"
)

// Policy holds the opt-in broadenings of resolution.
type Policy struct {
	// SiblingFiles lets unqualified calls bind to module-level callables of
	// other files in the caller's directory.
	SiblingFiles bool
}

func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{SiblingFiles: cfg.Resolution.SiblingFiles}
}

// Resolver binds call sites to blocks. It is built once per run after all
// files have been merged and is not safe for concurrent use.
type Resolver struct {
	run       *Run
	symbols   *SymbolTable
	modules   *ModuleIndex
	languages map[string]config.Language
	policy    Policy

	segmenters map[string]extract.Segmenter
	bindings   map[string]fileBindings
}

// fileBindings indexes one file's imports by local name. all keeps source
// order for path-prefix matches.
type fileBindings struct {
	byLocal map[string]extract.ImportBinding
	all     []extract.ImportBinding
}

// match finds the binding a qualified callee goes through and how many of
// its leading segments the binding consumes. A binding whose whole path
// prefixes the callee ("import pkg.mod" + "pkg.mod.f()") beats a match on
// the local name alone; the longest path wins and later imports win ties.
func (fb fileBindings) match(segs []string) (extract.ImportBinding, int, bool) {
	best, ok := fb.byLocal[segs[0]]
	used := 0
	if ok {
		used = 1
	}
	for _, b := range fb.all {
		if len(b.Path) < used || len(b.Path) == 0 || len(b.Path) > len(segs) || !hasPrefix(segs, b.Path) {
			continue
		}
		best, used = b, len(b.Path)
	}
	return best, used, used > 0
}

func hasPrefix(segs, prefix []string) bool {
	for i, p := range prefix {
		if segs[i] != p {
			return false
		}
	}
	return true
}

func NewResolver(run *Run, languages map[string]config.Language, policy Policy) *Resolver {
	r := &Resolver{
		run:        run,
		symbols:    NewSymbolTable(run),
		modules:    NewModuleIndex(run, languages),
		languages:  languages,
		policy:     policy,
		segmenters: make(map[string]extract.Segmenter),
		bindings:   make(map[string]fileBindings, len(run.Files)),
	}
	for _, fr := range run.Files {
		if _, ok := r.segmenters[fr.Language]; !ok {
			r.segmenters[fr.Language] = extract.NewSegmenter(languages[fr.Language])
		}
		if len(fr.Imports) == 0 {
			continue
		}
		// A later import of the same local name shadows an earlier one.
		byLocal := make(map[string]extract.ImportBinding, len(fr.Imports))
		for _, b := range fr.Imports {
			byLocal[b.Local] = b
		}
		r.bindings[fr.Path] = fileBindings{byLocal: byLocal, all: fr.Imports}
	}
	return r
}

// Resolve returns the block a call targets and the rule that found it. An
// unresolved call yields NoBlock and StrategyExternal.
func (r *Resolver) Resolve(call extract.CallSite) (extract.BlockID, Strategy) {
	fr, ok := r.run.File(call.File)
	if !ok {
		return extract.NoBlock, StrategyExternal
	}
	seg := r.segmenters[fr.Language]
	segs := seg.Split(call.Callee)
	if len(segs) == 0 {
		return extract.NoBlock, StrategyExternal
	}
	name := segs[len(segs)-1]
	receiver := len(segs) == 2 && r.isReceiver(fr.Language, segs[0])

	switch {
	case len(segs) == 1 || receiver:
		if id, ok := r.nearest(call, name, receiver); ok {
			return id, StrategyLocal
		}
	case len(segs) == 2:
		if id, ok := r.symbols.Method(call.File, segs[0], name); ok {
			return id, StrategyLocal
		}
	}

	if !receiver {
		if id, ok := r.viaImport(fr, seg, segs); ok {
			return id, StrategyImport
		}
	}

	if r.policy.SiblingFiles && len(segs) == 1 {
		for _, sibling := range r.modules.Siblings(fr.Language, fr.Path) {
			if id, ok := r.symbols.TopLevel(sibling, name); ok {
				return id, StrategySibling
			}
		}
	}

	return extract.NoBlock, StrategyExternal
}

func (r *Resolver) isReceiver(language, seg string) bool {
	for _, recv := range r.languages[language].Receivers {
		if seg == recv {
			return true
		}
	}
	return false
}

// nearest applies lexical shadowing within the caller's file: a candidate
// is visible when its parent is on the caller's open-block stack, and the
// deepest such parent wins. Equal depth goes to the earliest definition.
// Receiver calls only consider methods; when none is visible the first
// method of that name in the file is used.
func (r *Resolver) nearest(call extract.CallSite, name string, receiver bool) (extract.BlockID, bool) {
	candidates := r.symbols.Callables(call.File, name)
	if len(candidates) == 0 {
		return extract.NoBlock, false
	}

	depth := make(map[extract.BlockID]int, len(call.Stack))
	for i, id := range call.Stack {
		depth[id] = i
	}

	best, bestDepth := extract.NoBlock, -1
	fallback := extract.NoBlock
	for _, id := range candidates {
		parent, ok := r.run.Block(r.run.Blocks[id].Parent)
		if receiver {
			if !ok || parent.Kind != extract.KindClass {
				continue
			}
			if fallback == extract.NoBlock {
				fallback = id
			}
		}
		if !ok {
			continue
		}
		if d, visible := depth[parent.ID]; visible && d > bestDepth {
			best, bestDepth = id, d
		}
	}

	if best != extract.NoBlock {
		return best, true
	}
	if receiver && fallback != extract.NoBlock {
		return fallback, true
	}
	return extract.NoBlock, false
}

// viaImport follows the import binding that prefixes the callee into the
// module it was imported from.
func (r *Resolver) viaImport(fr *extract.FileResult, seg extract.Segmenter, segs []string) (extract.BlockID, bool) {
	binding, used, ok := r.bindings[fr.Path].match(segs)
	if !ok {
		return extract.NoBlock, false
	}
	target := append(append([]string(nil), binding.Path...), segs[used:]...)
	target = seg.StripRelative(target)
	if len(target) < 2 {
		return extract.NoBlock, false
	}

	symbol := target[len(target)-1]
	owner := target[len(target)-2]
	for _, file := range r.modules.Lookup(fr.Language, target[:len(target)-1], fr.Path) {
		if id, ok := r.symbols.TopLevel(file, symbol); ok {
			return id, true
		}
		// A file named after the class it declares, e.g. Foo.java.
		if id, ok := r.symbols.Method(file, owner, symbol); ok {
			return id, true
		}
	}

	if len(target) >= 3 {
		for _, file := range r.modules.Lookup(fr.Language, target[:len(target)-2], fr.Path) {
			if id, ok := r.symbols.Method(file, owner, symbol); ok {
				return id, true
			}
		}
	}
	return extract.NoBlock, false
}
