package graph

import (
	"github.com/getAsterisk/stackwalk/internal/engine/extract"
)

type fileSymbols struct {
	root extract.BlockID
	// callables maps a name to Function and Method blocks in source order.
	callables map[string][]extract.BlockID
}

// SymbolTable indexes the callable blocks of every file of a run by name.
type SymbolTable struct {
	run   *Run
	files map[string]*fileSymbols
}

func NewSymbolTable(run *Run) *SymbolTable {
	t := &SymbolTable{
		run:   run,
		files: make(map[string]*fileSymbols, len(run.Files)),
	}
	for _, fr := range run.Files {
		fs := &fileSymbols{
			root:      fr.Root(),
			callables: make(map[string][]extract.BlockID),
		}
		for _, b := range fr.Blocks {
			if b.Kind.Callable() && b.Name != "" {
				fs.callables[b.Name] = append(fs.callables[b.Name], b.ID)
			}
		}
		t.files[fr.Path] = fs
	}
	return t
}

// Callables returns the callable blocks of file named name, in source order.
func (t *SymbolTable) Callables(file, name string) []extract.BlockID {
	fs, ok := t.files[file]
	if !ok {
		return nil
	}
	return fs.callables[name]
}

// TopLevel returns the first callable named name defined directly in the
// file's module block.
func (t *SymbolTable) TopLevel(file, name string) (extract.BlockID, bool) {
	fs, ok := t.files[file]
	if !ok {
		return extract.NoBlock, false
	}
	for _, id := range fs.callables[name] {
		if t.run.Blocks[id].Parent == fs.root {
			return id, true
		}
	}
	return extract.NoBlock, false
}

// Method returns the first callable named name whose parent is a class
// block named class.
func (t *SymbolTable) Method(file, class, name string) (extract.BlockID, bool) {
	fs, ok := t.files[file]
	if !ok {
		return extract.NoBlock, false
	}
	for _, id := range fs.callables[name] {
		parent, ok := t.run.Block(t.run.Blocks[id].Parent)
		if ok && parent.Kind == extract.KindClass && parent.Name == class {
			return id, true
		}
	}
	return extract.NoBlock, false
}
