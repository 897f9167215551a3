package graph

import (
	"sort"

	"github.com/getAsterisk/stackwalk/internal/engine/extract"
)

// Run is the merged view of one indexing pass. Files are ordered by path and
// their blocks occupy consecutive ranges of one arena, so a BlockID indexes
// Blocks directly.
type Run struct {
	Files  []*extract.FileResult
	Blocks []extract.Block
	Calls  []extract.CallSite

	fileIndex map[string]int
}

// Merge rebases per-file results onto one arena. Inputs are not modified;
// cached results may be merged again by a later run.
func Merge(results []*extract.FileResult) *Run {
	ordered := make([]*extract.FileResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			ordered = append(ordered, r)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Path < ordered[j].Path })

	run := &Run{
		Files:     make([]*extract.FileResult, 0, len(ordered)),
		fileIndex: make(map[string]int, len(ordered)),
	}
	for _, fr := range ordered {
		run.fileIndex[fr.Path] = len(run.Files)
		run.Files = append(run.Files, run.rebase(fr))
	}
	return run
}

func (r *Run) rebase(fr *extract.FileResult) *extract.FileResult {
	offset := extract.BlockID(len(r.Blocks))
	shift := func(id extract.BlockID) extract.BlockID {
		if id == extract.NoBlock {
			return id
		}
		return id + offset
	}

	out := *fr
	out.Blocks = make([]extract.Block, len(fr.Blocks))
	for i, b := range fr.Blocks {
		b.ID = shift(b.ID)
		b.Parent = shift(b.Parent)
		out.Blocks[i] = b
	}
	out.Calls = make([]extract.CallSite, len(fr.Calls))
	for i, c := range fr.Calls {
		c.Caller = shift(c.Caller)
		stack := make([]extract.BlockID, len(c.Stack))
		for j, id := range c.Stack {
			stack[j] = shift(id)
		}
		c.Stack = stack
		out.Calls[i] = c
	}

	r.Blocks = append(r.Blocks, out.Blocks...)
	r.Calls = append(r.Calls, out.Calls...)
	return &out
}

// File returns the merged result for path.
func (r *Run) File(path string) (*extract.FileResult, bool) {
	i, ok := r.fileIndex[path]
	if !ok {
		return nil, false
	}
	return r.Files[i], true
}

// Block returns the block with id, or false when id is outside the arena.
func (r *Run) Block(id extract.BlockID) (extract.Block, bool) {
	if id < 0 || int(id) >= len(r.Blocks) {
		return extract.Block{}, false
	}
	return r.Blocks[id], true
}
