package extract

import (
	"strconv"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/engine/parser"
)

// BlockExtractor owns one file's block arena and its stack of open blocks.
// The block that opens last must close first.
type BlockExtractor struct {
	file   string
	blocks []Block
	open   []BlockID
}

func NewBlockExtractor(file string) *BlockExtractor {
	return &BlockExtractor{file: file}
}

// Open appends a block whose parent is the innermost open block and pushes
// it onto the stack.
func (b *BlockExtractor) Open(kind BlockKind, name string, span parser.Span) BlockID {
	id := BlockID(len(b.blocks))
	parent := b.Top()

	blk := Block{
		ID:     id,
		Kind:   kind,
		Name:   name,
		File:   b.file,
		Span:   span,
		Parent: parent,
		Depth:  len(b.open),
	}
	if parent != NoBlock {
		blk.Class = b.enclosingClass(parent)
	}

	b.blocks = append(b.blocks, blk)
	b.open = append(b.open, id)
	return id
}

func (b *BlockExtractor) enclosingClass(from BlockID) string {
	for id := from; id != NoBlock; id = b.blocks[id].Parent {
		if b.blocks[id].Kind == KindClass {
			return b.blocks[id].Name
		}
	}
	return ""
}

// Close pops id from the stack. Closing anything other than the innermost
// open block is a consistency fault.
func (b *BlockExtractor) Close(id BlockID) error {
	if len(b.open) == 0 {
		err := errors.New(errors.CodeInconsistent, "close with no open block")
		return errors.AddContext(errors.AddContext(err, errors.CtxPath, b.file), errors.CtxBlock, strconv.Itoa(int(id)))
	}
	top := b.open[len(b.open)-1]
	if top != id {
		err := errors.Newf(errors.CodeInconsistent, "close out of order: innermost open block is %d", top)
		return errors.AddContext(errors.AddContext(err, errors.CtxPath, b.file), errors.CtxBlock, strconv.Itoa(int(id)))
	}
	b.open = b.open[:len(b.open)-1]
	return nil
}

// Top returns the innermost open block, or NoBlock.
func (b *BlockExtractor) Top() BlockID {
	if len(b.open) == 0 {
		return NoBlock
	}
	return b.open[len(b.open)-1]
}

// TopKind returns the kind of the innermost open block.
func (b *BlockExtractor) TopKind() (BlockKind, bool) {
	top := b.Top()
	if top == NoBlock {
		return 0, false
	}
	return b.blocks[top].Kind, true
}

// Snapshot copies the open stack, outermost first.
func (b *BlockExtractor) Snapshot() []BlockID {
	out := make([]BlockID, len(b.open))
	copy(out, b.open)
	return out
}

// Depth is the number of open blocks.
func (b *BlockExtractor) Depth() int {
	return len(b.open)
}

// Blocks returns the arena. Callers must not modify it while the walk is
// still in progress.
func (b *BlockExtractor) Blocks() []Block {
	return b.blocks
}

// Finish verifies that every opened block was closed.
func (b *BlockExtractor) Finish() error {
	if len(b.open) != 0 {
		err := errors.Newf(errors.CodeInconsistent, "%d blocks left open", len(b.open))
		return errors.AddContext(err, errors.CtxPath, b.file)
	}
	return nil
}
