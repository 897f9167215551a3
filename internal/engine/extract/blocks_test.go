package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/engine/parser"
)

func TestBlockExtractorParentsAndClass(t *testing.T) {
	b := NewBlockExtractor("a.py")
	mod := b.Open(KindModule, "a", parser.Span{})
	cls := b.Open(KindClass, "Greeter", parser.Span{})
	m := b.Open(KindMethod, "greet", parser.Span{})

	assert.Equal(t, []BlockID{mod, cls, m}, b.Snapshot())
	require.NoError(t, b.Close(m))
	require.NoError(t, b.Close(cls))
	require.NoError(t, b.Close(mod))
	require.NoError(t, b.Finish())

	blocks := b.Blocks()
	require.Len(t, blocks, 3)
	assert.Equal(t, NoBlock, blocks[0].Parent)
	assert.Equal(t, mod, blocks[1].Parent)
	assert.Equal(t, cls, blocks[2].Parent)
	assert.Equal(t, "Greeter", blocks[2].Class)
	assert.Equal(t, "", blocks[1].Class)
	assert.Equal(t, 2, blocks[2].Depth)
}

func TestBlockExtractorCloseOutOfOrder(t *testing.T) {
	b := NewBlockExtractor("a.py")
	outer := b.Open(KindModule, "a", parser.Span{})
	b.Open(KindFunction, "f", parser.Span{})

	err := b.Close(outer)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInconsistent))
	assert.Contains(t, err.Error(), "path=a.py")
}

func TestBlockExtractorCloseEmpty(t *testing.T) {
	b := NewBlockExtractor("a.py")
	err := b.Close(0)
	assert.True(t, errors.IsCode(err, errors.CodeInconsistent))
}

func TestBlockExtractorFinishWithOpenBlocks(t *testing.T) {
	b := NewBlockExtractor("a.py")
	b.Open(KindModule, "a", parser.Span{})
	assert.True(t, errors.IsCode(b.Finish(), errors.CodeInconsistent))
}

func TestSnapshotIsACopy(t *testing.T) {
	b := NewBlockExtractor("a.py")
	b.Open(KindModule, "a", parser.Span{})
	snap := b.Snapshot()
	b.Open(KindFunction, "f", parser.Span{})
	assert.Len(t, snap, 1)
}

func TestCallTrackerRecordsStack(t *testing.T) {
	b := NewBlockExtractor("a.py")
	mod := b.Open(KindModule, "a", parser.Span{})
	f := b.Open(KindFunction, "f", parser.Span{})

	c := NewCallTracker("a.py")
	assert.True(t, c.Record(b, "g", parser.Span{StartByte: 4}))
	assert.False(t, c.Record(b, "", parser.Span{}))

	calls := c.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, f, calls[0].Caller)
	assert.Equal(t, []BlockID{mod, f}, calls[0].Stack)
	assert.Equal(t, "a.py", calls[0].File)
}

func TestCallTrackerDropsCallsOutsideBlocks(t *testing.T) {
	c := NewCallTracker("a.py")
	assert.False(t, c.Record(NewBlockExtractor("a.py"), "g", parser.Span{}))
	assert.Empty(t, c.Calls())
}

func TestBlockKindText(t *testing.T) {
	for _, k := range []BlockKind{KindModule, KindFunction, KindMethod, KindClass, KindOther} {
		text, err := k.MarshalText()
		require.NoError(t, err)
		var back BlockKind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}
	var k BlockKind
	assert.Error(t, k.UnmarshalText([]byte("lambda")))
	assert.True(t, KindMethod.Callable())
	assert.False(t, KindClass.Callable())
}
