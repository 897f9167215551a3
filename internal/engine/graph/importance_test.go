package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateImportanceScore(t *testing.T) {
	tests := []struct {
		fanIn, fanOut, calls int
		want                 float64
	}{
		{0, 0, 0, 0},
		{1, 0, 1, 2.1},
		{2, 3, 10, 8},
		{0, 4, 0, 4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, CalculateImportanceScore(tt.fanIn, tt.fanOut, tt.calls), 1e-9)
	}
}

func TestHotspots(t *testing.T) {
	fr := newFile(t, "a.py", "python").
		fn("util").end().
		fn("a").call("util").call("util").end().
		fn("b").call("util").call("a").end().
		fn("idle").end().
		done()

	g := buildGraph(t, Policy{}, fr)

	hot := g.Hotspots(10)
	require.Len(t, hot, 3)
	assert.Equal(t, "a.py.util", hot[0].Key)
	assert.Equal(t, 2, hot[0].FanIn)
	assert.Equal(t, 3, hot[0].Calls)
	for _, h := range hot {
		assert.NotEqual(t, "a.py.idle", h.Key)
	}

	assert.Len(t, g.Hotspots(1), 1)
	assert.Nil(t, g.Hotspots(0))
}
