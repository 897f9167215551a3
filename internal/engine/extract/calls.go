package extract

import "github.com/getAsterisk/stackwalk/internal/engine/parser"

// CallTracker records call sites against the current block stack.
type CallTracker struct {
	file  string
	calls []CallSite
}

func NewCallTracker(file string) *CallTracker {
	return &CallTracker{file: file}
}

// Record attributes a call to the innermost open block of blocks. Calls seen
// with nothing open are dropped and Record returns false.
func (c *CallTracker) Record(blocks *BlockExtractor, callee string, span parser.Span) bool {
	caller := blocks.Top()
	if caller == NoBlock || callee == "" {
		return false
	}
	c.calls = append(c.calls, CallSite{
		Caller: caller,
		Callee: callee,
		File:   c.file,
		Span:   span,
		Stack:  blocks.Snapshot(),
	})
	return true
}

func (c *CallTracker) Calls() []CallSite {
	return c.calls
}
