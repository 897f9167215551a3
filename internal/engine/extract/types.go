package extract

import (
	"fmt"
	"strings"

	"github.com/getAsterisk/stackwalk/internal/engine/parser"
)

// BlockID indexes a block in its arena. IDs are file-local during a walk and
// become run-wide once files are merged.
type BlockID int

// NoBlock marks a root block's parent.
const NoBlock BlockID = -1

type BlockKind int

const (
	KindModule BlockKind = iota
	KindFunction
	KindMethod
	KindClass
	KindOther
)

var blockKindNames = [...]string{"module", "function", "method", "class", "other"}

func (k BlockKind) String() string {
	if k < 0 || int(k) >= len(blockKindNames) {
		return fmt.Sprintf("BlockKind(%d)", int(k))
	}
	return blockKindNames[k]
}

// Callable reports whether calls can resolve to blocks of this kind.
func (k BlockKind) Callable() bool {
	return k == KindFunction || k == KindMethod
}

func (k BlockKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *BlockKind) UnmarshalText(text []byte) error {
	for i, name := range blockKindNames {
		if name == string(text) {
			*k = BlockKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown block kind %q", string(text))
}

// Block is a structural unit of code. Anonymous blocks have an empty Name.
type Block struct {
	ID     BlockID     `json:"id" yaml:"id"`
	Kind   BlockKind   `json:"kind" yaml:"kind"`
	Name   string      `json:"name" yaml:"name"`
	File   string      `json:"file" yaml:"file"`
	Span   parser.Span `json:"span" yaml:"span"`
	Parent BlockID     `json:"parent" yaml:"parent"`
	// Class is the name of the nearest enclosing class block, if any.
	Class string `json:"class,omitempty" yaml:"class,omitempty"`
	Depth int    `json:"depth" yaml:"depth"`
}

// IsRoot reports whether b has no parent.
func (b Block) IsRoot() bool {
	return b.Parent == NoBlock
}

// ImportBinding maps a local name to the path it was imported from.
type ImportBinding struct {
	Local string      `json:"local" yaml:"local"`
	Path  []string    `json:"path" yaml:"path"`
	Span  parser.Span `json:"span" yaml:"span"`
}

// Target joins the bound path with sep, e.g. "foo::bar".
func (b ImportBinding) Target(sep string) string {
	return strings.Join(b.Path, sep)
}

// CallSite is one observed call expression with the open-block stack at the
// point it was seen. Stack runs from the file's root block to Caller.
type CallSite struct {
	Caller BlockID     `json:"caller" yaml:"caller"`
	Callee string      `json:"callee" yaml:"callee"`
	File   string      `json:"file" yaml:"file"`
	Span   parser.Span `json:"span" yaml:"span"`
	Stack  []BlockID   `json:"stack" yaml:"stack"`
}

// FileResult is everything one file contributes to a run.
type FileResult struct {
	Path         string
	Language     string
	Module       string
	Blocks       []Block
	Imports      []ImportBinding
	Calls        []CallSite
	SyntaxErrors bool
}

// Root returns the file's root block id. Every successful extraction has
// exactly one root, at index 0.
func (r *FileResult) Root() BlockID {
	if len(r.Blocks) == 0 {
		return NoBlock
	}
	return r.Blocks[0].ID
}
