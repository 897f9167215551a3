package app

import (
	"time"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/engine/extract"
	"github.com/getAsterisk/stackwalk/internal/engine/graph"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a per-file problem that did not stop the run.
type Diagnostic struct {
	Path     string           `json:"path" yaml:"path"`
	Severity Severity         `json:"severity" yaml:"severity"`
	Code     errors.ErrorCode `json:"code,omitempty" yaml:"code,omitempty"`
	Message  string           `json:"message" yaml:"message"`
}

// FileOutcome records what happened to one discovered file.
type FileOutcome struct {
	Path     string `json:"path" yaml:"path"`
	Language string `json:"language" yaml:"language"`
	Blocks   int    `json:"blocks" yaml:"blocks"`
	Calls    int    `json:"calls" yaml:"calls"`
	Cached   bool   `json:"cached" yaml:"cached"`
	Failed   bool   `json:"failed,omitempty" yaml:"failed,omitempty"`
}

type Stats struct {
	Files     int           `json:"files" yaml:"files"`
	Indexed   int           `json:"indexed" yaml:"indexed"`
	Cached    int           `json:"cached" yaml:"cached"`
	Failed    int           `json:"failed" yaml:"failed"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	Blocks    int           `json:"blocks" yaml:"blocks"`
	Calls     int           `json:"calls" yaml:"calls"`
	Edges     int           `json:"edges" yaml:"edges"`
	Externals int           `json:"externals" yaml:"externals"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	// HeapMB is the Go heap in use when the run finished.
	HeapMB uint64 `json:"heap_mb" yaml:"heap_mb"`
}

// Result is everything one IndexDirectory run produces. Blocks are indexed
// by BlockID and Graph node ids equal block ids for block nodes.
type Result struct {
	RunID       string
	Root        string
	StartedAt   time.Time
	Blocks      []extract.Block
	CallStack   graph.CallStack
	Graph       *graph.CallGraph
	Files       []FileOutcome
	Diagnostics []Diagnostic
	// Skipped lists root-relative paths that were discovered but not
	// indexed because no language claims them or they are too large.
	Skipped []string
	Stats   Stats
}

// DiagnosticRecords converts the diagnostics for persistence and reports.
func (r *Result) DiagnosticRecords() []graph.DiagnosticRecord {
	out := make([]graph.DiagnosticRecord, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		out[i] = graph.DiagnosticRecord{
			Path:     d.Path,
			Severity: string(d.Severity),
			Code:     string(d.Code),
			Message:  d.Message,
		}
	}
	return out
}

// HasErrors reports whether any file failed to index.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
