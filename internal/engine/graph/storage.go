package graph

import (
	"context"
	"time"

	"github.com/getAsterisk/stackwalk/internal/engine/extract"
)

// DiagnosticRecord is a per-file problem as persisted with a run.
type DiagnosticRecord struct {
	Path     string `json:"path" yaml:"path"`
	Severity string `json:"severity" yaml:"severity"`
	Code     string `json:"code,omitempty" yaml:"code,omitempty"`
	Message  string `json:"message" yaml:"message"`
}

// Snapshot is everything one run persists.
type Snapshot struct {
	RunID       string
	Root        string
	StartedAt   time.Time
	Duration    time.Duration
	Files       int
	Blocks      []extract.Block
	Graph       *CallGraph
	Diagnostics []DiagnosticRecord
}

// RunInfo is the stored summary of a run.
type RunInfo struct {
	ID        string
	Root      string
	StartedAt time.Time
	Duration  time.Duration
	Files     int
	Blocks    int
	Edges     int
	Externals int
}

// EdgeRecord is a stored edge, addressed by node keys.
type EdgeRecord struct {
	Caller   string
	Callee   string
	File     string
	Line     int
	Count    int
	Strategy Strategy
	Resolved bool
}

// Store persists run snapshots.
type Store interface {
	SaveResult(ctx context.Context, snap *Snapshot) error
	LatestRun(ctx context.Context, root string) (*RunInfo, error)
	LoadEdges(ctx context.Context, runID string) ([]EdgeRecord, error)
	Close() error
}

// NoopStore satisfies Store without persisting anything. It is used when
// the database is disabled.
type NoopStore struct{}

var _ Store = NoopStore{}

func (NoopStore) SaveResult(context.Context, *Snapshot) error { return nil }

func (NoopStore) LatestRun(context.Context, string) (*RunInfo, error) { return nil, nil }

func (NoopStore) LoadEdges(context.Context, string) ([]EdgeRecord, error) { return nil, nil }

func (NoopStore) Close() error { return nil }
