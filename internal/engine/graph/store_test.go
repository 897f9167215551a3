package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/engine/extract"
)

func sampleSnapshot(t *testing.T, runID string, started time.Time) *Snapshot {
	t.Helper()
	utils := newFile(t, "utils.py", "python").fn("helper").end().done()
	main := newFile(t, "main.py", "python").
		imports("helper", "utils", "helper").
		fn("main").call("helper").call("helper").call("print").end().
		done()

	run := Merge([]*extract.FileResult{utils, main})
	return &Snapshot{
		RunID:     runID,
		Root:      "/repo",
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
		Files:     len(run.Files),
		Blocks:    run.Blocks,
		Graph:     Build(run, NewResolver(run, testLanguages, Policy{})),
		Diagnostics: []DiagnosticRecord{
			{Path: "broken.py", Severity: "warning", Code: "PARSE_FAILURE", Message: "syntax errors recovered"},
		},
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "nested", "index.db"), time.Second)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.SaveResult(ctx, sampleSnapshot(t, "run-1", base)))
	require.NoError(t, store.SaveResult(ctx, sampleSnapshot(t, "run-2", base.Add(time.Minute))))

	info, err := store.LatestRun(ctx, "/repo")
	require.NoError(t, err)
	assert.Equal(t, "run-2", info.ID)
	assert.Equal(t, 2, info.Files)
	assert.Equal(t, 4, info.Blocks)
	assert.Equal(t, 2, info.Edges)
	assert.Equal(t, 1, info.Externals)
	assert.Equal(t, 1500*time.Millisecond, info.Duration)
	assert.True(t, info.StartedAt.Equal(base.Add(time.Minute)))

	edges, err := store.LoadEdges(ctx, info.ID)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, EdgeRecord{
		Caller:   "main.py.main",
		Callee:   "utils.py.helper",
		File:     "main.py",
		Line:     edges[0].Line,
		Count:    2,
		Strategy: StrategyImport,
		Resolved: true,
	}, edges[0])
	assert.Equal(t, "print", edges[1].Callee)
	assert.False(t, edges[1].Resolved)
}

func TestSQLiteStoreReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	store, err := OpenStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, store.SaveResult(ctx, sampleSnapshot(t, "run-1", time.Now())))
	require.NoError(t, store.Close())

	store, err = OpenStore(path, 0)
	require.NoError(t, err)
	defer store.Close()
	info, err := store.LatestRun(ctx, "/repo")
	require.NoError(t, err)
	assert.Equal(t, "run-1", info.ID)
}

func TestSQLiteStoreLatestRunMissing(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"), 0)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.LatestRun(context.Background(), "/nowhere")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestSQLiteStoreDuplicateRunRollsBack(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"), 0)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	snap := sampleSnapshot(t, "run-1", time.Now())
	require.NoError(t, store.SaveResult(ctx, snap))
	err = store.SaveResult(ctx, snap)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInternal, errors.CodeOf(err))

	edges, err := store.LoadEdges(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestOpenStoreRejectsBadPaths(t *testing.T) {
	_, err := OpenStore("  ", 0)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "db"), 0o755))
	_, err = OpenStore(filepath.Join(dir, "db"), 0)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestOpenStoreRejectsNonDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	junk := make([]byte, 4096)
	for i := range junk {
		junk[i] = 'x'
	}
	require.NoError(t, os.WriteFile(path, junk, 0o644))

	_, err := OpenStore(path, 0)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInternal, errors.CodeOf(err))
}

func TestSQLiteStoreClosedReturnsInternal(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"), 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	ctx := context.Background()
	err = store.SaveResult(ctx, sampleSnapshot(t, "run-1", time.Now()))
	assert.Equal(t, errors.CodeInternal, errors.CodeOf(err))
	_, err = store.LatestRun(ctx, "/repo")
	assert.Equal(t, errors.CodeInternal, errors.CodeOf(err))
}

func TestSaveResultRequiresGraph(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"), 0)
	require.NoError(t, err)
	defer store.Close()
	assert.True(t, errors.IsCode(store.SaveResult(context.Background(), &Snapshot{RunID: "x"}), errors.CodeValidationError))
}

func TestNoopStore(t *testing.T) {
	var s Store = NoopStore{}
	ctx := context.Background()
	assert.NoError(t, s.SaveResult(ctx, nil))
	info, err := s.LatestRun(ctx, "/repo")
	assert.NoError(t, err)
	assert.Nil(t, info)
	assert.NoError(t, s.Close())
}
