package graph

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
)

const sqliteDriverName = "sqlite"

// SQLiteStore keeps run history in a SQLite database in WAL mode.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func OpenStore(path string, busyTimeout time.Duration) (*SQLiteStore, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.Newf(errors.CodeValidationError, "store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("create store directory %q", dir))
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("open sqlite store %q", cleanPath))
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("ping sqlite store %q", cleanPath))
	}
	if err := migrateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// SaveResult writes a run and its graph in one transaction.
func (s *SQLiteStore) SaveResult(ctx context.Context, snap *Snapshot) error {
	if s == nil || s.db == nil {
		return errors.New(errors.CodeInternal, "store not initialized")
	}
	if snap == nil || snap.Graph == nil {
		return errors.New(errors.CodeValidationError, "snapshot has no graph")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "begin save tx")
	}
	if err := saveSnapshot(ctx, tx, snap); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "commit save tx")
	}
	return nil
}

func saveSnapshot(ctx context.Context, tx *sql.Tx, snap *Snapshot) error {
	stats := snap.Graph.Stats()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, root, started_at, duration_ms, files, blocks, edges, externals) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.RunID, snap.Root, snap.StartedAt.UnixNano(), snap.Duration.Milliseconds(),
		snap.Files, stats.Blocks, stats.Edges, stats.Externals,
	); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "insert run")
	}

	blockStmt, err := tx.PrepareContext(ctx, `
INSERT INTO blocks (run_id, block_id, kind, name, file_path, class, parent, start_line, start_col, end_line, end_col)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "prepare block insert")
	}
	defer blockStmt.Close()
	for _, b := range snap.Blocks {
		if _, err := blockStmt.ExecContext(ctx,
			snap.RunID, int(b.ID), b.Kind.String(), b.Name, b.File, b.Class, int(b.Parent),
			b.Span.Start.Line, b.Span.Start.Column, b.Span.End.Line, b.Span.End.Column,
		); err != nil {
			return errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("insert block (%s:%s)", b.File, b.Name))
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
INSERT INTO edges (run_id, caller_key, callee_key, file_path, line, count, strategy, resolved)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "prepare edge insert")
	}
	defer edgeStmt.Close()
	g := snap.Graph
	for _, e := range g.Edges {
		from, to := g.Nodes[e.From], g.Nodes[e.To]
		if _, err := edgeStmt.ExecContext(ctx,
			snap.RunID, from.Key, to.Key, from.File, e.First.Span.Start.Line,
			e.Count, string(e.Strategy), boolToInt(g.Resolved(e)),
		); err != nil {
			return errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("insert edge %s", g.Describe(e)))
		}
	}

	for _, n := range g.ExternalNodes() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO externals (run_id, node_id, name) VALUES (?, ?, ?)`,
			snap.RunID, int(n.ID), n.Name,
		); err != nil {
			return errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("insert external %q", n.Name))
		}
	}

	for _, d := range snap.Diagnostics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO diagnostics (run_id, path, severity, code, message) VALUES (?, ?, ?, ?, ?)`,
			snap.RunID, d.Path, d.Severity, d.Code, d.Message,
		); err != nil {
			return errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("insert diagnostic for %s", d.Path))
		}
	}
	return nil
}

// LatestRun returns the most recent run recorded for root.
func (s *SQLiteStore) LatestRun(ctx context.Context, root string) (*RunInfo, error) {
	if s == nil || s.db == nil {
		return nil, errors.New(errors.CodeInternal, "store not initialized")
	}
	var (
		info       RunInfo
		startedAt  int64
		durationMS int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, root, started_at, duration_ms, files, blocks, edges, externals
FROM runs WHERE root = ? ORDER BY started_at DESC LIMIT 1`, root).Scan(
		&info.ID, &info.Root, &startedAt, &durationMS,
		&info.Files, &info.Blocks, &info.Edges, &info.Externals,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.AddContext(errors.New(errors.CodeNotFound, "no runs recorded"), errors.CtxPath, root)
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "query latest run")
	}
	info.StartedAt = time.Unix(0, startedAt)
	info.Duration = time.Duration(durationMS) * time.Millisecond
	return &info, nil
}

// LoadEdges returns the edges stored for runID in insertion order.
func (s *SQLiteStore) LoadEdges(ctx context.Context, runID string) ([]EdgeRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New(errors.CodeInternal, "store not initialized")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT caller_key, callee_key, file_path, line, count, strategy, resolved
FROM edges WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "query edges")
	}
	defer rows.Close()

	var out []EdgeRecord
	for rows.Next() {
		var (
			rec      EdgeRecord
			strategy string
			resolved int
		)
		if err := rows.Scan(&rec.Caller, &rec.Callee, &rec.File, &rec.Line, &rec.Count, &strategy, &resolved); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan edge")
		}
		rec.Strategy = Strategy(strategy)
		rec.Resolved = resolved == 1
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "iterate edges")
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
