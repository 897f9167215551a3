package graph

import (
	"database/sql"
	"fmt"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
)

const schemaVersion = 1

// migrateSchema creates the run tables on first open. user_version tracks
// the layout so later versions can migrate in place.
func migrateSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "read schema version")
	}
	if version >= schemaVersion {
		return nil
	}

	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id          TEXT    PRIMARY KEY,
  root        TEXT    NOT NULL,
  started_at  INTEGER NOT NULL,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  files       INTEGER NOT NULL DEFAULT 0,
  blocks      INTEGER NOT NULL DEFAULT 0,
  edges       INTEGER NOT NULL DEFAULT 0,
  externals   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_root_started ON runs(root, started_at);

CREATE TABLE IF NOT EXISTS blocks (
  run_id     TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  block_id   INTEGER NOT NULL,
  kind       TEXT    NOT NULL,
  name       TEXT    NOT NULL DEFAULT '',
  file_path  TEXT    NOT NULL,
  class      TEXT    NOT NULL DEFAULT '',
  parent     INTEGER NOT NULL,
  start_line INTEGER NOT NULL,
  start_col  INTEGER NOT NULL,
  end_line   INTEGER NOT NULL,
  end_col    INTEGER NOT NULL,
  PRIMARY KEY (run_id, block_id)
);

CREATE TABLE IF NOT EXISTS edges (
  run_id     TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  caller_key TEXT    NOT NULL,
  callee_key TEXT    NOT NULL,
  file_path  TEXT    NOT NULL,
  line       INTEGER NOT NULL DEFAULT 0,
  count      INTEGER NOT NULL DEFAULT 1,
  strategy   TEXT    NOT NULL,
  resolved   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_edges_run ON edges(run_id);

CREATE TABLE IF NOT EXISTS externals (
  run_id  TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  node_id INTEGER NOT NULL,
  name    TEXT    NOT NULL,
  PRIMARY KEY (run_id, node_id)
);

CREATE TABLE IF NOT EXISTS diagnostics (
  run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  path     TEXT NOT NULL,
  severity TEXT NOT NULL,
  code     TEXT NOT NULL DEFAULT '',
  message  TEXT NOT NULL
);
`)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("create v%d schema", schemaVersion))
	}
	if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "set schema version")
	}
	return nil
}
