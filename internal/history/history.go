// Package history keeps a local journal of ingestion runs so
// operators can see what was indexed when, independent of the search
// index itself.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	docerr "github.com/WhiteShieldPT/docsearch-pt/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id     TEXT NOT NULL,
	dir         TEXT NOT NULL,
	new_only    INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	total       INTEGER NOT NULL DEFAULT 0,
	indexed     INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// Run is one journal entry.
type Run struct {
	ID         int64
	TaskID     string
	Dir        string
	NewOnly    bool
	Status     string
	Total      int
	Indexed    int
	Skipped    int
	Failed     int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Journal is the sqlite-backed run log.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, docerr.New(docerr.ErrCodeFolderNotFound,
			fmt.Sprintf("cannot create history directory for %s", path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, docerr.InternalError("cannot open history database", err)
	}
	// One writer at a time keeps sqlite happy under concurrent runs.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, docerr.InternalError("cannot initialize history schema", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one finished run.
func (j *Journal) Record(ctx context.Context, run Run) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (task_id, dir, new_only, status, total, indexed, skipped, failed, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.TaskID, run.Dir, run.NewOnly, run.Status,
		run.Total, run.Indexed, run.Skipped, run.Failed, run.Error,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return docerr.InternalError("cannot record run", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, task_id, dir, new_only, status, total, indexed, skipped, failed, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, docerr.InternalError("cannot query runs", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.TaskID, &r.Dir, &r.NewOnly, &r.Status,
			&r.Total, &r.Indexed, &r.Skipped, &r.Failed, &r.Error,
			&r.StartedAt, &r.FinishedAt); err != nil {
			return nil, docerr.InternalError("cannot scan run", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
