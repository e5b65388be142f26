package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
)

// RunRepositorySQLite implements domain.RunRepository on a local SQLite file.
type RunRepositorySQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the journal database at path.
func OpenSQLite(ctx context.Context, path string) (*RunRepositorySQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer at a time; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	r := &RunRepositorySQLite{db: db}
	if err := r.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *RunRepositorySQLite) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS generation_runs (
  id            TEXT PRIMARY KEY,
  request_id    TEXT NOT NULL DEFAULT '',
  mode          TEXT NOT NULL,
  edit_prompt   TEXT NOT NULL DEFAULT '',
  scene_prompt  TEXT NOT NULL DEFAULT '',
  status        TEXT NOT NULL,
  error_kind    TEXT NOT NULL DEFAULT '',
  error_message TEXT NOT NULL DEFAULT '',
  started_at_ms INTEGER NOT NULL,
  duration_ms   INTEGER NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("create generation_runs: %w", err)
	}
	return nil
}

// Record inserts one finished run. Re-recording the same id is a no-op.
func (r *RunRepositorySQLite) Record(ctx context.Context, run *domain.Run) error {
	_, err := r.db.ExecContext(ctx, `
INSERT OR IGNORE INTO generation_runs (
  id, request_id, mode, edit_prompt, scene_prompt,
  status, error_kind, error_message, started_at_ms, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, runArgs(run)...)
	return err
}

// Get loads one run by id.
func (r *RunRepositorySQLite) Get(ctx context.Context, id string) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, request_id, mode, edit_prompt, scene_prompt,
       status, error_kind, error_message, started_at_ms, duration_ms
FROM generation_runs
WHERE id = ?;
`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// ListRecent returns the newest runs first, optionally only those with status.
func (r *RunRepositorySQLite) ListRecent(ctx context.Context, limit int, status domain.RunStatus) ([]domain.Run, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, request_id, mode, edit_prompt, scene_prompt,
       status, error_kind, error_message, started_at_ms, duration_ms
FROM generation_runs
WHERE (?1 = '' OR status = ?1)
ORDER BY started_at_ms DESC
LIMIT ?2;
`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *RunRepositorySQLite) Close() error {
	return r.db.Close()
}

var _ domain.RunRepository = (*RunRepositorySQLite)(nil)
