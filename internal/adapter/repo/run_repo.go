package repo

import (
	"context"
	"time"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/infra"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/sqlinline"
)

// RunRepositoryPG implements domain.RunRepository on PostgreSQL.
type RunRepositoryPG struct {
	db infra.SQLExecutor
}

// NewRunRepositoryPG creates a run journal backed by marked pgx queries.
func NewRunRepositoryPG(db infra.SQLExecutor) *RunRepositoryPG {
	return &RunRepositoryPG{db: db}
}

// EnsureSchema creates the journal table when missing.
func (r *RunRepositoryPG) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, sqlinline.QCreateRunsTable)
	return err
}

// Record inserts one finished run. Re-recording the same id is a no-op.
func (r *RunRepositoryPG) Record(ctx context.Context, run *domain.Run) error {
	_, err := r.db.Exec(ctx, sqlinline.QInsertRun, runArgs(run)...)
	return err
}

// Get loads one run by id.
func (r *RunRepositoryPG) Get(ctx context.Context, id string) (*domain.Run, error) {
	run, err := scanRun(r.db.QueryRow(ctx, sqlinline.QGetRun, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// ListRecent returns the newest runs first, optionally only those with status.
func (r *RunRepositoryPG) ListRecent(ctx context.Context, limit int, status domain.RunStatus) ([]domain.Run, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListRecentRuns, limit, string(status))
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

type scanner interface {
	Scan(dest ...any) error
}

func runArgs(run *domain.Run) []any {
	return []any{
		run.ID,
		run.RequestID,
		run.Mode,
		run.EditPrompt,
		run.ScenePrompt,
		string(run.Status),
		run.ErrorKind,
		run.ErrorMessage,
		run.StartedAt.UnixMilli(),
		run.Duration.Milliseconds(),
	}
}

func scanRun(row scanner) (domain.Run, error) {
	var (
		run        domain.Run
		status     string
		startedMS  int64
		durationMS int64
	)
	if err := row.Scan(
		&run.ID,
		&run.RequestID,
		&run.Mode,
		&run.EditPrompt,
		&run.ScenePrompt,
		&status,
		&run.ErrorKind,
		&run.ErrorMessage,
		&startedMS,
		&durationMS,
	); err != nil {
		return domain.Run{}, err
	}
	run.Status = domain.RunStatus(status)
	run.StartedAt = time.UnixMilli(startedMS).UTC()
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}

var _ domain.RunRepository = (*RunRepositoryPG)(nil)
