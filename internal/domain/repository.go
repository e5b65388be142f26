package domain

import "context"

// RunRepository persists generation runs.
type RunRepository interface {
	Record(ctx context.Context, run *Run) error
	// Get returns ErrNotFound when no run has the id.
	Get(ctx context.Context, id string) (*Run, error)
	// ListRecent returns the newest runs first. An empty status matches all.
	ListRecent(ctx context.Context, limit int, status RunStatus) ([]Run, error)
}
