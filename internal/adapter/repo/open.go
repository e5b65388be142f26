package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/infra"
)

const sqlitePrefix = "sqlite:"

// Open returns the run journal selected by dsn: "postgres://..." (or
// "postgresql://...") for PostgreSQL, "sqlite:<path>" for a local file.
// An empty dsn disables the journal and returns a nil repository.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (domain.RunRepository, func(), error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, func() {}, nil
	case strings.HasPrefix(dsn, sqlitePrefix):
		path := strings.TrimPrefix(dsn, sqlitePrefix)
		if path == "" {
			return nil, nil, errors.New("run journal: empty sqlite path")
		}
		r, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("run journal: %w", err)
		}
		logger.Info().Str("driver", "sqlite").Str("path", path).Msg("run journal ready")
		return r, func() { _ = r.Close() }, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pool, err := infra.NewDBPool(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("run journal: %w", err)
		}
		r := NewRunRepositoryPG(infra.NewSQLRunner(pool, logger))
		if err := r.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run journal: %w", err)
		}
		logger.Info().Str("driver", "postgres").Msg("run journal ready")
		return r, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("run journal: unsupported dsn scheme in %q", redact(dsn))
	}
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "..."
	}
	if len(dsn) > 12 {
		return dsn[:12] + "..."
	}
	return dsn
}
