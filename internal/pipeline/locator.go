package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
)

// DirLocator finds the generate stage's result: Filename inside the most
// recently modified subdirectory of the output root.
type DirLocator struct {
	Filename string
}

func (l DirLocator) Locate(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read output root: %w", err)
	}

	var (
		latest     string
		latestTime time.Time
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestTime) {
			latest = filepath.Join(root, entry.Name())
			latestTime = info.ModTime()
		}
	}
	if latest == "" {
		return "", &domain.ResultNotFoundError{
			Root:   root,
			Reason: fmt.Sprintf("no result directory under %s", root),
		}
	}

	path := filepath.Join(latest, l.Filename)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", &domain.ResultNotFoundError{
			Root:   root,
			Reason: fmt.Sprintf("%s missing in %s", l.Filename, latest),
		}
	}
	return path, nil
}
