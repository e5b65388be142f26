// Package storage keeps per-request artifacts on the local filesystem. Every
// request gets its own session directory which is removed when the request
// finishes, whatever the outcome.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionStore creates and removes session directories under a root.
type SessionStore struct {
	root   string
	logger zerolog.Logger
}

// Session is the isolated working area of a single generation request.
type Session struct {
	ID     string
	Dir    string
	Stages []StageOutput
}

// StageOutput records where a pipeline stage left its results.
type StageOutput struct {
	Stage string
	Dir   string
}

// NewSessionStore initializes a SessionStore rooted at root, creating it if needed.
func NewSessionStore(root string, logger zerolog.Logger) (*SessionStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure root: %w", err)
	}
	return &SessionStore{root: root, logger: logger}, nil
}

// Root returns the directory that holds all session directories.
func (s *SessionStore) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// Create allocates a new session with a random identifier and its own directory.
func (s *SessionStore) Create() (*Session, error) {
	if s == nil {
		return nil, errors.New("storage: no store configured")
	}
	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create session dir: %w", err)
	}
	s.logger.Debug().Str("session_id", id).Str("dir", dir).Msg("storage: session created")
	return &Session{ID: id, Dir: dir}, nil
}

// WriteArtifact persists data as <name><ext> inside the session directory and
// returns its path. The extension follows mimeType; fallbackExt is used when
// the type is unknown.
func (s *SessionStore) WriteArtifact(sess *Session, name, mimeType, fallbackExt string, data []byte) (string, error) {
	if sess == nil {
		return "", errors.New("storage: session is required")
	}
	base, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(sess.Dir, base+ExtensionFor(mimeType, fallbackExt))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("storage: write artifact: %w", err)
	}
	return path, nil
}

// StageDir returns (and creates) a named subdirectory of the session.
func (s *SessionStore) StageDir(sess *Session, name string) (string, error) {
	if sess == nil {
		return "", errors.New("storage: session is required")
	}
	base, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(sess.Dir, base)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("storage: create stage dir: %w", err)
	}
	return dir, nil
}

// Cleanup removes the session directory. It is safe to call more than once
// and never fails; problems are logged.
func (s *SessionStore) Cleanup(sess *Session) {
	if s == nil || sess == nil || sess.Dir == "" {
		return
	}
	if err := os.RemoveAll(sess.Dir); err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID).Str("dir", sess.Dir).Msg("storage: session cleanup failed")
		return
	}
	s.logger.Debug().Str("session_id", sess.ID).Msg("storage: session removed")
}

// ExtensionFor maps a MIME type to its canonical file extension (".png",
// ".mp4", ...). Unknown or empty types yield fallback.
func ExtensionFor(mimeType, fallback string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		return fallback
	}
	m := mimetype.Lookup(mimeType)
	if m == nil || m.Extension() == "" {
		return fallback
	}
	return m.Extension()
}

// sanitizeName keeps artifact names inside the session directory.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", errors.New("storage: invalid artifact name")
	}
	return name, nil
}
