package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TempScope owns a private temp directory and every file created inside it.
// Release removes all of it; call it with defer right after NewTempScope so
// cleanup also runs when the caller returns early or panics.
type TempScope struct {
	mu       sync.Mutex
	dir      string
	released bool
}

// NewTempScope creates a fresh directory under baseDir (os.TempDir when empty).
func NewTempScope(baseDir, pattern string) (*TempScope, error) {
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating temp base dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(baseDir, pattern)
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	return &TempScope{dir: dir}, nil
}

// Dir returns the scope's directory.
func (s *TempScope) Dir() string { return s.dir }

// Path returns the path of name inside the scope without creating it.
func (s *TempScope) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// WriteFile writes data to name inside the scope and returns its path.
func (s *TempScope) WriteFile(name string, data []byte) (string, error) {
	p := s.Path(name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	return p, nil
}

// Remove deletes one file early. Missing files are not an error.
func (s *TempScope) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Release deletes the directory and everything left in it. Safe to call twice.
func (s *TempScope) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	return os.RemoveAll(s.dir)
}

// WithTempScope runs fn inside a new scope and releases it on every exit path.
func WithTempScope(baseDir, pattern string, fn func(*TempScope) error) (err error) {
	scope, err := NewTempScope(baseDir, pattern)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := scope.Release(); rerr != nil && err == nil {
			err = fmt.Errorf("releasing temp dir: %w", rerr)
		}
	}()
	return fn(scope)
}
