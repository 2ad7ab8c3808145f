package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/ponisha-watch/internal/project"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"

	// DefaultStateFile is resolved against the working directory
	DefaultStateFile = "last_sent"
)

// Store persists the project IDs seen on the latest run
type Store interface {
	// Load returns the stored IDs. The returned set is never nil, even
	// alongside an error, so callers can log and carry on with it.
	Load(ctx context.Context) (project.SeenSet, error)

	// Save replaces the stored IDs with ids, keeping their order
	Save(ctx context.Context, ids []string) error

	Close() error
}

// Open creates the Store for backend at path
func Open(backend, path string) (Store, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(backend) {
	case "", BackendFile:
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown state backend: %s (must be 'file' or 'sqlite')", backend)
	}
}

// expandHome expands a leading ~/ to the user's home directory
func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// ensureDir creates the parent directory of path if it doesn't exist
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
