package storage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/ponisha-watch/internal/project"
)

// FileStore keeps IDs in a newline-delimited text file
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at path. The file is not touched until Load or Save.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultStateFile
	}
	return &FileStore{path: path}
}

// Path returns the state file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file. A missing or unreadable file yields an empty set
// and an error.
func (s *FileStore) Load(ctx context.Context) (project.SeenSet, error) {
	ids, err := s.IDs(ctx)
	if err != nil {
		return project.NewSeenSet(), err
	}
	return project.NewSeenSet(ids...), nil
}

// IDs returns the stored IDs in file order. Lines are trimmed and blank lines skipped.
func (s *FileStore) IDs(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	defer f.Close()

	ids := make([]string, 0)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	return ids, nil
}

// Save writes one ID per line. The content goes to a temporary file that is
// renamed over the state file, so a failed save leaves the old state intact.
func (s *FileStore) Save(ctx context.Context, ids []string) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, id := range ids {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}

	return nil
}

// Close is a no-op; the file is opened per call
func (s *FileStore) Close() error {
	return nil
}
