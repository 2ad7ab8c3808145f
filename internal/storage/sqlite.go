package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pfrederiksen/ponisha-watch/internal/project"

	_ "modernc.org/sqlite"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS seen_projects (
	position INTEGER PRIMARY KEY,
	id TEXT NOT NULL
);
`

// SQLiteStore keeps IDs in a SQLite database, ordered by page position
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and creates the table if needed
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultStateFile + ".db"
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns all stored IDs. On failure the set is empty.
func (s *SQLiteStore) Load(ctx context.Context) (project.SeenSet, error) {
	ids, err := s.IDs(ctx)
	if err != nil {
		return project.NewSeenSet(), err
	}
	return project.NewSeenSet(ids...), nil
}

// IDs returns the stored IDs in saved order
func (s *SQLiteStore) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM seen_projects ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("storage: query seen projects: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan seen project: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Save replaces the stored IDs in a single transaction
func (s *SQLiteStore) Save(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_projects`); err != nil {
		return fmt.Errorf("storage: clear seen projects: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO seen_projects (position, id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("storage: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i, id); err != nil {
			return fmt.Errorf("storage: insert seen project %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
