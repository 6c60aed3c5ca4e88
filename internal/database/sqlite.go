package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"flightres/internal/database/migrations"
	"flightres/internal/fr"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDocuments implements fr.DocumentStore on a single SQLite table.
// A write replaces the whole document row inside a transaction and records
// a revision entry alongside it.
type SQLiteDocuments struct {
	db   *sql.DB
	path string
}

// NewSQLiteDocuments opens the database at path, creating parent directories,
// and migrates it to the latest schema.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDocuments(path string, logger fr.Logger) (*SQLiteDocuments, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	if logger != nil {
		logger.Debug("sqlite document store ready", "path", path)
	}
	return &SQLiteDocuments{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: ":memory:" databases are per-connection, and the
	// stores already serialize their writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

func (s *SQLiteDocuments) ReadDocument(name string) ([]byte, bool, error) {
	var body []byte
	err := s.db.QueryRow("SELECT body FROM documents WHERE name = ?", name).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading document %s: %w", name, err)
	}
	return body, true, nil
}

func (s *SQLiteDocuments) WriteDocument(name string, data []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		name, data, now)
	if err != nil {
		return fmt.Errorf("writing document %s: %w", name, err)
	}

	_, err = tx.Exec(`
		INSERT INTO document_revisions (name, revision, size, written_at)
		SELECT ?, COALESCE(MAX(revision), 0) + 1, ?, ? FROM document_revisions WHERE name = ?`,
		name, len(data), now, name)
	if err != nil {
		return fmt.Errorf("recording revision of %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing document %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteDocuments) DeleteDocument(name string) error {
	if _, err := s.db.Exec("DELETE FROM documents WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting document %s: %w", name, err)
	}
	return nil
}

// Revision returns how many times name has been written. 0 if never.
func (s *SQLiteDocuments) Revision(name string) (int64, error) {
	var rev int64
	err := s.db.QueryRow("SELECT COALESCE(MAX(revision), 0) FROM document_revisions WHERE name = ?", name).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("reading revision of %s: %w", name, err)
	}
	return rev, nil
}

func (s *SQLiteDocuments) Location(name string) string {
	return fmt.Sprintf("sqlite:%s#%s", s.path, name)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDocuments) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDocuments) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ fr.DocumentStore = (*SQLiteDocuments)(nil)
