// Package history keeps a local log of conversions in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get for unknown IDs
var ErrNotFound = errors.New("conversion not found")

// Status is the outcome of a conversion
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusBlocked   Status = "blocked"
)

// Entry is one recorded conversion
type Entry struct {
	ID           string        `json:"id" yaml:"id"`
	SourcePath   string        `json:"source_path" yaml:"source_path"`
	OutputPath   string        `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	TargetFormat string        `json:"target_format" yaml:"target_format"`
	Watermarked  bool          `json:"watermarked" yaml:"watermarked"`
	Pages        int           `json:"pages" yaml:"pages"`
	Blocks       int           `json:"blocks" yaml:"blocks"`
	Tables       int           `json:"tables" yaml:"tables"`
	Status       Status        `json:"status" yaml:"status"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
}

// timeLayout has a fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the history database
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			source_path TEXT NOT NULL,
			output_path TEXT,
			target_format TEXT NOT NULL,
			watermarked INTEGER NOT NULL DEFAULT 0,
			pages INTEGER NOT NULL DEFAULT 0,
			blocks INTEGER NOT NULL DEFAULT 0,
			tables INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores an entry, assigning an ID and timestamp when missing
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions
			(id, source_path, output_path, target_format, watermarked, pages, blocks, tables, status, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SourcePath, e.OutputPath, e.TargetFormat, e.Watermarked, e.Pages, e.Blocks, e.Tables,
		string(e.Status), e.Error, e.Duration.Milliseconds(), e.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("inserting conversion: %w", err)
	}
	return e, nil
}

const selectColumns = `id, source_path, output_path, target_format, watermarked, pages, blocks, tables,
	status, error, duration_ms, created_at`

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM conversions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying conversions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given ID
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM conversions WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e          Entry
		output     sql.NullString
		errText    sql.NullString
		status     string
		durationMS int64
		createdAt  string
	)
	err := sc.Scan(&e.ID, &e.SourcePath, &output, &e.TargetFormat, &e.Watermarked, &e.Pages, &e.Blocks,
		&e.Tables, &status, &errText, &durationMS, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scanning conversion: %w", err)
	}

	e.OutputPath = output.String
	e.Error = errText.String
	e.Status = Status(status)
	e.Duration = time.Duration(durationMS) * time.Millisecond
	if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return Entry{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return e, nil
}
