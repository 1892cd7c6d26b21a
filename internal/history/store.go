// Package history keeps a SQLite log of finished transcription runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"multi-transcriber/internal/domain"
)

const (
	StatusDone  = "done"
	StatusError = "error"
)

// Record is one terminal pipeline outcome.
type Record struct {
	ID         int64       `json:"id"`
	Path       string      `json:"path"`
	Mode       domain.Mode `json:"mode"`
	Status     string      `json:"status"`
	Model      string      `json:"model"`
	Text       string      `json:"text,omitempty"`
	Message    string      `json:"message,omitempty"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
}

// Store wraps the SQLite database. A Store opened with an empty path
// records nothing.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	clock func() time.Time
}

// Open creates or opens the database at path.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if path == "" {
		return &Store{log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL,
    mode TEXT NOT NULL,
    status TEXT NOT NULL,
    model TEXT,
    text TEXT,
    message TEXT,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_path_mode ON runs(path, mode, finished_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init history schema: %w", err)
	}
	return nil
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes r. FinishedAt defaults to now.
func (s *Store) Append(ctx context.Context, r Record) error {
	if s.db == nil {
		return nil
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = s.clock()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = r.FinishedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(path, mode, status, model, text, message, started_at, finished_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Path, string(r.Mode), r.Status, r.Model, r.Text, r.Message,
		r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Latest returns the newest successful record for path in mode.
func (s *Store) Latest(ctx context.Context, path string, mode domain.Mode) (Record, bool, error) {
	if s.db == nil {
		return Record{}, false, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, path, mode, status, model, text, message, started_at, finished_at
		 FROM runs WHERE path = ? AND mode = ? AND status = ?
		 ORDER BY finished_at DESC, id DESC LIMIT 1`,
		path, string(mode), StatusDone)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

// List returns up to limit records for path, newest first.
func (s *Store) List(ctx context.Context, path string, limit int) ([]Record, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, mode, status, model, text, message, started_at, finished_at
		 FROM runs WHERE path = ? ORDER BY finished_at DESC, id DESC LIMIT ?`, path, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var r Record
	var mode string
	var model, text, message sql.NullString
	var started, finished int64
	if err := row.Scan(&r.ID, &r.Path, &mode, &r.Status, &model, &text, &message, &started, &finished); err != nil {
		return Record{}, err
	}
	r.Mode = domain.Mode(mode)
	r.Model = model.String
	r.Text = text.String
	r.Message = message.String
	r.StartedAt = time.UnixMilli(started)
	r.FinishedAt = time.UnixMilli(finished)
	return r, nil
}
