// Package journal keeps a local history of handled links in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS resolutions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	requested_at TIMESTAMP NOT NULL,
	chat_id INTEGER NOT NULL,
	url TEXT NOT NULL,
	platform TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	elapsed_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_resolutions_requested_at ON resolutions(requested_at);
`

// Entry is one handled link.
type Entry struct {
	ID          int64
	RequestedAt time.Time
	ChatID      int64
	URL         string
	Platform    string
	Status      string
	Detail      string
	Elapsed     time.Duration
}

type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends one entry. RequestedAt defaults to now when unset.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.RequestedAt.IsZero() {
		e.RequestedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO resolutions (requested_at, chat_id, url, platform, status, detail, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RequestedAt, e.ChatID, e.URL, e.Platform, e.Status, e.Detail, e.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A negative limit
// returns nothing; SQLite would otherwise read it as "no limit".
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 0 {
		limit = 0
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, requested_at, chat_id, url, platform, status, detail, elapsed_ms
		 FROM resolutions ORDER BY requested_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var elapsedMS int64
		if err := rows.Scan(&e.ID, &e.RequestedAt, &e.ChatID, &e.URL, &e.Platform, &e.Status, &e.Detail, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
