// Package store persists the client session log: watchlist toggles and
// section refreshes, with outcome and latency, queryable for the console's
// log view.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"signalboard/internal/refresh"
	"signalboard/internal/watchlist"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ watchlist.Recorder = (*SessionStore)(nil)
var _ refresh.Recorder = (*SessionStore)(nil)

// Entry is one session log row.
type Entry struct {
	ID        int64
	Timestamp time.Time
	Kind      string // "toggle" or "refresh"
	Target    string // symbol or section name
	Action    string // "add", "remove", or "refresh"
	OK        bool
	Detail    string // error text when not OK
	ElapsedMS int64
}

// SessionStore records session activity in a SQLite database.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore opens (or creates) the session database at dbPath and
// ensures the schema exists.
func NewSessionStore(dbPath string) (*SessionStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating session db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing session db: %w", err)
	}
	return &SessionStore{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS session_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ts         TEXT    NOT NULL,
	kind       TEXT    NOT NULL,
	target     TEXT    NOT NULL,
	action     TEXT    NOT NULL,
	ok         INTEGER NOT NULL,
	detail     TEXT    NOT NULL DEFAULT '',
	elapsed_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_log_ts ON session_log (ts);
`

// Close closes the underlying database connection.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// RecordToggle logs a watchlist toggle outcome.
func (s *SessionStore) RecordToggle(ctx context.Context, symbol, action string, err error, elapsed time.Duration) {
	s.insert(ctx, "toggle", symbol, action, err, elapsed)
}

// RecordRefresh logs a section refresh outcome.
func (s *SessionStore) RecordRefresh(ctx context.Context, section string, err error, elapsed time.Duration) {
	s.insert(ctx, "refresh", section, "refresh", err, elapsed)
}

func (s *SessionStore) insert(ctx context.Context, kind, target, action string, opErr error, elapsed time.Duration) {
	ok := 1
	detail := ""
	if opErr != nil {
		ok = 0
		detail = opErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_log (ts, kind, target, action, ok, detail, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), kind, target, action, ok, detail, elapsed.Milliseconds())
	if err != nil {
		// The log is best-effort; a write failure must not disturb the
		// operation being recorded, but leave a trace for diagnosis.
		slog.Debug("session log write failed", "kind", kind, "target", target, "error", err)
	}
}

// Recent returns the newest entries, most recent first, up to limit.
func (s *SessionStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, kind, target, action, ok, detail, elapsed_ms
		 FROM session_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying session log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		var ok int
		if err := rows.Scan(&e.ID, &ts, &e.Kind, &e.Target, &e.Action, &ok, &e.Detail, &e.ElapsedMS); err != nil {
			return nil, fmt.Errorf("scanning session log row: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.OK = ok == 1
		out = append(out, e)
	}
	return out, rows.Err()
}
