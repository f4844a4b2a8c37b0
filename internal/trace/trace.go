// Package trace persists the manager's command lifecycle events to
// SQLite for post-mortem inspection of a debug session.
package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hollis-dev/loupe/internal/schedule"
)

//go:embed schema.sql
var schemaSQL string

// Store is a durable command trace. It implements schedule.Recorder.
type Store struct {
	db *sql.DB
}

// Open creates or opens a trace database at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// Idempotent - safe to call on an existing trace.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect trace: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// RecordCommand implements schedule.Recorder. Failures are logged, not
// returned - tracing must never stall the manager worker.
func (s *Store) RecordCommand(ev schedule.CommandEvent) {
	if err := s.Write(context.Background(), ev); err != nil {
		slog.Error("trace write failed",
			"session", ev.Session,
			"seq", ev.Seq,
			"error", err,
		)
	}
}

// Write inserts one command event. ON CONFLICT DO NOTHING keeps replays
// idempotent.
func (s *Store) Write(ctx context.Context, ev schedule.CommandEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_events
		(session, seq, kind, priority, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`,
		ev.Session,
		ev.Seq,
		ev.Kind,
		int(ev.Priority),
		string(ev.Outcome),
		ev.Error,
	)
	if err != nil {
		return fmt.Errorf("write command event: %w", err)
	}
	return nil
}

// ReadSession returns a session's events in execution order.
func (s *Store) ReadSession(ctx context.Context, session string) ([]schedule.CommandEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, seq, kind, priority, outcome, error
		FROM command_events
		WHERE session = ?
		ORDER BY seq
	`, session)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", session, err)
	}
	defer rows.Close()

	var events []schedule.CommandEvent
	for rows.Next() {
		var ev schedule.CommandEvent
		var priority int
		var outcome string
		if err := rows.Scan(&ev.Session, &ev.Seq, &ev.Kind, &priority, &outcome, &ev.Error); err != nil {
			return nil, fmt.Errorf("scan command event: %w", err)
		}
		ev.Priority = schedule.Priority(priority)
		ev.Outcome = schedule.Outcome(outcome)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read session %s: %w", session, err)
	}
	return events, nil
}

// Sessions lists all recorded session tokens, oldest first. UUIDv7
// tokens sort by creation time.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT session FROM command_events ORDER BY session
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
