// Package history keeps a SQLite ledger of download outcomes.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ytget/dit/internal/model"
	"github.com/ytget/dit/internal/platform"
)

// DefaultListLimit is used by List when limit is not positive
const DefaultListLimit = 50

// Entry is one recorded download event
type Entry struct {
	ID        int64
	EventID   string
	Kind      model.EventKind
	Status    model.DownloadStatus
	Title     string
	ItemURL   string
	Target    string
	Path      string
	Error     string
	CreatedAt time.Time
}

// Ledger is a SQLite-backed record of download events
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the ledger database at path
func Open(ctx context.Context, path string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("history: database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
			return nil, fmt.Errorf("history: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &Ledger{db: db, logger: slog.Default()}, nil
}

// SetLogger sets the logger used by Recorder
func (l *Ledger) SetLogger(logger *slog.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS downloads (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id   TEXT NOT NULL UNIQUE,
		kind       TEXT NOT NULL,
		status     TEXT NOT NULL,
		title      TEXT,
		item_url   TEXT,
		target     TEXT,
		path       TEXT,
		error      TEXT,
		created_at TEXT NOT NULL
	)`)
	return err
}

// Record stores one event
func (l *Ledger) Record(ctx context.Context, ev model.Event) error {
	var errText string
	if ev.Outcome.Err != nil {
		errText = ev.Outcome.Err.Error()
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO downloads (event_id, kind, status, title, item_url, target, path, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Kind.String(), ev.Status().String(), ev.Outcome.Item.Title, ev.Outcome.Item.URL,
		ev.Outcome.Target.String(), ev.Outcome.DestinationPath, errText,
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history: record %s: %w", ev.Kind, err)
	}
	return nil
}

// Recorder returns a listener that records every event it receives. Failures
// are logged and never reach the caller.
func (l *Ledger) Recorder() func(model.Event) {
	return func(ev model.Event) {
		if err := l.Record(context.Background(), ev); err != nil {
			l.logger.Warn("history record failed", slog.String("event", ev.ID), slog.Any("error", err))
		}
	}
}

// List returns up to limit most recent entries, newest first
func (l *Ledger) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, event_id, kind, status, title, item_url, target, path, error, created_at
		 FROM downloads ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                     Entry
			kind, status, createdAt               string
			title, itemURL, target, path, errText sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EventID, &kind, &status, &title, &itemURL, &target, &path, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Kind = model.EventKind(kind)
		e.Status = model.DownloadStatus(status)
		e.Title = title.String
		e.ItemURL = itemURL.String
		e.Target = target.String
		e.Path = path.String
		e.Error = errText.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.db.Close()
}
