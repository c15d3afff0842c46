package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"hooknotify/pkg/logx"
)

// Store is the persistence API used by the pipeline.
//
// Writes to the same session must not lose counter increments under
// concurrent invocations; both drivers serialize writes (SQLite via a
// single connection, the file driver via a mutex).
type Store interface {
	// RecordPrompt upserts the session's last prompt and working directory,
	// creating the session with zero counters if absent.
	RecordPrompt(ctx context.Context, sessionID, prompt, workdir string) error
	// RecordToolUse increments the session's tool-use counter, creating the
	// session at 1 if absent.
	RecordToolUse(ctx context.Context, sessionID string) error
	// Session reads a session back; ok is false when it has never been seen.
	Session(ctx context.Context, sessionID string) (SessionRecord, bool, error)
	// AppendNotification appends one audit row.
	AppendNotification(ctx context.Context, rec NotificationRecord) error
	// RecordDispatch bumps the session's notification counter and
	// last-notification metadata, creating the session if absent.
	RecordDispatch(ctx context.Context, sessionID, category string, at time.Time) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "file":
		return openFile(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
