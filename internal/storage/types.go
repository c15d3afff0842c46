package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// SessionRecord is the per-session aggregate.
//
// ToolUseCount and NotificationCount only ever grow. CreatedAt is set on
// first write and never changes afterwards.
type SessionRecord struct {
	SessionID                string
	CreatedAt                time.Time
	LastPrompt               string
	WorkingDirectory         string
	ToolUseCount             int
	NotificationCount        int
	LastNotificationCategory string
	LastNotificationTime     time.Time
}

// NotificationRecord is one row of the append-only dispatch audit log.
//
// WasBatched is reserved: no batching is implemented and the field is
// always false, but the schema keeps the column so the log stays stable if
// batching ever lands.
type NotificationRecord struct {
	ID         int64
	SessionID  string
	Category   string
	Message    string
	SentAt     time.Time
	WasBatched bool
}
