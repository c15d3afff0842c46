package storage

// Package storage is the engine's durable persistence layer.
//
// It holds two collections:
//   - sessions: one row per agent session, with monotonic counters
//   - notifications: an append-only audit log of every dispatched alert
//
// Sessions are created lazily on the first write referencing an unseen
// session id and are never deleted here; retention is an external concern.
// Notification rows are never updated or deleted.
//
// Drivers:
//   - "sqlite": the default, a SQLite database file
//   - "file": snapshot+journal sessions plus a notifications jsonl
