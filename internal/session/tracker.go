// Package session maintains per-session aggregates from incoming events.
package session

import (
	"context"

	"hooknotify/internal/event"
	"hooknotify/internal/storage"
	"hooknotify/pkg/logx"
)

// maxPromptLen bounds the stored last_prompt.
const maxPromptLen = 500

// Tracker folds events into SessionRecords and reads them back for message
// synthesis. Store failures are logged and non-fatal: the notification flow
// continues with possibly-stale or absent state.
type Tracker struct {
	store storage.Store
	log   logx.Logger
}

func NewTracker(store storage.Store, log logx.Logger) *Tracker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Tracker{store: store, log: log}
}

// Update applies an event's session-state mutation, if it has one.
// Only prompt-submitted and tool-used events mutate state.
func (t *Tracker) Update(ctx context.Context, ev event.Event) {
	var err error
	switch ev.Category {
	case event.CategoryPromptSubmitted:
		err = t.store.RecordPrompt(ctx, ev.SessionID, truncate(ev.Prompt, maxPromptLen), ev.WorkingDirectory)
	case event.CategoryToolUsed:
		err = t.store.RecordToolUse(ctx, ev.SessionID)
	default:
		return
	}
	if err != nil {
		t.log.Warn("session update failed",
			logx.String("session", ev.SessionID),
			logx.String("category", ev.Category),
			logx.Err(err))
	}
}

// Read returns the current record for a session. A read failure is treated
// the same as an unseen session: formatting falls back to its generic paths.
func (t *Tracker) Read(ctx context.Context, sessionID string) (storage.SessionRecord, bool) {
	rec, ok, err := t.store.Session(ctx, sessionID)
	if err != nil {
		t.log.Warn("session read failed", logx.String("session", sessionID), logx.Err(err))
		return storage.SessionRecord{}, false
	}
	return rec, ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
