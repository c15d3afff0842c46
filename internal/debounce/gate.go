// Package debounce suppresses repeat notifications of the same category for
// the same session inside a fixed time window.
//
// Markers are a best-effort side channel, deliberately kept out of the
// durable store: they are read and written far more often than session or
// audit rows and must never block or fail the notification path. A lost
// marker means at worst one extra notification, never a lost one.
package debounce

import (
	"time"

	"hooknotify/internal/event"
	"hooknotify/pkg/logx"
)

// windows maps each category to its debounce window. A window of zero means
// "never suppress". Categories missing from this table are treated as zero.
var windows = map[string]time.Duration{
	event.CategoryUserNotification: 2 * time.Second,
	event.CategorySessionStop:      0,
	event.CategorySubagentStop:     5 * time.Second,
	event.CategoryToolUsed:         3 * time.Second,
	event.CategoryPromptSubmitted:  0,
}

// Window returns the debounce window for a category.
func Window(category string) time.Duration {
	return windows[category]
}

// MaxWindow returns the largest configured window. Markers older than this
// can never suppress anything and are safe to prune.
func MaxWindow() time.Duration {
	var max time.Duration
	for _, w := range windows {
		if w > max {
			max = w
		}
	}
	return max
}

// MarkerStore holds the last-dispatch timestamp per (category, session) pair.
type MarkerStore interface {
	Get(category, sessionID string) (time.Time, bool, error)
	Put(category, sessionID string, at time.Time) error
	// PruneBefore drops markers older than cutoff, returning how many went.
	PruneBefore(cutoff time.Time) (int, error)
	Close() error
}

// Gate decides whether a notification is currently suppressed.
type Gate struct {
	store MarkerStore
	log   logx.Logger

	now func() time.Time
}

func NewGate(store MarkerStore, log logx.Logger) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Gate{store: store, log: log, now: time.Now}
}

// ShouldSuppress reports whether a (category, session) pair dispatched
// within its window. It fails open: a missing, unreadable, or corrupt
// marker never suppresses.
func (g *Gate) ShouldSuppress(category, sessionID string) bool {
	w := Window(category)
	if w <= 0 {
		return false
	}
	last, ok, err := g.store.Get(category, sessionID)
	if err != nil {
		g.log.Debug("marker read failed, not suppressing",
			logx.String("category", category), logx.Err(err))
		return false
	}
	if !ok {
		return false
	}
	elapsed := g.now().Sub(last)
	if elapsed < w {
		g.log.Debug("suppressed by debounce window",
			logx.String("category", category),
			logx.Duration("elapsed", elapsed),
			logx.Duration("window", w))
		return true
	}
	return false
}

// MarkDispatched records now as the pair's last dispatch time, overwriting
// any prior marker. Write failures are logged and swallowed: suppression is
// best-effort and a notification is never lost to a marker write.
func (g *Gate) MarkDispatched(category, sessionID string) {
	if err := g.store.Put(category, sessionID, g.now()); err != nil {
		g.log.Warn("marker write failed",
			logx.String("category", category),
			logx.String("session", sessionID),
			logx.Err(err))
	}
}
