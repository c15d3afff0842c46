// Package classify maps event categories to notification priorities.
package classify

import "hooknotify/internal/event"

// priorities is the fixed category table. Lower is more urgent. A category
// absent from this table is ineligible for notification: the engine drops
// it after session tracking, with no debounce check, dispatch, or audit row.
//
// prompt-submitted is intentionally absent: it mutates session state but
// never notifies.
var priorities = map[string]int{
	event.CategoryUserNotification: 1,
	event.CategorySessionStop:      2,
	event.CategorySubagentStop:     3,
	event.CategoryToolUsed:         4,
}

// Classify returns the priority for a category and whether the category is
// eligible for notification at all.
func Classify(category string) (int, bool) {
	p, ok := priorities[category]
	return p, ok
}
