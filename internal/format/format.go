// Package format renders channel-agnostic notification text.
//
// Render is pure: no I/O, no clock. Identical inputs always produce
// byte-identical output, which is what makes the pipeline testable.
package format

import (
	"fmt"
	"path/filepath"
	"strings"

	"hooknotify/internal/event"
	"hooknotify/internal/storage"
)

// fallbackProject labels messages when no working directory is known.
const fallbackProject = "agent"

// maxEchoLen bounds the raw-message echo in the user-notification fallback.
const maxEchoLen = 50

// Render builds the human-readable message for one event. sess may be nil
// when the session has never been seen or the store read failed.
func Render(category string, ev event.Event, sess *storage.SessionRecord) string {
	project := projectLabel(ev, sess)

	switch category {
	case event.CategoryUserNotification:
		return renderUserNotification(project, ev.Message)

	case event.CategorySessionStop:
		if sess != nil && sess.ToolUseCount > 0 {
			return fmt.Sprintf("✅ %s: Task done (%d tools used)", project, sess.ToolUseCount)
		}
		return fmt.Sprintf("✅ %s: Task completed", project)

	case event.CategoryToolUsed:
		tool := ev.ToolName
		if tool == "" {
			tool = "unknown"
		}
		if sess != nil {
			return fmt.Sprintf("⚙️ %s: Used %s (#%d)", project, tool, sess.ToolUseCount)
		}
		return fmt.Sprintf("⚙️ %s: Used %s", project, tool)

	case event.CategorySubagentStop:
		return fmt.Sprintf("🤖 %s: Subagent completed", project)
	}

	return fmt.Sprintf("%s: %s", project, category)
}

// renderUserNotification picks a short phrase by case-insensitive keyword
// match. Precedence is fixed: permission, then waiting, then approval; a
// message matching several keywords takes the first branch.
func renderUserNotification(project, message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "permission"):
		return fmt.Sprintf("🔐 %s: Permission needed", project)
	case strings.Contains(lower, "waiting"):
		return fmt.Sprintf("⏸️ %s: Waiting for input", project)
	case strings.Contains(lower, "approval"):
		return fmt.Sprintf("✋ %s: Approval needed", project)
	}
	echo := message
	if len(echo) > maxEchoLen {
		echo = echo[:maxEchoLen]
	}
	return fmt.Sprintf("ℹ️ %s: %s", project, echo)
}

// projectLabel derives a short label from the last path segment of the
// working directory, preferring the event's own directory over the
// session's last known one.
func projectLabel(ev event.Event, sess *storage.SessionRecord) string {
	dir := ev.WorkingDirectory
	if dir == "" && sess != nil {
		dir = sess.WorkingDirectory
	}
	if dir == "" {
		return fallbackProject
	}
	return filepath.Base(dir)
}
