package dispatch

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"hooknotify/internal/event"
	"hooknotify/pkg/logx"
)

// localTimeout bounds one desktop notification call so a wedged notifier
// daemon cannot stall the pipeline.
const localTimeout = 3 * time.Second

// localCategories is the fixed whitelist of categories that surface on the
// desktop. Everything else stays remote-only.
var localCategories = map[string]bool{
	event.CategoryUserNotification: true,
	event.CategorySessionStop:      true,
}

// localTitles maps categories to notification titles.
var localTitles = map[string]string{
	event.CategoryUserNotification: "⚠️ Coding Agent",
	event.CategorySessionStop:      "✅ Coding Agent",
	event.CategoryToolUsed:         "⚙️ Coding Agent",
	event.CategorySubagentStop:     "🤖 Coding Agent",
}

const defaultLocalTitle = "Coding Agent"

// Desktop raises host-native notifications (osascript on macOS, notify-send
// elsewhere).
type Desktop struct {
	log logx.Logger

	goos string
	// run executes the notification command; replaced in tests.
	run func(ctx context.Context, name string, args ...string) error
}

// NewDesktop probes for a notification facility on this host. The second
// return value reports availability; callers fall back to NoopLocal when
// it is false.
func NewDesktop(log logx.Logger) (*Desktop, bool) {
	if log.IsZero() {
		log = logx.Nop()
	}
	name, _ := notifyCommand(runtime.GOOS, "", "")
	if name == "" {
		return nil, false
	}
	if _, err := exec.LookPath(name); err != nil {
		log.Debug("no desktop notification facility", logx.String("binary", name))
		return nil, false
	}
	d := &Desktop{
		log:  log.With(logx.String("channel", "desktop")),
		goos: runtime.GOOS,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
	return d, true
}

// Dispatch shows the message for whitelisted categories. Any failure is
// logged and swallowed.
func (d *Desktop) Dispatch(message, category string) {
	if !localCategories[category] {
		return
	}
	title := localTitles[category]
	if title == "" {
		title = defaultLocalTitle
	}

	name, args := notifyCommand(d.goos, title, message)
	if name == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), localTimeout)
	defer cancel()
	if err := d.run(ctx, name, args...); err != nil {
		d.log.Warn("desktop notification failed", logx.Err(err))
		return
	}
	d.log.Debug("desktop notification shown", logx.String("category", category))
}

// notifyCommand builds the platform notification invocation. Returns an
// empty name on platforms with no supported facility.
func notifyCommand(goos, title, body string) (string, []string) {
	switch goos {
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s" sound name "Glass"`,
			escapeAppleScript(body), escapeAppleScript(title))
		return "osascript", []string{"-e", script}
	case "linux":
		return "notify-send", []string{title, body}
	default:
		return "", nil
	}
}

// escapeAppleScript escapes for a double-quoted AppleScript string literal.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
