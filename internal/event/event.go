// Package event defines the wire format of incoming lifecycle events.
//
// One event arrives per engine invocation: a single JSON object, either on
// stdin (one-shot mode) or as an HTTP request body (serve mode).
package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Categories of lifecycle events the engine knows about. Anything else is
// carried through session tracking and then dropped as ineligible.
const (
	CategoryUserNotification = "user-notification"
	CategorySessionStop      = "session-stop"
	CategorySubagentStop     = "subagent-stop"
	CategoryToolUsed         = "tool-used"
	CategoryPromptSubmitted  = "prompt-submitted"
)

var (
	ErrEmpty     = errors.New("empty event")
	ErrNoSession = errors.New("event has no session_id")
)

// Event is one lifecycle event emitted by a coding-agent process.
//
// Payload is an open-ended map producers may attach; the engine carries it
// but never consumes it.
type Event struct {
	Category         string         `json:"category"`
	SessionID        string         `json:"session_id"`
	WorkingDirectory string         `json:"working_directory,omitempty"`
	ToolName         string         `json:"tool_name,omitempty"`
	Message          string         `json:"message,omitempty"`
	Prompt           string         `json:"prompt,omitempty"`
	Payload          map[string]any `json:"payload,omitempty"`
}

// Parse decodes and validates a single raw event.
//
// Unknown top-level keys are tolerated: producers evolve independently of
// the engine and extra metadata must not break notification flow.
func Parse(data []byte) (Event, error) {
	if len(data) == 0 {
		return Event{}, ErrEmpty
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Validate checks the minimal shape an event needs to enter the pipeline.
// A missing category is not an error here; it simply classifies as
// ineligible downstream.
func (e Event) Validate() error {
	if e.SessionID == "" {
		return ErrNoSession
	}
	return nil
}
