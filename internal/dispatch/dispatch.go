// Package dispatch fans formatted messages out to delivery channels.
//
// The remote channel is fire-and-forget: the pipeline never waits on it,
// never sees its errors, and never retries. The local channel is synchronous
// but bounded by a short timeout. Failure of either channel is invisible to
// the other and to the audit recorder: a notification counts as sent once
// dispatch was attempted, not once delivery is confirmed.
package dispatch

// RemoteChannel delivers a message to a remote provider asynchronously.
type RemoteChannel interface {
	// Dispatch launches the send and returns immediately. The process may
	// exit before the send completes.
	Dispatch(message string)
}

// LocalChannel raises a host-native notification for whitelisted categories.
type LocalChannel interface {
	// Dispatch blocks briefly (bounded by a timeout) and swallows failures.
	Dispatch(message, category string)
}

// NoopRemote is the remote channel used when Telegram is not configured.
type NoopRemote struct{}

func (NoopRemote) Dispatch(string) {}

// NoopLocal is the local channel used when no desktop facility exists.
type NoopLocal struct{}

func (NoopLocal) Dispatch(string, string) {}
