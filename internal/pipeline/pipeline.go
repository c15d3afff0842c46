// Package pipeline orchestrates one event's journey through the engine.
//
// Stages: received → session update → classify → debounce → format →
// dispatch fan-out → audit record → marker update. There are no retries and
// no rollback: each stage's failure is logged and the pipeline proceeds
// where feasible. Debounce suppression is the only short circuit: it stops
// the event before formatting, dispatch, and recording, but after session
// state was updated.
package pipeline

import (
	"context"
	"time"

	"hooknotify/internal/classify"
	"hooknotify/internal/debounce"
	"hooknotify/internal/dispatch"
	"hooknotify/internal/event"
	"hooknotify/internal/eventbus"
	"hooknotify/internal/format"
	"hooknotify/internal/session"
	"hooknotify/internal/storage"
	"hooknotify/pkg/logx"
)

// Bus signal types published at decision points.
const (
	SignalReceived   = "pipeline.received"
	SignalRejected   = "pipeline.rejected"
	SignalDropped    = "pipeline.dropped"
	SignalSuppressed = "pipeline.suppressed"
	SignalDispatched = "pipeline.dispatched"
	SignalRecorded   = "pipeline.recorded"
)

// Outcome is the Data payload of every pipeline signal.
type Outcome struct {
	SessionID string `json:"session_id,omitempty"`
	Category  string `json:"category,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Pipeline struct {
	tracker *session.Tracker
	gate    *debounce.Gate
	store   storage.Store
	remote  dispatch.RemoteChannel
	local   dispatch.LocalChannel
	bus     eventbus.Bus
	log     logx.Logger
}

func New(tracker *session.Tracker, gate *debounce.Gate, store storage.Store,
	remote dispatch.RemoteChannel, local dispatch.LocalChannel,
	bus eventbus.Bus, log logx.Logger) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pipeline{
		tracker: tracker,
		gate:    gate,
		store:   store,
		remote:  remote,
		local:   local,
		bus:     bus,
		log:     log,
	}
}

// Handle parses one raw event and runs it through the pipeline. The only
// error it returns is malformed input; everything past parsing is
// best-effort and never propagates.
func (p *Pipeline) Handle(ctx context.Context, raw []byte) error {
	ev, err := event.Parse(raw)
	if err != nil {
		p.log.Warn("rejecting malformed event", logx.Err(err))
		p.publish(SignalRejected, Outcome{Error: err.Error()})
		return err
	}
	p.Process(ctx, ev)
	return nil
}

// Process runs one validated event to completion. It never returns an
// error: no failure inside a single event's processing may cross the
// pipeline boundary.
func (p *Pipeline) Process(ctx context.Context, ev event.Event) {
	log := p.log.With(
		logx.String("session", shortSession(ev.SessionID)),
		logx.String("category", ev.Category),
	)
	log.Debug("event received")
	p.publish(SignalReceived, Outcome{SessionID: ev.SessionID, Category: ev.Category})

	// Session state first: even ineligible categories feed the counters.
	p.tracker.Update(ctx, ev)

	prio, eligible := classify.Classify(ev.Category)
	if !eligible {
		log.Debug("dropping ineligible category")
		p.publish(SignalDropped, Outcome{SessionID: ev.SessionID, Category: ev.Category})
		return
	}

	if p.gate.ShouldSuppress(ev.Category, ev.SessionID) {
		log.Info("suppressed by debounce")
		p.publish(SignalSuppressed, Outcome{SessionID: ev.SessionID, Category: ev.Category})
		return
	}

	var sess *storage.SessionRecord
	if rec, ok := p.tracker.Read(ctx, ev.SessionID); ok {
		sess = &rec
	}

	msg := format.Render(ev.Category, ev, sess)

	// Fan-out: remote is fire-and-forget, local blocks briefly. Each is
	// attempted regardless of the other.
	p.remote.Dispatch(msg)
	p.local.Dispatch(msg, ev.Category)
	log.Info("dispatched", logx.Int("priority", prio), logx.String("message", msg))
	p.publish(SignalDispatched, Outcome{SessionID: ev.SessionID, Category: ev.Category})

	p.record(ctx, ev, msg)
	p.gate.MarkDispatched(ev.Category, ev.SessionID)
}

// record appends the audit row and bumps the session's notification
// counters. The two writes are one logical unit but carry no cross-entity
// atomicity: a crash in between leaves an audit row without a counter bump,
// which reads tolerate.
func (p *Pipeline) record(ctx context.Context, ev event.Event, msg string) {
	rec := storage.NotificationRecord{
		SessionID: ev.SessionID,
		Category:  ev.Category,
		Message:   msg,
		SentAt:    time.Now(),
	}
	if err := p.store.AppendNotification(ctx, rec); err != nil {
		p.log.Warn("audit append failed", logx.String("session", ev.SessionID), logx.Err(err))
	}
	if err := p.store.RecordDispatch(ctx, ev.SessionID, ev.Category, rec.SentAt); err != nil {
		p.log.Warn("dispatch record failed", logx.String("session", ev.SessionID), logx.Err(err))
	}
	p.publish(SignalRecorded, Outcome{SessionID: ev.SessionID, Category: ev.Category})
}

func (p *Pipeline) publish(typ string, out Outcome) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(eventbus.Signal{Type: typ, Data: out})
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
