// Package eventbus decouples the pipeline from its observers.
//
// The pipeline publishes a signal at every decision point; serve mode's
// status counters subscribe. Publish never blocks: a slow subscriber drops
// signals rather than stalling notification flow.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Signal is one pipeline decision. Data should be small and
// JSON-serializable.
type Signal struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(s Signal)
	Subscribe(buffer int) (ch <-chan Signal, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Signal{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Signal
	seq  atomic.Uint64
}

func (b *memBus) Publish(s Signal) {
	if s.Time.IsZero() {
		s.Time = time.Now()
	}
	b.mu.RLock()
	chs := make([]chan Signal, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery; recover in case a subscriber closed its
		// channel concurrently with this send.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- s:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Signal, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Signal, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}
