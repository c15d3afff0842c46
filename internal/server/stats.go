package server

import (
	"context"
	"sync"

	"hooknotify/internal/eventbus"
)

// Stats folds pipeline bus signals into per-type counters for /status.
type Stats struct {
	mu       sync.Mutex
	counters map[string]uint64
}

func NewStats() *Stats {
	return &Stats{counters: map[string]uint64{}}
}

// Run consumes bus signals until ctx is done.
func (s *Stats) Run(ctx context.Context, bus eventbus.Bus) error {
	ch, unsub := bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			s.mu.Lock()
			s.counters[sig.Type]++
			s.mu.Unlock()
		}
	}
}

func (s *Stats) Snapshot() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.counters))
	for k, v := range s.counters {
		out[k] = v
	}
	return out
}
