package debounce

import (
	"sync"
	"time"
)

// memoryStore is the non-durable marker backend. It is the whole story in
// serve mode when no marker directory is configured; one-shot invocations
// need the file backend to see each other's markers.
type memoryStore struct {
	mu      sync.Mutex
	markers map[string]time.Time
}

// NewMemoryStore returns an in-memory MarkerStore.
func NewMemoryStore() MarkerStore {
	return &memoryStore{markers: map[string]time.Time{}}
}

func markerKey(category, sessionID string) string {
	return category + "\x00" + sessionID
}

func (s *memoryStore) Get(category, sessionID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.markers[markerKey(category, sessionID)]
	return t, ok, nil
}

func (s *memoryStore) Put(category, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[markerKey(category, sessionID)] = at
	return nil
}

func (s *memoryStore) PruneBefore(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, t := range s.markers {
		if t.Before(cutoff) {
			delete(s.markers, k)
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Close() error { return nil }
