package debounce

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileStore persists markers as an append-only journal plus a periodic
// snapshot, so that short-lived one-shot invocations share debounce state.
//
// Files under the marker directory:
//   - markers.snapshot.json (compacted state)
//   - markers.journal.jsonl (appends since the last compaction)
//
// The journal is compacted into the snapshot every compactEvery writes.
// Corrupt journal lines are skipped on replay: the gate fails open anyway,
// so salvaging partial state beats refusing to start.
type fileStore struct {
	mu sync.Mutex

	snapshotPath string
	journal      *os.File
	markers      map[string]int64 // unix milli

	writes       int
	compactEvery int
}

type markerRecord struct {
	Category  string `json:"category"`
	SessionID string `json:"session_id"`
	At        int64  `json:"at"` // unix milli
}

// NewFileStore opens (or creates) a file-backed MarkerStore rooted at dir.
func NewFileStore(dir string) (MarkerStore, error) {
	if dir == "" {
		return nil, errors.New("marker dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	snapPath := filepath.Join(dir, "markers.snapshot.json")
	journalPath := filepath.Join(dir, "markers.journal.jsonl")

	markers := map[string]int64{}
	_ = loadSnapshot(snapPath, markers)
	_ = replayJournal(journalPath, markers)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		snapshotPath: snapPath,
		journal:      jf,
		markers:      markers,
		compactEvery: 512,
	}, nil
}

func (s *fileStore) Get(category, sessionID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.markers[markerKey(category, sessionID)]
	if !ok {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

func (s *fileStore) Put(category, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return errors.New("marker journal closed")
	}
	ms := at.UnixMilli()
	s.markers[markerKey(category, sessionID)] = ms

	enc := json.NewEncoder(s.journal)
	if err := enc.Encode(markerRecord{Category: category, SessionID: sessionID, At: ms}); err != nil {
		return err
	}
	s.writes++
	if s.writes%s.compactEvery == 0 {
		_ = s.compactLocked()
	}
	return nil
}

func (s *fileStore) PruneBefore(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := cutoff.UnixMilli()
	n := 0
	for k, v := range s.markers {
		if v < ms {
			delete(s.markers, k)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.compactLocked()
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal == nil {
		return nil
	}
	err := s.journal.Close()
	s.journal = nil
	return err
}

func (s *fileStore) compactLocked() error {
	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.markers); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}
	if s.journal == nil {
		return nil
	}
	if err := s.journal.Truncate(0); err != nil {
		return err
	}
	_, err = s.journal.Seek(0, 2)
	return err
}

func loadSnapshot(path string, out map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]int64
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replayJournal(path string, out map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r markerRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		if r.Category == "" || r.SessionID == "" {
			continue
		}
		out[markerKey(r.Category, r.SessionID)] = r.At
	}
	return sc.Err()
}
