package debounce

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	at := time.Now().Truncate(time.Millisecond)
	if err := s.Put("tool-used", "s1", at); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := s.Get("tool-used", "s1")
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v, %v)", got, ok, err)
	}
	if !got.Equal(at) {
		t.Fatalf("Get = %v, want %v", got, at)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	at := time.Now().Truncate(time.Millisecond)
	if err := s.Put("subagent-stop", "s1", at); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A second process sees the first one's marker.
	s2, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, ok, err := s2.Get("subagent-stop", "s1")
	if err != nil || !ok {
		t.Fatalf("Get after reopen = (%v, %v, %v)", got, ok, err)
	}
	if !got.Equal(at) {
		t.Fatalf("Get = %v, want %v", got, at)
	}
}

func TestFileStoreSkipsCorruptJournalLines(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	journal := filepath.Join(dir, "markers.journal.jsonl")
	content := `{"category":"tool-used","session_id":"s1","at":1700000000000}
not json at all
{"category":"","session_id":"s2","at":1700000000000}
{"category":"tool-used","session_id":"s3","at":1700000001000}
`
	if err := os.WriteFile(journal, []byte(content), 0o600); err != nil {
		t.Fatalf("seed journal: %v", err)
	}

	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	if _, ok, _ := s.Get("tool-used", "s1"); !ok {
		t.Fatal("valid first line lost")
	}
	if _, ok, _ := s.Get("tool-used", "s3"); !ok {
		t.Fatal("valid last line lost")
	}
	if _, ok, _ := s.Get("", "s2"); ok {
		t.Fatal("empty-category line should be skipped")
	}
}

func TestFileStorePruneCompacts(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	now := time.Now()
	if err := s.Put("tool-used", "old", now.Add(-time.Hour)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("tool-used", "new", now); err != nil {
		t.Fatalf("Put: %v", err)
	}

	n, err := s.PruneBefore(now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}

	// Compaction wrote the snapshot and truncated the journal.
	if fi, err := os.Stat(filepath.Join(dir, "markers.journal.jsonl")); err != nil || fi.Size() != 0 {
		t.Fatalf("journal not truncated: %v, %v", fi, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "markers.snapshot.json")); err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
	if _, ok, _ := s.Get("tool-used", "old"); ok {
		t.Fatal("old marker survived prune")
	}
}
