package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"hooknotify/pkg/logx"
)

// fileStore is a dependency-free persistence backend for hosts where a
// database file is unwanted.
//
// Files (derived from the configured path):
//   - <prefix>.notifications.jsonl   (append-only audit log)
//   - <prefix>.sessions.snapshot.json
//   - <prefix>.sessions.journal.jsonl
//
// Every session mutation appends the full updated record to the journal;
// the journal is periodically compacted into the snapshot. On open the
// snapshot is loaded and the journal replayed, later entries winning.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	notifFile *os.File
	notifSeq  int64

	sessionsSnapshotPath string
	sessionsJournal      *os.File
	sessions             map[string]SessionRecord

	sessionWrites int
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(filepath.Base(path)))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	notifPath := prefix + ".notifications.jsonl"
	snapPath := prefix + ".sessions.snapshot.json"
	journalPath := prefix + ".sessions.journal.jsonl"

	nf, err := os.OpenFile(notifPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	sessions := map[string]SessionRecord{}
	_ = loadSessionsSnapshot(snapPath, sessions)
	_ = replaySessionsJournal(journalPath, sessions)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		_ = nf.Close()
		return nil, err
	}

	return &fileStore{
		log:                  log,
		notifFile:            nf,
		notifSeq:             countLines(notifPath),
		sessionsSnapshotPath: snapPath,
		sessionsJournal:      jf,
		sessions:             sessions,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.notifFile != nil {
		err1 = s.notifFile.Close()
		s.notifFile = nil
	}
	if s.sessionsJournal != nil {
		err2 = s.sessionsJournal.Close()
		s.sessionsJournal = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *fileStore) RecordPrompt(ctx context.Context, sessionID, prompt, workdir string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.sessions[sessionID]
	if rec.SessionID == "" {
		rec.SessionID = sessionID
		rec.CreatedAt = time.Now().UTC()
	}
	rec.LastPrompt = prompt
	rec.WorkingDirectory = workdir
	return s.putSessionLocked(rec)
}

func (s *fileStore) RecordToolUse(ctx context.Context, sessionID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.sessions[sessionID]
	if rec.SessionID == "" {
		rec.SessionID = sessionID
		rec.CreatedAt = time.Now().UTC()
	}
	rec.ToolUseCount++
	return s.putSessionLocked(rec)
}

func (s *fileStore) Session(ctx context.Context, sessionID string) (SessionRecord, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	return rec, ok, nil
}

func (s *fileStore) AppendNotification(ctx context.Context, rec NotificationRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifFile == nil {
		return errors.New("notifications log closed")
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now()
	}
	s.notifSeq++
	rec.ID = s.notifSeq
	return json.NewEncoder(s.notifFile).Encode(rec)
}

func (s *fileStore) RecordDispatch(ctx context.Context, sessionID, category string, at time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.sessions[sessionID]
	if rec.SessionID == "" {
		rec.SessionID = sessionID
		rec.CreatedAt = time.Now().UTC()
	}
	rec.NotificationCount++
	rec.LastNotificationCategory = category
	rec.LastNotificationTime = at
	return s.putSessionLocked(rec)
}

func (s *fileStore) putSessionLocked(rec SessionRecord) error {
	if s.sessionsJournal == nil {
		return errors.New("sessions journal closed")
	}
	s.sessions[rec.SessionID] = rec
	if err := json.NewEncoder(s.sessionsJournal).Encode(rec); err != nil {
		return err
	}
	s.sessionWrites++
	if s.sessionWrites%1000 == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("sessions compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) compactLocked() error {
	tmp := s.sessionsSnapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.sessions); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.sessionsSnapshotPath); err != nil {
		return err
	}
	if err := s.sessionsJournal.Truncate(0); err != nil {
		return err
	}
	_, err = s.sessionsJournal.Seek(0, 2)
	return err
}

func loadSessionsSnapshot(path string, out map[string]SessionRecord) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]SessionRecord
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replaySessionsJournal(path string, out map[string]SessionRecord) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec SessionRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		if rec.SessionID == "" {
			continue
		}
		out[rec.SessionID] = rec
	}
	return sc.Err()
}

func countLines(path string) int64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	var n int64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	return n
}
