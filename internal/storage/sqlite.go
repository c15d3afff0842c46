package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"hooknotify/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const sqliteTimeFormat = time.RFC3339Nano

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer; this also serializes counter upserts.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) RecordPrompt(ctx context.Context, sessionID, prompt, workdir string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(session_id, created_at, last_prompt, working_dir)
		 VALUES(?,?,?,?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   last_prompt = excluded.last_prompt,
		   working_dir = excluded.working_dir`,
		sessionID, time.Now().UTC().Format(sqliteTimeFormat), prompt, workdir,
	)
	return err
}

func (s *sqliteStore) RecordToolUse(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(session_id, created_at, tool_use_count)
		 VALUES(?,?,1)
		 ON CONFLICT(session_id) DO UPDATE SET
		   tool_use_count = tool_use_count + 1`,
		sessionID, time.Now().UTC().Format(sqliteTimeFormat),
	)
	return err
}

func (s *sqliteStore) Session(ctx context.Context, sessionID string) (SessionRecord, bool, error) {
	if s == nil || s.db == nil {
		return SessionRecord{}, false, ErrDisabled
	}
	var (
		rec              SessionRecord
		createdAt        string
		lastNotifiedTime sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, created_at,
		        COALESCE(last_prompt, ''), COALESCE(working_dir, ''),
		        COALESCE(tool_use_count, 0), COALESCE(notification_count, 0),
		        COALESCE(last_notification_category, ''), last_notification_time
		 FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&rec.SessionID, &createdAt, &rec.LastPrompt, &rec.WorkingDirectory,
		&rec.ToolUseCount, &rec.NotificationCount,
		&rec.LastNotificationCategory, &lastNotifiedTime)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, false, nil
	}
	if err != nil {
		return SessionRecord{}, false, err
	}
	rec.CreatedAt = parseStoredTime(createdAt)
	if lastNotifiedTime.Valid {
		rec.LastNotificationTime = parseStoredTime(lastNotifiedTime.String)
	}
	return rec, true, nil
}

func (s *sqliteStore) AppendNotification(ctx context.Context, rec NotificationRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications(session_id, category, message, sent_at, was_batched)
		 VALUES(?,?,?,?,?)`,
		rec.SessionID, rec.Category, rec.Message,
		rec.SentAt.UTC().Format(sqliteTimeFormat), rec.WasBatched,
	)
	return err
}

func (s *sqliteStore) RecordDispatch(ctx context.Context, sessionID, category string, at time.Time) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	ts := at.UTC().Format(sqliteTimeFormat)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(session_id, created_at, notification_count,
		                      last_notification_category, last_notification_time)
		 VALUES(?,?,1,?,?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   notification_count = notification_count + 1,
		   last_notification_category = excluded.last_notification_category,
		   last_notification_time = excluded.last_notification_time`,
		sessionID, ts, category, ts,
	)
	return err
}

// Notifications returns the most recent audit rows, newest first. Used by
// the file driver's counterpart for tests and by operators poking at state;
// not part of the hot path.
func (s *sqliteStore) Notifications(ctx context.Context, sessionID string, limit int) ([]NotificationRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, category, message, sent_at, was_batched
		 FROM notifications WHERE session_id = ?
		 ORDER BY id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NotificationRecord
	for rows.Next() {
		var (
			rec    NotificationRecord
			sentAt string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Category, &rec.Message, &sentAt, &rec.WasBatched); err != nil {
			return nil, err
		}
		rec.SentAt = parseStoredTime(sentAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseStoredTime(s string) time.Time {
	t, err := time.Parse(sqliteTimeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
