package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/murmurdev/murmur/internal/session"
)

const timeFmt = "2006-01-02T15:04:05Z"

// ArchivedSession is one stored session row. Messages is populated by
// GetArchived only; listing leaves it nil.
type ArchivedSession struct {
	ID           string
	Task         string
	Status       string
	Mode         string
	FinalReport  string
	Error        string
	CreatedAt    time.Time
	LastActiveAt time.Time
	ArchivedAt   time.Time
	Messages     []ArchivedMessage
}

// ArchivedMessage is one stored transcript entry, in original order.
type ArchivedMessage struct {
	MessageID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Archive upserts a session and its transcript. Re-archiving the same
// session replaces the stored copy, so calling it after every run keeps the
// archive current.
func (s *Store) Archive(sess *session.Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin archive: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO sessions (id, task, status, mode, final_report, error, created_at, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			task = excluded.task,
			status = excluded.status,
			mode = excluded.mode,
			final_report = excluded.final_report,
			error = excluded.error,
			last_active_at = excluded.last_active_at,
			archived_at = CURRENT_TIMESTAMP`,
		sess.ID, sess.Task, string(sess.Status), sess.Mode, sess.FinalReport, sess.Error,
		sess.CreatedAt.UTC().Format(timeFmt), sess.LastActiveAt.UTC().Format(timeFmt))
	if err != nil {
		return fmt.Errorf("archive session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", sess.ID); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	for i, m := range sess.Messages {
		_, err := tx.Exec(`INSERT INTO messages (session_id, seq, message_id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sess.ID, i, m.ID, m.Role, m.Content, m.Timestamp.UTC().Format(timeFmt))
		if err != nil {
			return fmt.Errorf("archive message %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetArchived returns one archived session with its transcript, or nil when
// it was never archived.
func (s *Store) GetArchived(id string) (*ArchivedSession, error) {
	a := &ArchivedSession{}
	var created, lastActive, archived string
	err := s.db.QueryRow(`SELECT id, task, status, mode, final_report, error, created_at, last_active_at, archived_at
		FROM sessions WHERE id = ?`, id).Scan(
		&a.ID, &a.Task, &a.Status, &a.Mode, &a.FinalReport, &a.Error, &created, &lastActive, &archived)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archived: %w", err)
	}
	a.CreatedAt = parseTime(created)
	a.LastActiveAt = parseTime(lastActive)
	a.ArchivedAt = parseTime(archived)

	rows, err := s.db.Query(`SELECT message_id, role, content, created_at
		FROM messages WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m ArchivedMessage
		var ts string
		if err := rows.Scan(&m.MessageID, &m.Role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = parseTime(ts)
		a.Messages = append(a.Messages, m)
	}
	return a, rows.Err()
}

// ListArchived lists archived sessions, most recently active first,
// transcripts omitted.
func (s *Store) ListArchived(limit int) ([]*ArchivedSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, task, status, mode, final_report, error, created_at, last_active_at, archived_at
		FROM sessions ORDER BY last_active_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived: %w", err)
	}
	defer rows.Close()

	var out []*ArchivedSession
	for rows.Next() {
		a := &ArchivedSession{}
		var created, lastActive, archived string
		if err := rows.Scan(&a.ID, &a.Task, &a.Status, &a.Mode, &a.FinalReport, &a.Error,
			&created, &lastActive, &archived); err != nil {
			return nil, fmt.Errorf("scan archived: %w", err)
		}
		a.CreatedAt = parseTime(created)
		a.LastActiveAt = parseTime(lastActive)
		a.ArchivedAt = parseTime(archived)
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteArchived removes a session and its transcript from the archive.
func (s *Store) DeleteArchived(id string) error {
	if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete archived: %w", err)
	}
	return nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeFmt, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
