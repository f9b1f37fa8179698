package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/parley/internal/chat"
	"github.com/soyeahso/parley/internal/domain"
)

// ChatStore implements chat.Store on top of SQLite. Infrastructure
// failures are wrapped with chat.ErrStoreUnavailable so the service can
// classify them without knowing the backend.
type ChatStore struct {
	db *DB
}

// NewChatStore creates a durable chat store using the given database.
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, chat.ErrStoreUnavailable, err)
}

// InsertSession writes a new session row.
func (s *ChatStore) InsertSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, string(sess.State),
		sess.CreatedAt.UTC().Format(time.DateTime),
		sess.UpdatedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return storeErr("insert session", err)
	}
	return nil
}

// UpdateSession persists state and timestamp changes for an existing session.
func (s *ChatStore) UpdateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.sql.ExecContext(ctx,
		`UPDATE sessions SET state = ?, updated_at = ? WHERE id = ?`,
		string(sess.State), sess.UpdatedAt.UTC().Format(time.DateTime), sess.ID,
	)
	if err != nil {
		return storeErr("update session", err)
	}
	return nil
}

// GetSessionByID returns the session, or (nil, nil) if no row exists.
// Tombstoned sessions are returned; callers decide visibility.
func (s *ChatStore) GetSessionByID(ctx context.Context, id string) (*domain.Session, error) {
	var (
		sess                 domain.Session
		state                string
		createdAt, updatedAt string
	)
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, user_id, state, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &state, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get session", err)
	}

	sess.State = domain.SessionState(state)
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	return &sess, nil
}

// InsertMessage writes one immutable message row.
func (s *ChatStore) InsertMessage(ctx context.Context, msg *domain.Message) error {
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, user_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.UserID, string(msg.Role), msg.Content,
		msg.CreatedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return storeErr("insert message", err)
	}
	return nil
}

// ListMessagesBySession returns one page of a session's messages in
// insertion order. Page numbering starts at 1.
func (s *ChatStore) ListMessagesBySession(ctx context.Context, sessionID string, page, pageSize int) (chat.MessagePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&total)
	if err != nil {
		return chat.MessagePage{}, storeErr("count messages", err)
	}

	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, session_id, user_id, role, content, created_at
		 FROM messages WHERE session_id = ?
		 ORDER BY rowid LIMIT ? OFFSET ?`,
		sessionID, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return chat.MessagePage{}, storeErr("list messages", err)
	}
	defer rows.Close()

	out := chat.MessagePage{Total: total, Page: page, PageSize: pageSize}
	for rows.Next() {
		var (
			msg       domain.Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.UserID, &role, &msg.Content, &createdAt); err != nil {
			return chat.MessagePage{}, storeErr("scan message", err)
		}
		msg.Role = domain.Role(role)
		msg.CreatedAt = parseTime(createdAt)
		out.Messages = append(out.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return chat.MessagePage{}, storeErr("list messages", err)
	}
	return out, nil
}

// ListSessionsByUser returns the user's non-deleted sessions, most
// recently updated first.
func (s *ChatStore) ListSessionsByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, user_id, state, created_at, updated_at
		 FROM sessions WHERE user_id = ? AND state != ?
		 ORDER BY updated_at DESC`,
		userID, string(domain.SessionDeleted),
	)
	if err != nil {
		return nil, storeErr("list sessions", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var (
			sess                 domain.Session
			state                string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&sess.ID, &sess.UserID, &state, &createdAt, &updatedAt); err != nil {
			return nil, storeErr("scan session", err)
		}
		sess.State = domain.SessionState(state)
		sess.CreatedAt = parseTime(createdAt)
		sess.UpdatedAt = parseTime(updatedAt)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list sessions", err)
	}
	return sessions, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.DateTime, s)
	return t
}
