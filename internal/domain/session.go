package domain

import "time"

// SessionState tracks the session lifecycle. Transitions are one-way:
// ACTIVE → DELETED, no resurrection.
type SessionState string

const (
	SessionActive  SessionState = "ACTIVE"
	SessionDeleted SessionState = "DELETED"
)

// Session is a conversation thread owned by one user.
//
// Deletion is a tombstone: the row stays in the durable store so history
// remains queryable, but a DELETED session is excluded from active views
// and rejects new messages.
type Session struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Deleted reports whether the session has been tombstoned.
func (s *Session) Deleted() bool {
	return s.State == SessionDeleted
}

// OwnedBy reports whether the session belongs to the given user.
func (s *Session) OwnedBy(userID string) bool {
	return s.UserID == userID
}
