package chat

import (
	"context"

	"github.com/soyeahso/parley/internal/domain"
)

// MessagePage is one page of a session's message history.
type MessagePage struct {
	Messages []domain.Message `json:"messages"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}

// Store is the durable, authoritative record of sessions and messages.
//
// Implementations wrap infrastructure failures with ErrStoreUnavailable.
// GetSessionByID returns (nil, nil) for an absent session: absence is an
// answer, not a failure.
type Store interface {
	InsertSession(ctx context.Context, sess *domain.Session) error
	UpdateSession(ctx context.Context, sess *domain.Session) error
	GetSessionByID(ctx context.Context, id string) (*domain.Session, error)

	InsertMessage(ctx context.Context, msg *domain.Message) error
	ListMessagesBySession(ctx context.Context, sessionID string, page, pageSize int) (MessagePage, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]domain.Session, error)
}
