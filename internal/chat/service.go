// Package chat implements the session lifecycle and the per-turn
// conversation flow on top of the durable store, the context cache and
// the reply generator.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/parley/internal/contextcache"
	"github.com/soyeahso/parley/internal/domain"
	"github.com/soyeahso/parley/internal/llm"
	"github.com/soyeahso/parley/internal/logging"
)

// Service orchestrates sessions and conversation turns.
//
// Turns within one session are serialized by a per-session lock, so the
// order of context entries matches the order turns complete. Cache
// operations are best-effort throughout: a cache failure degrades to an
// empty context and never blocks message persistence.
type Service struct {
	store Store
	cache contextcache.Cache
	gen   llm.Generator
	locks *sessionLocks
	log   *logging.Logger
}

// NewService wires the chat service.
func NewService(store Store, cache contextcache.Cache, gen llm.Generator, log *logging.Logger) *Service {
	return &Service{
		store: store,
		cache: cache,
		gen:   gen,
		locks: newSessionLocks(),
		log:   log.Sub("chat"),
	}
}

// CreateSession allocates a new ACTIVE session for the user and starts
// the context cache's expiry clock immediately.
func (s *Service) CreateSession(ctx context.Context, userID string) (*domain.Session, error) {
	now := time.Now()
	sess := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		State:     domain.SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.InsertSession(ctx, sess); err != nil {
		return nil, err
	}

	if err := s.cache.Initialize(ctx, sess.ID); err != nil {
		s.log.Warn().Err(err).Str("session", sess.ID).Msg("context cache initialize failed")
	}

	s.log.Info().Str("session", sess.ID).Str("user", userID).Msg("session created")
	return sess, nil
}

// DeleteSession tombstones the session and purges its cached context.
// The session row is never physically removed: message history stays
// queryable for auditing. Deleting an already-deleted session succeeds.
func (s *Service) DeleteSession(ctx context.Context, sessionID, userID string) error {
	unlock := s.locks.acquire(sessionID)
	defer unlock()

	sess, err := s.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if !sess.OwnedBy(userID) {
		return fmt.Errorf("%w: %s", ErrForbidden, sessionID)
	}

	if !sess.Deleted() {
		sess.State = domain.SessionDeleted
		sess.UpdatedAt = time.Now()
		if err := s.store.UpdateSession(ctx, sess); err != nil {
			return err
		}
	}

	if err := s.cache.Clear(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("context cache clear failed")
	}

	s.log.Info().Str("session", sessionID).Str("user", userID).Msg("session deleted")
	return nil
}

// SendMessage executes one full conversation turn: persist the user's
// message, generate a reply from the cached context, persist the reply,
// and append the exchange to the cache.
//
// The user's message is durable before the generator runs, so a
// generator failure surfaces as ErrGenerationFailed with the input
// already recorded. A cache failure at any step is logged and otherwise
// ignored.
func (s *Service) SendMessage(ctx context.Context, sessionID, userID, content string) (*domain.Message, error) {
	unlock := s.locks.acquire(sessionID)
	defer unlock()

	sess, err := s.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Deleted() || !sess.OwnedBy(userID) {
		return nil, fmt.Errorf("%w: %s", ErrSessionUnavailable, sessionID)
	}

	userMsg := &domain.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      domain.RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.store.InsertMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	sess.UpdatedAt = time.Now()
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	history := s.readContext(ctx, sessionID)

	reply, err := s.gen.Generate(ctx, history, content)
	if err != nil {
		// The user message is already saved; only the reply is lost.
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	agentMsg := &domain.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      domain.RoleAgent,
		Content:   reply,
		CreatedAt: time.Now(),
	}
	if err := s.store.InsertMessage(ctx, agentMsg); err != nil {
		return nil, err
	}

	if err := s.cache.AppendTurn(ctx, sessionID, content, reply); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("context cache append failed")
	}

	return agentMsg, nil
}

// GetSessionMessages returns a page of the session's durable history.
// Ownership and tombstone checks match the send path.
func (s *Service) GetSessionMessages(ctx context.Context, sessionID, userID string, page, pageSize int) (MessagePage, error) {
	sess, err := s.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		return MessagePage{}, err
	}
	if sess == nil || sess.Deleted() || !sess.OwnedBy(userID) {
		return MessagePage{}, fmt.Errorf("%w: %s", ErrSessionUnavailable, sessionID)
	}

	return s.store.ListMessagesBySession(ctx, sessionID, page, pageSize)
}

// ListUserSessions returns the user's non-deleted sessions, newest first.
func (s *Service) ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.store.ListSessionsByUser(ctx, userID)
}

// readContext loads the cached context, degrading to empty on any
// failure so a lost cache never aborts the turn.
func (s *Service) readContext(ctx context.Context, sessionID string) []llm.Message {
	entries, err := s.cache.ReadContext(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("context cache read failed, using empty context")
		return nil
	}

	history := make([]llm.Message, 0, len(entries))
	for _, e := range entries {
		role := llm.RoleUser
		if e.Role == domain.RoleAgent {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: e.Content})
	}
	return history
}
