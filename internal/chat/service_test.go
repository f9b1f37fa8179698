package chat_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/soyeahso/parley/internal/chat"
	"github.com/soyeahso/parley/internal/contextcache"
	"github.com/soyeahso/parley/internal/domain"
	"github.com/soyeahso/parley/internal/llm"
	"github.com/soyeahso/parley/internal/logging"
	"github.com/soyeahso/parley/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *chat.Service
	store *store.ChatStore
	cache contextcache.Cache
	gen   *llm.MockGenerator
}

func newFixture(t *testing.T, cache contextcache.Cache, gen *llm.MockGenerator) *fixture {
	t.Helper()
	log := logging.New(nil, "silent")

	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if cache == nil {
		mem := contextcache.NewMemory(10, 2*time.Hour, log)
		t.Cleanup(mem.Close)
		cache = mem
	}
	if gen == nil {
		gen = &llm.MockGenerator{}
	}

	cs := store.NewChatStore(db)
	return &fixture{
		svc:   chat.NewService(cs, cache, gen, log),
		store: cs,
		cache: cache,
		gen:   gen,
	}
}

// failingCache simulates a permanently unavailable context cache.
type failingCache struct{}

var errCacheDown = errors.New("cache backend unreachable")

func (failingCache) Initialize(context.Context, string) error { return errCacheDown }
func (failingCache) AppendTurn(context.Context, string, string, string) error {
	return errCacheDown
}
func (failingCache) ReadContext(context.Context, string) ([]contextcache.Entry, error) {
	return nil, errCacheDown
}
func (failingCache) Clear(context.Context, string) error { return errCacheDown }

// --- CreateSession ---

func TestCreateSession(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, domain.SessionActive, sess.State)

	// Cache sequence exists and is empty.
	entries, err := f.cache.ReadContext(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Durable row exists.
	got, err := f.store.GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.ID, got.ID)
}

func TestCreateSession_CacheFailureIsNonFatal(t *testing.T) {
	f := newFixture(t, failingCache{}, nil)

	sess, err := f.svc.CreateSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
}

// --- DeleteSession ---

func TestDeleteSession_NotFound(t *testing.T) {
	f := newFixture(t, nil, nil)

	err := f.svc.DeleteSession(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestDeleteSession_Forbidden(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	err = f.svc.DeleteSession(ctx, sess.ID, "u2")
	assert.ErrorIs(t, err, chat.ErrForbidden)

	// Session must remain ACTIVE.
	got, err := f.store.GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, got.State)
}

func TestDeleteSession_TombstonesAndClearsContext(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, sess.ID, "u1", "hi")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSession(ctx, sess.ID, "u1"))

	got, err := f.store.GetSessionByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted())

	entries, err := f.cache.ReadContext(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteSession_AlreadyDeleted(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSession(ctx, sess.ID, "u1"))
	require.NoError(t, f.svc.DeleteSession(ctx, sess.ID, "u1"))
}

// --- SendMessage ---

func TestSendMessage_PersistsBothTurns(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	reply, err := f.svc.SendMessage(ctx, sess.ID, "u1", "hi")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, reply.Role)
	assert.Equal(t, "You said: hi", reply.Content)
	assert.Equal(t, sess.ID, reply.SessionID)

	page, err := f.svc.GetSessionMessages(ctx, sess.ID, "u1", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, domain.RoleUser, page.Messages[0].Role)
	assert.Equal(t, "hi", page.Messages[0].Content)
	assert.Equal(t, domain.RoleAgent, page.Messages[1].Role)
}

func TestSendMessage_AppendsContext(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, sess.ID, "u1", "hi")
	require.NoError(t, err)

	entries, err := f.cache.ReadContext(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "hi", entries[0].Content)
	assert.Equal(t, "You said: hi", entries[1].Content)
}

func TestSendMessage_GeneratorSeesContext(t *testing.T) {
	var seen []llm.Message
	gen := &llm.MockGenerator{
		GenerateFunc: func(_ context.Context, history []llm.Message, prompt string) (string, error) {
			seen = history
			return "reply to " + prompt, nil
		},
	}
	f := newFixture(t, nil, gen)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, sess.ID, "u1", "first")
	require.NoError(t, err)
	assert.Empty(t, seen, "first turn runs with empty context")

	_, err = f.svc.SendMessage(ctx, sess.ID, "u1", "second")
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, llm.RoleUser, seen[0].Role)
	assert.Equal(t, "first", seen[0].Content)
	assert.Equal(t, llm.RoleAssistant, seen[1].Role)
	assert.Equal(t, "reply to first", seen[1].Content)
}

func TestSendMessage_SessionUnavailable(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	// Missing session.
	_, err := f.svc.SendMessage(ctx, "missing", "u1", "hi")
	assert.ErrorIs(t, err, chat.ErrSessionUnavailable)

	// Foreign session.
	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, sess.ID, "u2", "hi")
	assert.ErrorIs(t, err, chat.ErrSessionUnavailable)

	// Tombstoned session.
	require.NoError(t, f.svc.DeleteSession(ctx, sess.ID, "u1"))
	_, err = f.svc.SendMessage(ctx, sess.ID, "u1", "hi")
	assert.ErrorIs(t, err, chat.ErrSessionUnavailable)
}

func TestSendMessage_GeneratorFailureKeepsUserMessage(t *testing.T) {
	gen := &llm.MockGenerator{
		GenerateFunc: func(context.Context, []llm.Message, string) (string, error) {
			return "", errors.New("model overloaded")
		},
	}
	f := newFixture(t, nil, gen)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, sess.ID, "u1", "hi")
	assert.ErrorIs(t, err, chat.ErrGenerationFailed)

	// The user's input survived even though no reply was produced.
	page, err := f.svc.GetSessionMessages(ctx, sess.ID, "u1", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, domain.RoleUser, page.Messages[0].Role)
	assert.Equal(t, "hi", page.Messages[0].Content)
}

func TestSendMessage_FailingCacheStillPersists(t *testing.T) {
	f := newFixture(t, failingCache{}, nil)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	reply, err := f.svc.SendMessage(ctx, sess.ID, "u1", "hi")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, reply.Role)
	assert.NotEmpty(t, reply.Content)

	page, err := f.svc.GetSessionMessages(ctx, sess.ID, "u1", 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
}

func TestSendMessage_ContextWindow(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		_, err := f.svc.SendMessage(ctx, sess.ID, "u1", fmt.Sprintf("turn-%d", i))
		require.NoError(t, err)
	}

	// Cache holds the newest 10 turns; durable history holds all 24 messages.
	entries, err := f.cache.ReadContext(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, entries, 20)
	assert.Equal(t, "turn-2", entries[0].Content)
	assert.Equal(t, "turn-11", entries[18].Content)

	page, err := f.svc.GetSessionMessages(ctx, sess.ID, "u1", 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 24, page.Total)
}

// --- GetSessionMessages / ListUserSessions ---

func TestGetSessionMessages_OwnershipRequired(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	_, err = f.svc.GetSessionMessages(ctx, sess.ID, "u2", 1, 10)
	assert.ErrorIs(t, err, chat.ErrSessionUnavailable)
}

func TestListUserSessions(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	s1, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)
	_, err = f.svc.CreateSession(ctx, "u2")
	require.NoError(t, err)

	sessions, err := f.svc.ListUserSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, s1.ID, sessions[0].ID)
}

// --- Full lifecycle scenario ---

func TestLifecycleScenario(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	sess, err := f.svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	reply, err := f.svc.SendMessage(ctx, sess.ID, "u1", "hi")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, reply.Role)
	assert.NotEmpty(t, reply.Content)

	sessions, err := f.svc.ListUserSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sess.ID, sessions[0].ID)

	err = f.svc.DeleteSession(ctx, sess.ID, "u2")
	assert.ErrorIs(t, err, chat.ErrForbidden)

	require.NoError(t, f.svc.DeleteSession(ctx, sess.ID, "u1"))

	_, err = f.svc.SendMessage(ctx, sess.ID, "u1", "hi again")
	assert.ErrorIs(t, err, chat.ErrSessionUnavailable)
}
