// Package contextcache holds the sliding-window conversational context
// used to prompt the reply generator.
//
// The cache is a derived, disposable view of recent turns: if it is lost
// or expired, the conversation degrades to an empty context but nothing
// is incorrect. Durable message history lives in the store, never here.
package contextcache

import (
	"context"

	"github.com/soyeahso/parley/internal/domain"
)

// Entry is one cached utterance (user or agent) held for prompting.
type Entry struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

// Cache maintains, per session id, a capped ordered sequence of recent
// turn contents with independent sliding expiry.
//
// All implementations must make AppendTurn and Clear atomic with respect
// to concurrent ReadContext calls: a reader never observes a half-applied
// append. Failures are expected to be handled by callers as "empty
// context", never as a fatal condition.
type Cache interface {
	// Initialize creates an empty sequence with a fresh TTL so the expiry
	// clock starts at session creation, not at first message. An existing
	// sequence is reset to empty.
	Initialize(ctx context.Context, sessionID string) error

	// AppendTurn appends userText then agentText to the end of the
	// session's sequence, creating it if needed. If the sequence grows
	// beyond twice the configured turn limit it is truncated from the
	// front, keeping only the newest entries. The TTL for the whole
	// sequence is refreshed.
	AppendTurn(ctx context.Context, sessionID, userText, agentText string) error

	// ReadContext returns the current ordered sequence, possibly empty.
	// It does not mutate length or TTL. An expired or never-initialized
	// session reads as empty.
	ReadContext(ctx context.Context, sessionID string) ([]Entry, error)

	// Clear removes the sequence and its TTL entirely. Clearing a
	// non-existent session is a no-op.
	Clear(ctx context.Context, sessionID string) error
}
