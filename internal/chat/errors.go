package chat

import "errors"

// Typed outcomes for session and message operations, checked with
// errors.Is by callers (the gateway maps them to status codes).
var (
	// ErrNotFound means the session does not exist. Returned by the
	// delete path, where the caller already proved ownership interest.
	ErrNotFound = errors.New("session not found")

	// ErrForbidden means the session exists but belongs to another user.
	ErrForbidden = errors.New("session not owned by caller")

	// ErrSessionUnavailable collapses absent, tombstoned and forbidden on
	// the message paths, so an unauthorized caller cannot probe for
	// session existence.
	ErrSessionUnavailable = errors.New("session unavailable")

	// ErrGenerationFailed means the reply generator failed after the
	// user's message was already durably saved.
	ErrGenerationFailed = errors.New("reply generation failed")

	// ErrStoreUnavailable means the durable store is unreachable. Fatal
	// for the current request only.
	ErrStoreUnavailable = errors.New("durable store unavailable")
)
