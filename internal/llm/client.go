// Package llm defines the reply generator interface and its providers.
//
// The chat service treats reply generation as a black box behind the
// Generator interface: no retry policy lives here, and providers decide
// their own timeout behavior via the passed context.
package llm

import "context"

// Role constants for prompt messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single prior turn handed to the generator as context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces a reply to the user's latest text given the recent
// conversation context.
type Generator interface {
	// Generate returns the reply text for prompt, with history as the
	// preceding turns in order.
	Generate(ctx context.Context, history []Message, prompt string) (string, error)

	// Name returns the provider name (e.g. "openai", "mock").
	Name() string
}
