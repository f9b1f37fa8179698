package llm

import (
	"context"
	"fmt"
)

// MockGenerator is a deterministic Generator for tests and for running
// the service without a configured provider.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, history []Message, prompt string) (string, error)
}

func (m *MockGenerator) Name() string { return "mock" }

func (m *MockGenerator) Generate(ctx context.Context, history []Message, prompt string) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, history, prompt)
	}
	return fmt.Sprintf("You said: %s", prompt), nil
}
