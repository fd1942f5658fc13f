package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests.
type MockClient struct {
	CompleteFn func(ctx context.Context, system, prompt string) (string, error)
	Response   string
	Prompts    []string
	mu         sync.Mutex
}

var _ Client = (*MockClient)(nil)

// Complete records the prompt and returns CompleteFn's result or Response.
func (m *MockClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, system, prompt)
	}
	return m.Response, nil
}

// Calls returns how many times Complete was invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
