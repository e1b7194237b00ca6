package llm

import (
	"context"
	"sync"
)

// MockClient implements Decider for tests. It can be configured with a
// fixed reply, a reply function, or an error, and records every prompt it
// receives for verification.
type MockClient struct {
	mu sync.Mutex

	reply   string
	replyFn func(prompt string) string
	err     error
	avail   bool

	// Prompts holds every prompt passed to DecideAction, in order.
	Prompts []string
}

// NewMockClient creates a MockClient that is available and replies with an
// empty string until configured.
func NewMockClient() *MockClient {
	return &MockClient{avail: true}
}

// WithReply configures a fixed reply.
func (m *MockClient) WithReply(reply string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = reply
	m.replyFn = nil
	return m
}

// WithReplyFunc configures a per-prompt reply function.
func (m *MockClient) WithReplyFunc(fn func(prompt string) string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replyFn = fn
	return m
}

// WithError configures the error returned by DecideAction.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithAvailable configures the Available result.
func (m *MockClient) WithAvailable(avail bool) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avail = avail
	return m
}

// DecideAction records the prompt and returns the configured reply or error.
func (m *MockClient) DecideAction(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if m.replyFn != nil {
		return m.replyFn(prompt), nil
	}
	return m.reply, nil
}

// Available returns the configured availability.
func (m *MockClient) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avail
}
