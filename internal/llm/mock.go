package llm

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/loancouncil/internal/domain"
)

const defaultMockResponse = "QUYẾT ĐỊNH: APPROVE\nLÝ DO: Mock response"

// MockClient is a configurable completion client for testing.
// Set the response fields to control what Complete returns. Handler, when
// set, takes precedence; then queued Responses; then Response.
type MockClient struct {
	mu sync.Mutex

	Response  string
	Error     error
	Responses []string
	Handler   func(ctx context.Context, req domain.CompletionRequest) (string, error)

	// Call tracking for assertions
	Calls []domain.CompletionRequest
}

func NewMockClient() *MockClient {
	return &MockClient{Response: defaultMockResponse}
}

func (c *MockClient) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, req)
	handler := c.Handler
	if handler == nil {
		defer c.mu.Unlock()
		if c.Error != nil {
			return "", c.Error
		}
		if len(c.Responses) > 0 {
			out := c.Responses[0]
			c.Responses = c.Responses[1:]
			return out, nil
		}
		return c.Response, nil
	}
	c.mu.Unlock()
	return handler(ctx, req)
}

// CallCount returns the number of recorded calls.
func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Response = defaultMockResponse
	c.Error = nil
	c.Responses = nil
	c.Handler = nil
	c.Calls = nil
}
