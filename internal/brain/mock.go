package brain

import (
	"context"
	"strings"
	"sync"
)

// MockAdapter is a scriptable in-process backend for tests and dev runs.
type MockAdapter struct {
	mu       sync.Mutex
	replies  []string
	next     int
	err      error
	requests []Request
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

// SetReplies scripts the responses returned in order; the last one repeats.
func (a *MockAdapter) SetReplies(replies ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.replies = replies
	a.next = 0
}

// SetError forces every Generate call to fail.
func (a *MockAdapter) SetError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Requests returns a copy of every request seen so far.
func (a *MockAdapter) Requests() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Request, len(a.requests))
	copy(out, a.requests)
	return out
}

func (a *MockAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.err != nil {
		return Response{}, a.err
	}
	if len(a.replies) == 0 {
		return Response{Text: "Entendi! Me conta mais sobre isso."}, nil
	}
	reply := a.replies[a.next]
	if a.next < len(a.replies)-1 {
		a.next++
	}
	return Response{Text: strings.TrimSpace(reply)}, nil
}
