package transport

import (
	"context"
	"sync"

	"github.com/latebit/waystone/internal/wire"
)

// MockTransport is an in-memory Transport for tests: pages are registered
// up front and served without any network I/O.
type MockTransport struct {
	mu    sync.Mutex
	pages map[string]wire.Response
	calls []string
}

// NewMockTransport returns an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{pages: make(map[string]wire.Response)}
}

// Register makes address+verb+path resolve to resp.
func (m *MockTransport) Register(address, verb, path string, resp wire.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[address+"|"+verb+"|"+path] = resp
}

// Request implements Transport.
func (m *MockTransport) Request(_ context.Context, address, verb, path string) (wire.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, address+"|"+verb+"|"+path)
	resp, ok := m.pages[address+"|"+verb+"|"+path]
	if !ok {
		return wire.Response{Status: wire.StatusNotFound}, nil
	}
	return resp, nil
}

// Calls returns every request made so far, in order.
func (m *MockTransport) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
