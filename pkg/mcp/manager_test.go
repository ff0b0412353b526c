package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport lets tests drive Server/Manager behavior without a real
// subprocess or HTTP server.
type fakeTransport struct {
	onRequest func(method string, params any) (any, error)
	closed    bool
}

func (f *fakeTransport) Request(_ context.Context, method string, params any) (json.RawMessage, error) {
	if f.onRequest == nil {
		return nil, nil
	}
	result, err := f.onRequest(method, params)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (f *fakeTransport) Notify(context.Context, string, any) error { return nil }
func (f *fakeTransport) Close() error                              { f.closed = true; return nil }

func TestSplitNamespacedTool(t *testing.T) {
	t.Parallel()

	server, tool, ok := splitNamespacedTool("alpha_read")
	assert.True(t, ok)
	assert.Equal(t, "alpha", server)
	assert.Equal(t, "read", tool)

	_, _, ok = splitNamespacedTool("invalidname")
	assert.False(t, ok)
}

// Scenario 4: MCP tool routing across a registered server, an unknown
// server, and a malformed name.
func TestManagerCallToolRouting(t *testing.T) {
	t.Parallel()

	alpha := &Server{
		Name:  "alpha",
		tools: []Tool{{Name: "read"}},
		transport: &fakeTransport{onRequest: func(method string, _ any) (any, error) {
			return map[string]any{"ok": true}, nil
		}},
	}

	m := NewManager()
	m.Register(alpha)

	_, err := m.CallTool(context.Background(), "alpha_read", nil)
	require.NoError(t, err)

	_, err = m.CallTool(context.Background(), "beta_read", nil)
	require.Error(t, err)
	var notConnected *NotConnectedError
	assert.ErrorAs(t, err, &notConnected)
	assert.Equal(t, "beta", notConnected.Server)

	_, err = m.CallTool(context.Background(), "invalidname", nil)
	require.Error(t, err)
	var notFound *ToolNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestServerCallToolNotFound(t *testing.T) {
	t.Parallel()

	s := &Server{Name: "alpha", tools: []Tool{{Name: "read"}}, transport: &fakeTransport{}}
	_, err := s.CallTool(context.Background(), "write", nil)
	require.Error(t, err)
	var notFound *ToolNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestManagerDisconnectRemovesServer(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	s := &Server{Name: "alpha", transport: ft}
	m := NewManager()
	m.Register(s)

	require.NoError(t, m.Disconnect("alpha"))
	assert.False(t, m.IsConnected("alpha"))
	assert.True(t, ft.closed)
}
