package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServerScript reads one line of JSON-RPC and echoes back a fixed
// success response using the incoming id, simulating a well-behaved MCP
// server for round-trip tests without depending on a real tool server.
const echoServerScript = `while IFS= read -r line; do
  id=$(echo "$line" | sed -n 's/.*"id":\([0-9]*\).*/\1/p')
  printf '{"jsonrpc":"2.0","id":%s,"result":{"ok":true}}\n' "$id"
done`

func TestStdioTransportRequestResponse(t *testing.T) {
	t.Parallel()

	transport, err := NewStdioTransport("sh", []string{"-c", echoServerScript}, nil, t.TempDir())
	require.NoError(t, err)
	defer transport.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := transport.Request(ctx, "tools/list", struct{}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result))
}

func TestStdioTransportTimeoutDoesNotCorruptNextCall(t *testing.T) {
	t.Parallel()

	// sleeps before the first reply, then echoes subsequent requests
	// immediately — mimics a slow call abandoned by its caller's timeout
	// followed by a healthy call on the same connection.
	script := `first=1
while IFS= read -r line; do
  id=$(echo "$line" | sed -n 's/.*"id":\([0-9]*\).*/\1/p')
  if [ "$first" = "1" ]; then
    first=0
    sleep 2
  fi
  printf '{"jsonrpc":"2.0","id":%s,"result":{"ok":true}}\n' "$id"
done`

	transport, err := NewStdioTransport("sh", []string{"-c", script}, nil, t.TempDir())
	require.NoError(t, err)
	defer transport.Close()

	shortCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = transport.Request(shortCtx, "slow", struct{}{})
	require.Error(t, err)
	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)

	longCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	result, err := transport.Request(longCtx, "fast", struct{}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result))
}
