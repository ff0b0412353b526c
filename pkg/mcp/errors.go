package mcp

import "fmt"

// ProtocolError is raised when a response id does not match the id of the
// request it was read in reply to — a violation of the one-outstanding-
// request-per-connection invariant the stdio transport relies on.
type ProtocolError struct {
	WantID uint64
	GotID  uint64
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("mcp: protocol error: expected response id %d, got %d", e.WantID, e.GotID)
}

// TimeoutError is raised when a call does not complete within its deadline.
// The underlying RPC is abandoned, not retried (see package doc on stdio.go).
type TimeoutError struct {
	Method string
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("mcp: timeout waiting for %q", e.Method) }

// ToolNotFoundError is raised when a tool name is not present in a server's
// cached tool list, or a namespaced name does not parse.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string { return fmt.Sprintf("mcp: tool not found: %q", e.Name) }

// NotConnectedError is raised when a namespaced tool call names a server
// that is not in the manager's registry.
type NotConnectedError struct {
	Server string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("mcp: not connected: %q", e.Server)
}

// TransportError wraps a non-protocol failure from a transport (process
// spawn failure, non-2xx HTTP response, broken pipe).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("mcp: transport error: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }
