package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Server is one connected MCP server: its transport, cached identity, and
// cached tool list. Calls to it are serialised by callMu, matching the
// "different servers are concurrent, one server is serial" rule.
type Server struct {
	Name string

	transport Transport
	callMu    sync.Mutex

	info  ServerInfo
	caps  Capabilities
	tools []Tool
}

// Connect runs the session-start sequence against an already-constructed
// transport: initialize, notifications/initialized (errors ignored), then
// tools/list to populate the cache.
func Connect(ctx context.Context, name string, transport Transport, clientInfo ClientInfo) (*Server, error) {
	s := &Server{Name: name, transport: transport}

	initParams := initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{"roots": map[string]any{"listChanged": true}},
		ClientInfo:      clientInfo,
	}
	raw, err := transport.Request(ctx, "initialize", initParams)
	if err != nil {
		return nil, fmt.Errorf("mcp: initialize %q: %w", name, err)
	}
	var initResult initializeResult
	if err := json.Unmarshal(raw, &initResult); err != nil {
		return nil, fmt.Errorf("mcp: parse initialize result for %q: %w", name, err)
	}
	s.info = initResult.ServerInfo
	s.caps = parseCapabilities(initResult.Capabilities)

	_ = transport.Notify(ctx, "notifications/initialized", struct{}{})

	if err := s.refreshTools(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) refreshTools(ctx context.Context) error {
	raw, err := s.transport.Request(ctx, "tools/list", struct{}{})
	if err != nil {
		return fmt.Errorf("mcp: tools/list for %q: %w", s.Name, err)
	}
	var result toolsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("mcp: parse tools/list result for %q: %w", s.Name, err)
	}
	s.tools = result.Tools
	return nil
}

// Info returns the server's reported name/version.
func (s *Server) Info() ServerInfo { return s.info }

// Capabilities returns the server's advertised capability flags.
func (s *Server) Capabilities() Capabilities { return s.caps }

// Tools returns the cached tool list from the last tools/list call.
func (s *Server) Tools() []Tool {
	out := make([]Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

func (s *Server) hasTool(name string) bool {
	for _, t := range s.tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// CallTool invokes a cached tool by its unqualified name, serialised
// against any other in-flight call to this same server.
func (s *Server) CallTool(ctx context.Context, name string, args any) (json.RawMessage, error) {
	if !s.hasTool(name) {
		return nil, &ToolNotFoundError{Name: name}
	}
	s.callMu.Lock()
	defer s.callMu.Unlock()
	return s.transport.Request(ctx, "tools/call", callToolParams{Name: name, Arguments: args})
}

// Disconnect tears down the underlying transport.
func (s *Server) Disconnect() error {
	return s.transport.Close()
}
