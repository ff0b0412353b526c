package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docker/openclaudia/pkg/concurrent"
	"github.com/docker/openclaudia/pkg/tools"
)

// Manager owns every connected Server, keyed by local name, and routes
// namespaced tool calls to the right one. Tool names exposed upstream are
// "<server>_<tool>"; dispatch splits on the first underscore, so a server
// or tool name containing "_" is inherently ambiguous (see design notes).
type Manager struct {
	servers *concurrent.Map[string, *Server]
}

// NewManager builds an empty server registry.
func NewManager() *Manager {
	return &Manager{servers: concurrent.NewMap[string, *Server]()}
}

// Register adds an already-connected server to the registry under its name,
// replacing any prior registration (the previous one is not disconnected by
// this call — callers that are replacing a live server should Disconnect
// the old one first).
func (m *Manager) Register(server *Server) {
	m.servers.Store(server.Name, server)
}

// Get returns the named server, if connected.
func (m *Manager) Get(name string) (*Server, bool) {
	return m.servers.Load(name)
}

// ServerCount returns the number of connected servers.
func (m *Manager) ServerCount() int {
	return m.servers.Length()
}

// IsConnected reports whether a server with the given name is registered.
func (m *Manager) IsConnected(name string) bool {
	_, ok := m.servers.Load(name)
	return ok
}

// AllTools returns every connected server's cached tools, upstream-namespaced
// as "<server>_<tool>".
func (m *Manager) AllTools() []string {
	var out []string
	m.servers.Range(func(name string, s *Server) bool {
		for _, t := range s.Tools() {
			out = append(out, name+"_"+t.Name)
		}
		return true
	})
	return out
}

// ToolsAsOpenAIFunctions converts every connected server's cached tools into
// OpenAI-style function tool definitions, namespaced as AllTools does.
func (m *Manager) ToolsAsOpenAIFunctions() []tools.Tool {
	var out []tools.Tool
	m.servers.Range(func(name string, s *Server) bool {
		for _, t := range s.Tools() {
			var params any
			if len(t.InputSchema) > 0 {
				_ = json.Unmarshal(t.InputSchema, &params)
			}
			out = append(out, tools.Tool{
				Type: "function",
				Function: &tools.FunctionDefinition{
					Name:        name + "_" + t.Name,
					Description: t.Description,
					Parameters:  params,
				},
			})
		}
		return true
	})
	return out
}

// splitNamespacedTool splits "server_tool" on the first underscore.
func splitNamespacedTool(fullName string) (server, tool string, ok bool) {
	idx := strings.Index(fullName, "_")
	if idx < 0 || idx == 0 || idx == len(fullName)-1 {
		return "", "", false
	}
	return fullName[:idx], fullName[idx+1:], true
}

// CallTool dispatches a namespaced tool call to the owning server.
func (m *Manager) CallTool(ctx context.Context, fullName string, args any) (json.RawMessage, error) {
	server, tool, ok := splitNamespacedTool(fullName)
	if !ok {
		return nil, &ToolNotFoundError{Name: fullName}
	}
	s, found := m.servers.Load(server)
	if !found {
		return nil, &NotConnectedError{Server: server}
	}
	return s.CallTool(ctx, tool, args)
}

// CallToolWithTimeout wraps CallTool with a deadline. On timeout the
// in-flight RPC is abandoned at the transport level (see stdio.go); this
// call simply reports a TimeoutError to its caller.
func (m *Manager) CallToolWithTimeout(ctx context.Context, fullName string, args any, timeout time.Duration) (json.RawMessage, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := m.CallTool(timeoutCtx, fullName, args)
	if err != nil && timeoutCtx.Err() == context.DeadlineExceeded {
		return nil, &TimeoutError{Method: fullName}
	}
	return result, err
}

// Disconnect tears down and removes the named server.
func (m *Manager) Disconnect(name string) error {
	s, ok := m.servers.Load(name)
	if !ok {
		return nil
	}
	m.servers.Delete(name)
	return s.Disconnect()
}

// DisconnectAll tears down and removes every server. Errors are collected
// and joined rather than aborting partway through.
func (m *Manager) DisconnectAll() error {
	var errs []error
	m.servers.Range(func(name string, s *Server) bool {
		if err := s.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return true
	})
	m.servers = concurrent.NewMap[string, *Server]()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("mcp: disconnect errors: %s", strings.Join(msgs, "; "))
}
