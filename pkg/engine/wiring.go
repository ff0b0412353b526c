package engine

import (
	"context"
	"log/slog"
	"os"

	"github.com/docker/openclaudia/pkg/config"
	"github.com/docker/openclaudia/pkg/hooks"
	"github.com/docker/openclaudia/pkg/mcp"
	"github.com/docker/openclaudia/pkg/plugins"
)

const clientName = "openclaudia"

// mergePluginHooks appends every enabled plugin's declared hooks onto base,
// per event, after the user/project config entries already merged into it.
func mergePluginHooks(base hooks.Config, pluginHooks []plugins.PluginHook) hooks.Config {
	merged := base
	for _, ph := range pluginHooks {
		entry := hooks.Entry{Hooks: []hooks.Hook{convertPluginHook(ph.Hook)}}
		if ph.Hook.Matcher != "" {
			entry.Matcher = hooks.Matcher(ph.Hook.Matcher)
		}
		merged.AppendEntry(hooks.EventType(ph.Hook.Event), entry)
	}
	return merged
}

func convertPluginHook(h plugins.Hook) hooks.Hook {
	kind := hooks.KindCommand
	if h.Type == "prompt" {
		kind = hooks.KindPrompt
	}
	return hooks.Hook{
		Kind:    kind,
		Command: h.Command,
		Prompt:  h.Prompt,
		Timeout: int(h.Timeout),
	}
}

// serverSpec is the shape both config.MCPServer and a plugin's declared
// MCPServer reduce to for connection purposes.
type serverSpec struct {
	name      string
	transport string
	command   string
	args      []string
	url       string
}

// connectServers dials every spec, registering whatever connects
// successfully and warn-logging (never failing Open) whatever doesn't —
// matching the propagation policy already applied to plugin manifest
// failures: one bad server never blocks the rest.
func connectServers(ctx context.Context, mgr *mcp.Manager, workDir string, specs []serverSpec) {
	for _, spec := range specs {
		transport, err := buildTransport(spec, workDir)
		if err != nil {
			slog.Warn("failed to build mcp transport", "server", spec.name, "error", err)
			continue
		}
		server, err := mcp.Connect(ctx, spec.name, transport, mcp.ClientInfo{Name: clientName, Version: "0.1.0"})
		if err != nil {
			slog.Warn("failed to connect mcp server", "server", spec.name, "error", err)
			continue
		}
		mgr.Register(server)
	}
}

func buildTransport(spec serverSpec, workDir string) (mcp.Transport, error) {
	if spec.transport == "http" {
		return mcp.NewHTTPTransport(spec.url, nil), nil
	}
	return mcp.NewStdioTransport(spec.command, spec.args, os.Environ(), workDir)
}

func configuredServerSpecs(servers map[string]config.MCPServer) []serverSpec {
	specs := make([]serverSpec, 0, len(servers))
	for name, s := range servers {
		specs = append(specs, serverSpec{
			name: name, transport: s.Transport, command: s.Command, args: s.Args, url: s.URL,
		})
	}
	return specs
}

func pluginServerSpecs(pluginServers []plugins.PluginMCPServer) []serverSpec {
	specs := make([]serverSpec, 0, len(pluginServers))
	for _, ps := range pluginServers {
		specs = append(specs, serverSpec{
			name: ps.Server.Name, transport: ps.Server.Transport, command: ps.Server.Command,
			args: ps.Server.Args, url: ps.Server.URL,
		})
	}
	return specs
}
