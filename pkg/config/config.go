// Package config loads the top-level YAML document that wires hook
// definitions and path overrides for one OpenClaudia project, merging a
// project-local document onto a user-global one.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/docker/openclaudia/pkg/hooks"
)

// Config is the top-level document loaded from a project's or user's
// config.yaml.
type Config struct {
	Hooks      hooks.Config           `yaml:"hooks,omitempty"`
	MCPServers map[string]MCPServer   `yaml:"mcp_servers,omitempty"`
	RulesDir   string                 `yaml:"rules_dir,omitempty"`
	SessionDir string                 `yaml:"session_dir,omitempty"`
	MemoryDir  string                 `yaml:"memory_dir,omitempty"`
}

// MCPServer is one statically-configured MCP server connection.
type MCPServer struct {
	Transport string   `yaml:"transport"`
	Command   string   `yaml:"command,omitempty"`
	Args      []string `yaml:"args,omitempty"`
	URL       string   `yaml:"url,omitempty"`
}

// Load reads and parses a config document at path. A missing file yields
// a zero-value Config, not an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return c, nil
}

// LoadMerged loads the user-global config at userPath and the
// project-local config at projectPath, then merges the project document
// onto the user document: hook entries are appended per event (project
// entries run after user entries), and every other scalar field is
// replaced by the project value when non-empty.
func LoadMerged(userPath, projectPath string) (Config, error) {
	user, err := Load(userPath)
	if err != nil {
		return Config{}, err
	}
	project, err := Load(projectPath)
	if err != nil {
		return Config{}, err
	}
	return Merge(user, project), nil
}

// Merge appends project's hook entries onto user's, per event, and lets
// any non-empty project scalar/map field override user's.
func Merge(user, project Config) Config {
	merged := Config{
		Hooks:      mergeHooks(user.Hooks, project.Hooks),
		MCPServers: mergeServers(user.MCPServers, project.MCPServers),
		RulesDir:   firstNonEmpty(project.RulesDir, user.RulesDir),
		SessionDir: firstNonEmpty(project.SessionDir, user.SessionDir),
		MemoryDir:  firstNonEmpty(project.MemoryDir, user.MemoryDir),
	}
	return merged
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func mergeServers(user, project map[string]MCPServer) map[string]MCPServer {
	if len(user) == 0 && len(project) == 0 {
		return nil
	}
	merged := make(map[string]MCPServer, len(user)+len(project))
	for k, v := range user {
		merged[k] = v
	}
	for k, v := range project {
		merged[k] = v
	}
	return merged
}

func mergeHooks(user, project hooks.Config) hooks.Config {
	var merged hooks.Config
	for _, ev := range hooks.AllEvents {
		combined := append(append([]hooks.Entry{}, user.EntriesFor(ev)...), project.EntriesFor(ev)...)
		setEntries(&merged, ev, combined)
	}
	return merged
}

func setEntries(c *hooks.Config, event hooks.EventType, entries []hooks.Entry) {
	if len(entries) == 0 {
		return
	}
	switch event {
	case hooks.EventSessionStart:
		c.SessionStart = entries
	case hooks.EventSessionEnd:
		c.SessionEnd = entries
	case hooks.EventPreToolUse:
		c.PreToolUse = entries
	case hooks.EventPostToolUse:
		c.PostToolUse = entries
	case hooks.EventPostToolUseFailure:
		c.PostToolUseFailure = entries
	case hooks.EventUserPromptSubmit:
		c.UserPromptSubmit = entries
	case hooks.EventStop:
		c.Stop = entries
	case hooks.EventSubagentStart:
		c.SubagentStart = entries
	case hooks.EventSubagentStop:
		c.SubagentStop = entries
	case hooks.EventPreCompact:
		c.PreCompact = entries
	case hooks.EventPermissionRequest:
		c.PermissionRequest = entries
	case hooks.EventNotification:
		c.Notification = entries
	}
}
