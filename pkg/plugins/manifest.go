// Package plugins discovers, validates, and indexes OpenClaudia plugins:
// self-contained directories carrying a manifest.json that declare hooks,
// slash commands, and MCP servers to wire in.
package plugins

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest is the contents of a plugin's manifest.json.
type Manifest struct {
	Name         string      `json:"name"`
	Version      string      `json:"version"`
	Description  string      `json:"description,omitempty"`
	Author       string      `json:"author,omitempty"`
	Hooks        []Hook      `json:"hooks,omitempty"`
	Commands     []Command   `json:"commands,omitempty"`
	MCPServers   []MCPServer `json:"mcp_servers,omitempty"`
	MinVersion   string      `json:"min_version,omitempty"`
	Capabilities []string    `json:"capabilities,omitempty"`
}

// Hook declares one lifecycle hook a plugin contributes.
type Hook struct {
	Event   string `json:"event"`
	Matcher string `json:"matcher,omitempty"`
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
	Timeout uint64 `json:"timeout,omitempty"`
}

const defaultHookTimeout = 30

// Command declares one slash command a plugin contributes.
type Command struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Script      string          `json:"script"`
	Args        json.RawMessage `json:"args,omitempty"`
}

// MCPServer declares one MCP server a plugin wants connected.
type MCPServer struct {
	Name      string   `json:"name"`
	Transport string   `json:"transport"`
	Command   string   `json:"command,omitempty"`
	Args      []string `json:"args,omitempty"`
	URL       string   `json:"url,omitempty"`
}

// ManifestError reports why a plugin manifest could not be loaded,
// annotated with the plugin directory it came from.
type ManifestError struct {
	Path string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("plugin at %q: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

const manifestFileName = "manifest.json"

func loadManifest(pluginDir string) (Manifest, error) {
	manifestPath := filepath.Join(pluginDir, manifestFileName)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, &ManifestError{Path: pluginDir, Err: fmt.Errorf("manifest not found")}
		}
		return Manifest{}, &ManifestError{Path: pluginDir, Err: err}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, &ManifestError{Path: pluginDir, Err: fmt.Errorf("invalid manifest: %w", err)}
	}

	for i := range m.Hooks {
		if m.Hooks[i].Timeout == 0 {
			m.Hooks[i].Timeout = defaultHookTimeout
		}
	}

	if err := validateManifest(m); err != nil {
		return Manifest{}, &ManifestError{Path: pluginDir, Err: err}
	}

	return m, nil
}

func validateManifest(m Manifest) error {
	if m.Name == "" {
		return fmt.Errorf("invalid manifest: plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("invalid manifest: plugin version is required")
	}

	for _, hook := range m.Hooks {
		if hook.Event == "" {
			return fmt.Errorf("invalid manifest: hook event is required")
		}
		switch hook.Type {
		case "command":
			if hook.Command == "" {
				return fmt.Errorf("invalid manifest: command hook requires 'command' field")
			}
		case "prompt":
			if hook.Prompt == "" {
				return fmt.Errorf("invalid manifest: prompt hook requires 'prompt' field")
			}
		default:
			return fmt.Errorf("invalid manifest: unknown hook type: %s", hook.Type)
		}
	}

	return nil
}
