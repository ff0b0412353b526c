package plugins

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Manager discovers plugins from a set of search paths and indexes their
// hooks, commands, and MCP servers.
type Manager struct {
	mu          sync.RWMutex
	searchPaths []string
	plugins     map[string]*Plugin

	watcher *fsnotify.Watcher
}

// NewManager builds a Manager over the given search paths. Plugins are not
// loaded until Discover is called.
func NewManager(searchPaths ...string) *Manager {
	return &Manager{
		searchPaths: searchPaths,
		plugins:     make(map[string]*Plugin),
	}
}

// Discover scans every search path for plugin directories, loading and
// validating each manifest.json found. Plugins that fail to load are
// skipped and reported, not fatal to the overall scan.
func (m *Manager) Discover() []error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, searchPath := range m.searchPaths {
		entries, err := os.ReadDir(searchPath)
		if err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("failed to read plugin directory", "path", searchPath, "error", err)
			}
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			pluginDir := filepath.Join(searchPath, entry.Name())
			plugin, err := load(pluginDir)
			if err != nil {
				slog.Warn("failed to load plugin", "path", pluginDir, "error", err)
				errs = append(errs, err)
				continue
			}
			slog.Info("loaded plugin", "name", plugin.Name(), "version", plugin.Manifest.Version, "path", pluginDir)
			m.plugins[plugin.Name()] = plugin
		}
	}
	return errs
}

// Get returns a loaded plugin by name.
func (m *Manager) Get(name string) (*Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plugins[name]
	return p, ok
}

// All returns every loaded plugin, in no particular order.
func (m *Manager) All() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		out = append(out, p)
	}
	return out
}

// Count returns the number of loaded plugins.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

// PluginHook pairs a hook declaration with the plugin that declared it.
type PluginHook struct {
	Plugin *Plugin
	Hook   Hook
}

// AllHooks returns every hook from every enabled plugin.
func (m *Manager) AllHooks() []PluginHook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []PluginHook
	for _, p := range m.plugins {
		if !p.Enabled {
			continue
		}
		for _, h := range p.Manifest.Hooks {
			out = append(out, PluginHook{Plugin: p, Hook: h})
		}
	}
	return out
}

// HooksForEvent returns every hook from enabled plugins matching the given
// lifecycle event.
func (m *Manager) HooksForEvent(event string) []PluginHook {
	var out []PluginHook
	for _, ph := range m.AllHooks() {
		if ph.Hook.Event == event {
			out = append(out, ph)
		}
	}
	return out
}

// PluginCommand pairs a command declaration with the plugin that declared it.
type PluginCommand struct {
	Plugin  *Plugin
	Command Command
}

// AllCommands returns every slash command from every enabled plugin.
func (m *Manager) AllCommands() []PluginCommand {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []PluginCommand
	for _, p := range m.plugins {
		if !p.Enabled {
			continue
		}
		for _, c := range p.Manifest.Commands {
			out = append(out, PluginCommand{Plugin: p, Command: c})
		}
	}
	return out
}

// PluginMCPServer pairs an MCP server declaration with the plugin that
// declared it.
type PluginMCPServer struct {
	Plugin *Plugin
	Server MCPServer
}

// AllMCPServers returns every MCP server declared by every enabled plugin.
func (m *Manager) AllMCPServers() []PluginMCPServer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []PluginMCPServer
	for _, p := range m.plugins {
		if !p.Enabled {
			continue
		}
		for _, s := range p.Manifest.MCPServers {
			out = append(out, PluginMCPServer{Plugin: p, Server: s})
		}
	}
	return out
}

// NotFoundError reports that a named plugin has not been loaded.
type NotFoundError struct{ Name string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("plugin not found: %s", e.Name) }

// Enable marks a loaded plugin as enabled.
func (m *Manager) Enable(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plugins[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	p.Enabled = true
	return nil
}

// Disable marks a loaded plugin as disabled; its hooks, commands, and MCP
// servers are excluded from the All*/HooksForEvent views until re-enabled.
func (m *Manager) Disable(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plugins[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	p.Enabled = false
	return nil
}

// Reload discards every loaded plugin and re-runs Discover.
func (m *Manager) Reload() []error {
	m.mu.Lock()
	m.plugins = make(map[string]*Plugin)
	m.mu.Unlock()
	return m.Discover()
}

// WatchForChanges starts watching every search path for filesystem
// changes, invoking onChange (typically Reload) whenever one fires. The
// returned stop function closes the underlying watcher; it is idempotent.
func (m *Manager) WatchForChanges(onChange func()) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin watcher: %w", err)
	}

	for _, path := range m.searchPaths {
		if err := watcher.Add(path); err != nil {
			slog.Debug("plugin watch path unavailable", "path", path, "error", err)
		}
	}

	m.mu.Lock()
	m.watcher = watcher
	m.mu.Unlock()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Write|fsnotify.Rename) != 0 {
					onChange()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher.Close, nil
}
