// Package paths resolves the well-known filesystem locations the agent
// reads configuration, plugins, and rules from.
package paths

import (
	"os"
	"path/filepath"
)

// UserPluginsDir returns "~/.openclaudia/plugins", the user-global plugin
// search root.
//
// If the home directory cannot be determined, it falls back to a directory
// under the system temporary directory. This is a best-effort fallback and
// not intended to be a security boundary.
func UserPluginsDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".openclaudia-config", "plugins"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".openclaudia", "plugins"))
}

// ProjectPluginsDir returns "<project>/.openclaudia/plugins", the
// project-local plugin search root.
func ProjectPluginsDir(projectDir string) string {
	return filepath.Clean(filepath.Join(projectDir, ".openclaudia", "plugins"))
}

// ProjectDir returns "<project>/.openclaudia", the root every project-local
// persisted resource (memory DB, rules, hook config) lives under.
func ProjectDir(projectDir string) string {
	return filepath.Clean(filepath.Join(projectDir, ".openclaudia"))
}

// RulesDir returns "<project>/.openclaudia/rules".
func RulesDir(projectDir string) string {
	return filepath.Clean(filepath.Join(ProjectDir(projectDir), "rules"))
}

// MemoryDBPath returns "<project>/.openclaudia/memory.db".
func MemoryDBPath(projectDir string) string {
	return filepath.Clean(filepath.Join(ProjectDir(projectDir), "memory.db"))
}

// SessionDir returns "<project>/.openclaudia/sessions".
func SessionDir(projectDir string) string {
	return filepath.Clean(filepath.Join(ProjectDir(projectDir), "sessions"))
}

// UserConfigDir returns "~/.openclaudia", the user-global config root.
//
// Returns an empty string if the home directory cannot be determined.
func UserConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Clean(filepath.Join(homeDir, ".openclaudia"))
}
