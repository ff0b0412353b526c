package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadMissingFileYieldsEmptyConfig(t *testing.T) {
	t.Parallel()

	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, c.RulesDir)
	assert.True(t, c.Hooks.IsEmpty())
}

func TestLoadParsesHooksAndOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeYAML(t, path, `
rules_dir: /custom/rules
session_dir: /custom/sessions
hooks:
  pre_tool_use:
    - matcher: "Write|Edit"
      hooks:
        - type: command
          command: "echo pre"
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/custom/rules", c.RulesDir)
	assert.Equal(t, "/custom/sessions", c.SessionDir)

	entries := c.Hooks.EntriesFor("pre_tool_use")
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Matcher)
	assert.Equal(t, "Write|Edit", *entries[0].Matcher)
}

func TestMergeAppendsProjectHooksOntoUserPerEvent(t *testing.T) {
	t.Parallel()

	userDir := t.TempDir()
	projectDir := t.TempDir()

	userPath := filepath.Join(userDir, "config.yaml")
	projectPath := filepath.Join(projectDir, "config.yaml")

	writeYAML(t, userPath, `
hooks:
  pre_tool_use:
    - hooks:
        - type: command
          command: "user-hook"
`)
	writeYAML(t, projectPath, `
hooks:
  pre_tool_use:
    - hooks:
        - type: command
          command: "project-hook"
rules_dir: /project/rules
`)

	merged, err := LoadMerged(userPath, projectPath)
	require.NoError(t, err)

	entries := merged.Hooks.EntriesFor("pre_tool_use")
	require.Len(t, entries, 2)
	assert.Equal(t, "user-hook", entries[0].Hooks[0].Command, "user entries run first")
	assert.Equal(t, "project-hook", entries[1].Hooks[0].Command, "project entries appended, not replacing")
	assert.Equal(t, "/project/rules", merged.RulesDir)
}

func TestMergePrefersProjectScalarWhenSet(t *testing.T) {
	t.Parallel()

	user := Config{RulesDir: "/user/rules", SessionDir: "/user/sessions"}
	project := Config{RulesDir: "/project/rules"}

	merged := Merge(user, project)
	assert.Equal(t, "/project/rules", merged.RulesDir)
	assert.Equal(t, "/user/sessions", merged.SessionDir, "falls back to user value when project leaves it empty")
}

func TestMergeUnionsMCPServers(t *testing.T) {
	t.Parallel()

	user := Config{MCPServers: map[string]MCPServer{"shared": {Transport: "stdio", Command: "user-cmd"}}}
	project := Config{MCPServers: map[string]MCPServer{
		"shared":  {Transport: "stdio", Command: "project-cmd"},
		"project": {Transport: "http", URL: "http://localhost:1234"},
	}}

	merged := Merge(user, project)
	require.Len(t, merged.MCPServers, 2)
	assert.Equal(t, "project-cmd", merged.MCPServers["shared"].Command, "project overrides a same-named server")
	assert.Equal(t, "http://localhost:1234", merged.MCPServers["project"].URL)
}
