package rules

import (
	"path/filepath"
	"strings"
)

// ExtractExtensionsFromToolInput recovers the file extension(s) relevant to
// a pending tool call, so PreToolUse-time rule selection can run before the
// tool executes. For Write/Edit/Read, the extension of tool_input.file_path;
// for Glob, a heuristic trailing-extension of tool_input.pattern.
func ExtractExtensionsFromToolInput(toolName string, input map[string]any) []string {
	switch toolName {
	case "Write", "Edit", "Read":
		path, _ := input["file_path"].(string)
		if path == "" {
			return nil
		}
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if ext == "" {
			return nil
		}
		return []string{ext}

	case "Glob":
		pattern, _ := input["pattern"].(string)
		if pattern == "" {
			return nil
		}
		idx := strings.LastIndex(pattern, ".")
		if idx < 0 {
			return nil
		}
		ext := strings.TrimRight(pattern[idx+1:], "*?])")
		if ext != "" && len(ext) < 10 {
			return []string{ext}
		}
		return nil

	default:
		return nil
	}
}
