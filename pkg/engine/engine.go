// Package engine wires the Hook Engine, Context Compactor, MCP Client,
// Session & Memory Layer, Context Injector, and Rules/Plugin Loader into
// the single request lifecycle a front-end drives: session selection,
// prompt-submit gating, rules/core-memory injection, compaction, and
// tool dispatch.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/docker/openclaudia/pkg/chat"
	"github.com/docker/openclaudia/pkg/compactor"
	"github.com/docker/openclaudia/pkg/config"
	"github.com/docker/openclaudia/pkg/hooks"
	"github.com/docker/openclaudia/pkg/injector"
	"github.com/docker/openclaudia/pkg/mcp"
	"github.com/docker/openclaudia/pkg/memory"
	"github.com/docker/openclaudia/pkg/paths"
	"github.com/docker/openclaudia/pkg/plugins"
	"github.com/docker/openclaudia/pkg/rules"
	"github.com/docker/openclaudia/pkg/session"
)

// Engine is one project's assembled middleware core: the state every
// subsystem needs to process a client request.
type Engine struct {
	ProjectDir string

	Hooks    *hooks.Engine
	MCP      *mcp.Manager
	Memory   *memory.DB
	Sessions *session.Manager
	Rules    *rules.Engine
	Plugins  *plugins.Manager

	CompactPolicy compactor.Policy

	session *session.Session
}

// Open assembles an Engine for projectDir: loads merged config, opens the
// memory store, the rules engine, the session manager, and the plugin
// manager, then merges discovered plugins' hooks into the Hook Engine's
// config and connects both the config-declared and plugin-declared MCP
// servers into the MCP Manager's startup set.
func Open(ctx context.Context, projectDir string) (*Engine, error) {
	merged, err := config.LoadMerged(
		paths.UserConfigDir()+"/config.yaml",
		paths.ProjectDir(projectDir)+"/config.yaml",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	rulesDir := merged.RulesDir
	if rulesDir == "" {
		rulesDir = paths.RulesDir(projectDir)
	}

	memDB, err := memory.Open(paths.MemoryDBPath(projectDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	sessionDir := merged.SessionDir
	if sessionDir == "" {
		sessionDir = paths.SessionDir(projectDir)
	}
	sessions, err := session.NewManager(sessionDir)
	if err != nil {
		memDB.Close()
		return nil, fmt.Errorf("failed to open session manager: %w", err)
	}

	pluginMgr := plugins.NewManager(paths.UserPluginsDir(), paths.ProjectPluginsDir(projectDir))
	pluginMgr.Discover()

	combinedHooks := mergePluginHooks(merged.Hooks, pluginMgr.AllHooks())

	mcpMgr := mcp.NewManager()
	var specs []serverSpec
	specs = append(specs, configuredServerSpecs(merged.MCPServers)...)
	specs = append(specs, pluginServerSpecs(pluginMgr.AllMCPServers())...)
	connectServers(ctx, mcpMgr, projectDir, specs)

	return &Engine{
		ProjectDir:    projectDir,
		Hooks:         hooks.New(combinedHooks, projectDir, os.Environ()),
		MCP:           mcpMgr,
		Memory:        memDB,
		Sessions:      sessions,
		Rules:         rules.New(rulesDir),
		Plugins:       pluginMgr,
		CompactPolicy: compactor.DefaultPolicy(),
	}, nil
}

// Close releases resources held by the Engine (currently: the memory
// store connection).
func (e *Engine) Close() error {
	return e.Memory.Close()
}

// StartSession runs SessionStart hooks and selects Initializer vs Coding
// mode via the Session Manager, recording the result on the Engine.
func (e *Engine) StartSession(ctx context.Context, cwd string) (*session.Session, error) {
	s, err := e.Sessions.GetOrCreate()
	if err != nil {
		return nil, fmt.Errorf("failed to select session: %w", err)
	}
	e.session = s

	input := hooks.Input{Event: hooks.EventSessionStart, Cwd: cwd, SessionID: s.ID.String()}
	result := e.Hooks.Run(ctx, hooks.EventSessionStart, input)
	for _, msg := range result.SystemMessages() {
		slog.Debug("session_start hook system message", "message", msg)
	}

	return s, nil
}

// EndSession runs SessionEnd hooks and persists the session with the
// given handoff notes.
func (e *Engine) EndSession(ctx context.Context, cwd, handoffNotes string) error {
	if e.session == nil {
		return nil
	}

	input := hooks.Input{Event: hooks.EventSessionEnd, Cwd: cwd, SessionID: e.session.ID.String()}
	e.Hooks.Run(ctx, hooks.EventSessionEnd, input)

	e.session.Progress.HandoffNotes = handoffNotes
	return e.Sessions.End(e.session)
}

// PrepareRequest runs the UserPromptSubmit hook (which may deny or rewrite
// the prompt), injects core memory as a system prefix, merges in the MCP
// tool catalogue, and compacts if the result would exceed the model's
// context window.
func (e *Engine) PrepareRequest(ctx context.Context, cwd, prompt string, req *chat.Request) (*chat.Request, error) {
	input := hooks.Input{Event: hooks.EventUserPromptSubmit, Cwd: cwd, Prompt: prompt}
	if e.session != nil {
		input.SessionID = e.session.ID.String()
	}
	result := e.Hooks.Run(ctx, hooks.EventUserPromptSubmit, input)
	if err := hooks.CheckBlocked(result); err != nil {
		return nil, err
	}

	next := *req
	injector.ApplyPromptModification(&next, result)
	injector.InjectHookOutputs(&next, result)

	if core, err := e.Memory.FormatCoreMemoryForPrompt(ctx); err == nil {
		injector.InjectSystemPrefix(&next, core)
	} else {
		slog.Warn("failed to format core memory for prompt", "error", err)
	}

	next.Tools = append(next.Tools, e.MCP.ToolsAsOpenAIFunctions()...)

	analysis := compactor.Analyze(&next, e.CompactPolicy)
	if analysis.NeedsCompaction {
		result, err := compactor.Compact(ctx, e.Hooks, &next, e.CompactPolicy)
		if err != nil {
			return nil, fmt.Errorf("failed to compact context: %w", err)
		}
		next = *result.Request
	}

	return &next, nil
}

// DispatchTool runs the PreToolUse hook (which may deny the call, and
// surfaces any matching rules as a system-reminder on the triggering
// message), routes the call to the MCP Manager, runs PostToolUse (or
// PostToolUseFailure on error), and returns the raw tool result.
func (e *Engine) DispatchTool(ctx context.Context, cwd, toolName string, toolInput map[string]any) (any, error) {
	pre := hooks.Input{Event: hooks.EventPreToolUse, Cwd: cwd, ToolName: toolName, ToolInput: toolInput}
	if e.session != nil {
		pre.SessionID = e.session.ID.String()
	}
	result := e.Hooks.Run(ctx, hooks.EventPreToolUse, pre)
	if err := hooks.CheckBlocked(result); err != nil {
		return nil, err
	}

	if extensions := rules.ExtractExtensionsFromToolInput(toolName, toolInput); len(extensions) > 0 {
		if combined := e.Rules.Combined(extensions); combined != "" {
			slog.Debug("rules matched tool call", "tool", toolName, "extensions", extensions)
		}
	}

	out, callErr := e.MCP.CallTool(ctx, toolName, toolInput)

	post := hooks.Input{Event: hooks.EventPostToolUse, Cwd: cwd, ToolName: toolName, ToolInput: toolInput}
	if e.session != nil {
		post.SessionID = e.session.ID.String()
	}
	event := hooks.EventPostToolUse
	if callErr != nil {
		event = hooks.EventPostToolUseFailure
	}
	e.Hooks.Run(ctx, event, post)

	return out, callErr
}
