package hooks

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"sync"
)

// Engine dispatches hooks for any of the twelve lifecycle events against an
// immutable Config. It never throws on a hook's own failure: failures are
// collected into Result.Errors and the event is treated as allow unless some
// hook explicitly set allowed=false.
type Engine struct {
	config     Config
	workingDir string
	env        []string

	shell           string
	shellArgsPrefix []string
}

// New builds an Engine bound to a working directory and process environment.
// Regexes are compiled lazily per-run rather than cached, since a given
// engine instance runs many distinct event kinds over its lifetime and entry
// sets rarely repeat often enough to amortize a cache.
func New(config Config, workingDir string, env []string) *Engine {
	e := &Engine{config: config, workingDir: workingDir, env: env}
	e.initShell()
	return e
}

func (e *Engine) initShell() {
	if runtime.GOOS == "windows" {
		e.shell = cmp.Or(os.Getenv("ComSpec"), "cmd.exe")
		e.shellArgsPrefix = []string{"/C"}
	} else {
		e.shell = "sh"
		e.shellArgsPrefix = []string{"-c"}
	}
}

// Run executes every hook entry bound to event whose matcher accepts the
// input's matcher context, fanning the matched hooks out in parallel.
func (e *Engine) Run(ctx context.Context, event EventType, input Input) *Result {
	entries := e.config.EntriesFor(event)
	if len(entries) == 0 {
		return AllowedResult()
	}

	input.Event = event
	if input.Cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			input.Cwd = wd
		}
	}

	matcherCtx := matcherContext(event, input)

	var errs []*HookError
	var matched []Entry
	for _, entry := range entries {
		ok, err := matchesEntry(entry, matcherCtx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			matched = append(matched, entry)
		}
	}

	var toRun []Hook
	for _, entry := range matched {
		toRun = append(toRun, entry.Hooks...)
	}

	if len(toRun) == 0 {
		return &Result{Allowed: true, Errors: errs}
	}

	slog.Info("running hooks", "event", event, "count", len(toRun))

	inputJSON, err := json.Marshal(input)
	if err != nil {
		errs = append(errs, &HookError{Kind: "parse_error", Message: err.Error()})
		return &Result{Allowed: true, Errors: errs}
	}

	results := make([]singleResult, len(toRun))
	var wg sync.WaitGroup
	for i, h := range toRun {
		wg.Add(1)
		go func(idx int, hook Hook) {
			defer wg.Done()
			results[idx] = e.runOne(ctx, hook, inputJSON)
		}(i, h)
	}
	wg.Wait()

	return e.merge(results, errs)
}

// matcherContext computes the string matchers are tested against: the tool
// name if present, else the user prompt if present, else the event's
// canonical config key.
func matcherContext(event EventType, input Input) string {
	if input.ToolName != "" {
		return input.ToolName
	}
	if input.Prompt != "" {
		return input.Prompt
	}
	return string(event)
}

func matchesEntry(entry Entry, context string) (bool, *HookError) {
	if entry.Matcher == nil {
		return true, nil
	}
	pattern := *entry.Matcher
	if pattern == "" {
		slog.Warn("invalid hook matcher", "error", "empty pattern")
		return false, &HookError{Kind: "invalid_matcher", Message: "empty pattern"}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		slog.Warn("invalid hook matcher", "pattern", pattern, "error", err)
		return false, &HookError{Kind: "invalid_matcher", Message: err.Error()}
	}
	return re.MatchString(context), nil
}

type singleResult struct {
	output   Output
	exitCode int
	err      *HookError
}

func (e *Engine) runOne(ctx context.Context, hook Hook, inputJSON []byte) singleResult {
	if hook.Kind == KindPrompt {
		return singleResult{output: Output{SystemMessage: hook.Prompt}, exitCode: 0}
	}
	return e.runCommand(ctx, hook, inputJSON)
}

func (e *Engine) runCommand(ctx context.Context, hook Hook, inputJSON []byte) singleResult {
	timeoutCtx, cancel := context.WithTimeout(ctx, hook.TimeoutDuration())
	defer cancel()

	args := append(append([]string{}, e.shellArgsPrefix...), hook.Command)
	cmd := exec.CommandContext(timeoutCtx, e.shell, args...)
	cmd.Dir = e.workingDir
	cmd.Env = append(append([]string{}, e.env...), "CLAUDE_PROJECT_DIR="+e.workingDir)
	cmd.Stdin = bytes.NewReader(inputJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if timeoutCtx.Err() == context.DeadlineExceeded {
		return singleResult{err: &HookError{
			Kind:    "timeout",
			Message: fmt.Sprintf("hook timed out after %s", hook.TimeoutDuration()),
		}}
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return singleResult{err: &HookError{Kind: "command_failed", Message: err.Error()}}
		}
	}

	if stderr.Len() > 0 {
		slog.Debug("hook stderr", "stderr", stderr.String())
	}

	output, perr := parseHookOutput(stdout.Bytes())
	if perr != nil {
		slog.Warn("failed to parse hook output", "error", perr, "stdout", stdout.String())
		output = Output{}
	}

	return singleResult{output: output, exitCode: exitCode}
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func parseHookOutput(stdout []byte) (Output, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return Output{}, nil
	}
	var out Output
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return Output{}, fmt.Errorf("failed to parse hook output: %w", err)
	}
	return out, nil
}

func (e *Engine) merge(results []singleResult, preErrs []*HookError) *Result {
	res := &Result{Allowed: true, Errors: preErrs}
	for _, r := range results {
		if r.err != nil {
			slog.Error("hook execution failed", "error", r.err)
			res.Errors = append(res.Errors, r.err)
			continue
		}

		if r.exitCode == 2 {
			res.Allowed = false
			reason := r.output.Reason
			if reason == "" {
				reason = "Hook blocked action"
			}
			slog.Warn("hook blocked action", "reason", reason)
		}
		if isBlockingDecision(r.output.Decision) {
			res.Allowed = false
		}
		res.Outputs = append(res.Outputs, r.output)
	}
	return res
}
