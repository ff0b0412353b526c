// Package hooks dispatches user-defined interceptors at lifecycle events.
// Hooks observe or gate the agent's decision loop: they can allow, deny, or
// rewrite a step, inject a system reminder into the next request, or run as
// a purely static prompt reminder. A hook is either a shell command that
// exchanges JSON over stdin/stdout, or a literal prompt string.
package hooks

import (
	"encoding/json"
	"time"
)

// EventType identifies one of the twelve lifecycle moments a hook can fire on.
type EventType string

const (
	EventSessionStart        EventType = "session_start"
	EventSessionEnd          EventType = "session_end"
	EventPreToolUse          EventType = "pre_tool_use"
	EventPostToolUse         EventType = "post_tool_use"
	EventPostToolUseFailure  EventType = "post_tool_use_failure"
	EventUserPromptSubmit    EventType = "user_prompt_submit"
	EventStop                EventType = "stop"
	EventSubagentStart       EventType = "subagent_start"
	EventSubagentStop        EventType = "subagent_stop"
	EventPreCompact          EventType = "pre_compact"
	EventPermissionRequest   EventType = "permission_request"
	EventNotification        EventType = "notification"
)

// AllEvents lists every event kind a Config may bind, in canonical order.
var AllEvents = []EventType{
	EventSessionStart,
	EventSessionEnd,
	EventPreToolUse,
	EventPostToolUse,
	EventPostToolUseFailure,
	EventUserPromptSubmit,
	EventStop,
	EventSubagentStart,
	EventSubagentStop,
	EventPreCompact,
	EventPermissionRequest,
	EventNotification,
}

// HookKind distinguishes a command hook from a static prompt hook.
type HookKind string

const (
	// KindCommand runs a shell command, exchanging JSON over stdin/stdout.
	KindCommand HookKind = "command"

	// KindPrompt synthesizes a systemMessage output immediately, with no subprocess.
	KindPrompt HookKind = "prompt"
)

// Hook is either a Command Hook (shell command + timeout) or a Prompt Hook
// (literal text + timeout), discriminated by Kind.
type Hook struct {
	Kind HookKind `json:"type" yaml:"type"`

	// Command is the shell command to run (Kind == KindCommand).
	Command string `json:"command,omitempty" yaml:"command,omitempty"`

	// Prompt is the literal text to surface as a systemMessage (Kind == KindPrompt).
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`

	// Timeout is the execution budget in seconds. Zero means DefaultTimeout.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultTimeout is used when a Hook does not specify one.
const DefaultTimeout = 30 * time.Second

// TimeoutDuration returns the hook's configured timeout, or DefaultTimeout.
func (h Hook) TimeoutDuration() time.Duration {
	if h.Timeout <= 0 {
		return DefaultTimeout
	}
	return time.Duration(h.Timeout) * time.Second
}

// Entry is an optional matcher regex plus the ordered hooks that fire when it
// matches. A nil Matcher (the field absent from config) always matches; an
// explicit empty pattern is an error (see matchesEntry), distinguishable from
// absence only because this is a pointer rather than a bare string.
type Entry struct {
	Matcher *string `json:"matcher,omitempty" yaml:"matcher,omitempty"`
	Hooks   []Hook  `json:"hooks" yaml:"hooks"`
}

// Matcher builds an Entry.Matcher pointer from a pattern, for callers
// assembling Entry values (config parsing produces pointers naturally;
// hand-built entries, e.g. from plugin manifests, need this).
func Matcher(pattern string) *string { return &pattern }

// Config maps each of the twelve event kinds to the entries that should run for it.
type Config struct {
	SessionStart        []Entry `json:"session_start,omitempty" yaml:"session_start,omitempty"`
	SessionEnd           []Entry `json:"session_end,omitempty" yaml:"session_end,omitempty"`
	PreToolUse           []Entry `json:"pre_tool_use,omitempty" yaml:"pre_tool_use,omitempty"`
	PostToolUse          []Entry `json:"post_tool_use,omitempty" yaml:"post_tool_use,omitempty"`
	PostToolUseFailure   []Entry `json:"post_tool_use_failure,omitempty" yaml:"post_tool_use_failure,omitempty"`
	UserPromptSubmit     []Entry `json:"user_prompt_submit,omitempty" yaml:"user_prompt_submit,omitempty"`
	Stop                 []Entry `json:"stop,omitempty" yaml:"stop,omitempty"`
	SubagentStart        []Entry `json:"subagent_start,omitempty" yaml:"subagent_start,omitempty"`
	SubagentStop         []Entry `json:"subagent_stop,omitempty" yaml:"subagent_stop,omitempty"`
	PreCompact           []Entry `json:"pre_compact,omitempty" yaml:"pre_compact,omitempty"`
	PermissionRequest    []Entry `json:"permission_request,omitempty" yaml:"permission_request,omitempty"`
	Notification         []Entry `json:"notification,omitempty" yaml:"notification,omitempty"`
}

// EntriesFor returns the configured entries for a given event, or nil if none.
func (c *Config) EntriesFor(event EventType) []Entry {
	switch event {
	case EventSessionStart:
		return c.SessionStart
	case EventSessionEnd:
		return c.SessionEnd
	case EventPreToolUse:
		return c.PreToolUse
	case EventPostToolUse:
		return c.PostToolUse
	case EventPostToolUseFailure:
		return c.PostToolUseFailure
	case EventUserPromptSubmit:
		return c.UserPromptSubmit
	case EventStop:
		return c.Stop
	case EventSubagentStart:
		return c.SubagentStart
	case EventSubagentStop:
		return c.SubagentStop
	case EventPreCompact:
		return c.PreCompact
	case EventPermissionRequest:
		return c.PermissionRequest
	case EventNotification:
		return c.Notification
	default:
		return nil
	}
}

// AppendEntry appends one entry to the event's entry list in place, for
// callers merging in hooks contributed after the base config was built
// (e.g. plugin-declared hooks, appended after project/user config).
func (c *Config) AppendEntry(event EventType, entry Entry) {
	switch event {
	case EventSessionStart:
		c.SessionStart = append(c.SessionStart, entry)
	case EventSessionEnd:
		c.SessionEnd = append(c.SessionEnd, entry)
	case EventPreToolUse:
		c.PreToolUse = append(c.PreToolUse, entry)
	case EventPostToolUse:
		c.PostToolUse = append(c.PostToolUse, entry)
	case EventPostToolUseFailure:
		c.PostToolUseFailure = append(c.PostToolUseFailure, entry)
	case EventUserPromptSubmit:
		c.UserPromptSubmit = append(c.UserPromptSubmit, entry)
	case EventStop:
		c.Stop = append(c.Stop, entry)
	case EventSubagentStart:
		c.SubagentStart = append(c.SubagentStart, entry)
	case EventSubagentStop:
		c.SubagentStop = append(c.SubagentStop, entry)
	case EventPreCompact:
		c.PreCompact = append(c.PreCompact, entry)
	case EventPermissionRequest:
		c.PermissionRequest = append(c.PermissionRequest, entry)
	case EventNotification:
		c.Notification = append(c.Notification, entry)
	}
}

// IsEmpty reports whether no hooks are configured for any event.
func (c *Config) IsEmpty() bool {
	for _, ev := range AllEvents {
		if len(c.EntriesFor(ev)) > 0 {
			return false
		}
	}
	return true
}

// Input is the JSON object written to a command hook's stdin.
type Input struct {
	Event     EventType      `json:"event"`
	Cwd       string         `json:"cwd"`
	SessionID string         `json:"session_id,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	ToolInput map[string]any `json:"tool_input,omitempty"`
	Prompt    string         `json:"prompt,omitempty"`

	// Extra carries event-specific data not named above (e.g. current_tokens,
	// max_tokens for pre_compact) flattened alongside the fixed fields.
	Extra map[string]any `json:"-"`
}

// MarshalJSON flattens Extra alongside the fixed fields, mirroring serde's
// #[serde(flatten)] behavior on the original struct.
func (i Input) MarshalJSON() ([]byte, error) {
	type alias Input
	base, err := json.Marshal(alias(i))
	if err != nil {
		return nil, err
	}
	if len(i.Extra) == 0 {
		return base, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	for k, v := range i.Extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		m[k] = raw
	}
	return json.Marshal(m)
}

// WithExtra returns a copy of the input with an additional extension field set.
func (i Input) WithExtra(key string, value any) Input {
	next := i
	next.Extra = make(map[string]any, len(i.Extra)+1)
	for k, v := range i.Extra {
		next.Extra[k] = v
	}
	next.Extra[key] = value
	return next
}

// Output is the JSON object a command hook may print to stdout, or the
// synthesized output of a prompt hook. Absent/empty is treated as allow.
type Output struct {
	Decision      string         `json:"decision,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	SystemMessage string         `json:"systemMessage,omitempty"`
	Prompt        string         `json:"prompt,omitempty"`
	Extra         map[string]any `json:"-"`
}

// UnmarshalJSON keeps unrecognized fields in Extra, matching serde's flatten.
func (o *Output) UnmarshalJSON(data []byte) error {
	type alias Output
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*o = Output(a)

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	delete(m, "decision")
	delete(m, "reason")
	delete(m, "systemMessage")
	delete(m, "prompt")
	if len(m) == 0 {
		return nil
	}
	o.Extra = make(map[string]any, len(m))
	for k, raw := range m {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		o.Extra[k] = v
	}
	return nil
}

// isBlockingDecision reports whether a decision string is a deny/block synonym.
func isBlockingDecision(decision string) bool {
	return decision == "deny" || decision == "block"
}

// HookError records a single hook's failure without aborting the event's fan-out.
type HookError struct {
	Kind    string // "timeout", "command_failed", "parse_error", "invalid_matcher"
	Message string
}

func (e *HookError) Error() string { return e.Kind + ": " + e.Message }

// Result is what running all hooks for one event produces.
type Result struct {
	Allowed bool
	Outputs []Output
	Errors  []*HookError
}

// Allowed builds a trivially-allowed, empty result.
func AllowedResult() *Result {
	return &Result{Allowed: true}
}

// Denied builds a result carrying a single deny output with the given reason.
func Denied(reason string) *Result {
	return &Result{
		Allowed: false,
		Outputs: []Output{{Decision: "deny", Reason: reason}},
	}
}

// SystemMessages returns every non-empty systemMessage across outputs, in
// completion order (see package doc on ordering guarantees).
func (r *Result) SystemMessages() []string {
	var out []string
	for _, o := range r.Outputs {
		if o.SystemMessage != "" {
			out = append(out, o.SystemMessage)
		}
	}
	return out
}

// ModifiedPrompt returns the first hook-supplied prompt rewrite, if any.
func (r *Result) ModifiedPrompt() (string, bool) {
	for _, o := range r.Outputs {
		if o.Prompt != "" {
			return o.Prompt, true
		}
	}
	return "", false
}

// CheckBlocked turns a disallowed Result into an error carrying the first reason.
func CheckBlocked(r *Result) error {
	if r.Allowed {
		return nil
	}
	reason := "Action blocked by hook"
	if len(r.Outputs) > 0 && r.Outputs[0].Reason != "" {
		reason = r.Outputs[0].Reason
	}
	return &HookError{Kind: "blocked", Message: reason}
}
