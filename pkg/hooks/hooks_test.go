package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookTimeoutDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		hook     Hook
		expected time.Duration
	}{
		{name: "default timeout", hook: Hook{}, expected: DefaultTimeout},
		{name: "zero timeout uses default", hook: Hook{Timeout: 0}, expected: DefaultTimeout},
		{name: "negative timeout uses default", hook: Hook{Timeout: -1}, expected: DefaultTimeout},
		{name: "custom timeout", hook: Hook{Timeout: 5}, expected: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.hook.TimeoutDuration())
		})
	}
}

func TestConfigEntriesFor(t *testing.T) {
	t.Parallel()

	cfg := Config{
		PreToolUse: []Entry{{Matcher: Matcher("Write|Edit"), Hooks: []Hook{{Kind: KindCommand, Command: "exit 0"}}}},
	}

	assert.Len(t, cfg.EntriesFor(EventPreToolUse), 1)
	assert.Empty(t, cfg.EntriesFor(EventPostToolUseFailure))
	assert.Empty(t, cfg.EntriesFor(EventNotification))
}

func TestConfigIsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Config{}).IsEmpty())

	cfg := Config{Stop: []Entry{{Hooks: []Hook{{Kind: KindCommand, Command: "exit 0"}}}}}
	assert.False(t, cfg.IsEmpty())
}

func TestInputMarshalFlattensExtra(t *testing.T) {
	t.Parallel()

	input := Input{Event: EventPreCompact, Cwd: "/tmp"}.
		WithExtra("current_tokens", 9000).
		WithExtra("max_tokens", 10000)

	data, err := input.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"current_tokens":9000`)
	assert.Contains(t, string(data), `"max_tokens":10000`)
	assert.Contains(t, string(data), `"event":"pre_compact"`)
}

func TestOutputUnmarshalKeepsExtra(t *testing.T) {
	t.Parallel()

	var out Output
	err := out.UnmarshalJSON([]byte(`{"decision":"deny","reason":"nope","extraField":42}`))
	require.NoError(t, err)
	assert.Equal(t, "deny", out.Decision)
	assert.Equal(t, "nope", out.Reason)
	assert.Equal(t, float64(42), out.Extra["extraField"])
}

// Scenario 1 from the testable-properties list: a matcher-gated command hook
// that exits 2 denies the action.
func TestRunHookDeny(t *testing.T) {
	t.Parallel()

	cfg := Config{
		PreToolUse: []Entry{{
			Matcher: Matcher("Write|Edit"),
			Hooks:   []Hook{{Kind: KindCommand, Command: "exit 2", Timeout: 5}},
		}},
	}
	engine := New(cfg, t.TempDir(), nil)

	result := engine.Run(context.Background(), EventPreToolUse, Input{ToolName: "Write"})
	assert.False(t, result.Allowed)
	assert.Len(t, result.Outputs, 1)
	assert.Empty(t, result.Errors)
}

// Scenario 2: an invalid matcher is skipped (not a block), while a valid
// unmatched entry still fires.
func TestRunToleratesInvalidRegex(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Notification: []Entry{
			{Matcher: Matcher("["), Hooks: []Hook{{Kind: KindCommand, Command: "exit 2"}}},
			{Hooks: []Hook{{Kind: KindCommand, Command: "exit 0"}}},
		},
	}
	engine := New(cfg, t.TempDir(), nil)

	result := engine.Run(context.Background(), EventNotification, Input{})
	assert.True(t, result.Allowed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "invalid_matcher", result.Errors[0].Kind)
}

// An explicit empty matcher pattern (as opposed to an absent one) is an
// error: the entry is skipped, not treated as "match everything".
func TestRunExplicitEmptyMatcherIsInvalid(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Notification: []Entry{
			{Matcher: Matcher(""), Hooks: []Hook{{Kind: KindCommand, Command: "exit 2"}}},
		},
	}
	engine := New(cfg, t.TempDir(), nil)

	result := engine.Run(context.Background(), EventNotification, Input{})
	assert.True(t, result.Allowed, "the entry is skipped, not run, so nothing can block")
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "invalid_matcher", result.Errors[0].Kind)
}

// An absent matcher (nil, not a pointer to "") always matches.
func TestRunAbsentMatcherAlwaysMatches(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Notification: []Entry{
			{Hooks: []Hook{{Kind: KindCommand, Command: "exit 2"}}},
		},
	}
	engine := New(cfg, t.TempDir(), nil)

	result := engine.Run(context.Background(), EventNotification, Input{})
	assert.False(t, result.Allowed)
	assert.Empty(t, result.Errors)
}

func TestRunNoEntriesAllowsImmediately(t *testing.T) {
	t.Parallel()

	engine := New(Config{}, t.TempDir(), nil)
	result := engine.Run(context.Background(), EventSessionStart, Input{})
	assert.True(t, result.Allowed)
	assert.Empty(t, result.Outputs)
}

func TestRunParsesJSONOutput(t *testing.T) {
	t.Parallel()

	cfg := Config{
		PreToolUse: []Entry{{
			Hooks: []Hook{{Kind: KindCommand, Command: `echo '{"decision":"deny","reason":"blocked by policy"}'`, Timeout: 5}},
		}},
	}
	engine := New(cfg, t.TempDir(), nil)

	result := engine.Run(context.Background(), EventPreToolUse, Input{ToolName: "Write"})
	assert.False(t, result.Allowed)
	assert.Equal(t, "blocked by policy", result.Outputs[0].Reason)
}

func TestRunPromptHookEmitsSystemMessage(t *testing.T) {
	t.Parallel()

	cfg := Config{
		SessionStart: []Entry{{Hooks: []Hook{{Kind: KindPrompt, Prompt: "remember the house style"}}}},
	}
	engine := New(cfg, t.TempDir(), nil)

	result := engine.Run(context.Background(), EventSessionStart, Input{})
	assert.True(t, result.Allowed)
	assert.Equal(t, []string{"remember the house style"}, result.SystemMessages())
}

func TestRunCommandTimeout(t *testing.T) {
	t.Parallel()

	cfg := Config{
		PreToolUse: []Entry{{Hooks: []Hook{{Kind: KindCommand, Command: "sleep 5", Timeout: 1}}}},
	}
	engine := New(cfg, t.TempDir(), nil)

	result := engine.Run(context.Background(), EventPreToolUse, Input{ToolName: "Write"})
	assert.True(t, result.Allowed, "a timed-out hook is treated as allow-with-error, not a block")
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "timeout", result.Errors[0].Kind)
}

func TestMatcherContextPrefersToolNameThenPromptThenEvent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Write", matcherContext(EventPreToolUse, Input{ToolName: "Write", Prompt: "hi"}))
	assert.Equal(t, "hi", matcherContext(EventUserPromptSubmit, Input{Prompt: "hi"}))
	assert.Equal(t, "session_start", matcherContext(EventSessionStart, Input{}))
}

func TestCheckBlocked(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckBlocked(AllowedResult()))

	err := CheckBlocked(Denied("no writes on main"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no writes on main")
}
