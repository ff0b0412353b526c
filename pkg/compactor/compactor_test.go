package compactor

import (
	"context"
	"strings"
	"testing"

	"github.com/docker/openclaudia/pkg/chat"
	"github.com/docker/openclaudia/pkg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWindowCaseInsensitiveAndMonotone(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 200_000, ContextWindow("claude-opus-4"))
	assert.Equal(t, 200_000, ContextWindow("CLAUDE-OPUS-4"))
	assert.Equal(t, 128_000, ContextWindow("gpt-4o-mini"))
	assert.Equal(t, 16_385, ContextWindow("gpt-3.5-turbo"))
	assert.Equal(t, 1_000_000, ContextWindow("gemini-1.5-pro"))
	assert.Equal(t, 128_000, ContextWindow("some-unknown-model"))
}

func TestEstimateTextMonotone(t *testing.T) {
	t.Parallel()

	short := EstimateText("hello world")
	longer := EstimateText(strings.Repeat("hello world ", 50))
	assert.Greater(t, longer, short)
}

func filler(tokensApprox int) string {
	// ~4 chars/token by construction, matching the estimator's rough ratio.
	return strings.Repeat("lorem ipsum filler text ", tokensApprox/3+1)
}

// Scenario 3: a 5-message request against a small window compacts down to
// exactly the preserved system + last two messages.
func TestCompactScenario(t *testing.T) {
	t.Parallel()

	maxTokens := 10000
	req := &chat.Request{
		Model:            "gpt-4",
		MaxContextTokens: &maxTokens,
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Text: filler(12500)},
			{Role: chat.RoleUser, Text: filler(12500)},
			{Role: chat.RoleAssistant, Text: filler(12500)},
			{Role: chat.RoleUser, Text: filler(12500)},
			{Role: chat.RoleAssistant, Text: filler(12500)},
		},
	}

	policy := Policy{PreserveSystem: true, PreserveToolCalls: true, PreserveRecent: 2, Threshold: 0.8, ResponseReserve: 0}
	analysis := Analyze(req, policy)
	require.True(t, analysis.NeedsCompaction)

	result, err := Compact(context.Background(), nil, req, policy)
	require.NoError(t, err)
	assert.True(t, result.Compacted)
	assert.Less(t, result.NewTokens, result.OldTokens)
	assert.Equal(t, []int{0, 3, 4}, result.PreservedIdx)

	// Exactly one synopsis system message was injected, plus the preserved ones.
	systemCount := 0
	for _, m := range result.Request.Messages {
		if m.Role == chat.RoleSystem {
			systemCount++
		}
	}
	assert.Equal(t, 2, systemCount) // original system + synopsis
}

func TestCompactNoOpWhenNothingToSummarize(t *testing.T) {
	t.Parallel()

	req := &chat.Request{
		Model:    "gpt-4",
		Messages: []chat.Message{{Role: chat.RoleUser, Text: "hi"}},
	}
	policy := Policy{PreserveRecent: 10}

	result, err := Compact(context.Background(), nil, req, policy)
	require.NoError(t, err)
	assert.False(t, result.Compacted)
	assert.Same(t, req, result.Request)
}

func TestCompactHookBlocked(t *testing.T) {
	t.Parallel()

	cfg := hooks.Config{PreCompact: []hooks.Entry{{Hooks: []hooks.Hook{{Kind: hooks.KindCommand, Command: "exit 2"}}}}}
	engine := hooks.New(cfg, t.TempDir(), nil)

	req := &chat.Request{
		Model: "gpt-4",
		Messages: []chat.Message{
			{Role: chat.RoleUser, Text: filler(20000)},
			{Role: chat.RoleUser, Text: filler(20000)},
		},
	}

	result, err := Compact(context.Background(), engine, req, DefaultPolicy())
	require.Error(t, err)
	var blocked *HookBlockedError
	assert.ErrorAs(t, err, &blocked)
	assert.Same(t, req, result.Request)
}

func TestClassifyIsPartition(t *testing.T) {
	t.Parallel()

	messages := []chat.Message{
		{Role: chat.RoleSystem, Text: "sys"},
		{Role: chat.RoleUser, Text: "a"},
		{Role: chat.RoleAssistant, Text: "b"},
		{Role: chat.RoleTool, Text: "c", ToolCallID: "1"},
		{Role: chat.RoleUser, Text: "d"},
	}
	policy := Policy{PreserveSystem: true, PreserveToolCalls: true, PreserveRecent: 1}
	preserve, summarize := policy.classify(messages)

	seen := make(map[int]bool)
	for _, i := range preserve {
		seen[i] = true
	}
	for _, i := range summarize {
		assert.False(t, seen[i], "index %d in both sets", i)
		seen[i] = true
	}
	assert.Len(t, seen, len(messages))
}
