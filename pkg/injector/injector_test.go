package injector

import (
	"testing"

	"github.com/docker/openclaudia/pkg/chat"
	"github.com/docker/openclaudia/pkg/hooks"
	"github.com/stretchr/testify/assert"
)

func TestInjectHookOutputsAppendsToLastUserMessage(t *testing.T) {
	t.Parallel()

	req := &chat.Request{Messages: []chat.Message{
		{Role: chat.RoleSystem, Text: "sys"},
		{Role: chat.RoleUser, Text: "hello"},
	}}
	result := &hooks.Result{Outputs: []hooks.Output{{SystemMessage: "reminder one"}, {SystemMessage: "reminder two"}}}

	InjectHookOutputs(req, result)

	assert.Len(t, req.Messages, 2, "no new message should be added when a user message exists")
	assert.Contains(t, req.Messages[1].Text, "reminder one")
	assert.Contains(t, req.Messages[1].Text, "reminder two")
	assert.Contains(t, req.Messages[1].Text, "<system-reminder>")
	assert.Equal(t, "sys", req.Messages[0].Text, "pre-existing messages are untouched except the last user message")
}

func TestInjectHookOutputsPushesSystemMessageWithoutUser(t *testing.T) {
	t.Parallel()

	req := &chat.Request{Messages: []chat.Message{{Role: chat.RoleAssistant, Text: "hi"}}}
	result := &hooks.Result{Outputs: []hooks.Output{{SystemMessage: "reminder"}}}

	InjectHookOutputs(req, result)

	assert.Len(t, req.Messages, 2)
	assert.Equal(t, chat.RoleSystem, req.Messages[1].Role)
}

func TestInjectHookOutputsNoOpWhenNoSystemMessages(t *testing.T) {
	t.Parallel()

	req := &chat.Request{Messages: []chat.Message{{Role: chat.RoleUser, Text: "hi"}}}
	InjectHookOutputs(req, &hooks.Result{Outputs: []hooks.Output{{Decision: "allow"}}})
	assert.Len(t, req.Messages, 1)
	assert.Equal(t, "hi", req.Messages[0].Text)
}

func TestApplyPromptModificationFirstWriterWins(t *testing.T) {
	t.Parallel()

	req := &chat.Request{Messages: []chat.Message{{Role: chat.RoleUser, Text: "original"}}}
	result := &hooks.Result{Outputs: []hooks.Output{{Prompt: "rewritten first"}, {Prompt: "rewritten second"}}}

	ApplyPromptModification(req, result)
	assert.Equal(t, "rewritten first", req.Messages[0].Text)
}

func TestInjectSystemPrefixAppendsToExisting(t *testing.T) {
	t.Parallel()

	req := &chat.Request{Messages: []chat.Message{{Role: chat.RoleSystem, Text: "base"}}}
	InjectSystemPrefix(req, "core memory block")
	assert.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Text, "core memory block")
	assert.Contains(t, req.Messages[0].Text, "base")
}

func TestInjectSystemPrefixInsertsWhenAbsent(t *testing.T) {
	t.Parallel()

	req := &chat.Request{Messages: []chat.Message{{Role: chat.RoleUser, Text: "hi"}}}
	InjectSystemPrefix(req, "core memory block")
	assert.Len(t, req.Messages, 2)
	assert.Equal(t, chat.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, chat.RoleUser, req.Messages[1].Role, "original message order is preserved")
}

func TestInjectAllJoinsAndDelegatesToSuffix(t *testing.T) {
	t.Parallel()

	req := &chat.Request{Messages: []chat.Message{{Role: chat.RoleUser, Text: "hi"}}}
	InjectAll(req, []string{"core memory", "", "rules block"})

	assert.Contains(t, req.Messages[0].Text, "core memory")
	assert.Contains(t, req.Messages[0].Text, "rules block")
}

func TestAppendTextPreservesImagePartsOnMultiPart(t *testing.T) {
	t.Parallel()

	req := &chat.Request{Messages: []chat.Message{
		{Role: chat.RoleUser, Parts: []chat.Part{{Type: chat.PartImage, ImageURL: "http://img"}}},
	}}
	InjectSystemSuffix(req, "a reminder")

	parts := req.Messages[0].Parts
	assert.Len(t, parts, 2)
	assert.Equal(t, chat.PartImage, parts[0].Type, "existing image part is untouched, not rewritten")
	assert.Equal(t, chat.PartText, parts[1].Type)
}
