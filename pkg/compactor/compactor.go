package compactor

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/openclaudia/pkg/chat"
	"github.com/docker/openclaudia/pkg/hooks"
)

// Analysis is the result of checking a request against its model's context
// window.
type Analysis struct {
	EstimatedTokens    int
	MaxWindow          int
	EffectiveThreshold int
	NeedsCompaction    bool
	TargetTokens       int
}

// Analyze reports whether r needs compaction under policy.
func Analyze(r *chat.Request, policy Policy) Analysis {
	maxWindow := ContextWindow(r.Model)
	if r.MaxContextTokens != nil {
		maxWindow = *r.MaxContextTokens
	}
	estimated := EstimateRequest(r)
	effective := policy.EffectiveThreshold(maxWindow)
	return Analysis{
		EstimatedTokens:    estimated,
		MaxWindow:          maxWindow,
		EffectiveThreshold: effective,
		NeedsCompaction:    estimated > effective,
		TargetTokens:       policy.TargetTokens(maxWindow),
	}
}

// HookBlockedError is returned when the PreCompact hook denies compaction.
type HookBlockedError struct {
	Reason string
}

func (e *HookBlockedError) Error() string { return fmt.Sprintf("compaction blocked: %s", e.Reason) }

// FailedError is returned when a compaction attempt would not strictly
// reduce the token estimate; the caller's request is left untouched.
type FailedError struct {
	Reason string
}

func (e *FailedError) Error() string { return fmt.Sprintf("compaction failed: %s", e.Reason) }

// Result is the outcome of a Compact call.
type Result struct {
	Compacted    bool
	Request      *chat.Request // the (possibly) rewritten request; same value as input if !Compacted
	OldTokens    int
	NewTokens    int
	PreservedIdx []int
}

// Compact runs the PreCompact hook, then — unless the summarize set is
// empty — replaces every summarizable message with one synopsis system
// message. It never mutates the caller's request in place; on any failure
// path the original *chat.Request is returned unchanged inside Result.
func Compact(ctx context.Context, engine *hooks.Engine, r *chat.Request, policy Policy) (Result, error) {
	analysis := Analyze(r, policy)

	if engine != nil {
		hookResult := engine.Run(ctx, hooks.EventPreCompact, hooks.Input{}.
			WithExtra("current_tokens", analysis.EstimatedTokens).
			WithExtra("max_tokens", analysis.MaxWindow))
		if err := hooks.CheckBlocked(hookResult); err != nil {
			return Result{Request: r}, &HookBlockedError{Reason: err.Error()}
		}
	}

	preserve, summarize := policy.classify(r.Messages)
	if len(summarize) == 0 {
		return Result{Compacted: false, Request: r, OldTokens: analysis.EstimatedTokens, NewTokens: analysis.EstimatedTokens, PreservedIdx: preserve}, nil
	}

	synopsis := generateSummary(r.Messages, summarize)

	var preservedSystem, preservedRest []chat.Message
	for _, i := range preserve {
		if r.Messages[i].Role == chat.RoleSystem {
			preservedSystem = append(preservedSystem, r.Messages[i])
		} else {
			preservedRest = append(preservedRest, r.Messages[i])
		}
	}

	newMessages := make([]chat.Message, 0, len(preservedSystem)+1+len(preservedRest))
	newMessages = append(newMessages, preservedSystem...)
	newMessages = append(newMessages, chat.Message{Role: chat.RoleSystem, Text: synopsis})
	newMessages = append(newMessages, preservedRest...)

	newRequest := *r
	newRequest.Messages = newMessages
	newTokens := EstimateRequest(&newRequest)

	if newTokens >= analysis.EstimatedTokens {
		return Result{Request: r}, &FailedError{Reason: "did not reduce token count"}
	}

	return Result{
		Compacted:    true,
		Request:      &newRequest,
		OldTokens:    analysis.EstimatedTokens,
		NewTokens:    newTokens,
		PreservedIdx: preserve,
	}, nil
}

const (
	maxTextChars = 500
	maxPartChars = 200
)

// generateSummary groups consecutive same-role messages from the
// summarize index set into "**Role**: joined content" lines, annotating
// tool-call/tool-result messages, and wraps the whole thing in a
// <context-summary> block.
func generateSummary(messages []chat.Message, summarizeIdx []int) string {
	var lines []string

	var runRole chat.Role
	var runParts []string
	flush := func() {
		if len(runParts) == 0 {
			return
		}
		lines = append(lines, fmt.Sprintf("**%s**: %s", titleCase(string(runRole)), strings.Join(runParts, " ")))
		runParts = nil
	}

	for _, i := range summarizeIdx {
		m := messages[i]
		if len(runParts) > 0 && m.Role != runRole {
			flush()
		}
		runRole = m.Role

		content := truncatedContent(m)
		if m.HasToolCalls() {
			content = "[Used tools] " + content
		} else if m.Role == chat.RoleTool {
			content = "[Tool result] " + content
		}
		if content != "" {
			runParts = append(runParts, content)
		}
	}
	flush()

	return "<context-summary>\n" + strings.Join(lines, "\n") + "\n</context-summary>"
}

func truncatedContent(m chat.Message) string {
	if m.IsMultiPart() {
		var parts []string
		for _, p := range m.Parts {
			if p.Type == chat.PartText {
				parts = append(parts, truncate(p.Text, maxPartChars))
			}
		}
		return strings.Join(parts, " ")
	}
	return truncate(m.Text, maxTextChars)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
