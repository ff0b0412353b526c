// Package injector performs structured mutation of a chat.Request's message
// list: prefix/suffix/replace operations driven by hook outputs and other
// context sources (core memory, combined rules). Every operation preserves
// the relative order of pre-existing messages and touches only the last
// user message or a freshly appended system message.
package injector

import (
	"strings"

	"github.com/docker/openclaudia/pkg/chat"
	"github.com/docker/openclaudia/pkg/hooks"
)

func wrap(tag, content string) string {
	return "<" + tag + ">\n" + content + "\n</" + tag + ">"
}

// InjectHookOutputs collects every hook output's systemMessage, joins them
// with a blank line, wraps them in <system-reminder>...</system-reminder>,
// and appends to the last user message — or pushes a new system message if
// there is no user message to append to.
func InjectHookOutputs(r *chat.Request, result *hooks.Result) {
	messages := result.SystemMessages()
	if len(messages) == 0 {
		return
	}
	injectSystemReminder(r, strings.Join(messages, "\n\n"))
}

func injectSystemReminder(r *chat.Request, content string) {
	wrapped := wrap("system-reminder", content)
	if idx := r.LastUserIndex(); idx >= 0 {
		r.Messages[idx].AppendText(wrapped)
		return
	}
	r.Messages = append(r.Messages, chat.Message{Role: chat.RoleSystem, Text: wrapped})
}

// ApplyPromptModification replaces the last user message's content with the
// first hook-supplied prompt rewrite (first-writer-wins across hooks). A
// no-op if no hook supplied one or there is no user message.
func ApplyPromptModification(r *chat.Request, result *hooks.Result) {
	prompt, ok := result.ModifiedPrompt()
	if !ok {
		return
	}
	idx := r.LastUserIndex()
	if idx < 0 {
		return
	}
	r.Messages[idx].Text = prompt
	r.Messages[idx].Parts = nil
}

// InjectSystemPrefix wraps content and appends it to the first system
// message if one exists, else inserts a new system message at index 0.
func InjectSystemPrefix(r *chat.Request, content string) {
	wrapped := wrap("system-reminder", content)
	if idx := r.FirstSystemIndex(); idx >= 0 {
		r.Messages[idx].AppendText(wrapped)
		return
	}
	r.Messages = append([]chat.Message{{Role: chat.RoleSystem, Text: wrapped}}, r.Messages...)
}

// InjectSystemSuffix wraps content and appends it to the last user message
// if one exists, else pushes a new system message onto the end.
func InjectSystemSuffix(r *chat.Request, content string) {
	injectSystemReminder(r, content)
}

// InjectAll joins multiple independently-sourced context strings with a
// blank line and delegates to InjectSystemSuffix, giving callers (session
// memory, rules engine) one entry point rather than composing raw strings
// themselves.
func InjectAll(r *chat.Request, contexts []string) {
	var nonEmpty []string
	for _, c := range contexts {
		if c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	if len(nonEmpty) == 0 {
		return
	}
	InjectSystemSuffix(r, strings.Join(nonEmpty, "\n\n"))
}
