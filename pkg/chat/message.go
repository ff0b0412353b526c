// Package chat defines the provider-agnostic message and request shapes
// that the hook engine, compactor, context injector, and MCP client all
// operate over. Ordering of Messages in a Request is load-bearing:
// compaction, summarisation, and injection all depend on position.
package chat

import "github.com/docker/openclaudia/pkg/tools"

// Role identifies who authored a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType distinguishes the kind of a multi-part message segment.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part is one segment of a multi-part message. Text is set when Type ==
// PartText; ImageURL is set when Type == PartImage.
type Part struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// Message is one turn in a conversation. Content is either a plain string
// (Text set, Parts nil) or an ordered sequence of parts (Parts set, Text
// empty) — never both. A message with Role == RoleTool must carry a
// ToolCallID matching a prior assistant message's tool call id in the same
// conversation.
type Message struct {
	Role       Role             `json:"role"`
	Text       string           `json:"content,omitempty"`
	Parts      []Part           `json:"parts,omitempty"`
	Name       string           `json:"name,omitempty"`
	ToolCalls  []tools.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

// IsMultiPart reports whether the message's content is a part sequence
// rather than a plain string.
func (m Message) IsMultiPart() bool {
	return len(m.Parts) > 0
}

// HasToolCalls reports whether the message carries any tool call.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// AppendText appends text to the message's content, preserving existing
// parts (and any image references within them) rather than altering them.
// For plain-text messages it joins with a blank line; for multi-part
// messages it pushes a new text part.
func (m *Message) AppendText(text string) {
	if m.IsMultiPart() {
		m.Parts = append(m.Parts, Part{Type: PartText, Text: text})
		return
	}
	if m.Text == "" {
		m.Text = text
		return
	}
	m.Text = m.Text + "\n\n" + text
}

// GenerationParams holds optional per-request sampling controls.
type GenerationParams struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
}

// Request is one upstream chat-completion call in progress.
type Request struct {
	Model      string            `json:"model"`
	Messages   []Message         `json:"messages"`
	Params     *GenerationParams `json:"params,omitempty"`
	Tools      []tools.Tool      `json:"tools,omitempty"`
	ToolChoice string            `json:"tool_choice,omitempty"`

	// MaxContextTokens overrides the model-name-inferred context window
	// (compactor.ContextWindow) when set. Tests and callers that know a
	// deployment's actual limit should set this rather than rely on the
	// substring table.
	MaxContextTokens *int `json:"-"`
}

// LastUserIndex returns the index of the last message with RoleUser, or -1.
func (r *Request) LastUserIndex() int {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// FirstSystemIndex returns the index of the first message with RoleSystem, or -1.
func (r *Request) FirstSystemIndex() int {
	for i, m := range r.Messages {
		if m.Role == RoleSystem {
			return i
		}
	}
	return -1
}
