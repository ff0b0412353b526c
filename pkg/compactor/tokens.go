// Package compactor estimates a request's token footprint against its
// model's context window and, when the window is under pressure, rewrites
// the compactible portion of the message list into a single summary
// message without breaking tool-call pairing or message ordering.
package compactor

import (
	"encoding/json"
	"strings"

	"github.com/docker/openclaudia/pkg/chat"
)

// EstimateText applies the package's deterministic token heuristic to a
// string: no tokenizer dependency, no exactness guarantee — tests should
// assert monotonicity and order-of-magnitude, never exact counts.
func EstimateText(text string) int {
	if text == "" {
		return 0
	}
	charEstimate := len(text) / 4
	wordEstimate := float64(len(strings.Fields(text))) * 1.3
	return (2*charEstimate + int(wordEstimate)) / 3
}

const (
	messageOverheadTokens = 4
	imageTokens           = 1000
	requestFramingTokens  = 100
)

// EstimateMessage estimates one message's token footprint: content +
// per-message overhead + name + serialized tool calls, with each image
// part counted as a flat 1000 tokens.
func EstimateMessage(m chat.Message) int {
	total := messageOverheadTokens

	if m.Name != "" {
		total += EstimateText(m.Name)
	}

	if m.IsMultiPart() {
		for _, part := range m.Parts {
			switch part.Type {
			case chat.PartImage:
				total += imageTokens
			default:
				total += EstimateText(part.Text)
			}
		}
	} else {
		total += EstimateText(m.Text)
	}

	if len(m.ToolCalls) > 0 {
		if raw, err := json.Marshal(m.ToolCalls); err == nil {
			total += EstimateText(string(raw))
		}
	}

	return total
}

// EstimateRequest sums every message's estimate plus the serialized tool
// catalogue plus a fixed framing overhead.
func EstimateRequest(r *chat.Request) int {
	total := requestFramingTokens
	for _, m := range r.Messages {
		total += EstimateMessage(m)
	}
	if len(r.Tools) > 0 {
		if raw, err := json.Marshal(r.Tools); err == nil {
			total += EstimateText(string(raw))
		}
	}
	return total
}
