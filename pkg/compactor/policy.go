package compactor

import "github.com/docker/openclaudia/pkg/chat"

// Policy configures which messages survive compaction untouched.
type Policy struct {
	PreserveSystem    bool
	PreserveToolCalls bool
	PreserveRecent    int
	Threshold         float64 // fraction of the model's window that triggers compaction; default 0.85
	ResponseReserve   int     // tokens reserved for the response; default 4096
}

// DefaultPolicy matches the reference implementation's defaults.
func DefaultPolicy() Policy {
	return Policy{
		PreserveSystem:    true,
		PreserveToolCalls: true,
		PreserveRecent:    4,
		Threshold:         0.85,
		ResponseReserve:   4096,
	}
}

// classify partitions message indices into preserve and summarize sets.
// preserve(i) iff (preserve_system && role==system) || i >= len-preserve_recent
// || (preserve_tool_calls && (role==tool || has tool_calls || has tool_call_id)).
// The two sets are always a disjoint cover of {0..len-1}.
func (p Policy) classify(messages []chat.Message) (preserve, summarize []int) {
	n := len(messages)
	recentCutoff := n - p.PreserveRecent

	for i, m := range messages {
		keep := false
		if p.PreserveSystem && m.Role == chat.RoleSystem {
			keep = true
		}
		if i >= recentCutoff {
			keep = true
		}
		if p.PreserveToolCalls && (m.Role == chat.RoleTool || m.HasToolCalls() || m.ToolCallID != "") {
			keep = true
		}

		if keep {
			preserve = append(preserve, i)
		} else {
			summarize = append(summarize, i)
		}
	}
	return preserve, summarize
}

// EffectiveThreshold computes floor(max*threshold) - responseReserve.
func (p Policy) EffectiveThreshold(maxWindow int) int {
	return int(float64(maxWindow)*p.Threshold) - p.ResponseReserve
}

// TargetTokens computes the post-compaction token budget: floor(max*threshold)/2.
func (p Policy) TargetTokens(maxWindow int) int {
	return int(float64(maxWindow)*p.Threshold) / 2
}
