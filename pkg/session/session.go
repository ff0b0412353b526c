// Package session owns session lifecycle: selecting Initializer vs Coding
// mode on startup, persisting progress to disk, and generating the
// human-readable handoff document a subsequent session reads.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Mode distinguishes the first session on a project (Initializer) from
// every subsequent one (Coding).
type Mode string

const (
	ModeInitializer Mode = "initializer"
	ModeCoding      Mode = "coding"
)

// Progress tracks what has happened during a session, feeding handoff
// generation at session end.
type Progress struct {
	CompletedTasks []string `json:"completed_tasks,omitempty"`
	InProgress     []string `json:"in_progress_tasks,omitempty"`
	Pending        []string `json:"pending_tasks,omitempty"`
	Decisions      []string `json:"decisions,omitempty"`
	FilesModified  []string `json:"files_modified,omitempty"`
	HandoffNotes   string   `json:"handoff_notes,omitempty"`
}

// Session is one run of the agent against a project.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Mode      Mode      `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Progress  Progress  `json:"progress"`

	ParentSessionID *uuid.UUID `json:"parent_session_id,omitempty"`
	RequestCount    uint64     `json:"request_count"`
	TotalTokens     uint64     `json:"total_tokens"`
}

// newSession builds a fresh session in the given mode, stamping both
// timestamps to now (UTC).
func newSession(mode Mode, parent *uuid.UUID) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:              uuid.New(),
		Mode:            mode,
		CreatedAt:       now,
		UpdatedAt:       now,
		ParentSessionID: parent,
	}
}

// Touch bumps UpdatedAt and the request/token counters after a completed
// exchange with the upstream model.
func (s *Session) Touch(tokensUsed uint64) {
	s.UpdatedAt = time.Now().UTC()
	s.RequestCount++
	s.TotalTokens += tokensUsed
}
