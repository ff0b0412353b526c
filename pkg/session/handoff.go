package session

import "strings"

// GenerateHandoff renders a session's Progress into the markdown document
// written to handoff.md at session end, read back by the next session's
// GetHandoffContext.
func GenerateHandoff(s *Session) string {
	var b strings.Builder

	b.WriteString("## Session Handoff\n\n")
	b.WriteString("Previous Session: " + s.ID.String() + "\n\n")
	b.WriteString("Mode: " + string(s.Mode) + "\n\n")
	b.WriteString("Duration: " + s.CreatedAt.Format("2006-01-02T15:04:05Z") + " to " + s.UpdatedAt.Format("2006-01-02T15:04:05Z") + "\n\n")

	if len(s.Progress.CompletedTasks) > 0 {
		b.WriteString("### Completed Tasks\n\n")
		for _, t := range s.Progress.CompletedTasks {
			b.WriteString("- [x] " + t + "\n")
		}
		b.WriteString("\n")
	}

	if len(s.Progress.InProgress) > 0 {
		b.WriteString("### In Progress\n\n")
		for _, t := range s.Progress.InProgress {
			b.WriteString("- [ ] " + t + "\n")
		}
		b.WriteString("\n")
	}

	if len(s.Progress.Pending) > 0 {
		b.WriteString("### Pending Tasks\n\n")
		for _, t := range s.Progress.Pending {
			b.WriteString("- [ ] " + t + "\n")
		}
		b.WriteString("\n")
	}

	if len(s.Progress.Decisions) > 0 {
		b.WriteString("### Key Decisions\n\n")
		for _, d := range s.Progress.Decisions {
			b.WriteString("- " + d + "\n")
		}
		b.WriteString("\n")
	}

	if len(s.Progress.FilesModified) > 0 {
		b.WriteString("### Files Modified\n\n")
		for _, f := range s.Progress.FilesModified {
			b.WriteString("- " + f + "\n")
		}
		b.WriteString("\n")
	}

	if s.Progress.HandoffNotes != "" {
		b.WriteString("### Notes for Next Session\n\n")
		b.WriteString(s.Progress.HandoffNotes + "\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
