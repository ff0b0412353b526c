package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

// Manager persists sessions as one JSON file per session under dir, plus a
// latest.json pointer to the most recently ended session and a handoff.md
// rendering of it.
type Manager struct {
	dir string
}

// NewManager returns a Manager rooted at dir, creating it if necessary.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

func (m *Manager) sessionPath(id uuid.UUID) string {
	return filepath.Join(m.dir, id.String()+".json")
}

func (m *Manager) latestPath() string {
	return filepath.Join(m.dir, "latest.json")
}

func (m *Manager) handoffPath() string {
	return filepath.Join(m.dir, "handoff.md")
}

// GetOrCreate selects Initializer mode if no prior session has ended (no
// latest.json, or it fails to parse), else Coding mode with ParentSessionID
// set to that prior session's id.
func (m *Manager) GetOrCreate() (*Session, error) {
	prior, err := m.readLatest()
	if err != nil || prior == nil {
		return newSession(ModeInitializer, nil), nil
	}
	parent := prior.ID
	return newSession(ModeCoding, &parent), nil
}

func (m *Manager) readLatest() (*Session, error) {
	data, err := os.ReadFile(m.latestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse latest session: %w", err)
	}
	return &s, nil
}

// GetHandoffContext returns the handoff.md content left by the previous
// session, or "" if none exists yet.
func (m *Manager) GetHandoffContext() (string, error) {
	data, err := os.ReadFile(m.handoffPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read handoff: %w", err)
	}
	return string(data), nil
}

// End persists the session's final state, updates latest.json to point to
// it, and regenerates handoff.md.
func (m *Manager) End(s *Session) error {
	s.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := atomic.WriteFile(m.sessionPath(s.ID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := atomic.WriteFile(m.latestPath(), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write latest session pointer: %w", err)
	}

	handoff := GenerateHandoff(s)
	if err := atomic.WriteFile(m.handoffPath(), bytes.NewReader([]byte(handoff))); err != nil {
		return fmt.Errorf("failed to write handoff: %w", err)
	}

	return nil
}

// CleanupOldSessions keeps the keepN most recently created session files
// (by CreatedAt, descending) and removes the rest. latest.json and
// handoff.md are never removed.
func (m *Manager) CleanupOldSessions(keepN int) error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("failed to list session directory: %w", err)
	}

	type record struct {
		path      string
		createdAt time.Time
	}
	var records []record
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == "latest.json" || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		records = append(records, record{path: path, createdAt: s.CreatedAt})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].createdAt.After(records[j].createdAt)
	})

	if keepN < 0 {
		keepN = 0
	}
	for _, r := range records[min(keepN, len(records)):] {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove old session %s: %w", r.path, err)
		}
	}
	return nil
}
