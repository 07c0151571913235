// Package storage persists session history: the ordered, immutable record of
// user instructions, model replies and tool outcomes for each conversation.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dockhand/model"

	"github.com/google/uuid"
)

// Session is one conversation: an append-only sequence of turns.
type Session struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Turns     []model.Turn `json:"turns"`
}

// Append adds a turn to the session. Timestamps are forced monotonic so the
// recorded order always matches the append order.
func (s *Session) Append(turn model.Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	if n := len(s.Turns); n > 0 && !turn.Timestamp.After(s.Turns[n-1].Timestamp) {
		turn.Timestamp = s.Turns[n-1].Timestamp.Add(time.Nanosecond)
	}
	s.Turns = append(s.Turns, turn)
}

// PromptWindow returns the most recent turns for a model request, at most max
// entries. A leading system turn is always preserved at the front; the full
// history stays intact on disk.
func (s *Session) PromptWindow(max int) []model.Turn {
	if max <= 0 || len(s.Turns) <= max {
		return append([]model.Turn(nil), s.Turns...)
	}

	var window []model.Turn
	rest := s.Turns
	if rest[0].Role == model.RoleSystem {
		window = append(window, rest[0])
		rest = rest[1:]
		max--
	}
	if len(rest) > max {
		rest = rest[len(rest)-max:]
	}
	return append(window, rest...)
}

// SessionMetadata is a lightweight view of a session for listing.
type SessionMetadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
}

// SessionStorage stores sessions as JSON files under the data directory.
type SessionStorage struct {
	sessionsDir string
}

func NewSessionStorage(dataDir string) (*SessionStorage, error) {
	sessionsDir := filepath.Join(dataDir, "sessions")

	// 0700: session files hold conversation history.
	if err := os.MkdirAll(sessionsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &SessionStorage{sessionsDir: sessionsDir}, nil
}

// Save writes a session to disk, assigning an ID on first save.
func (s *SessionStorage) Save(session *Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	session.UpdatedAt = time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	path := filepath.Join(s.sessionsDir, session.ID+".json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load reads a session from disk by ID.
func (s *SessionStorage) Load(id string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(s.sessionsDir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// List returns metadata for all sessions, newest first. Corrupted files are
// skipped.
func (s *SessionStorage) List() ([]SessionMetadata, error) {
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessions []SessionMetadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.sessionsDir, entry.Name()))
		if err != nil {
			continue
		}

		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}

		sessions = append(sessions, SessionMetadata{
			ID:        session.ID,
			Name:      session.Name,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
			TurnCount: len(session.Turns),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Delete removes a session from disk.
func (s *SessionStorage) Delete(id string) error {
	if err := os.Remove(filepath.Join(s.sessionsDir, id+".json")); err != nil {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// SaveCurrentSessionID records which session resumes on next start.
func (s *SessionStorage) SaveCurrentSessionID(id string) error {
	path := filepath.Join(filepath.Dir(s.sessionsDir), "current_session.id")
	return os.WriteFile(path, []byte(id), 0600)
}

// LoadCurrentSessionID returns the last active session's ID.
func (s *SessionStorage) LoadCurrentSessionID() (string, error) {
	data, err := os.ReadFile(filepath.Join(filepath.Dir(s.sessionsDir), "current_session.id"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// GenerateSessionName derives a session name from the first instruction.
func GenerateSessionName(firstInstruction string) string {
	name := strings.ReplaceAll(firstInstruction, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > 30 {
		name = string(runes[:30]) + "..."
	}
	if name == "" {
		return fmt.Sprintf("Session %s", time.Now().Format("Jan 2, 3:04 PM"))
	}
	return name
}
