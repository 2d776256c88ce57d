package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const sessionDayLayout = "2006-01-02"

// Session is the TUI state restored on the next launch.
type Session struct {
	// Day is the last viewed day (YYYY-MM-DD, local time).
	Day string `yaml:"day,omitempty"`
	// MapHeightPercent is the last map share the user chose.
	MapHeightPercent float64 `yaml:"map_height_percent,omitempty"`
	// UpdatedAt is when the session was last saved.
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// IsEmpty returns true if nothing has been saved.
func (s *Session) IsEmpty() bool {
	return s.Day == "" && s.MapHeightPercent == 0
}

// SetDay records the viewed day.
func (s *Session) SetDay(t time.Time) {
	s.Day = t.Format(sessionDayLayout)
	s.UpdatedAt = time.Now()
}

// DayIn parses the saved day in loc. ok is false when no valid day is saved.
func (s *Session) DayIn(loc *time.Location) (time.Time, bool) {
	if s.Day == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(sessionDayLayout, s.Day, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SessionStore manages loading and saving the session.
type SessionStore struct {
	path string
	mu   sync.RWMutex
}

// NewSessionStore creates a new session store.
// If path is empty, uses the default path (~/.config/arcmini/session.yaml).
func NewSessionStore(path string) *SessionStore {
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".config", "arcmini", "session.yaml")
	}
	return &SessionStore{path: path}
}

// Path returns the session file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Load reads the session from disk.
// Returns an empty session if the file doesn't exist.
func (s *SessionStore) Load() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := &Session{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return session, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := yaml.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	return session, nil
}

// Save writes the session to disk.
func (s *SessionStore) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Clear removes the session file.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
