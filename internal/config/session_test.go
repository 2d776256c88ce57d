package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSession_IsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		want    bool
	}{
		{name: "empty session", session: Session{}, want: true},
		{name: "with day", session: Session{Day: "2026-03-01"}, want: false},
		{name: "with map height", session: Session{MapHeightPercent: 0.5}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.IsEmpty(); got != tt.want {
				t.Errorf("Session.IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSession_DayIn(t *testing.T) {
	var s Session
	if _, ok := s.DayIn(time.UTC); ok {
		t.Fatal("empty session should have no day")
	}

	s.SetDay(time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC))
	day, ok := s.DayIn(time.UTC)
	if !ok {
		t.Fatal("expected a saved day")
	}
	if !day.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DayIn() = %v", day)
	}

	s.Day = "yesterday"
	if _, ok := s.DayIn(time.UTC); ok {
		t.Error("malformed day should not parse")
	}
}

func TestSessionStore_LoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	store := NewSessionStore(path)

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	if !loaded.IsEmpty() {
		t.Error("missing file should load an empty session")
	}

	session := &Session{MapHeightPercent: 0.6}
	session.SetDay(time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC))
	if err := store.Save(session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err = store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Day != "2026-02-27" || loaded.MapHeightPercent != 0.6 {
		t.Errorf("Load() = %+v", loaded)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Clear() should remove the file")
	}
	if err := store.Clear(); err != nil {
		t.Errorf("Clear() on missing file error = %v", err)
	}
}

func TestSessionStore_LoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte("day: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewSessionStore(path).Load(); err == nil {
		t.Error("expected parse error")
	}
}
