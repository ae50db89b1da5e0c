package session

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/busjam/game/engine"
)

func createTestConfig() *engine.LevelConfig {
	return &engine.LevelConfig{
		Name:        "Walk Level",
		Description: "Two colors, two buses",
		Layout: []string{
			"R.B",
			"BR.",
		},
		Buses: []engine.BusSpec{
			{Color: engine.Red, Capacity: 2},
			{Color: engine.Blue, Capacity: 2},
		},
		WaitingCapacity: 3,
	}
}

func createTimedConfig() *engine.LevelConfig {
	config := createTestConfig()
	config.Name = "Timed Level"
	config.TimeLimitSeconds = 60
	return config
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Engine == nil {
			t.Error("Expected engine to be initialized")
		}
		if !session.Deadline.IsZero() {
			t.Error("Untimed level should have no deadline")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got '%s'", session.ID)
		}
	})

	t.Run("duplicate ID is case-insensitive", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", config)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		for _, id := range []string{"has space", "a/b", `a\b`} {
			if _, err := manager.Create(id, config); !errors.Is(err, ErrInvalidSessionID) {
				t.Errorf("Create(%q): expected ErrInvalidSessionID, got %v", id, err)
			}
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		bad := createTestConfig()
		bad.Buses = nil
		if _, err := manager.Create("bad", bad); err == nil {
			t.Error("Expected error for invalid level")
		}
	})

	t.Run("timed level starts the clock", func(t *testing.T) {
		fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		timedManager := NewManager()
		timedManager.now = func() time.Time { return fixed }

		session, err := timedManager.Create("timed", createTimedConfig())
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		want := fixed.Add(60 * time.Second)
		if !session.Deadline.Equal(want) {
			t.Errorf("Expected deadline %v, got %v", want, session.Deadline)
		}
		if session.Overdue(want) {
			t.Error("Session should not be overdue at the deadline")
		}
		if !session.Overdue(want.Add(time.Millisecond)) {
			t.Error("Session should be overdue after the deadline")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, err := manager.Create("MixedCase", createTestConfig())
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"MixedCase", "mixedcase", "MIXEDCASE"} {
		session, err := manager.Get(id)
		if err != nil {
			t.Errorf("Get(%q) failed: %v", id, err)
			continue
		}
		if session != created {
			t.Errorf("Get(%q) returned a different session", id)
		}
	}

	if _, err := manager.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	first, err := manager.GetOrCreate("shared", config)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	second, err := manager.GetOrCreate("shared", config)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if first != second {
		t.Error("Expected the existing session to be returned")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", manager.Count())
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	if _, err := manager.Create("gone", createTestConfig()); err != nil {
		t.Fatal(err)
	}

	if err := manager.Delete("GONE"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get("gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected deleted session to be gone, got %v", err)
	}
	if err := manager.Delete("gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
	if err := manager.DeleteFromMemory("gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound from DeleteFromMemory, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := manager.Create(id, createTestConfig()); err != nil {
			t.Fatal(err)
		}
	}

	sessions := manager.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	seen := make(map[string]bool)
	for _, s := range sessions {
		seen[s.ID] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !seen[id] {
			t.Errorf("Session %s missing from list", id)
		}
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	manager := NewManager()
	manager.now = func() time.Time { return now }

	if _, err := manager.Create("old", createTestConfig()); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := manager.Create("fresh", createTestConfig()); err != nil {
		t.Fatal(err)
	}

	removed := manager.CleanupExpiredSessions(time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}
	if _, err := manager.Get("old"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Old session should have been evicted")
	}
	if _, err := manager.Get("fresh"); err != nil {
		t.Error("Fresh session should remain")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	manager := NewManager()
	manager.now = func() time.Time { return now }

	session, err := manager.Create("touch", createTestConfig())
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(time.Minute)
	if err := manager.UpdateLastAccessed("TOUCH"); err != nil {
		t.Fatalf("UpdateLastAccessed failed: %v", err)
	}
	if !session.LastAccessedAt.Equal(now) {
		t.Errorf("Expected last access %v, got %v", now, session.LastAccessedAt)
	}
	if !session.CreatedAt.Before(session.LastAccessedAt) {
		t.Error("Creation time should not move")
	}
	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := manager.Create("", config)
			if err != nil {
				t.Errorf("Concurrent create failed: %v", err)
				return
			}
			ids <- session.ID
			if _, err := manager.Get(strings.ToUpper(session.ID)); err != nil {
				t.Errorf("Concurrent get failed: %v", err)
			}
		}()
	}
	wg.Wait()
	close(ids)

	unique := make(map[string]bool)
	for id := range ids {
		if unique[id] {
			t.Errorf("Duplicate session ID %s", id)
		}
		unique[id] = true
	}
	if manager.Count() != 50 {
		t.Errorf("Expected 50 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	first, _ := manager.Create("one", config)
	second, _ := manager.Create("two", config)

	if r := first.Engine.Select(3); !r.Accepted {
		t.Fatalf("Select rejected: %s", r.Reason)
	}

	if second.Engine.Person(3).Status != engine.OnGrid {
		t.Error("A selection in one session must not affect another")
	}
	if first.Engine.Person(3).Status != engine.InTransit {
		t.Errorf("Expected person 3 in transit, got %s", first.Engine.Person(3).Status)
	}
}
