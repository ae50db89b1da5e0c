package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/busjam/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Select(ctx context.Context, sessionID string, personID int, reset bool) (*SelectResult, error)
	BulkSelect(ctx context.Context, sessionID string, personIDs []int, reset bool) (*BulkSelectResult, error)
	CompleteMovement(ctx context.Context, sessionID string, personID int) (*SelectResult, error)
	CompleteAll(ctx context.Context, sessionID string) (*CompleteResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Level timer
	Expire(ctx context.Context, sessionID string) (*engine.GameState, error)
	ExpireOverdue(ctx context.Context, now time.Time) []string

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	GetEvents(ctx context.Context, sessionID string, limit int) ([]GameEvent, error)
	Hint(ctx context.Context, sessionID string) (*HintResult, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.LevelConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.LevelConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.LevelConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.LevelConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles level configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.LevelConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.LevelConfig
	SaveConfig(name string, config *engine.LevelConfig) error
}

// EventLog stores the events produced by game operations
type EventLog interface {
	AppendEvents(sessionID string, events []GameEvent) error
	ListEvents(sessionID string, limit int) ([]GameEvent, error)
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.PuzzleController
	Config         *engine.LevelConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time

	// Deadline is when the level timer expires; zero when the level is untimed
	Deadline time.Time
}

// StartTimer sets the deadline from the level time limit
func (s *Session) StartTimer(now time.Time) {
	if s.Config != nil && s.Config.TimeLimitSeconds > 0 {
		s.Deadline = now.Add(time.Duration(s.Config.TimeLimitSeconds) * time.Second)
	} else {
		s.Deadline = time.Time{}
	}
}

// Overdue reports whether the level timer ran out on an active level
func (s *Session) Overdue(now time.Time) bool {
	return !s.Deadline.IsZero() && now.After(s.Deadline) && !s.Engine.IsGameOver()
}
