package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/mcp-training/busjam/game/engine"
	"github.com/wricardo/mcp-training/busjam/game/solver"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	events   EventLog
	maxNodes int
	mu       sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithEventLog stores every operation's events in log
func WithEventLog(log EventLog) Option {
	return func(s *gameServiceImpl) { s.events = log }
}

// WithSolverBudget bounds the states explored by Hint
func WithSolverBudget(maxNodes int) Option {
	return func(s *gameServiceImpl) { s.maxNodes = maxNodes }
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		maxNodes: solver.DefaultMaxNodes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	info := &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
	if !sess.Deadline.IsZero() {
		deadline := sess.Deadline
		info.Deadline = &deadline
	}
	return info
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.LevelConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v", configName, configIDs)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations", configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	return s.sessionInfo(session, configID), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	return s.sessionInfo(session, s.getConfigID(session.Config.Name)), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, s.getConfigID(sess.Config.Name)))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// operation runs fn against a session while collecting the engine events it
// produces, then persists the session and logs the events
func (s *gameServiceImpl) operation(sessionID string, reset bool, fn func(sess *Session)) (*Session, []GameEvent, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	events := []GameEvent{}
	if reset {
		s.resetSession(sess)
		events = append(events, newEvent("reset", "Game reset to initial state"))
	}

	rec := &engine.Recorder{}
	unsubscribe := sess.Engine.Subscribe(rec)
	fn(sess)
	unsubscribe()

	for _, ev := range rec.Events {
		events = append(events, convertEvent(ev))
	}

	s.persist(sess, events)
	return sess, events, nil
}

func (s *gameServiceImpl) persist(sess *Session, events []GameEvent) {
	if err := s.sessions.Save(sess.ID); err != nil {
		fmt.Printf("Warning: Failed to persist session %s: %v\n", sess.ID, err)
	}
	if s.events != nil && len(events) > 0 {
		if err := s.events.AppendEvents(sess.ID, events); err != nil {
			log.Printf("Warning: Failed to log %d events for session %s: %v", len(events), sess.ID, err)
		}
	}
}

func (s *gameServiceImpl) resetSession(sess *Session) {
	sess.Engine.Reset()
	sess.StartTimer(time.Now())
}

// Select selects one person of a session
func (s *gameServiceImpl) Select(ctx context.Context, sessionID string, personID int, reset bool) (*SelectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res engine.SelectResult
	sess, events, err := s.operation(sessionID, reset, func(sess *Session) {
		res = sess.Engine.Select(personID)
	})
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	return &SelectResult{
		Success:   res.Accepted,
		Result:    res,
		GameState: state,
		Message:   state.Message,
		Events:    events,
	}, nil
}

// BulkSelect selects several people in order
func (s *gameServiceImpl) BulkSelect(ctx context.Context, sessionID string, personIDs []int, reset bool) (*BulkSelectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &BulkSelectResult{
		RequestedSelections: len(personIDs),
		Success:             true,
		Results:             []engine.SelectResult{},
	}

	// Limit selections to prevent abuse
	if len(personIDs) > engine.MaxBulkSelections {
		result.Truncated = true
		result.Limit = engine.MaxBulkSelections
		personIDs = personIDs[:engine.MaxBulkSelections]
	}

	sess, events, err := s.operation(sessionID, reset, func(sess *Session) {
		result.BoardedBefore = sess.Engine.BoardedCount()

		for i, id := range personIDs {
			if sess.Engine.IsGameOver() {
				result.StoppedReason = "game over"
				result.StopReasonCode = engine.RejectGameOver
				result.StoppedOnSelection = i + 1
				break
			}

			r := sess.Engine.Select(id)
			result.Results = append(result.Results, r)
			if !r.Accepted {
				result.Success = false
				result.StoppedReason = fmt.Sprintf("selection %d rejected: %s", i+1, r.Message)
				result.StopReasonCode = r.Reason
				result.StoppedOnSelection = i + 1
				break
			}
			result.SelectionsExecuted++

			if r.Outcome == engine.OutcomeLost {
				result.StoppedReason = fmt.Sprintf("selection %d lost the level", i+1)
				result.StopReasonCode = sess.Engine.LoseReason()
				result.StoppedOnSelection = i + 1
				break
			}
		}

		result.BoardedAfter = sess.Engine.BoardedCount()
	})
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	result.GameState = state
	result.Events = events
	result.GameOver = state.GameOver
	result.Message = state.Message
	result.Playable = state.Playable
	if state.GameOver {
		result.GameOverCode = state.LoseReason
		if state.Victory {
			result.GameOverCode = "victory"
		}
	}

	return result, nil
}

// CompleteMovement resolves the arrival of one moving person
func (s *gameServiceImpl) CompleteMovement(ctx context.Context, sessionID string, personID int) (*SelectResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res engine.SelectResult
	sess, events, err := s.operation(sessionID, false, func(sess *Session) {
		res = sess.Engine.CompleteMovement(personID)
	})
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	return &SelectResult{
		Success:   res.Accepted,
		Result:    res,
		GameState: state,
		Message:   state.Message,
		Events:    events,
	}, nil
}

// CompleteAll resolves every moving person in selection order
func (s *gameServiceImpl) CompleteAll(ctx context.Context, sessionID string) (*CompleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []engine.SelectResult
	sess, events, err := s.operation(sessionID, false, func(sess *Session) {
		results = sess.Engine.CompleteAll()
	})
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []engine.SelectResult{}
	}

	state := sess.Engine.GetState()
	return &CompleteResult{
		Results:   results,
		GameState: state,
		Message:   state.Message,
		Events:    events,
	}, nil
}

// Reset resets a session's level and restarts its timer
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _, err := s.operation(sessionID, true, func(*Session) {})
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// Expire ends a session's level as if its timer ran out
func (s *gameServiceImpl) Expire(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _, err := s.operation(sessionID, false, func(sess *Session) {
		sess.Engine.Expire()
	})
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// ExpireOverdue expires every active session whose deadline passed and
// returns their ids
func (s *gameServiceImpl) ExpireOverdue(ctx context.Context, now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for _, sess := range s.sessions.List() {
		if !sess.Overdue(now) {
			continue
		}

		rec := &engine.Recorder{}
		unsubscribe := sess.Engine.Subscribe(rec)
		sess.Engine.Expire()
		unsubscribe()

		events := make([]GameEvent, 0, len(rec.Events))
		for _, ev := range rec.Events {
			events = append(events, convertEvent(ev))
		}
		s.persist(sess, events)
		expired = append(expired, sess.ID)
	}
	return expired
}

// GetGameState returns the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.GetState(), nil
}

// GetHistory returns a page of the session's action history
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	// Set defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "asc"
	}

	history := sess.Engine.GetHistory()
	total := len(history)

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var entries []engine.HistoryEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			entries = append(entries, history[i])
		}
	} else if start < total {
		entries = history[start:end]
	}

	if entries == nil {
		entries = []engine.HistoryEntry{}
	}

	return &HistoryResponse{
		Entries:      entries,
		TotalEntries: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// GetEvents returns the most recent logged events of a session, oldest first
func (s *gameServiceImpl) GetEvents(ctx context.Context, sessionID string, limit int) ([]GameEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.sessions.Get(sessionID); err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if s.events == nil {
		return []GameEvent{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return s.events.ListEvents(sessionID, limit)
}

// Hint searches for a winning continuation from the session's current state
func (s *gameServiceImpl) Hint(ctx context.Context, sessionID string) (*HintResult, error) {
	s.mu.RLock()
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		s.mu.RUnlock()
		return nil, fmt.Errorf("session not found: %w", err)
	}
	config := sess.Config
	snap := sess.Engine.Snapshot()
	over := sess.Engine.IsGameOver()
	s.mu.RUnlock()

	if over {
		return &HintResult{NextPersonID: -1, Message: "The level is over. Reset to play again."}, nil
	}

	next, result, err := solver.NextMove(config, snap, solver.Options{MaxNodes: s.maxNodes})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hint := &HintResult{
		Solvable:     result.Solvable,
		NextPersonID: next,
		Plan:         result.Plan,
		Explored:     result.Explored,
		BudgetHit:    result.BudgetHit,
	}
	switch {
	case result.Solvable:
		hint.Message = fmt.Sprintf("Select person %d next (%d selections to win)", next, len(result.Plan))
	case result.BudgetHit && next >= 0:
		hint.Message = fmt.Sprintf("No solution found within %d states; person %d has the shortest walk", result.Explored-1, next)
	case result.BudgetHit:
		hint.Message = fmt.Sprintf("No solution found within %d states", result.Explored-1)
	case next >= 0:
		hint.Message = fmt.Sprintf("The level can no longer be won from here; person %d has the shortest walk", next)
	default:
		hint.Message = "The level can no longer be won from here"
	}
	return hint, nil
}

// ListConfigs returns available level configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific level configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.LevelConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a level configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.LevelConfig) error {
	return s.configs.SaveConfig(configName, config)
}

func newEvent(eventType, message string) GameEvent {
	return GameEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// convertEvent turns an engine notification into a service event
func convertEvent(ev engine.Event) GameEvent {
	out := GameEvent{
		ID:        uuid.NewString(),
		Type:      string(ev.Type),
		Message:   ev.Message,
		Timestamp: ev.Timestamp,
		Path:      ev.Path,
		Reason:    ev.Reason,
	}
	switch ev.Type {
	case engine.EventPersonMoved, engine.EventPersonBoarded, engine.EventPersonWaiting, engine.EventPersonRedirected:
		id := ev.PersonID
		out.PersonID = &id
	}
	if ev.Bus != nil {
		out.BusColor = ev.Bus.Color.String()
	}
	return out
}
