package service

import (
	"time"

	"github.com/wricardo/mcp-training/busjam/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string              `json:"id"`
	ConfigName     string              `json:"config_name"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	Deadline       *time.Time          `json:"deadline,omitempty"`
	GameState      *engine.GameState   `json:"game_state"`
	GameConfig     *engine.LevelConfig `json:"game_config"`
}

// SelectResult contains the result of a selection or a movement completion
type SelectResult struct {
	Success   bool                `json:"success"`
	Result    engine.SelectResult `json:"result"`
	GameState *engine.GameState   `json:"game_state"`
	Message   string              `json:"message"`
	Events    []GameEvent         `json:"events,omitempty"`
}

// BulkSelectResult contains the result of several selections
type BulkSelectResult struct {
	// Summary
	SelectionsExecuted  int                   `json:"selections_executed"`
	RequestedSelections int                   `json:"requested_selections"`
	Success             bool                  `json:"success"`
	Results             []engine.SelectResult `json:"results"`
	GameState           *engine.GameState     `json:"game_state"`
	Events              []GameEvent           `json:"events"`
	StoppedReason       string                `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode      string                `json:"stop_reason_code,omitempty"` // Rejection or lose code
	StoppedOnSelection  int                   `json:"stopped_on_selection,omitempty"`
	Truncated           bool                  `json:"truncated,omitempty"`
	Limit               int                   `json:"limit,omitempty"`

	// Progress within this call
	BoardedBefore int `json:"boarded_before"`
	BoardedAfter  int `json:"boarded_after"`

	// Final status aids
	GameOver     bool   `json:"game_over"`
	GameOverCode string `json:"game_over_code,omitempty"`
	Message      string `json:"message,omitempty"`
	Playable     []int  `json:"playable"`
}

// CompleteResult contains the result of resolving every moving person
type CompleteResult struct {
	Results   []engine.SelectResult `json:"results"`
	GameState *engine.GameState     `json:"game_state"`
	Message   string                `json:"message"`
	Events    []GameEvent           `json:"events,omitempty"`
}

// HintResult is the solver's suggestion for the current state
type HintResult struct {
	Solvable     bool   `json:"solvable"`
	NextPersonID int    `json:"next_person_id"`
	Plan         []int  `json:"plan,omitempty"`
	Explored     int    `json:"explored"`
	BudgetHit    bool   `json:"budget_hit,omitempty"`
	Message      string `json:"message"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"` // engine event types plus "reset"
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	PersonID  *int              `json:"person_id,omitempty"`
	Path      []engine.Position `json:"path,omitempty"`
	BusColor  string            `json:"bus_color,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

// HistoryOptions configures action history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated action history
type HistoryResponse struct {
	Entries      []engine.HistoryEntry `json:"entries"`
	TotalEntries int                   `json:"total_entries"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
	TotalPages   int                   `json:"total_pages"`
	HasNext      bool                  `json:"has_next"`
	HasPrevious  bool                  `json:"has_previous"`
}

// ConfigInfo provides information about a level configuration
type ConfigInfo struct {
	Filename         string `json:"filename"`
	ConfigID         string `json:"config_id"` // The identifier to use for session creation
	Name             string `json:"name"`      // Display name
	Description      string `json:"description"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	People           int    `json:"people"`
	Buses            int    `json:"buses"`
	WaitingCapacity  int    `json:"waiting_capacity"`
	TimeLimitSeconds int    `json:"time_limit_seconds,omitempty"`
}
