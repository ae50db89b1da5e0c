package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/busjam/game/config"
	"github.com/wricardo/mcp-training/busjam/game/engine"
	"github.com/wricardo/mcp-training/busjam/game/service"
	"github.com/wricardo/mcp-training/busjam/game/session"
	"github.com/wricardo/mcp-training/busjam/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Puzzle Operations
	SelectFunc           func(ctx context.Context, sessionID string, personID int, reset bool) (*service.SelectResult, error)
	BulkSelectFunc       func(ctx context.Context, sessionID string, personIDs []int, reset bool) (*service.BulkSelectResult, error)
	CompleteMovementFunc func(ctx context.Context, sessionID string, personID int) (*service.SelectResult, error)
	CompleteAllFunc      func(ctx context.Context, sessionID string) (*service.CompleteResult, error)
	ResetFunc            func(ctx context.Context, sessionID string) (*engine.GameState, error)
	ExpireFunc           func(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Puzzle State
	GetGameStateFunc func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetHistoryFunc   func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	GetEventsFunc    func(ctx context.Context, sessionID string, limit int) ([]service.GameEvent, error)
	HintFunc         func(ctx context.Context, sessionID string) (*service.HintResult, error)

	// Levels
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.LevelConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.LevelConfig) error
}

func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "test-config", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Select(ctx context.Context, sessionID string, personID int, reset bool) (*service.SelectResult, error) {
	if m.SelectFunc != nil {
		return m.SelectFunc(ctx, sessionID, personID, reset)
	}
	return &service.SelectResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) BulkSelect(ctx context.Context, sessionID string, personIDs []int, reset bool) (*service.BulkSelectResult, error) {
	if m.BulkSelectFunc != nil {
		return m.BulkSelectFunc(ctx, sessionID, personIDs, reset)
	}
	return &service.BulkSelectResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) CompleteMovement(ctx context.Context, sessionID string, personID int) (*service.SelectResult, error) {
	if m.CompleteMovementFunc != nil {
		return m.CompleteMovementFunc(ctx, sessionID, personID)
	}
	return &service.SelectResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) CompleteAll(ctx context.Context, sessionID string) (*service.CompleteResult, error) {
	if m.CompleteAllFunc != nil {
		return m.CompleteAllFunc(ctx, sessionID)
	}
	return &service.CompleteResult{GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) Expire(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ExpireFunc != nil {
		return m.ExpireFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) ExpireOverdue(ctx context.Context, now time.Time) []string {
	return nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetHistoryFunc != nil {
		return m.GetHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Entries: []engine.HistoryEntry{}, Page: opts.Page, PageSize: opts.Limit, TotalPages: 1}, nil
}

func (m *MockGameService) GetEvents(ctx context.Context, sessionID string, limit int) ([]service.GameEvent, error) {
	if m.GetEventsFunc != nil {
		return m.GetEventsFunc(ctx, sessionID, limit)
	}
	return []service.GameEvent{}, nil
}

func (m *MockGameService) Hint(ctx context.Context, sessionID string) (*service.HintResult, error) {
	if m.HintFunc != nil {
		return m.HintFunc(ctx, sessionID)
	}
	return &service.HintResult{NextPersonID: -1}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.LevelConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return engine.DefaultLevelConfig(), nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, config *engine.LevelConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

func setupTestServer(mockService *MockGameService) *Server {
	return NewServer(mockService, nil)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(target); err != nil {
		t.Fatalf("Failed to decode response: %v (body %q)", err, w.Body.String())
	}
}

var errNotFound = errors.New("session not found: no such session")

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
		wantConfig string
	}{
		{name: "default level", body: nil, wantStatus: http.StatusCreated, wantConfig: ""},
		{name: "config_id", body: map[string]string{"config_id": "rush"}, wantStatus: http.StatusCreated, wantConfig: "rush"},
		{name: "legacy config_name", body: map[string]string{"config_name": "old"}, wantStatus: http.StatusCreated, wantConfig: "old"},
		{name: "unknown level", body: map[string]string{"config_id": "nope"}, err: errors.New("config 'nope' not found"), wantStatus: http.StatusNotFound},
		{name: "service failure", body: nil, err: errors.New("disk full"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotConfig string
			mock := &MockGameService{
				CreateSessionFunc: func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					gotConfig = configName
					if tt.err != nil {
						return nil, tt.err
					}
					return &service.SessionInfo{ID: "ab12", ConfigName: configName}, nil
				},
			}

			w := serve(setupTestServer(mock), makeRequest("POST", "/api/sessions", tt.body))
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.err == nil && gotConfig != tt.wantConfig {
				t.Errorf("Expected config %q, got %q", tt.wantConfig, gotConfig)
			}
			if tt.err != nil {
				var body map[string]string
				parseResponse(t, w, &body)
				if body["error"] == "" {
					t.Error("Expected error message in body")
				}
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "a", CreatedAt: base, LastAccessedAt: base.Add(3 * time.Hour)},
				{ID: "b", CreatedAt: base.Add(time.Hour), LastAccessedAt: base.Add(time.Hour)},
				{ID: "c", CreatedAt: base.Add(2 * time.Hour), LastAccessedAt: base.Add(2 * time.Hour)},
			}, nil
		},
	}
	server := setupTestServer(mock)

	tests := []struct {
		query string
		want  []string
		total int
	}{
		{query: "", want: []string{"a", "c", "b"}},
		{query: "?sort=created", want: []string{"c", "b", "a"}},
		{query: "?sort=created&order=asc", want: []string{"a", "b", "c"}},
		{query: "?limit=2", want: []string{"a", "c"}},
		{query: "?limit=0", want: []string{"a", "c", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := serve(server, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}
			var body struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &body)
			if body.Total != 3 {
				t.Errorf("Expected total 3, got %d", body.Total)
			}
			if body.Count != len(tt.want) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.want), body.Count)
			}
			for i, id := range tt.want {
				if body.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, body.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, id string) (*service.SessionInfo, error) {
			if id != "ab12" {
				return nil, errNotFound
			}
			return &service.SessionInfo{ID: id, ConfigName: "default"}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, id string) error {
			if id != "ab12" {
				return errNotFound
			}
			return nil
		},
	}
	server := setupTestServer(mock)

	if w := serve(server, makeRequest("GET", "/api/sessions/ab12", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for existing session, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/sessions/zzzz", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing session, got %d", w.Code)
	}
	if w := serve(server, makeRequest("DELETE", "/api/sessions/ab12", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected 200 on delete, got %d", w.Code)
	}
	if w := serve(server, makeRequest("DELETE", "/api/sessions/zzzz", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting missing session, got %d", w.Code)
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
		wantPerson int
		wantReset  bool
	}{
		{name: "select", body: map[string]interface{}{"person_id": 4}, wantStatus: http.StatusOK, wantPerson: 4},
		{name: "person zero", body: map[string]interface{}{"person_id": 0, "reset": true}, wantStatus: http.StatusOK, wantPerson: 0, wantReset: true},
		{name: "missing person", body: map[string]interface{}{"reset": true}, wantStatus: http.StatusBadRequest},
		{name: "invalid body", body: "{", wantStatus: http.StatusBadRequest},
		{name: "unknown session", body: map[string]interface{}{"person_id": 1}, err: errNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mock := &MockGameService{
				SelectFunc: func(ctx context.Context, sessionID string, personID int, reset bool) (*service.SelectResult, error) {
					called = true
					if tt.err != nil {
						return nil, tt.err
					}
					if personID != tt.wantPerson || reset != tt.wantReset {
						t.Errorf("Expected person=%d reset=%v, got person=%d reset=%v", tt.wantPerson, tt.wantReset, personID, reset)
					}
					return &service.SelectResult{
						Success:   true,
						Result:    engine.SelectResult{Accepted: true, PersonID: personID, Outcome: engine.OutcomeInTransit},
						GameState: &engine.GameState{WaitingCapacity: 5},
					}, nil
				},
			}

			w := serve(setupTestServer(mock), makeRequest("POST", "/api/sessions/ab12/select", tt.body))
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusBadRequest && called {
				t.Error("Service must not be called for a bad request")
			}
			if tt.wantStatus == http.StatusOK {
				var result service.SelectResult
				parseResponse(t, w, &result)
				if !result.Success || result.Result.Outcome != engine.OutcomeInTransit {
					t.Errorf("Unexpected result: %+v", result)
				}
			}
		})
	}
}

func TestBulkSelect(t *testing.T) {
	var got []int
	mock := &MockGameService{
		BulkSelectFunc: func(ctx context.Context, sessionID string, personIDs []int, reset bool) (*service.BulkSelectResult, error) {
			got = personIDs
			return &service.BulkSelectResult{
				SelectionsExecuted:  len(personIDs),
				RequestedSelections: len(personIDs),
				Success:             true,
				GameState:           &engine.GameState{},
			}, nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("POST", "/api/sessions/ab12/bulk-select", map[string]interface{}{"person_ids": []int{8, 9, 5}}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if fmt.Sprint(got) != "[8 9 5]" {
		t.Errorf("Expected ids [8 9 5], got %v", got)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/ab12/bulk-select", map[string]interface{}{"person_ids": []int{}}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty list, got %d", w.Code)
	}
}

func TestMovementCompletion(t *testing.T) {
	mock := &MockGameService{
		CompleteMovementFunc: func(ctx context.Context, sessionID string, personID int) (*service.SelectResult, error) {
			return &service.SelectResult{
				Success:   true,
				Result:    engine.SelectResult{Accepted: true, PersonID: personID, Outcome: engine.OutcomeRedirected},
				GameState: &engine.GameState{},
			}, nil
		},
		CompleteAllFunc: func(ctx context.Context, sessionID string) (*service.CompleteResult, error) {
			return &service.CompleteResult{
				Results:   []engine.SelectResult{{PersonID: 1, Outcome: engine.OutcomeBoarded}, {PersonID: 2, Outcome: engine.OutcomeWaiting}},
				GameState: &engine.GameState{},
			}, nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("POST", "/api/sessions/ab12/complete", map[string]int{"person_id": 3}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var one service.SelectResult
	parseResponse(t, w, &one)
	if one.Result.PersonID != 3 || one.Result.Outcome != engine.OutcomeRedirected {
		t.Errorf("Unexpected completion result: %+v", one.Result)
	}

	if w := serve(server, makeRequest("POST", "/api/sessions/ab12/complete", map[string]int{})); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without person_id, got %d", w.Code)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/ab12/complete-all", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var all service.CompleteResult
	parseResponse(t, w, &all)
	if len(all.Results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(all.Results))
	}
}

func TestResetAndExpire(t *testing.T) {
	mock := &MockGameService{
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			if sessionID == "gone" {
				return nil, errNotFound
			}
			return &engine.GameState{Phase: engine.ActiveWaiting, GameActive: true}, nil
		},
		ExpireFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			return &engine.GameState{Phase: engine.Lost, GameOver: true, LoseReason: engine.ReasonTimerExpired}, nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("POST", "/api/sessions/ab12/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var reset struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	parseResponse(t, w, &reset)
	if reset.State == nil || !reset.State.GameActive {
		t.Error("Expected active state after reset")
	}

	if w := serve(server, makeRequest("POST", "/api/sessions/gone/reset", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/ab12/expire", nil))
	var expired engine.GameState
	parseResponse(t, w, &expired)
	if expired.LoseReason != engine.ReasonTimerExpired {
		t.Errorf("Expected timer_expired, got %q", expired.LoseReason)
	}
}

func TestHint(t *testing.T) {
	mock := &MockGameService{
		HintFunc: func(ctx context.Context, sessionID string) (*service.HintResult, error) {
			switch sessionID {
			case "gone":
				return nil, errNotFound
			case "broken":
				return nil, errors.New("failed to search: boom")
			}
			return &service.HintResult{Solvable: true, NextPersonID: 8, Plan: []int{8, 9}}, nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("GET", "/api/sessions/ab12/hint", nil))
	var hint service.HintResult
	parseResponse(t, w, &hint)
	if !hint.Solvable || hint.NextPersonID != 8 {
		t.Errorf("Unexpected hint: %+v", hint)
	}

	if w := serve(server, makeRequest("GET", "/api/sessions/gone/hint", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/sessions/broken/hint", nil)); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		query string
		want  service.HistoryOptions
	}{
		{query: "", want: service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{query: "?page=3&limit=5&order=asc", want: service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}},
		{query: "?page=-1&limit=abc&order=sideways", want: service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got service.HistoryOptions
			mock := &MockGameService{
				GetHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Entries: []engine.HistoryEntry{}}, nil
				},
			}
			w := serve(setupTestServer(mock), makeRequest("GET", "/api/sessions/ab12/history"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestGetEvents(t *testing.T) {
	var gotLimit int
	mock := &MockGameService{
		GetEventsFunc: func(ctx context.Context, sessionID string, limit int) ([]service.GameEvent, error) {
			gotLimit = limit
			return []service.GameEvent{{ID: "e1", Type: "bus_arrived"}}, nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("GET", "/api/sessions/ab12/events?limit=7", nil))
	var body struct {
		Count  int                 `json:"count"`
		Events []service.GameEvent `json:"events"`
	}
	parseResponse(t, w, &body)
	if gotLimit != 7 {
		t.Errorf("Expected limit 7, got %d", gotLimit)
	}
	if body.Count != 1 || body.Events[0].Type != "bus_arrived" {
		t.Errorf("Unexpected events: %+v", body)
	}

	serve(server, makeRequest("GET", "/api/sessions/ab12/events", nil))
	if gotLimit != 50 {
		t.Errorf("Expected default limit 50, got %d", gotLimit)
	}
}

func TestConfigs(t *testing.T) {
	var savedID string
	var saved *engine.LevelConfig
	mock := &MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "default", Name: "default", People: 11}}, nil
		},
		LoadConfigFunc: func(ctx context.Context, name string) (*engine.LevelConfig, error) {
			if name != "default" {
				return nil, errors.New("configuration not found")
			}
			return engine.DefaultLevelConfig(), nil
		},
		SaveConfigFunc: func(ctx context.Context, name string, config *engine.LevelConfig) error {
			savedID, saved = name, config
			if len(config.Layout) == 0 {
				return errors.New("invalid configuration: layout is empty")
			}
			return nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("GET", "/api/configs", nil))
	var list []*service.ConfigInfo
	parseResponse(t, w, &list)
	if len(list) != 1 || list[0].People != 11 {
		t.Errorf("Unexpected config list: %+v", list)
	}

	if w := serve(server, makeRequest("GET", "/api/configs/default", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if w := serve(server, makeRequest("GET", "/api/configs/missing", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	level := map[string]interface{}{
		"name":   "Custom",
		"layout": []string{"R.", ".."},
		"buses":  []map[string]interface{}{{"color": "red", "capacity": 1}},
	}
	w = serve(server, makeRequest("POST", "/api/configs", level))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if savedID != "Custom" || saved.WaitingCapacity != engine.DefaultWaitingCapacity {
		t.Errorf("Expected id 'Custom' with default waiting capacity, got %q %+v", savedID, saved)
	}
	if saved.Buses[0].Color != engine.Red {
		t.Errorf("Expected red bus, got %s", saved.Buses[0].Color)
	}

	level["config_id"] = "custom_id"
	serve(server, makeRequest("POST", "/api/configs", level))
	if savedID != "custom_id" {
		t.Errorf("Expected explicit config_id, got %q", savedID)
	}

	if w := serve(server, makeRequest("POST", "/api/configs", map[string]string{"description": "no name"})); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without name, got %d", w.Code)
	}
	if w := serve(server, makeRequest("POST", "/api/configs", map[string]interface{}{"name": "Empty"})); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid level, got %d", w.Code)
	}
}

func TestUnifiedSessions(t *testing.T) {
	all := []*service.SessionInfo{
		{ID: "b", ConfigName: "default", GameState: &engine.GameState{Victory: true, GameOver: true}},
		{ID: "a", ConfigName: "default", GameState: &engine.GameState{GameOver: true}},
		{ID: "c", ConfigName: "other", GameState: &engine.GameState{GameActive: true}},
	}
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) { return all, nil },
		GetSessionFunc: func(ctx context.Context, id string) (*service.SessionInfo, error) {
			for _, s := range all {
				if s.ID == id {
					return s, nil
				}
			}
			return nil, errNotFound
		},
	}
	server := setupTestServer(mock)

	type unified struct {
		ConfigName string                   `json:"config_name"`
		Won        int                      `json:"won"`
		Lost       int                      `json:"lost"`
		Sessions   []map[string]interface{} `json:"sessions"`
	}

	w := serve(server, makeRequest("GET", "/api/sessions/unified?configName=default", nil))
	var byLevel unified
	parseResponse(t, w, &byLevel)
	if len(byLevel.Sessions) != 2 || byLevel.Won != 1 || byLevel.Lost != 1 {
		t.Errorf("Unexpected unified view: %+v", byLevel)
	}
	if byLevel.Sessions[0]["session_id"] != "a" {
		t.Errorf("Expected sessions sorted by id, got %v", byLevel.Sessions[0]["session_id"])
	}

	w = serve(server, makeRequest("GET", "/api/sessions/unified?sessionIds=c,%20zz,b", nil))
	var byID unified
	parseResponse(t, w, &byID)
	if len(byID.Sessions) != 2 {
		t.Errorf("Expected unknown ids to be skipped, got %d sessions", len(byID.Sessions))
	}
}

func TestHealth(t *testing.T) {
	w := serve(setupTestServer(&MockGameService{}), makeRequest("GET", "/health", nil))
	var body map[string]string
	parseResponse(t, w, &body)
	if body["status"] != "healthy" {
		t.Errorf("Unexpected health body: %v", body)
	}
}

func TestWebSocket(t *testing.T) {
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, id string) (*service.SessionInfo, error) {
			if id != "ab12" {
				return nil, errNotFound
			}
			return &service.SessionInfo{ID: id}, nil
		},
		SelectFunc: func(ctx context.Context, sessionID string, personID int, reset bool) (*service.SelectResult, error) {
			pid := personID
			return &service.SelectResult{
				Success:   true,
				Result:    engine.SelectResult{Accepted: true, PersonID: personID},
				GameState: &engine.GameState{BoardedCount: 1},
				Events:    []service.GameEvent{{ID: "e1", Type: "person_boarded", PersonID: &pid}},
			}, nil
		},
	}
	ts := httptest.NewServer(NewServer(mock, hub))
	defer ts.Close()

	t.Run("requires session", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/ws")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}

		resp, err = http.Get(ts.URL + "/ws?session=zzzz")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("receives operation events", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=ab12"
		conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect: %v", err)
		}
		defer conn.Close()

		deadline := time.Now().Add(time.Second)
		for hub.ClientCount("ab12") == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		resp, err := http.Post(ts.URL+"/api/sessions/ab12/select", "application/json", strings.NewReader(`{"person_id": 2}`))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()

		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read message: %v", err)
		}
		var message websocket.Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatal(err)
		}
		if message.Event != websocket.EventGameEvents || len(message.Events) != 1 {
			t.Errorf("Unexpected message: %+v", message)
		}
		if message.GameState == nil || message.GameState.BoardedCount != 1 {
			t.Error("Expected the resulting state with the events")
		}
	})
}

// TestPlayLevelOverHTTP drives the default level to victory through the
// real service stack
func TestPlayLevelOverHTTP(t *testing.T) {
	levels, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := levels.SaveConfig("default", engine.DefaultLevelConfig()); err != nil {
		t.Fatal(err)
	}
	gameService := service.NewGameService(session.NewManager(), levels)
	ts := httptest.NewServer(NewServer(gameService, nil))
	defer ts.Close()

	post := func(path string, body interface{}, target interface{}) int {
		t.Helper()
		data, _ := json.Marshal(body)
		resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if target != nil {
			if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
				t.Fatal(err)
			}
		}
		return resp.StatusCode
	}

	var info service.SessionInfo
	if code := post("/api/sessions", map[string]string{"config_id": "default"}, &info); code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", code)
	}

	for _, id := range []int{8, 9, 5, 10, 6, 7, 4, 2, 3, 0, 1} {
		var selected service.SelectResult
		post("/api/sessions/"+info.ID+"/select", map[string]int{"person_id": id}, &selected)
		if !selected.Success {
			t.Fatalf("Selecting %d failed: %+v", id, selected.Result)
		}
		if selected.Result.Outcome != engine.OutcomeInTransit {
			t.Fatalf("Expected %d to start walking, got %s", id, selected.Result.Outcome)
		}

		var completed service.SelectResult
		post("/api/sessions/"+info.ID+"/complete", map[string]int{"person_id": id}, &completed)
		if completed.Result.Outcome != engine.OutcomeBoarded {
			t.Fatalf("Expected %d to board, got %s", id, completed.Result.Outcome)
		}
	}

	resp, err := http.Get(ts.URL + "/api/sessions/" + info.ID + "/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var state engine.GameState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if !state.Victory || state.BoardedCount != 11 {
		t.Errorf("Expected victory with 11 boarded, got phase=%s boarded=%d", state.Phase, state.BoardedCount)
	}
}
