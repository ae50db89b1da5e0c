package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/busjam/api"
	"github.com/wricardo/mcp-training/busjam/game/config"
	"github.com/wricardo/mcp-training/busjam/game/engine"
	"github.com/wricardo/mcp-training/busjam/game/service"
	"github.com/wricardo/mcp-training/busjam/game/session"
)

const walkLevel = `{
	"name": "Walk",
	"layout": ["R.B", "BR."],
	"buses": [{"color": "red", "capacity": 2}, {"color": "blue", "capacity": 2}],
	"waiting_capacity": 3
}`

func newGameServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "walk.json"), []byte(walkLevel), 0644); err != nil {
		t.Fatal(err)
	}
	levels, err := config.NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := levels.SaveConfig("default", engine.DefaultLevelConfig()); err != nil {
		t.Fatal(err)
	}

	gameService := service.NewGameService(session.NewManager(), levels)
	ts := httptest.NewServer(api.NewServer(gameService, nil))
	t.Cleanup(ts.Close)
	return ts
}

func TestPlayer_HintStrategy(t *testing.T) {
	ts := newGameServer(t)
	ctx := context.Background()

	client := NewClient(ts.URL)
	if _, err := client.CreateSession(ctx, "default"); err != nil {
		t.Fatal(err)
	}

	player := &Player{client: client, strategy: NewHintStrategy(client), maxSelections: 100}
	attempt, err := player.Play(ctx, 1)
	if err != nil {
		t.Fatalf("Expected the solver to win the default level: %v", err)
	}
	if attempt != 1 {
		t.Errorf("Expected a first-attempt win, got attempt %d", attempt)
	}

	state, err := client.GetState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !state.Victory || state.BoardedCount != 11 {
		t.Errorf("Expected 11 boarded and victory, got %d %v", state.BoardedCount, state.Victory)
	}
}

func TestPlayer_GreedyStrategy(t *testing.T) {
	ts := newGameServer(t)
	ctx := context.Background()

	client := NewClient(ts.URL)
	if _, err := client.CreateSession(ctx, "walk"); err != nil {
		t.Fatal(err)
	}

	player := &Player{client: client, strategy: NewGreedyStrategy(), maxSelections: 20}
	if _, err := player.Play(ctx, 4); err != nil {
		t.Fatalf("Greedy play failed: %v", err)
	}
}

func TestPlayer_MaxSelections(t *testing.T) {
	ts := newGameServer(t)
	ctx := context.Background()

	client := NewClient(ts.URL)
	if _, err := client.CreateSession(ctx, "walk"); err != nil {
		t.Fatal(err)
	}

	player := &Player{client: client, strategy: NewGreedyStrategy(), maxSelections: 1}
	_, err := player.Play(ctx, 2)
	if err == nil || !strings.Contains(err.Error(), "failed to win after 2 attempts") {
		t.Errorf("Expected give-up error, got %v", err)
	}
}

func TestRankPlayable(t *testing.T) {
	people := []engine.PersonView{
		{ID: 0, Color: engine.Red},
		{ID: 1, Color: engine.Blue},
		{ID: 2, Color: engine.Green},
		{ID: 3, Color: engine.Red},
	}
	tests := []struct {
		name    string
		waiting int
		want    []int
	}{
		{name: "room to wait", waiting: 0, want: []int{0, 3, 1, 2}},
		{name: "last slot", waiting: 2, want: []int{0, 3, 1, 2}},
		{name: "waiting full", waiting: 3, want: []int{0, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &engine.GameState{
				People:          people,
				Playable:        []int{2, 1, 3, 0},
				ActiveBus:       &engine.Bus{Color: engine.Red},
				NextBus:         &engine.Bus{Color: engine.Blue},
				WaitingCapacity: 3,
				WaitingCount:    tt.waiting,
			}
			ranked := rankPlayable(state)
			if len(ranked) != len(tt.want) {
				t.Fatalf("Expected %v, got %+v", tt.want, ranked)
			}
			for i, id := range tt.want {
				if ranked[i].id != id {
					t.Errorf("Position %d: expected %d, got %d", i, id, ranked[i].id)
				}
			}
		})
	}
}

func TestGreedyStrategy_Branches(t *testing.T) {
	state := &engine.GameState{
		People:          []engine.PersonView{{ID: 0, Color: engine.Red}, {ID: 1, Color: engine.Red}},
		Playable:        []int{0, 1},
		ActiveBus:       &engine.Bus{Color: engine.Red},
		WaitingCapacity: 3,
	}

	s := NewGreedyStrategy()
	first, _ := s.Next(context.Background(), state)
	s.Reset(2)
	second, _ := s.Next(context.Background(), state)
	if first == second {
		t.Errorf("Expected attempts to branch, both picked %d", first)
	}

	if id, _ := s.Next(context.Background(), &engine.GameState{}); id != -1 {
		t.Errorf("Expected -1 without playable people, got %d", id)
	}
}

func TestOpenSession(t *testing.T) {
	ts := newGameServer(t)
	ctx := context.Background()
	t.Chdir(t.TempDir())

	client := NewClient(ts.URL)
	if err := openSession(ctx, client, "walk", ""); err != nil {
		t.Fatal(err)
	}
	created := client.sessionID

	data, err := os.ReadFile(sessionFile)
	if err != nil || string(data) != created {
		t.Fatalf("Expected saved session id %s, got %q (%v)", created, data, err)
	}

	resumed := NewClient(ts.URL)
	if err := openSession(ctx, resumed, "walk", ""); err != nil {
		t.Fatal(err)
	}
	if resumed.sessionID != created {
		t.Errorf("Expected to resume %s, got %s", created, resumed.sessionID)
	}

	fresh := NewClient(ts.URL)
	if err := openSession(ctx, fresh, "walk", "gone"); err != nil {
		t.Fatal(err)
	}
	if fresh.sessionID == "gone" {
		t.Error("Expected a new session when the resumed one is missing")
	}
}

func TestClient_Errors(t *testing.T) {
	ts := newGameServer(t)
	client := NewClient(ts.URL)

	if _, err := client.CreateSession(context.Background(), "nope"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected 404 for unknown level, got %v", err)
	}

	client.sessionID = "missing"
	if _, err := client.Hint(context.Background()); err == nil {
		t.Error("Expected error for unknown session")
	}
}
