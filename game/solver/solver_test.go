package solver

import (
	"testing"

	"github.com/wricardo/mcp-training/busjam/game/engine"
)

func instantDefault() *engine.LevelConfig {
	config := engine.DefaultLevelConfig()
	config.InstantMovement = true
	return config
}

// replay applies a plan and reports whether it wins
func replay(t *testing.T, config *engine.LevelConfig, snap *engine.Snapshot, plan []int) bool {
	t.Helper()

	e, err := newInstantEngine(config)
	if err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		if err := e.Restore(snap); err != nil {
			t.Fatal(err)
		}
		e.CompleteAll()
	}
	for _, id := range plan {
		if r := e.Select(id); !r.Accepted {
			t.Fatalf("Plan step %d rejected: %s", id, r.Reason)
		}
	}
	return e.IsVictory()
}

func TestSolve_DefaultLevel(t *testing.T) {
	config := engine.DefaultLevelConfig()

	result, err := Solve(config, nil, Options{})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !result.Solvable {
		t.Fatalf("Expected the default level to be solvable, explored %d", result.Explored)
	}
	if len(result.Plan) != 11 {
		t.Errorf("Expected one selection per person (11), got %d", len(result.Plan))
	}
	if result.BudgetHit {
		t.Error("BudgetHit must not be set on success")
	}
	if !replay(t, config, nil, result.Plan) {
		t.Errorf("Plan %v does not win", result.Plan)
	}
}

func TestSolve_FromSnapshot(t *testing.T) {
	config := engine.DefaultLevelConfig()
	e, err := engine.NewEngine(config)
	if err != nil {
		t.Fatal(err)
	}

	// Two red riders, one still walking when the snapshot is taken
	e.Select(8)
	e.CompleteMovement(8)
	e.Select(9)
	snap := e.Snapshot()

	result, err := Solve(config, snap, Options{})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !result.Solvable {
		t.Fatal("Expected a solution from the snapshot")
	}
	if len(result.Plan) != 9 {
		t.Errorf("Expected 9 remaining selections, got %d (%v)", len(result.Plan), result.Plan)
	}
	if !replay(t, config, snap, result.Plan) {
		t.Errorf("Plan %v does not win from the snapshot", result.Plan)
	}

	// The caller's engine is untouched
	if e.Person(9).Status != engine.InTransit {
		t.Error("Solve must not mutate the source engine")
	}
}

func TestSolve_Budget(t *testing.T) {
	result, err := Solve(instantDefault(), nil, Options{MaxNodes: 1})
	if err != nil {
		t.Fatal(err)
	}
	if result.Solvable {
		t.Fatal("A one-node budget cannot solve the level")
	}
	if !result.BudgetHit {
		t.Error("Expected BudgetHit")
	}
}

func TestSolve_RejectsBadInput(t *testing.T) {
	if _, err := Solve(nil, nil, Options{}); err == nil {
		t.Error("Expected error for nil config")
	}

	other := engine.DefaultLevelConfig()
	other.Name = "renamed"
	snap := engine.NewEngineWithDefaults().Snapshot()
	if _, err := Solve(other, snap, Options{}); err == nil {
		t.Error("Expected error for a snapshot from another level")
	}
}

func TestNextMove(t *testing.T) {
	t.Run("first step of the plan", func(t *testing.T) {
		next, result, err := NextMove(instantDefault(), nil, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if !result.Solvable || next != result.Plan[0] {
			t.Errorf("Expected first plan step, got %d (plan %v)", next, result.Plan)
		}
	})

	t.Run("falls back to the shortest walk", func(t *testing.T) {
		config := instantDefault()
		next, result, err := NextMove(config, nil, Options{MaxNodes: 1})
		if err != nil {
			t.Fatal(err)
		}
		if result.Solvable {
			t.Fatal("Budget should prevent a solution")
		}
		e, _ := engine.NewEngine(config)
		if !e.IsPersonPlayable(next) {
			t.Fatalf("Fallback %d is not playable", next)
		}
		if !e.Grid().IsExitRow(e.Person(next).Cell.Z) {
			t.Errorf("Expected a front-row person, got %d at z=%d", next, e.Person(next).Cell.Z)
		}
		// Red rides first, so a red front-row person is preferred
		if e.Person(next).Color != engine.Red {
			t.Errorf("Expected a red rider, got %s", e.Person(next).Color)
		}
	})

	t.Run("nothing to select", func(t *testing.T) {
		e := engine.NewEngineWithDefaults()
		e.Expire()
		next, _, err := NextMove(engine.DefaultLevelConfig(), e.Snapshot(), Options{})
		if err != nil {
			t.Fatal(err)
		}
		if next != -1 {
			t.Errorf("Expected -1 for a finished level, got %d", next)
		}
	})
}

func TestAnalyze(t *testing.T) {
	t.Run("default level", func(t *testing.T) {
		report, err := Analyze(engine.DefaultLevelConfig(), Options{})
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		if report.People["red"] != 5 || report.People["blue"] != 6 {
			t.Errorf("Unexpected people counts: %v", report.People)
		}
		if report.Seats["red"] != 5 || report.Seats["blue"] != 6 {
			t.Errorf("Unexpected seat counts: %v", report.Seats)
		}
		if len(report.SeatMismatch) != 0 {
			t.Errorf("Expected no mismatch, got %v", report.SeatMismatch)
		}
		if report.InitiallyPlayable == 0 {
			t.Error("Expected playable people at the start")
		}
		if report.Result == nil || !report.Result.Solvable {
			t.Error("Expected the default level to be solvable")
		}
	})

	t.Run("seat mismatch", func(t *testing.T) {
		config := engine.DefaultLevelConfig()
		config.Buses = append(config.Buses, engine.BusSpec{Color: engine.Red, Capacity: 1})

		report, err := Analyze(config, Options{})
		if err == nil {
			t.Fatal("Expected a validation error")
		}
		if report == nil || len(report.SeatMismatch) != 1 || report.SeatMismatch[0] != "red" {
			t.Errorf("Expected red mismatch in the report, got %+v", report)
		}
		if report.Result != nil {
			t.Error("No search should run on an invalid level")
		}
	})
}
