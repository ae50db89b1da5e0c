package solver

import (
	"fmt"
	"sort"

	"github.com/zyedidia/generic/mapset"

	"github.com/wricardo/mcp-training/busjam/game/engine"
)

// DefaultMaxNodes bounds the number of states a search visits
const DefaultMaxNodes = 20000

// Options tunes the search
type Options struct {
	MaxNodes int
}

// Result is the outcome of a search
type Result struct {
	Solvable  bool  `json:"solvable"`
	Plan      []int `json:"plan,omitempty"`
	Explored  int   `json:"explored"`
	BudgetHit bool  `json:"budget_hit,omitempty"`
}

type search struct {
	seen      mapset.Set[string]
	explored  int
	maxNodes  int
	budgetHit bool
	plan      []int
}

// Solve searches for a sequence of selections that wins the level from the
// given snapshot. A nil snapshot starts from the initial layout. Movement is
// resolved immediately, so the plan assumes every walk completes before the
// next selection.
func Solve(config *engine.LevelConfig, snap *engine.Snapshot, opts Options) (*Result, error) {
	e, err := prepare(config, snap)
	if err != nil {
		return nil, err
	}
	return solveFrom(e, opts), nil
}

func solveFrom(e *engine.PuzzleController, opts Options) *Result {
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	s := &search{
		seen:     mapset.New[string](),
		maxNodes: opts.MaxNodes,
	}

	solved := s.dfs(e)
	result := &Result{
		Solvable:  solved,
		Explored:  s.explored,
		BudgetHit: s.budgetHit && !solved,
	}
	if solved {
		// dfs appends on the way back up
		for i, j := 0, len(s.plan)-1; i < j; i, j = i+1, j-1 {
			s.plan[i], s.plan[j] = s.plan[j], s.plan[i]
		}
		result.Plan = s.plan
	}
	return result
}

// NextMove returns the first selection of a winning plan. When no plan is
// found it falls back to the playable person with the shortest walk to an
// exit, and returns -1 only when nobody can be selected.
func NextMove(config *engine.LevelConfig, snap *engine.Snapshot, opts Options) (int, *Result, error) {
	e, err := prepare(config, snap)
	if err != nil {
		return -1, nil, err
	}
	start := e.Snapshot()

	result := solveFrom(e, opts)
	if result.Solvable && len(result.Plan) > 0 {
		return result.Plan[0], result, nil
	}

	if err := e.Restore(start); err != nil {
		return -1, result, err
	}
	return closestToExit(e), result, nil
}

// prepare builds a search engine at the snapshot with all movement settled
func prepare(config *engine.LevelConfig, snap *engine.Snapshot) (*engine.PuzzleController, error) {
	e, err := newInstantEngine(config)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		if err := e.Restore(snap); err != nil {
			return nil, fmt.Errorf("failed to restore snapshot: %w", err)
		}
		e.CompleteAll()
	}
	return e, nil
}

func closestToExit(e *engine.PuzzleController) int {
	if e.IsGameOver() {
		return -1
	}
	best, bestDist := -1, 0
	for _, id := range candidates(e) {
		d := e.Pathfinder().Distance(e.Person(id).Cell)
		if d < 0 {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}

func newInstantEngine(config *engine.LevelConfig) (*engine.PuzzleController, error) {
	if config == nil {
		return nil, fmt.Errorf("config is nil")
	}
	clone := *config
	clone.InstantMovement = true
	return engine.NewEngine(&clone)
}

func (s *search) dfs(e *engine.PuzzleController) bool {
	if e.IsVictory() {
		return true
	}
	if e.IsGameOver() {
		return false
	}

	key := e.StateKey()
	if s.seen.Has(key) {
		return false
	}
	s.seen.Put(key)

	s.explored++
	if s.explored > s.maxNodes {
		s.budgetHit = true
		return false
	}

	for _, id := range candidates(e) {
		snap := e.Snapshot()
		e.Select(id)
		if s.dfs(e) {
			s.plan = append(s.plan, id)
			return true
		}
		if s.budgetHit {
			return false
		}
		if err := e.Restore(snap); err != nil {
			return false
		}
	}
	return false
}

// candidates orders playable people: riders for the active bus first, then
// people closest to the exit row
func candidates(e *engine.PuzzleController) []int {
	ids := e.PlayableIDs()
	bus := e.CurrentBus()
	exitRow := e.Grid().ExitRow()

	rank := func(id int) (int, int) {
		p := e.Person(id)
		match := 1
		if bus != nil && p.Color == bus.Color {
			match = 0
		}
		return match, exitRow - p.Cell.Z
	}

	sort.SliceStable(ids, func(i, j int) bool {
		mi, di := rank(ids[i])
		mj, dj := rank(ids[j])
		if mi != mj {
			return mi < mj
		}
		return di < dj
	})
	return ids
}
