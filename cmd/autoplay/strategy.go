package main

import (
	"context"
	"sort"

	"github.com/wricardo/mcp-training/busjam/game/engine"
)

// Strategy picks the next person to select; -1 means no move
type Strategy interface {
	Name() string
	Reset(attempt int)
	Next(ctx context.Context, state *engine.GameState) (int, error)
}

// HintStrategy asks the server's solver for every move
type HintStrategy struct {
	client *Client
}

func NewHintStrategy(client *Client) *HintStrategy {
	return &HintStrategy{client: client}
}

func (s *HintStrategy) Name() string { return "hint" }

func (s *HintStrategy) Reset(attempt int) {}

func (s *HintStrategy) Next(ctx context.Context, state *engine.GameState) (int, error) {
	hint, err := s.client.Hint(ctx)
	if err != nil {
		return -1, err
	}
	return hint.NextPersonID, nil
}

// GreedyStrategy boards matching people first and parks others in the
// waiting area, preferring colors of the next bus. Successive attempts branch
// differently at the first decisions so a retry explores a new order.
type GreedyStrategy struct {
	attempt  int
	decision int
}

func NewGreedyStrategy() *GreedyStrategy {
	return &GreedyStrategy{attempt: 1}
}

func (s *GreedyStrategy) Name() string { return "greedy" }

func (s *GreedyStrategy) Reset(attempt int) {
	s.attempt = attempt
	s.decision = 0
}

func (s *GreedyStrategy) Next(ctx context.Context, state *engine.GameState) (int, error) {
	ranked := rankPlayable(state)
	if len(ranked) == 0 {
		return -1, nil
	}

	// Branch only between equally good options
	ties := 1
	for ties < len(ranked) && ranked[ties].score == ranked[0].score {
		ties++
	}
	pick := 0
	if ties > 1 {
		if s.decision < 30 {
			pick = ((s.attempt - 1) >> s.decision) & 1
		}
		s.decision++
		if pick >= ties {
			pick = 0
		}
	}
	return ranked[pick].id, nil
}

type candidate struct {
	id    int
	score int
}

// rankPlayable orders playable people: active bus color, then next bus
// color, then anyone while the waiting area has room. Lower is better.
func rankPlayable(state *engine.GameState) []candidate {
	waitingFree := state.WaitingCapacity - state.WaitingCount
	var out []candidate
	for _, id := range state.Playable {
		if id < 0 || id >= len(state.People) {
			continue
		}
		c := state.People[id].Color
		switch {
		case state.ActiveBus != nil && c == state.ActiveBus.Color:
			out = append(out, candidate{id, 0})
		case waitingFree > 1 && state.NextBus != nil && c == state.NextBus.Color:
			out = append(out, candidate{id, 1})
		case waitingFree > 1:
			out = append(out, candidate{id, 2})
		case waitingFree == 1:
			out = append(out, candidate{id, 3})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score < out[j].score
		}
		return out[i].id < out[j].id
	})
	return out
}
