// Command autoplay plays a level on a running puzzle server through the REST
// API, retrying until it wins or runs out of attempts.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/busjam/game/engine"
)

const sessionFile = ".session"

// Player runs attempts against one session
type Player struct {
	client        *Client
	strategy      Strategy
	maxSelections int
	delay         time.Duration
	verbose       bool
}

// Attempt plays from a fresh reset and returns the final state and selection count
func (p *Player) Attempt(ctx context.Context, attempt int) (*engine.GameState, int, error) {
	state, err := p.client.Reset(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("reset: %w", err)
	}
	p.strategy.Reset(attempt)

	selections := 0
	for !state.GameOver && selections < p.maxSelections {
		id, err := p.strategy.Next(ctx, state)
		if err != nil {
			return state, selections, err
		}
		if id < 0 {
			log.Printf("⚠️  No playable person")
			break
		}

		result, err := p.client.Select(ctx, id)
		if err != nil {
			return state, selections, err
		}
		selections++
		if result.GameState != nil {
			state = result.GameState
		}
		if p.verbose {
			log.Printf("select %d → %s (boarded %d/%d, waiting %d/%d)",
				id, result.Result.Outcome, state.BoardedCount, state.TotalPeople, state.WaitingCount, state.WaitingCapacity)
		}
		if !result.Result.Accepted {
			log.Printf("Selection of %d rejected: %s", id, result.Result.Reason)
			break
		}

		if p.delay > 0 {
			time.Sleep(p.delay)
		}
	}
	return state, selections, nil
}

// Play runs attempts until victory and reports the winning attempt
func (p *Player) Play(ctx context.Context, maxAttempts int) (int, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		log.Printf("=== 🎮 Attempt %d/%d (%s) ===", attempt, maxAttempts, p.strategy.Name())

		state, selections, err := p.Attempt(ctx, attempt)
		if err != nil {
			return attempt, err
		}
		log.Printf("Attempt %d: selections=%d boarded=%d/%d phase=%s",
			attempt, selections, state.BoardedCount, state.TotalPeople, state.Phase)

		if state.Victory {
			return attempt, nil
		}
		if state.LoseReason != "" {
			log.Printf("Lost: %s", state.LoseReason)
		}
	}
	return maxAttempts, fmt.Errorf("failed to win after %d attempts", maxAttempts)
}

// openSession resumes the given or saved session, or creates a new one
func openSession(ctx context.Context, client *Client, level, resume string) error {
	if resume == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			resume = string(bytes.TrimSpace(data))
		}
	}

	if resume != "" {
		client.sessionID = resume
		if state, err := client.GetState(ctx); err == nil {
			log.Printf("🔄 Resuming session %s (%s, %d people)", resume, state.ConfigName, state.TotalPeople)
			return nil
		}
		log.Printf("⚠️  Failed to resume session %s, creating a new one", resume)
	}

	state, err := client.CreateSession(ctx, level)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	log.Printf("✨ Session created: %s (%s, %dx%d, %d people)",
		client.sessionID, state.ConfigName, state.Width, state.Height, state.TotalPeople)

	if err := os.WriteFile(sessionFile, []byte(client.sessionID), 0644); err != nil {
		log.Printf("Warning: Failed to save session ID: %v", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "autoplay",
		Usage: "Play a bus jam level over the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringFlag{Name: "level", Usage: "Level id (default level when empty)"},
			&cli.StringFlag{Name: "continue", Usage: "Resume playing an existing session by ID"},
			&cli.StringFlag{Name: "strategy", Value: "hint", Usage: "hint or greedy"},
			&cli.IntFlag{Name: "max-attempts", Value: 20, Usage: "Maximum attempts before giving up"},
			&cli.IntFlag{Name: "max-selections", Value: 500, Usage: "Maximum selections per attempt"},
			&cli.DurationFlag{Name: "delay", Usage: "Delay between selections"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Verbose output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log.Printf("Connecting to game server at %s", cmd.String("url"))
			client := NewClient(cmd.String("url"))

			if err := openSession(ctx, client, cmd.String("level"), cmd.String("continue")); err != nil {
				return err
			}

			var strategy Strategy
			switch cmd.String("strategy") {
			case "hint":
				strategy = NewHintStrategy(client)
			case "greedy":
				strategy = NewGreedyStrategy()
			default:
				return fmt.Errorf("unknown strategy %q", cmd.String("strategy"))
			}

			player := &Player{
				client:        client,
				strategy:      strategy,
				maxSelections: int(cmd.Int("max-selections")),
				delay:         cmd.Duration("delay"),
				verbose:       cmd.Bool("verbose"),
			}

			attempt, err := player.Play(ctx, int(cmd.Int("max-attempts")))
			log.Printf("Session: %s", client.sessionID)
			if err != nil {
				return err
			}
			log.Printf("🎉 VICTORY in attempt %d!", attempt)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}
