package solver

import (
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/busjam/game/engine"
)

// Report summarizes a level for authors
type Report struct {
	Name              string         `json:"name"`
	Width             int            `json:"width"`
	Height            int            `json:"height"`
	People            map[string]int `json:"people"`
	Seats             map[string]int `json:"seats"`
	SeatMismatch      []string       `json:"seat_mismatch,omitempty"`
	InitiallyPlayable int            `json:"initially_playable"`
	Result            *Result        `json:"result"`
}

// Analyze counts people and seats per color and searches for a solution.
// A level that fails validation, or whose seats do not match its people,
// still gets its counts in the report but no search.
func Analyze(config *engine.LevelConfig, opts Options) (*Report, error) {
	report := &Report{
		Name:   config.Name,
		Width:  config.Width(),
		Height: config.Height(),
		People: make(map[string]int),
		Seats:  make(map[string]int),
	}

	people := config.PeopleByColor()
	seats := config.SeatsByColor()
	for c := engine.Color(0); c < engine.ColorCount; c++ {
		if people[c] > 0 {
			report.People[c.String()] = people[c]
		}
		if seats[c] > 0 {
			report.Seats[c.String()] = seats[c]
		}
		if people[c] != seats[c] {
			report.SeatMismatch = append(report.SeatMismatch, c.String())
		}
	}

	if len(report.SeatMismatch) > 0 {
		return report, fmt.Errorf("seats do not match people for: %s", strings.Join(report.SeatMismatch, ", "))
	}

	e, err := prepare(config, nil)
	if err != nil {
		return report, err
	}
	report.InitiallyPlayable = len(e.PlayableIDs())

	report.Result = solveFrom(e, opts)
	return report, nil
}
