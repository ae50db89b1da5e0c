package engine

import (
	"fmt"
	"strings"
)

// Color is the color of a person or a bus
type Color uint8

const (
	Red Color = iota
	Blue
	Green
	Yellow
	Purple
	Orange
	Pink
	Cyan
	White
	Black
	Brown

	// ColorCount is the number of defined colors, used for iteration
	ColorCount
)

var colorNames = [ColorCount]string{
	"red", "blue", "green", "yellow", "purple", "orange",
	"pink", "cyan", "white", "black", "brown",
}

// Layout letters, one per color
var colorCodes = [ColorCount]byte{'R', 'B', 'G', 'Y', 'P', 'O', 'K', 'C', 'W', 'N', 'Z'}

// Validation and layout constants
const (
	MinGridSize        = 1
	MaxGridSize        = 40
	MaxBusCapacity     = 64
	MaxWaitingCapacity = 16
	MaxBulkSelections  = 50

	DefaultWaitingCapacity = 5
	DefaultCellSize        = 1.0

	NoOccupant   = -1
	WallOccupant = -2

	LayoutOpen        = '.'
	LayoutWall        = '#'
	LayoutVoid        = 'x'
	LayoutVoidBlank   = ' '
	LayoutVoidVisible = '-'
)

// String returns the lowercase color name
func (c Color) String() string {
	if c < ColorCount {
		return colorNames[c]
	}
	return "unknown"
}

// Code returns the layout letter for the color
func (c Color) Code() byte {
	if c < ColorCount {
		return colorCodes[c]
	}
	return '?'
}

// Valid reports whether c is one of the defined colors
func (c Color) Valid() bool {
	return c < ColorCount
}

// MarshalText encodes the color as its name
func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid color %d", c)
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a color name or layout letter
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor parses a color name ("red") or a layout letter ("R")
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		if c, ok := ColorFromCode(s[0]); ok {
			return c, nil
		}
	}
	lower := strings.ToLower(s)
	for i, name := range colorNames {
		if name == lower {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color %q", s)
}

// ColorFromCode maps a layout letter to a color
func ColorFromCode(code byte) (Color, bool) {
	for i, c := range colorCodes {
		if c == code {
			return Color(i), true
		}
	}
	return 0, false
}

// Position represents x,z grid coordinates
type Position struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// PersonStatus is where a person currently is in the simulation
type PersonStatus string

const (
	OnGrid    PersonStatus = "on_grid"
	InTransit PersonStatus = "in_transit"
	Waiting   PersonStatus = "waiting"
	Boarded   PersonStatus = "boarded"
)

// Destination is where a moving person is headed
type Destination string

const (
	ToBus     Destination = "bus"
	ToWaiting Destination = "waiting"
)

// Person is a colored passenger on the puzzle grid
type Person struct {
	ID     int          `json:"id"`
	Color  Color        `json:"color"`
	Status PersonStatus `json:"status"`
	Cell   *Cell        `json:"-"`

	// Start is the cell the person was placed on at level load
	Start Position `json:"start"`
}

// OnGrid reports whether the person still stands on the grid
func (p *Person) OnGrid() bool {
	return p.Status == OnGrid && p.Cell != nil
}

// Phase is the controller state
type Phase string

const (
	SpawningBuses Phase = "spawning_buses"
	ActiveWaiting Phase = "active_waiting"
	MovingBuses   Phase = "moving_buses"
	LevelComplete Phase = "level_complete"
	Lost          Phase = "lost"
)

// Lose reason codes
const (
	ReasonWaitingAreaFull  = "waiting_area_full"
	ReasonNoPlayablePeople = "no_playable_people"
	ReasonNoBusForWaiting  = "no_bus_for_waiting"
	ReasonTimerExpired     = "timer_expired"
)

// Rejection reason codes for a selection that changed nothing
const (
	RejectGameOver     = "game_over"
	RejectUnknown      = "unknown_person"
	RejectNotOnGrid    = "not_on_grid"
	RejectNotPlayArea  = "not_play_area"
	RejectNotPlayable  = "not_playable"
	RejectNoPath       = "no_path"
	RejectNotInTransit = "not_in_transit"
)

// PersonView is the JSON view of a person
type PersonView struct {
	ID       int          `json:"id"`
	Color    Color        `json:"color"`
	Status   PersonStatus `json:"status"`
	Position *Position    `json:"position,omitempty"`
	Playable bool         `json:"playable"`
}

// GameState is a read-only view of the whole puzzle
type GameState struct {
	ConfigName      string         `json:"config_name"`
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	Grid            []string       `json:"grid"`
	People          []PersonView   `json:"people"`
	ActiveBus       *Bus           `json:"active_bus,omitempty"`
	NextBus         *Bus           `json:"next_bus,omitempty"`
	BusesRemaining  int            `json:"buses_remaining"`
	BusCursor       int            `json:"bus_cursor"`
	Waiting         []int          `json:"waiting"`
	WaitingCapacity int            `json:"waiting_capacity"`
	WaitingCount    int            `json:"waiting_count"`
	InTransit       []int          `json:"in_transit"`
	TotalPeople     int            `json:"total_people"`
	BoardedCount    int            `json:"boarded_count"`
	Phase           Phase          `json:"phase"`
	GameActive      bool           `json:"game_active"`
	WinTriggered    bool           `json:"win_triggered"`
	GameOver        bool           `json:"game_over"`
	Victory         bool           `json:"victory"`
	LoseReason      string         `json:"lose_reason,omitempty"`
	Message         string         `json:"message"`
	Playable        []int          `json:"playable"`
	History         []HistoryEntry `json:"history"`
	TotalSelections int            `json:"total_selections"`
}

// HistoryEntry records a single player action and its outcome
type HistoryEntry struct {
	Action     string    `json:"action"` // "select", "complete", "expire"
	PersonID   int       `json:"person_id"`
	From       *Position `json:"from,omitempty"`
	Outcome    string    `json:"outcome"`
	Success    bool      `json:"success"`
	Timestamp  int64     `json:"timestamp"`
	Number     int       `json:"number"`
	BusColor   string    `json:"bus_color,omitempty"`
	WaitingLen int       `json:"waiting_len"`
}
