package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LevelConfig is the authored description of a level, loaded from JSON or YAML
type LevelConfig struct {
	Name             string    `json:"name" yaml:"name"`
	Description      string    `json:"description" yaml:"description"`
	Layout           []string  `json:"layout" yaml:"layout"`
	Buses            []BusSpec `json:"buses" yaml:"buses"`
	WaitingCapacity  int       `json:"waiting_capacity" yaml:"waiting_capacity"`
	TimeLimitSeconds int       `json:"time_limit_seconds,omitempty" yaml:"time_limit_seconds,omitempty"`
	InstantMovement  bool      `json:"instant_movement,omitempty" yaml:"instant_movement,omitempty"`
	CellSize         float64   `json:"cell_size,omitempty" yaml:"cell_size,omitempty"`
	Origin           struct {
		X float64 `json:"x" yaml:"x"`
		Z float64 `json:"z" yaml:"z"`
	} `json:"origin,omitempty" yaml:"origin,omitempty"`
	Messages struct {
		Welcome      string `json:"welcome,omitempty" yaml:"welcome,omitempty"`
		Victory      string `json:"victory,omitempty" yaml:"victory,omitempty"`
		WaitingFull  string `json:"waiting_full,omitempty" yaml:"waiting_full,omitempty"`
		Stuck        string `json:"stuck,omitempty" yaml:"stuck,omitempty"`
		TimerExpired string `json:"timer_expired,omitempty" yaml:"timer_expired,omitempty"`
	} `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Width returns the layout width
func (c *LevelConfig) Width() int {
	if len(c.Layout) == 0 {
		return 0
	}
	return len(c.Layout[0])
}

// Height returns the layout height
func (c *LevelConfig) Height() int {
	return len(c.Layout)
}

// PeopleByColor counts the people placed in the layout per color
func (c *LevelConfig) PeopleByColor() map[Color]int {
	counts := make(map[Color]int)
	for _, row := range c.Layout {
		for i := 0; i < len(row); i++ {
			if color, ok := ColorFromCode(row[i]); ok {
				counts[color]++
			}
		}
	}
	return counts
}

// SeatsByColor sums bus capacity per color
func (c *LevelConfig) SeatsByColor() map[Color]int {
	seats := make(map[Color]int)
	for _, bus := range c.Buses {
		seats[bus.Color] += bus.Capacity
	}
	return seats
}

// ValidateLevelConfig rejects levels the engine cannot run
func ValidateLevelConfig(config *LevelConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	height := len(config.Layout)
	if height < MinGridSize || height > MaxGridSize {
		return fmt.Errorf("config validation: layout must have between %d and %d rows, got %d", MinGridSize, MaxGridSize, height)
	}
	width := len(config.Layout[0])
	if width < MinGridSize || width > MaxGridSize {
		return fmt.Errorf("config validation: layout rows must have between %d and %d columns, got %d", MinGridSize, MaxGridSize, width)
	}

	people := 0
	for i, row := range config.Layout {
		if len(row) != width {
			return fmt.Errorf("config validation: row %d must have %d characters, got %d", i+1, width, len(row))
		}
		for j := 0; j < len(row); j++ {
			switch ch := row[j]; ch {
			case LayoutOpen, LayoutWall, LayoutVoid, LayoutVoidBlank, LayoutVoidVisible:
			default:
				if _, ok := ColorFromCode(ch); !ok {
					return fmt.Errorf("config validation: invalid character '%c' at row %d, col %d", ch, i+1, j+1)
				}
				people++
			}
		}
	}
	if people == 0 {
		return fmt.Errorf("config validation: layout must contain at least one person")
	}

	exitRow := config.Layout[height-1]
	hasExit := false
	for j := 0; j < len(exitRow); j++ {
		if isPlayAreaCode(exitRow[j]) {
			hasExit = true
			break
		}
	}
	if !hasExit {
		return fmt.Errorf("config validation: exit row (last layout row) has no play-area cell")
	}

	if len(config.Buses) == 0 {
		return fmt.Errorf("config validation: bus sequence must not be empty")
	}
	for i, bus := range config.Buses {
		if !bus.Color.Valid() {
			return fmt.Errorf("config validation: bus %d has invalid color", i+1)
		}
		if bus.Capacity < 1 || bus.Capacity > MaxBusCapacity {
			return fmt.Errorf("config validation: bus %d capacity must be between 1 and %d, got %d", i+1, MaxBusCapacity, bus.Capacity)
		}
	}

	if config.WaitingCapacity < 0 || config.WaitingCapacity > MaxWaitingCapacity {
		return fmt.Errorf("config validation: waiting_capacity must be between 0 and %d, got %d", MaxWaitingCapacity, config.WaitingCapacity)
	}
	if config.TimeLimitSeconds < 0 {
		return fmt.Errorf("config validation: time_limit_seconds cannot be negative")
	}
	if config.CellSize < 0 {
		return fmt.Errorf("config validation: cell_size cannot be negative")
	}

	return nil
}

// isPlayAreaCode reports whether a layout character is part of the puzzle surface
func isPlayAreaCode(ch byte) bool {
	switch ch {
	case LayoutVoid, LayoutVoidBlank, LayoutVoidVisible:
		return false
	}
	return true
}

// LoadLevelConfig loads a level from a .json, .yaml or .yml file
func LoadLevelConfig(filename string) (*LevelConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseLevelConfig(data, filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to parse level file '%s': %w", filename, err)
	}

	if err := ValidateLevelConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ParseLevelConfig decodes level data; ext selects YAML for ".yaml"/".yml"
func ParseLevelConfig(data []byte, ext string) (*LevelConfig, error) {
	var config LevelConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	}
	if config.WaitingCapacity == 0 {
		config.WaitingCapacity = DefaultWaitingCapacity
	}
	return &config, nil
}

// DefaultLevelConfig returns a small built-in level
func DefaultLevelConfig() *LevelConfig {
	config := &LevelConfig{
		Name:        "default",
		Description: "Built-in starter level",
		Layout: []string{
			"x.BB.x",
			"R.##.B",
			"RR..BB",
			".RRB..",
		},
		Buses: []BusSpec{
			{Color: Red, Capacity: 3},
			{Color: Blue, Capacity: 3},
			{Color: Red, Capacity: 2},
			{Color: Blue, Capacity: 3},
		},
		WaitingCapacity: DefaultWaitingCapacity,
	}
	return config
}
