// Command validate checks every level file in a directory (default "levels").
// For each .json, .yaml or .yml file it checks:
//   - The file parses and passes engine validation
//   - People and bus seats match per color
//   - Every person can reach the exit row when the grid is otherwise empty
//   - At least one person is playable at the start
//
// Output is colored when stdout is a terminal.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gookit/color"
	"github.com/wricardo/mcp-training/busjam/game/engine"
	"github.com/zyedidia/generic/queue"
	"golang.org/x/term"
)

var (
	styleValid   = color.Style{color.FgGreen, color.OpBold}
	styleInvalid = color.Style{color.FgRed, color.OpBold}
	styleInfo    = color.Style{color.FgGray}
	styleHeader  = color.Style{color.FgCyan, color.OpBold}
)

// ValidationResult captures the outcome of validating a single file.
// Info holds summary lines; Errors accumulates the problems found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateLevel loads and validates a single level file.
func validateLevel(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.ParseLevelConfig(data, filepath.Ext(filePath))
	if err != nil {
		result.fail("Invalid level file: %v", err)
		return result
	}
	if err := engine.ValidateLevelConfig(config); err != nil {
		result.fail("%v", err)
		return result
	}

	result.Info = append(result.Info,
		fmt.Sprintf("%s: %dx%d grid, %d buses, %d waiting slots", config.Name, config.Width(), config.Height(), len(config.Buses), config.WaitingCapacity))
	if config.TimeLimitSeconds > 0 {
		result.Info = append(result.Info, fmt.Sprintf("Time limit: %ds", config.TimeLimitSeconds))
	}

	checkSeats(config, &result)
	checkExitAccess(config, &result)

	e, err := engine.NewEngine(config)
	if err != nil {
		result.fail("Engine refused the level: %v", err)
		return result
	}
	playable := len(e.PlayableIDs())
	if playable == 0 {
		result.fail("Nobody is playable at the start")
	}
	result.Info = append(result.Info, fmt.Sprintf("Initially playable: %d", playable))

	return result
}

// checkSeats compares people and bus seats per color.
func checkSeats(config *engine.LevelConfig, result *ValidationResult) {
	people := config.PeopleByColor()
	seats := config.SeatsByColor()
	for c := engine.Color(0); c < engine.ColorCount; c++ {
		if people[c] == 0 && seats[c] == 0 {
			continue
		}
		if people[c] != seats[c] {
			result.fail("%s: %d people but %d bus seats", c, people[c], seats[c])
			continue
		}
		result.Info = append(result.Info, fmt.Sprintf("%s: %d people", c, people[c]))
	}
}

type cell struct{ x, z int }

// checkExitAccess flood-fills from the exit row through walkable cells,
// ignoring other people, and reports anyone walled off.
func checkExitAccess(config *engine.LevelConfig, result *ValidationResult) {
	layout := config.Layout
	height := len(layout)
	walkable := func(x, z int) bool {
		if z < 0 || z >= height || x < 0 || x >= len(layout[z]) {
			return false
		}
		switch layout[z][x] {
		case engine.LayoutWall, engine.LayoutVoid, engine.LayoutVoidBlank, engine.LayoutVoidVisible:
			return false
		}
		return true
	}

	reached := make(map[cell]bool)
	frontier := queue.New[cell]()
	exit := height - 1
	for x := 0; x < len(layout[exit]); x++ {
		if walkable(x, exit) {
			reached[cell{x, exit}] = true
			frontier.Enqueue(cell{x, exit})
		}
	}

	for !frontier.Empty() {
		c := frontier.Dequeue()
		for _, n := range []cell{{c.x, c.z - 1}, {c.x, c.z + 1}, {c.x - 1, c.z}, {c.x + 1, c.z}} {
			if !reached[n] && walkable(n.x, n.z) {
				reached[n] = true
				frontier.Enqueue(n)
			}
		}
	}

	for z, row := range layout {
		for x := 0; x < len(row); x++ {
			if _, isPerson := engine.ColorFromCode(row[x]); isPerson && !reached[cell{x, z}] {
				result.fail("Person '%c' at row %d, col %d can never reach the exit row", row[x], z+1, x+1)
			}
		}
	}
}

// levelFiles lists level files in dir, sorted by name.
func levelFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func main() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.Disable()
	}

	dir := "levels"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := levelFiles(dir)
	if err != nil {
		fmt.Printf("Error finding level files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No level files found in %s\n", dir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateLevel(file)
		fmt.Printf("\n%s\n", styleHeader.Sprintf("%s %s", strings.Repeat("=", 20), result.File))

		if result.Valid {
			fmt.Println(styleValid.Sprint("VALID"))
		} else {
			fmt.Println(styleInvalid.Sprint("INVALID"))
			allValid = false
		}
		for _, info := range result.Info {
			fmt.Println("  " + styleInfo.Sprint(info))
		}
		for _, e := range result.Errors {
			fmt.Println("  " + styleInvalid.Sprint("✗ ") + e)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println(styleValid.Sprint("All levels are valid!"))
		return
	}
	fmt.Println(styleInvalid.Sprint("Some levels have errors"))
	os.Exit(1)
}
