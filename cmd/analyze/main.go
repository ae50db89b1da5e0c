// Command analyze prints a quick, human-readable report for level files:
// dimensions, people versus bus seats per color, how many people are playable
// at the start, and whether the solver finds a winning selection order.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gookit/color"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/busjam/game/engine"
	"github.com/wricardo/mcp-training/busjam/game/solver"
	"golang.org/x/term"
)

var (
	styleOK      = color.Style{color.FgGreen, color.OpBold}
	styleWarn    = color.Style{color.FgYellow, color.OpBold}
	styleBad     = color.Style{color.FgRed, color.OpBold}
	styleHeading = color.Style{color.FgCyan, color.OpBold}
)

func main() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.Disable()
	}

	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "Report on bus jam level files",
		ArgsUsage: "[level files or directories]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "budget", Value: 200000, Usage: "States the solver may explore per level"},
			&cli.BoolFlag{Name: "json", Usage: "Print reports as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				paths = []string{"levels"}
			}
			files, err := expand(paths)
			if err != nil {
				return err
			}
			return run(os.Stdout, files, solver.Options{MaxNodes: int(cmd.Int("budget"))}, cmd.Bool("json"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// expand turns directories into their level files
func expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(p, pattern))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		}
	}
	sort.Strings(files)
	return files, nil
}

func run(w io.Writer, files []string, opts solver.Options, asJSON bool) error {
	reports := make([]*solver.Report, 0, len(files))
	for _, file := range files {
		if !asJSON {
			fmt.Fprintf(w, "\n%s\n", styleHeading.Sprintf("=== Analyzing %s ===", filepath.Base(file)))
		}
		report, err := analyzeLevel(file, opts)
		if err != nil && report == nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			continue
		}
		reports = append(reports, report)
		if !asJSON {
			printReport(w, report, err)
		}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	return nil
}

// analyzeLevel reads a level file and runs the solver report on it.
// A level that parses but fails validation returns a partial report and the error.
func analyzeLevel(path string, opts solver.Options) (*solver.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	config, err := engine.ParseLevelConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("error parsing level: %w", err)
	}
	return solver.Analyze(config, opts)
}

func printReport(w io.Writer, report *solver.Report, analyzeErr error) {
	fmt.Fprintf(w, "Name: %s\n", report.Name)
	fmt.Fprintf(w, "Grid: %d x %d\n", report.Width, report.Height)

	colors := make([]string, 0, len(report.People))
	for name := range report.People {
		colors = append(colors, name)
	}
	for name := range report.Seats {
		if _, ok := report.People[name]; !ok {
			colors = append(colors, name)
		}
	}
	sort.Strings(colors)
	for _, name := range colors {
		fmt.Fprintf(w, "  %-7s people=%d seats=%d\n", name, report.People[name], report.Seats[name])
	}

	if len(report.SeatMismatch) > 0 {
		fmt.Fprintf(w, "%s seats do not match people for: %s\n", styleBad.Sprint("CRITICAL:"), strings.Join(report.SeatMismatch, ", "))
	}
	if analyzeErr != nil {
		fmt.Fprintf(w, "%s %v\n", styleBad.Sprint("Invalid level:"), analyzeErr)
		return
	}

	fmt.Fprintf(w, "Initially playable: %d\n", report.InitiallyPlayable)

	res := report.Result
	switch {
	case res == nil:
	case res.Solvable:
		fmt.Fprintf(w, "%s winning order %v (%d states)\n", styleOK.Sprint("Solvable:"), res.Plan, res.Explored)
	case res.BudgetHit:
		fmt.Fprintf(w, "%s search budget exhausted after %d states\n", styleWarn.Sprint("Unknown:"), res.Explored)
	default:
		fmt.Fprintf(w, "%s no winning order exists (%d states)\n", styleBad.Sprint("Unsolvable:"), res.Explored)
	}
}
