package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLevel(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write level: %v", err)
	}
	return path
}

func TestValidateLevel(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		body      string
		wantValid bool
		wantError string
	}{
		{
			name: "valid json",
			file: "walk.json",
			body: `{
				"name": "Walk",
				"layout": ["R.B", "BR."],
				"buses": [{"color": "red", "capacity": 2}, {"color": "blue", "capacity": 2}],
				"waiting_capacity": 3
			}`,
			wantValid: true,
		},
		{
			name: "valid yaml",
			file: "walk.yaml",
			body: `name: Walk
layout:
  - "R.B"
  - "BR."
buses:
  - {color: red, capacity: 2}
  - {color: B, capacity: 2}
`,
			wantValid: true,
		},
		{
			name:      "broken json",
			file:      "broken.json",
			body:      `{"name": `,
			wantError: "Invalid level file",
		},
		{
			name:      "engine validation",
			file:      "empty.json",
			body:      `{"name": "Empty", "layout": ["..."], "buses": [{"color": "red", "capacity": 1}]}`,
			wantError: "at least one person",
		},
		{
			name: "seat mismatch",
			file: "seats.json",
			body: `{
				"name": "Seats",
				"layout": ["RR", ".."],
				"buses": [{"color": "red", "capacity": 1}, {"color": "blue", "capacity": 1}]
			}`,
			wantError: "red: 2 people but 1 bus seats",
		},
		{
			name: "walled off",
			file: "walled.json",
			body: `{
				"name": "Walled",
				"layout": ["R#B", "##.", "..."],
				"buses": [{"color": "red", "capacity": 1}, {"color": "blue", "capacity": 1}]
			}`,
			wantError: "row 1, col 1 can never reach the exit row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLevel(t, t.TempDir(), tt.file, tt.body)
			result := validateLevel(path)

			if result.Valid != tt.wantValid {
				t.Fatalf("Expected valid=%v, got %v (errors: %v)", tt.wantValid, result.Valid, result.Errors)
			}
			if tt.wantError == "" {
				return
			}
			found := false
			for _, e := range result.Errors {
				if strings.Contains(e, tt.wantError) {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected error containing %q, got %v", tt.wantError, result.Errors)
			}
		})
	}
}

func TestValidateLevel_Info(t *testing.T) {
	path := writeLevel(t, t.TempDir(), "timed.json", `{
		"name": "Timed",
		"layout": ["R.B", "BR."],
		"buses": [{"color": "red", "capacity": 2}, {"color": "blue", "capacity": 2}],
		"time_limit_seconds": 30
	}`)

	result := validateLevel(path)
	joined := strings.Join(result.Info, "\n")
	for _, want := range []string{"Timed: 3x2 grid, 2 buses, 5 waiting slots", "Time limit: 30s", "red: 2 people", "Initially playable: 3"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected %q in info, got:\n%s", want, joined)
		}
	}
}

func TestValidateLevel_MissingFile(t *testing.T) {
	result := validateLevel(filepath.Join(t.TempDir(), "missing.json"))
	if result.Valid || !strings.Contains(result.Errors[0], "Failed to read file") {
		t.Errorf("Expected read failure, got %+v", result)
	}
}

func TestLevelFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.json", "c.yml", "notes.txt"} {
		writeLevel(t, dir, name, "{}")
	}

	files, err := levelFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	if strings.Join(names, ",") != "a.json,b.yaml,c.yml" {
		t.Errorf("Unexpected files: %v", names)
	}
}
