package engine

import "strings"

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dz := from.Z - to.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dz
}

// RenderGrid draws the grid with layout characters, one string per row.
// Row 0 comes first so the exit row is the last line, as in level files.
func RenderGrid(grid *Grid, people []*Person) []string {
	rows := make([]string, grid.Height())
	var b strings.Builder
	for z := 0; z < grid.Height(); z++ {
		b.Reset()
		for x := 0; x < grid.Width(); x++ {
			b.WriteByte(cellCode(grid.CellAt(x, z), people))
		}
		rows[z] = b.String()
	}
	return rows
}

func cellCode(c *Cell, people []*Person) byte {
	switch {
	case !c.PlayArea && c.Visible:
		return LayoutVoidVisible
	case !c.PlayArea:
		return LayoutVoid
	case c.IsWall():
		return LayoutWall
	case c.Occupied && c.Occupant >= 0 && c.Occupant < len(people):
		return people[c.Occupant].Color.Code()
	case c.Occupied:
		return LayoutWall
	}
	return LayoutOpen
}

// CountByStatus counts people per status
func CountByStatus(people []*Person) map[PersonStatus]int {
	counts := make(map[PersonStatus]int)
	for _, p := range people {
		counts[p.Status]++
	}
	return counts
}
