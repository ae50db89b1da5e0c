package engine

import (
	"github.com/zyedidia/generic/mapset"
	"github.com/zyedidia/generic/queue"
)

// Pathfinder answers exit reachability questions against a grid
type Pathfinder struct {
	grid *Grid
}

// NewPathfinder creates a pathfinder over the given grid
func NewPathfinder(grid *Grid) *Pathfinder {
	return &Pathfinder{grid: grid}
}

// ExitPoints returns the open exit-row cells in left-to-right order
func (p *Pathfinder) ExitPoints() []*Cell {
	var exits []*Cell
	if p.grid.Height() == 0 {
		return exits
	}
	z := p.grid.ExitRow()
	for x := 0; x < p.grid.Width(); x++ {
		c := p.grid.CellAt(x, z)
		if c.PlayArea && c.Walkable && !c.Occupied {
			exits = append(exits, c)
		}
	}
	return exits
}

// FindPathToExit returns the shortest path from start to an open exit cell.
// The path starts with start and ends with the exit.
func (p *Pathfinder) FindPathToExit(start *Cell) ([]*Cell, bool) {
	if !p.validStart(start) {
		return nil, false
	}

	exits := p.ExitPoints()
	if len(exits) == 0 {
		return nil, false
	}

	// Front row: any open exit will do, nearest first
	if p.grid.IsExitRow(start.Z) {
		nearest := exits[0]
		best := ManhattanDistance(start.Position(), nearest.Position())
		for _, e := range exits[1:] {
			if d := ManhattanDistance(start.Position(), e.Position()); d < best {
				best = d
				nearest = e
			}
		}
		return []*Cell{start, nearest}, true
	}

	goals := mapset.New[*Cell]()
	for _, e := range exits {
		goals.Put(e)
	}

	width := p.grid.Width()
	index := func(c *Cell) int { return c.Z*width + c.X }

	visited := make([]bool, width*p.grid.Height())
	parent := make([]*Cell, width*p.grid.Height())
	visited[index(start)] = true

	frontier := queue.New[*Cell]()
	frontier.Enqueue(start)

	for !frontier.Empty() {
		current := frontier.Dequeue()
		if goals.Has(current) {
			return buildPath(parent, index, start, current), true
		}

		for _, off := range neighborOffsets {
			next := p.grid.CellAt(current.X+off[0], current.Z+off[1])
			if next == nil || visited[index(next)] {
				continue
			}
			if !next.PlayArea || !next.Walkable || next.Occupied {
				continue
			}
			visited[index(next)] = true
			parent[index(next)] = current
			frontier.Enqueue(next)
		}
	}

	return nil, false
}

// CanReachExit reports whether start has a path to an open exit
func (p *Pathfinder) CanReachExit(start *Cell) bool {
	_, ok := p.FindPathToExit(start)
	return ok
}

// Distance returns the number of steps to the nearest exit, or -1
func (p *Pathfinder) Distance(start *Cell) int {
	path, ok := p.FindPathToExit(start)
	if !ok {
		return -1
	}
	return len(path) - 1
}

func (p *Pathfinder) validStart(start *Cell) bool {
	if start == nil || !p.grid.InBounds(start.X, start.Z) {
		return false
	}
	// Only accept cells owned by this grid
	return p.grid.CellAt(start.X, start.Z) == start && start.PlayArea
}

func buildPath(parent []*Cell, index func(*Cell) int, start, goal *Cell) []*Cell {
	var reversed []*Cell
	for c := goal; c != nil; c = parent[index(c)] {
		reversed = append(reversed, c)
		if c == start {
			break
		}
	}
	path := make([]*Cell, len(reversed))
	for i, c := range reversed {
		path[len(reversed)-1-i] = c
	}
	return path
}
