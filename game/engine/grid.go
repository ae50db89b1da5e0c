package engine

import "math"

// Cell is a single square of the play grid
type Cell struct {
	X        int  `json:"x"`
	Z        int  `json:"z"`
	Walkable bool `json:"walkable"`
	Occupied bool `json:"occupied"`
	PlayArea bool `json:"play_area"`
	Visible  bool `json:"visible"`

	// Occupant is a person id, WallOccupant, or NoOccupant
	Occupant int `json:"occupant"`
}

// Position returns the cell coordinates
func (c *Cell) Position() Position {
	return Position{X: c.X, Z: c.Z}
}

// IsWall reports whether the cell holds a wall
func (c *Cell) IsWall() bool {
	return c.Occupied && c.Occupant == WallOccupant
}

// Grid owns every cell of a level. The row with the largest z is the exit row.
type Grid struct {
	width    int
	height   int
	cells    []Cell
	revision uint64

	cellSize float64
	originX  float64
	originZ  float64
}

// neighborOffsets is the fixed exploration order: up, down, left, right
var neighborOffsets = [4][2]int{{0, 1}, {0, -1}, {-1, 0}, {1, 0}}

var diagonalOffsets = [4][2]int{{-1, 1}, {1, 1}, {-1, -1}, {1, -1}}

// NewGrid allocates a width x height grid. playArea[z][x] marks the active puzzle
// surface; a nil mask makes every cell part of the play area.
func NewGrid(width, height int, playArea [][]bool) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	g := &Grid{
		width:    width,
		height:   height,
		cells:    make([]Cell, width*height),
		cellSize: DefaultCellSize,
	}

	for z := 0; z < height; z++ {
		for x := 0; x < width; x++ {
			inPlay := playArea == nil || (z < len(playArea) && x < len(playArea[z]) && playArea[z][x])
			g.cells[z*width+x] = Cell{
				X:        x,
				Z:        z,
				PlayArea: inPlay,
				Visible:  inPlay,
				Walkable: inPlay,
				Occupant: NoOccupant,
			}
		}
	}

	return g
}

// SetTransform configures the world-space mapping used by WorldToGrid and GridToWorld
func (g *Grid) SetTransform(cellSize, originX, originZ float64) {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	g.cellSize = cellSize
	g.originX = originX
	g.originZ = originZ
}

// Width returns the number of columns
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows
func (g *Grid) Height() int { return g.height }

// Revision changes every time occupancy changes
func (g *Grid) Revision() uint64 { return g.revision }

// ExitRow returns the z index of the exit row
func (g *Grid) ExitRow() int { return g.height - 1 }

// IsExitRow reports whether z is the exit row
func (g *Grid) IsExitRow(z int) bool { return g.height > 0 && z == g.height-1 }

// InBounds reports whether x,z addresses a cell
func (g *Grid) InBounds(x, z int) bool {
	return x >= 0 && x < g.width && z >= 0 && z < g.height
}

// CellAt returns the cell at x,z or nil when out of range
func (g *Grid) CellAt(x, z int) *Cell {
	if !g.InBounds(x, z) {
		return nil
	}
	return &g.cells[z*g.width+x]
}

// SetOccupied marks a play-area cell as blocked by the given occupant
func (g *Grid) SetOccupied(c *Cell, occupantID int) bool {
	if c == nil || !c.PlayArea || occupantID == NoOccupant {
		return false
	}
	c.Occupied = true
	c.Walkable = false
	c.Occupant = occupantID
	g.revision++
	return true
}

// SetEmpty frees a play-area cell
func (g *Grid) SetEmpty(c *Cell) bool {
	if c == nil || !c.PlayArea {
		return false
	}
	c.Occupied = false
	c.Walkable = true
	c.Occupant = NoOccupant
	g.revision++
	return true
}

// SetVisible updates the authoring visibility flag; it does not affect simulation
func (g *Grid) SetVisible(c *Cell, visible bool) {
	if c != nil {
		c.Visible = visible
	}
}

// Neighbors returns the in-bounds neighbors of x,z in up, down, left, right order,
// followed by the diagonals when requested
func (g *Grid) Neighbors(x, z int, includeDiagonals bool) []*Cell {
	result := make([]*Cell, 0, 8)
	for _, off := range neighborOffsets {
		if c := g.CellAt(x+off[0], z+off[1]); c != nil {
			result = append(result, c)
		}
	}
	if includeDiagonals {
		for _, off := range diagonalOffsets {
			if c := g.CellAt(x+off[0], z+off[1]); c != nil {
				result = append(result, c)
			}
		}
	}
	return result
}

// WorldToGrid maps a world-space point to grid coordinates. The result may be out
// of range; callers must bounds-check.
func (g *Grid) WorldToGrid(wx, wz float64) (int, int) {
	x := int(math.Floor((wx-g.originX)/g.cellSize + 0.5))
	z := int(math.Floor((wz-g.originZ)/g.cellSize + 0.5))
	return x, z
}

// GridToWorld maps grid coordinates to the world-space center of the cell
func (g *Grid) GridToWorld(x, z int) (float64, float64) {
	return g.originX + float64(x)*g.cellSize, g.originZ + float64(z)*g.cellSize
}

// Reset clears every occupant while keeping the play-area mask
func (g *Grid) Reset() {
	for i := range g.cells {
		c := &g.cells[i]
		c.Occupied = false
		c.Occupant = NoOccupant
		c.Walkable = c.PlayArea
	}
	g.revision++
}

// Cells calls fn for every cell in row-major order starting at z=0
func (g *Grid) Cells(fn func(c *Cell)) {
	for i := range g.cells {
		fn(&g.cells[i])
	}
}
