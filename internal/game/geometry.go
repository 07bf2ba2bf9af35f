package game

import "math/rand"

// Default arena dimensions shared with the canvas renderer. They must match
// the client exactly or coordinates misalign.
const (
	DefaultWidth    = 800
	DefaultHeight   = 600
	DefaultCellSize = 20
)

// Position is a pixel coordinate aligned to the grid cell size.
type Position struct {
	X int
	Y int
}

// Direction is a unit grid vector.
type Direction struct {
	DX int
	DY int
}

var (
	Up    = Direction{DX: 0, DY: -1}
	Down  = Direction{DX: 0, DY: 1}
	Left  = Direction{DX: -1, DY: 0}
	Right = Direction{DX: 1, DY: 0}
)

// Valid reports whether d is one of the four unit vectors.
func (d Direction) Valid() bool {
	return d == Up || d == Down || d == Left || d == Right
}

// Opposite returns the reverse heading.
func (d Direction) Opposite() Direction {
	return Direction{DX: -d.DX, DY: -d.DY}
}

// DirectionFromVector converts a wire vector (one axis ±cellSize, the other
// zero) into a unit Direction.
func DirectionFromVector(x, y, cellSize int) (Direction, bool) {
	switch {
	case x == cellSize && y == 0:
		return Right, true
	case x == -cellSize && y == 0:
		return Left, true
	case x == 0 && y == cellSize:
		return Down, true
	case x == 0 && y == -cellSize:
		return Up, true
	default:
		return Direction{}, false
	}
}

// Grid describes a toroidal arena measured in pixels.
type Grid struct {
	Width    int
	Height   int
	CellSize int
}

func DefaultGrid() Grid {
	return Grid{Width: DefaultWidth, Height: DefaultHeight, CellSize: DefaultCellSize}
}

// Normalized fills zero or negative dimensions with the defaults.
func (g Grid) Normalized() Grid {
	def := DefaultGrid()
	if g.CellSize <= 0 {
		g.CellSize = def.CellSize
	}
	if g.Width < g.CellSize*2 {
		g.Width = def.Width
	}
	if g.Height < g.CellSize*2 {
		g.Height = def.Height
	}
	return g
}

func (g Grid) Columns() int {
	return g.Width / g.CellSize
}

func (g Grid) Rows() int {
	return g.Height / g.CellSize
}

// Contains reports whether p lies on a cell inside the arena.
func (g Grid) Contains(p Position) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height &&
		p.X%g.CellSize == 0 && p.Y%g.CellSize == 0
}

// Step moves p one cell along d, wrapping each axis independently.
func (g Grid) Step(p Position, d Direction) Position {
	next := Position{
		X: p.X + d.DX*g.CellSize,
		Y: p.Y + d.DY*g.CellSize,
	}
	next.X = wrapAxis(next.X, g.Width, g.CellSize)
	next.Y = wrapAxis(next.Y, g.Height, g.CellSize)
	return next
}

func wrapAxis(v, dimension, cell int) int {
	if v < 0 {
		return dimension - cell
	}
	if v >= dimension {
		return 0
	}
	return v
}

// RandomCell picks a uniformly random grid-aligned position.
func (g Grid) RandomCell(rng *rand.Rand) Position {
	return Position{
		X: rng.Intn(g.Columns()) * g.CellSize,
		Y: rng.Intn(g.Rows()) * g.CellSize,
	}
}
