package engine

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds       = errors.New("position out of bounds")
	ErrInvalidDimensions = errors.New("grid dimensions must be positive")
	ErrDimensionMismatch = errors.New("grid dimensions do not match")
	ErrMissingSpawn      = errors.New("level has no spawn cell")
	ErrMultipleSpawns    = errors.New("level has more than one spawn cell")
)

// Grid is a fixed-size 2D array of cell kinds. Cells are stored row-major;
// anything outside the grid reads as Solid.
type Grid struct {
	width  int
	height int
	cells  []CellKind
}

// NewGrid creates an all-Empty grid
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]CellKind, width*height),
	}, nil
}

// Width returns the number of columns
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p lies inside the grid
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// Get returns the kind at p, or Solid when p is out of range
func (g *Grid) Get(p Position) CellKind {
	if !g.InBounds(p) {
		return Solid
	}
	return g.cells[p.Y*g.width+p.X]
}

// Set writes kind at p. Out-of-range writes are rejected and leave the grid unchanged.
func (g *Grid) Set(p Position, kind CellKind) error {
	if !g.InBounds(p) {
		return fmt.Errorf("%w: (%d,%d) in %dx%d grid", ErrOutOfBounds, p.X, p.Y, g.width, g.height)
	}
	g.cells[p.Y*g.width+p.X] = kind
	return nil
}

// Locate scans column by column (top to bottom within a column) and returns
// the first cell holding kind.
func (g *Grid) Locate(kind CellKind) (Position, bool) {
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			if g.cells[y*g.width+x] == kind {
				return Position{X: x, Y: y}, true
			}
		}
	}
	return Position{X: -1, Y: -1}, false
}

// Count returns how many cells hold kind
func (g *Grid) Count(kind CellKind) int {
	n := 0
	for _, c := range g.cells {
		if c == kind {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of the grid
func (g *Grid) Clone() *Grid {
	cells := make([]CellKind, len(g.cells))
	copy(cells, g.cells)
	return &Grid{width: g.width, height: g.height, cells: cells}
}

// CopyFrom overwrites g with the contents of src without allocating
func (g *Grid) CopyFrom(src *Grid) error {
	if g.width != src.width || g.height != src.height {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, g.width, g.height, src.width, src.height)
	}
	copy(g.cells, src.cells)
	return nil
}

// Equal reports whether both grids have the same size and contents
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.width != other.width || g.height != other.height {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Cells returns a row-major copy of every cell
func (g *Grid) Cells() []CellKind {
	out := make([]CellKind, len(g.cells))
	copy(out, g.cells)
	return out
}

// Rows renders the grid with the default glyphs, one string per row
func (g *Grid) Rows() []string {
	rows := make([]string, g.height)
	buf := make([]rune, g.width)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			buf[x] = Glyph(g.cells[y*g.width+x])
		}
		rows[y] = string(buf)
	}
	return rows
}
