// Package grid holds the board state of a session: cells, tags and the
// derived terrain and blocking rules.
package grid

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
)

var (
	ErrOutOfBounds = errors.New("grid: position out of bounds")
	ErrNotADoor    = errors.New("grid: cell has no door")
)

// Position addresses a cell.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Adjacent reports whether p and q share an edge.
func (p Position) Adjacent(q Position) bool {
	dr, dc := p.Row-q.Row, p.Col-q.Col
	return dr*dr+dc*dc == 1
}

// String renders the position as row,col
func (p Position) String() string {
	return fmt.Sprintf("%d,%d", p.Row, p.Col)
}

// neighbourOffsets fixes the expansion order used everywhere on the board:
// up, down, left, right.
var neighbourOffsets = [4]Position{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// Grid is a rectangular board. It is not safe for concurrent use; the owning
// session serialises access.
type Grid struct {
	cells [][]Cell
}

// New creates a rows x cols grid of grass.
func New(rows, cols int) *Grid {
	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, cols)
		for c := range cells[r] {
			cells[r][c] = Cell{Images: []string{TagGrass}}
		}
	}
	return &Grid{cells: cells}
}

// FromCells builds a grid from a deep copy of cells.
func FromCells(cells [][]Cell) (*Grid, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("grid: no rows")
	}
	width := len(cells[0])
	out := make([][]Cell, len(cells))
	for r, row := range cells {
		if len(row) != width || width == 0 {
			return nil, fmt.Errorf("grid: row %d has %d cells, want %d", r, len(row), width)
		}
		out[r] = make([]Cell, width)
		for c, cell := range row {
			out[r][c] = cell.clone()
		}
	}
	return &Grid{cells: out}, nil
}

// Rows returns the number of rows
func (g *Grid) Rows() int { return len(g.cells) }

// Cols returns the number of columns
func (g *Grid) Cols() int {
	if len(g.cells) == 0 {
		return 0
	}
	return len(g.cells[0])
}

// InBounds reports whether p addresses a cell of the grid.
func (g *Grid) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < g.Rows() && p.Col >= 0 && p.Col < g.Cols()
}

// Cell returns the cell at p for in-place mutation.
func (g *Grid) Cell(p Position) (*Cell, bool) {
	if !g.InBounds(p) {
		return nil, false
	}
	return &g.cells[p.Row][p.Col], true
}

// Neighbours returns the in-bounds edge neighbours of p in fixed order.
func (g *Grid) Neighbours(p Position) []Position {
	out := make([]Position, 0, 4)
	for _, d := range neighbourOffsets {
		q := Position{Row: p.Row + d.Row, Col: p.Col + d.Col}
		if g.InBounds(q) {
			out = append(out, q)
		}
	}
	return out
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	clone, _ := FromCells(g.cells)
	if clone == nil {
		return &Grid{}
	}
	return clone
}

// MarshalJSON encodes the grid as its array of rows.
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.cells)
}

// JSONSchema describes the MarshalJSON form: rows of cells.
func (Grid) JSONSchema() *jsonschema.Schema {
	cell := (&jsonschema.Reflector{DoNotReference: true}).Reflect(&Cell{})
	cell.Version = ""
	return &jsonschema.Schema{
		Type:  "array",
		Items: &jsonschema.Schema{Type: "array", Items: cell},
	}
}

// UnmarshalJSON decodes an array of rows.
func (g *Grid) UnmarshalJSON(data []byte) error {
	var cells [][]Cell
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	parsed, err := FromCells(cells)
	if err != nil {
		return err
	}
	g.cells = parsed.cells
	return nil
}

// FindAvatar locates an avatar on the board.
func (g *Grid) FindAvatar(avatar string) (Position, bool) {
	for r, row := range g.cells {
		for c := range row {
			if a, ok := row[c].Avatar(); ok && a == avatar {
				return Position{Row: r, Col: c}, true
			}
		}
	}
	return Position{}, false
}

// StartPositions lists spawn points in row-major order.
func (g *Grid) StartPositions() []Position {
	var out []Position
	for r, row := range g.cells {
		for c := range row {
			if row[c].IsStart() {
				out = append(out, Position{Row: r, Col: c})
			}
		}
	}
	return out
}

// PlaceAvatar puts an avatar on p and marks it occupied.
func (g *Grid) PlaceAvatar(p Position, avatar string) error {
	cell, ok := g.Cell(p)
	if !ok {
		return ErrOutOfBounds
	}
	cell.SetAvatar(avatar)
	return nil
}

// RemoveAvatar clears the avatar from wherever it stands. Missing avatars
// are ignored.
func (g *Grid) RemoveAvatar(avatar string) {
	if p, ok := g.FindAvatar(avatar); ok {
		g.cells[p.Row][p.Col].ClearAvatar()
	}
}

// MoveAvatar transfers an avatar between cells, updating both occupancy flags.
func (g *Grid) MoveAvatar(avatar string, from, to Position) error {
	src, ok := g.Cell(from)
	if !ok {
		return ErrOutOfBounds
	}
	dst, ok := g.Cell(to)
	if !ok {
		return ErrOutOfBounds
	}
	src.ClearAvatar()
	dst.SetAvatar(avatar)
	return nil
}

// ToggleDoor opens a closed door or closes an open one.
func (g *Grid) ToggleDoor(p Position) (bool, error) {
	cell, ok := g.Cell(p)
	if !ok {
		return false, ErrOutOfBounds
	}
	if !cell.IsDoor() {
		return false, ErrNotADoor
	}
	return cell.toggleDoor(), nil
}

// IsFree reports whether p can receive an avatar: in bounds, not blocking,
// not occupied.
func (g *Grid) IsFree(p Position) bool {
	cell, ok := g.Cell(p)
	return ok && !cell.IsBlocking() && !cell.IsOccupied
}

// NearestFree finds the closest free cell to p by breadth-first search,
// walking through any non-wall cell. p itself is returned when free.
func (g *Grid) NearestFree(p Position) (Position, bool) {
	if !g.InBounds(p) {
		return Position{}, false
	}
	seen := map[Position]bool{p: true}
	queue := []Position{p}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if g.IsFree(cur) {
			return cur, true
		}
		for _, n := range g.Neighbours(cur) {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return Position{}, false
}

// CountDoors returns the number of door cells on the board.
func (g *Grid) CountDoors() int {
	n := 0
	for _, row := range g.cells {
		for c := range row {
			if row[c].IsDoor() {
				n++
			}
		}
	}
	return n
}

// CountWalkable returns the number of cells that are not walls.
func (g *Grid) CountWalkable() int {
	n := 0
	for _, row := range g.cells {
		for c := range row {
			if !row[c].IsWall() {
				n++
			}
		}
	}
	return n
}

// NearestItemFree finds the closest non-blocking cell without an item, for
// dropping loot. p itself is returned when it qualifies.
func (g *Grid) NearestItemFree(p Position) (Position, bool) {
	if !g.InBounds(p) {
		return Position{}, false
	}
	seen := map[Position]bool{p: true}
	queue := []Position{p}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		cell := &g.cells[cur.Row][cur.Col]
		if _, hasItem := cell.Item(); !hasItem && !cell.IsBlocking() {
			return cur, true
		}
		for _, n := range g.Neighbours(cur) {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return Position{}, false
}
