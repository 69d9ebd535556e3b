package grid

import "fmt"

// Layout legend used by game definition files and tests:
//
//	.  grass        i  ice          ~  water
//	#  wall         D  closed door  d  open door
//	S  start (on grass)
var layoutLegend = map[rune][]string{
	'.': {TagGrass},
	'i': {TagIce},
	'~': {TagWater},
	'#': {TagGrass, TagWall},
	'D': {TagGrass, TagDoor},
	'd': {TagGrass, TagDoorOpen},
	'S': {TagGrass, TagStart},
}

// ItemPlacement puts an item on a cell of a parsed layout.
type ItemPlacement struct {
	Row  int    `yaml:"row" json:"row"`
	Col  int    `yaml:"col" json:"col"`
	Item string `yaml:"item" json:"item"`
}

// ParseLayout builds a grid from legend rows and item placements.
func ParseLayout(rows []string, placements []ItemPlacement) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("layout: no rows")
	}
	width := len([]rune(rows[0]))
	cells := make([][]Cell, len(rows))
	for r, line := range rows {
		runes := []rune(line)
		if len(runes) != width {
			return nil, fmt.Errorf("layout: row %d has width %d, want %d", r, len(runes), width)
		}
		cells[r] = make([]Cell, width)
		for c, ch := range runes {
			tags, ok := layoutLegend[ch]
			if !ok {
				return nil, fmt.Errorf("layout: unknown symbol %q at %d,%d", ch, r, c)
			}
			cells[r][c] = Cell{Images: append([]string(nil), tags...)}
		}
	}

	g, err := FromCells(cells)
	if err != nil {
		return nil, err
	}
	for _, p := range placements {
		cell, ok := g.Cell(Position{Row: p.Row, Col: p.Col})
		if !ok {
			return nil, fmt.Errorf("layout: item %q at %d,%d: %w", p.Item, p.Row, p.Col, ErrOutOfBounds)
		}
		if cell.IsBlocking() {
			return nil, fmt.Errorf("layout: item %q placed on blocking cell %d,%d", p.Item, p.Row, p.Col)
		}
		cell.SetItem(p.Item)
	}
	return g, nil
}

// MustParseLayout is ParseLayout for fixed layouts known to be valid.
func MustParseLayout(rows ...string) *Grid {
	g, err := ParseLayout(rows, nil)
	if err != nil {
		panic(err)
	}
	return g
}
