package movement

import (
	"errors"
	"fmt"

	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/items"
	"github.com/lawnchairsociety/gridquest/internal/player"
	"github.com/lawnchairsociety/gridquest/internal/stats"
)

var (
	ErrNotAccessible = errors.New("movement: destination not accessible")
	ErrNotAdjacent   = errors.New("movement: target not adjacent")
	ErrNotADoor      = errors.New("movement: target is not a door")
	ErrOccupied      = errors.New("movement: target occupied")
	ErrNotCarried    = errors.New("movement: item not carried")
)

// Engine resolves movement for one session. It holds no session state and
// may be shared.
type Engine struct {
	Roller            stats.Roller
	Catalog           *items.Catalog
	SlipProbability   float64
	InventoryCapacity int
	Hooks             []Hook
}

// NewEngine creates an engine running the default hook chain.
func NewEngine(roller stats.Roller, catalog *items.Catalog, slipProbability float64, capacity int) *Engine {
	return &Engine{
		Roller:            roller,
		Catalog:           catalog,
		SlipProbability:   slipProbability,
		InventoryCapacity: capacity,
		Hooks:             DefaultHooks(),
	}
}

// Outcome describes a committed move. Hooks fill in the trailing fields.
type Outcome struct {
	Player      *player.Player
	Grid        *grid.Grid
	From        grid.Position
	DesiredPath []grid.Position
	RealPath    []grid.Position
	Slipped     bool
	Cost        int
	// CaptureMode enables the flag capture check.
	CaptureMode bool

	DoorsCrossed   int
	PickedUp       string
	InventoryFull  bool
	EffectsChanged bool
	FlagCaptured   bool
}

// Final returns where the player ended up.
func (o *Outcome) Final() grid.Position {
	if len(o.RealPath) == 0 {
		return o.From
	}
	return o.RealPath[len(o.RealPath)-1]
}

// Move walks p towards dest. Every ice tile entered rolls for a slip; a slip
// stops the walk on that tile. Movement points are spent for the path
// actually walked and the hook chain runs on the result.
func (e *Engine) Move(g *grid.Grid, p *player.Player, dest grid.Position, captureMode bool) (*Outcome, error) {
	tile, ok := FindTile(AccessibleTiles(g, p.Position, p.MovementPoints()), dest)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAccessible, dest)
	}

	out := &Outcome{
		Player:      p,
		Grid:        g,
		From:        p.Position,
		DesiredPath: tile.Path,
		CaptureMode: captureMode,
	}
	for _, step := range tile.Path {
		out.RealPath = append(out.RealPath, step)
		cell, _ := g.Cell(step)
		if cell.Terrain() == grid.TerrainIce && e.Roller.Chance(e.SlipProbability) {
			out.Slipped = true
			break
		}
	}
	out.Cost = PathCost(g, out.RealPath)
	p.SpendMovement(out.Cost)

	e.runHooks(out)
	return out, nil
}

// Teleport moves p straight to dest, which must be free. Used by debug
// mode; no movement points are spent.
func (e *Engine) Teleport(g *grid.Grid, p *player.Player, dest grid.Position, captureMode bool) (*Outcome, error) {
	if !g.IsFree(dest) {
		return nil, fmt.Errorf("%w: %s", ErrOccupied, dest)
	}
	out := &Outcome{
		Player:      p,
		Grid:        g,
		From:        p.Position,
		DesiredPath: []grid.Position{dest},
		RealPath:    []grid.Position{dest},
		CaptureMode: captureMode,
	}
	e.runHooks(out)
	return out, nil
}

// Respawn puts p back on its spawn point, or the nearest free cell if that
// is taken. When no cell is free p is left where it was.
func (e *Engine) Respawn(g *grid.Grid, p *player.Player) (grid.Position, error) {
	from, onBoard := g.FindAvatar(p.Avatar)
	g.RemoveAvatar(p.Avatar)
	dest := p.StartPosition
	if !g.IsFree(dest) {
		free, ok := g.NearestFree(dest)
		if !ok {
			if onBoard {
				g.PlaceAvatar(from, p.Avatar)
			}
			return p.Position, fmt.Errorf("%w: no free cell near %s", ErrOccupied, dest)
		}
		dest = free
	}
	if err := g.PlaceAvatar(dest, p.Avatar); err != nil {
		return p.Position, err
	}
	p.Position = dest
	e.RefreshEffects(g, p)
	return dest, nil
}

// RefreshEffects re-evaluates p's effects for the cell it stands on.
func (e *Engine) RefreshEffects(g *grid.Grid, p *player.Player) bool {
	terrain := grid.TerrainGrass
	if cell, ok := g.Cell(p.Position); ok {
		terrain = cell.Terrain()
	}
	return p.RefreshEffects(e.Catalog, terrain)
}

func (e *Engine) runHooks(out *Outcome) {
	for _, h := range e.Hooks {
		h.Run(e, out)
	}
}

// ToggleDoor opens or closes the door at target on behalf of p. The door
// must be edge-adjacent and unoccupied. Returns the new open state.
func ToggleDoor(g *grid.Grid, p *player.Player, target grid.Position) (bool, error) {
	if !p.Position.Adjacent(target) {
		return false, fmt.Errorf("%w: %s", ErrNotAdjacent, target)
	}
	cell, ok := g.Cell(target)
	if !ok || !cell.IsDoor() {
		return false, fmt.Errorf("%w: %s", ErrNotADoor, target)
	}
	if cell.IsOccupied {
		return false, fmt.Errorf("%w: %s", ErrOccupied, target)
	}
	return g.ToggleDoor(target)
}

// Discard drops an item from p's inventory onto the board, on p's cell when
// it has no item or the nearest cell that does not.
func (e *Engine) Discard(g *grid.Grid, p *player.Player, itemID string) (grid.Position, error) {
	if !p.RemoveItem(itemID) {
		return grid.Position{}, fmt.Errorf("%w: %s", ErrNotCarried, itemID)
	}
	at := DropItem(g, p.Position, itemID)
	e.RefreshEffects(g, p)
	return at, nil
}

// DropItem places an item on the board near from.
func DropItem(g *grid.Grid, from grid.Position, itemID string) grid.Position {
	at, ok := g.NearestItemFree(from)
	if !ok {
		at = from
	}
	if cell, ok := g.Cell(at); ok {
		cell.SetItem(itemID)
	}
	return at
}
