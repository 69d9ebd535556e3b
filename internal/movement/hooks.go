package movement

import "github.com/lawnchairsociety/gridquest/internal/player"

// Hook is one step of post-move processing.
type Hook struct {
	Name string
	Run  func(e *Engine, out *Outcome)
}

// DefaultHooks returns the post-move chain in the order it must run.
func DefaultHooks() []Hook {
	return []Hook{
		{Name: "occupancy", Run: occupancyHook},
		{Name: "doors", Run: doorHook},
		{Name: "pickup", Run: pickupHook},
		{Name: "effects", Run: effectsHook},
		{Name: "statistics", Run: statisticsHook},
		{Name: "capture", Run: captureHook},
	}
}

func occupancyHook(_ *Engine, out *Outcome) {
	final := out.Final()
	if final == out.From {
		return
	}
	out.Grid.MoveAvatar(out.Player.Avatar, out.From, final)
	out.Player.Position = final
}

func doorHook(_ *Engine, out *Outcome) {
	for _, step := range out.RealPath {
		if cell, ok := out.Grid.Cell(step); ok && cell.IsOpenDoor() {
			out.DoorsCrossed++
		}
	}
}

func pickupHook(e *Engine, out *Outcome) {
	cell, ok := out.Grid.Cell(out.Final())
	if !ok {
		return
	}
	id, ok := cell.Item()
	if !ok {
		return
	}
	cell.ClearItem()
	out.Player.AddItem(id)
	out.Player.Stats.RecordPickup()
	out.PickedUp = id
	out.InventoryFull = out.Player.IsOverCapacity(e.InventoryCapacity)
}

func effectsHook(e *Engine, out *Outcome) {
	out.EffectsChanged = e.RefreshEffects(out.Grid, out.Player)
}

func statisticsHook(_ *Engine, out *Outcome) {
	for _, step := range out.RealPath {
		out.Player.Stats.RecordVisit(step)
	}
}

func captureHook(e *Engine, out *Outcome) {
	if !out.CaptureMode {
		return
	}
	out.FlagCaptured = e.HasCaptured(out.Player)
}

// HasCaptured reports whether p stands on its start tile carrying the flag.
func (e *Engine) HasCaptured(p *player.Player) bool {
	if !p.IsHome() || e.Catalog == nil {
		return false
	}
	for _, id := range p.Inventory {
		if item, ok := e.Catalog.GetItemByID(id); ok && item.IsFlag() {
			return true
		}
	}
	return false
}
