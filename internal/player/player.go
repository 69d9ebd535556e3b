// Package player models a participant of a session: identity, attributes,
// position and inventory.
package player

import (
	"fmt"

	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/items"
	"github.com/lawnchairsociety/gridquest/internal/stats"
)

// Player is one connection's character in a session. Players are owned by a
// session and must only be touched under its lock.
type Player struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Avatar        string           `json:"avatar"`
	IsOrganizer   bool             `json:"isOrganizer"`
	Attributes    stats.Attributes `json:"attributes"`
	Position      grid.Position    `json:"position"`
	StartPosition grid.Position    `json:"spawnPoint"`
	Inventory     []string         `json:"inventory"`
	Stats         Statistics       `json:"stats"`
	Left          bool             `json:"hasLeft"`

	// JoinOrder breaks speed ties when turn order is computed.
	JoinOrder int `json:"-"`
	// Effects holds the item and terrain modifiers currently applied.
	Effects items.ActiveEffects `json:"-"`
}

// New creates a player from a validated character.
func New(id, name, avatar string, attrs stats.Attributes) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		Avatar:     avatar,
		Attributes: attrs,
		Inventory:  make([]string, 0, 3),
	}
}

// String returns a log-friendly identity
func (p *Player) String() string {
	return fmt.Sprintf("%s(%s)", p.Name, p.ID)
}

// StartTurn restores the movement budget.
func (p *Player) StartTurn() {
	p.Attributes.Speed.Reset()
}

// MovementPoints is the remaining movement budget this turn.
func (p *Player) MovementPoints() int {
	return p.Attributes.Speed.CurrentValue
}

// SpendMovement consumes movement points, never going below zero.
func (p *Player) SpendMovement(cost int) {
	p.Attributes.Speed.CurrentValue -= cost
	if p.Attributes.Speed.CurrentValue < 0 {
		p.Attributes.Speed.CurrentValue = 0
	}
}

// EvasionsLeft returns the remaining evasion attempts.
func (p *Player) EvasionsLeft() int {
	return p.Attributes.Evasion.CurrentValue
}

// ResetAfterCombat restores life and evasion attempts.
func (p *Player) ResetAfterCombat() {
	p.Attributes.ResetCombat()
}

// IsOverCapacity reports whether the inventory holds more than capacity
// items, which happens between a pickup and the matching discard.
func (p *Player) IsOverCapacity(capacity int) bool {
	return len(p.Inventory) > capacity
}

// HasItem checks if the player carries id.
func (p *Player) HasItem(id string) bool {
	return items.HasItem(p.Inventory, id)
}

// AddItem puts an item in the inventory.
func (p *Player) AddItem(id string) {
	items.AddItem(&p.Inventory, id)
}

// RemoveItem takes an item out of the inventory.
func (p *Player) RemoveItem(id string) bool {
	return items.RemoveItem(&p.Inventory, id)
}

// TakeInventory empties the inventory and returns what it held.
func (p *Player) TakeInventory() []string {
	held := p.Inventory
	p.Inventory = make([]string, 0, 3)
	return held
}

// RefreshEffects re-evaluates item and terrain effects for the player's
// current surroundings. Reports whether any attribute changed.
func (p *Player) RefreshEffects(catalog *items.Catalog, terrain grid.Terrain) bool {
	return p.Effects.Evaluate(catalog, &p.Attributes, items.Context{
		Terrain:   terrain,
		Inventory: p.Inventory,
	})
}

// IsHome reports whether the player stands on their own spawn point.
func (p *Player) IsHome() bool {
	return p.Position == p.StartPosition
}

// UniqueName returns desired, or desired suffixed with -2, -3, ... until it
// no longer collides with taken.
func UniqueName(desired string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, n := range taken {
		used[n] = true
	}
	if !used[desired] {
		return desired
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", desired, i)
		if !used[candidate] {
			return candidate
		}
	}
}
