package items

import (
	"fmt"

	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/stats"
)

// TerrainModifiers apply to whoever stands on the terrain, independent of
// items.
var TerrainModifiers = map[grid.Terrain][]stats.Modifier{
	grid.TerrainIce: {
		{Attribute: stats.Attack, Current: -2},
		{Attribute: stats.Defence, Current: -2},
	},
}

// Context is what conditional effects are evaluated against.
type Context struct {
	Terrain   grid.Terrain
	Inventory []string
}

type activeEffect struct {
	key     string
	applied []stats.Modifier
}

// ActiveEffects tracks which effects are applied to one player and the exact
// deltas each applied, so removal restores prior values.
type ActiveEffects struct {
	active []activeEffect
}

// Keys lists the active effect keys in application order.
func (e *ActiveEffects) Keys() []string {
	keys := make([]string, len(e.active))
	for i, a := range e.active {
		keys[i] = a.key
	}
	return keys
}

func (e *ActiveEffects) find(key string) int {
	for i, a := range e.active {
		if a.key == key {
			return i
		}
	}
	return -1
}

// Evaluate brings attrs in line with ctx: effects whose condition stopped
// holding are removed, newly satisfied ones applied. Reports whether
// anything changed.
func (e *ActiveEffects) Evaluate(catalog *Catalog, attrs *stats.Attributes, ctx Context) bool {
	wanted := make(map[string][]stats.Modifier)
	var order []string
	want := func(key string, mods []stats.Modifier) {
		if _, dup := wanted[key]; dup {
			return
		}
		wanted[key] = mods
		order = append(order, key)
	}

	if mods, ok := TerrainModifiers[ctx.Terrain]; ok {
		want("terrain:"+ctx.Terrain.String(), mods)
	}
	for slot, id := range ctx.Inventory {
		item, ok := catalog.GetItemByID(id)
		if !ok {
			continue
		}
		for i, eff := range item.Effects {
			if eff.Condition.Holds(ctx) {
				want(fmt.Sprintf("item:%s#%d/%d", id, slot, i), eff.Modifiers)
			}
		}
	}

	changed := false
	for i := len(e.active) - 1; i >= 0; i-- {
		if _, keep := wanted[e.active[i].key]; keep {
			continue
		}
		attrs.Revert(e.active[i].applied)
		e.active = append(e.active[:i], e.active[i+1:]...)
		changed = true
	}
	for _, key := range order {
		if e.find(key) >= 0 {
			continue
		}
		e.active = append(e.active, activeEffect{key: key, applied: attrs.Apply(wanted[key])})
		changed = true
	}
	return changed
}

// Clear removes every active effect, newest first.
func (e *ActiveEffects) Clear(attrs *stats.Attributes) {
	for i := len(e.active) - 1; i >= 0; i-- {
		attrs.Revert(e.active[i].applied)
	}
	e.active = nil
}
