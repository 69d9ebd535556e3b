package items

import (
	"fmt"

	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/stats"
)

// FlagID is the capture-the-flag objective item.
const FlagID = "flag"

// Condition gates an effect on the carrier's surroundings.
type Condition struct {
	Kind    ConditionKind
	Terrain grid.Terrain // OnTerrain
	Item    string       // WithItem
}

// Holds reports whether the condition is satisfied in ctx.
func (c Condition) Holds(ctx Context) bool {
	switch c.Kind {
	case Always:
		return true
	case OnTerrain:
		return ctx.Terrain == c.Terrain
	case WithItem:
		for _, id := range ctx.Inventory {
			if id == c.Item {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Effect is a set of attribute modifiers active while its condition holds.
type Effect struct {
	Condition Condition
	Modifiers []stats.Modifier
}

// Item is a catalog entry. Items on the board and in inventories are
// referenced by ID.
type Item struct {
	ID          string
	Name        string
	Description string
	Effects     []Effect
}

// String returns the display form of the item
func (i *Item) String() string {
	return fmt.Sprintf("%s (%s)", i.Name, i.ID)
}

// IsFlag reports whether this is the capture-the-flag objective.
func (i *Item) IsFlag() bool {
	return i.ID == FlagID
}
