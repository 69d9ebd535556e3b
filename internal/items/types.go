package items

import (
	"fmt"

	"github.com/lawnchairsociety/gridquest/internal/grid"
)

// ConditionKind says when an item effect is active.
type ConditionKind int

const (
	Always ConditionKind = iota
	OnTerrain
	WithItem
)

// String returns the YAML spelling of the condition kind
func (k ConditionKind) String() string {
	switch k {
	case Always:
		return "always"
	case OnTerrain:
		return "on-terrain"
	case WithItem:
		return "with-item"
	default:
		return "unknown"
	}
}

// StringToConditionKind converts a YAML condition to a ConditionKind.
func StringToConditionKind(s string) (ConditionKind, error) {
	switch s {
	case "", "always":
		return Always, nil
	case "on-terrain":
		return OnTerrain, nil
	case "with-item":
		return WithItem, nil
	default:
		return Always, fmt.Errorf("unknown effect condition %q", s)
	}
}

// StringToTerrain converts a terrain tag to a grid.Terrain.
func StringToTerrain(s string) (grid.Terrain, error) {
	switch s {
	case grid.TagGrass:
		return grid.TerrainGrass, nil
	case grid.TagIce:
		return grid.TerrainIce, nil
	case grid.TagWater:
		return grid.TerrainWater, nil
	default:
		return grid.TerrainGrass, fmt.Errorf("unknown terrain %q", s)
	}
}
