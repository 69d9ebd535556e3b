package items

import (
	"fmt"
	"os"
	"sort"

	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/stats"
	"gopkg.in/yaml.v3"
)

// EffectDefinition is an effect as written in items.yaml.
type EffectDefinition struct {
	When      string           `yaml:"when"`
	Terrain   string           `yaml:"terrain,omitempty"`
	Item      string           `yaml:"item,omitempty"`
	Modifiers []stats.Modifier `yaml:"modifiers"`
}

// ItemDefinition represents an item definition from the YAML file
type ItemDefinition struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Effects     []EffectDefinition `yaml:"effects,omitempty"`
}

// ItemsConfig represents the structure of the items.yaml file
type ItemsConfig struct {
	Items map[string]ItemDefinition `yaml:"items"`
}

// Catalog is the immutable set of items a server knows about. It is safe for
// concurrent reads.
type Catalog struct {
	items map[string]*Item
}

// LoadCatalog reads an item catalog from a YAML file.
func LoadCatalog(filename string) (*Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}
	return ParseCatalog(data)
}

// LoadCatalogOrDefault loads filename, falling back to the built-in catalog
// when the file does not exist.
func LoadCatalogOrDefault(filename string) (*Catalog, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultCatalog(), nil
	}
	return LoadCatalog(filename)
}

// ParseCatalog parses items.yaml content.
func ParseCatalog(data []byte) (*Catalog, error) {
	var config ItemsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse items YAML: %w", err)
	}
	return NewCatalog(config)
}

// NewCatalog validates definitions and builds a catalog. The flag item is
// always present.
func NewCatalog(config ItemsConfig) (*Catalog, error) {
	c := &Catalog{items: make(map[string]*Item, len(config.Items)+1)}
	for id, def := range config.Items {
		item, err := CreateItemFromDefinition(id, def)
		if err != nil {
			return nil, err
		}
		c.items[id] = item
	}
	if _, ok := c.items[FlagID]; !ok {
		c.items[FlagID] = &Item{ID: FlagID, Name: "Flag", Description: "Bring it home to win."}
	}
	return c, nil
}

// CreateItemFromDefinition creates an Item from an ItemDefinition
// The id parameter is the YAML key for this item (e.g., "frost_boots")
func CreateItemFromDefinition(id string, def ItemDefinition) (*Item, error) {
	item := &Item{ID: id, Name: def.Name, Description: def.Description}
	if item.Name == "" {
		item.Name = id
	}

	for i, e := range def.Effects {
		kind, err := StringToConditionKind(e.When)
		if err != nil {
			return nil, fmt.Errorf("item %s effect %d: %w", id, i, err)
		}
		cond := Condition{Kind: kind}
		switch kind {
		case OnTerrain:
			if cond.Terrain, err = StringToTerrain(e.Terrain); err != nil {
				return nil, fmt.Errorf("item %s effect %d: %w", id, i, err)
			}
		case WithItem:
			if e.Item == "" {
				return nil, fmt.Errorf("item %s effect %d: with-item needs an item", id, i)
			}
			cond.Item = e.Item
		}
		for _, m := range e.Modifiers {
			probe := stats.Attributes{}
			if probe.Get(m.Attribute) == nil {
				return nil, fmt.Errorf("item %s effect %d: unknown attribute %q", id, i, m.Attribute)
			}
		}
		item.Effects = append(item.Effects, Effect{
			Condition: cond,
			Modifiers: append([]stats.Modifier(nil), e.Modifiers...),
		})
	}
	return item, nil
}

// GetItemByID returns an item by its ID
func (c *Catalog) GetItemByID(id string) (*Item, bool) {
	item, ok := c.items[id]
	return item, ok
}

// IDs returns every item id in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultCatalog is used when no items.yaml is configured.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(ItemsConfig{Items: map[string]ItemDefinition{
		"sword": {
			Name:        "Sword",
			Description: "+2 attack.",
			Effects: []EffectDefinition{{When: "always", Modifiers: []stats.Modifier{
				{Attribute: stats.Attack, Current: 2},
			}}},
		},
		"shield": {
			Name:        "Shield",
			Description: "+2 defence, -1 speed.",
			Effects: []EffectDefinition{{When: "always", Modifiers: []stats.Modifier{
				{Attribute: stats.Defence, Current: 2},
				{Attribute: stats.Speed, Base: -1, Current: -1},
			}}},
		},
		"skates": {
			Name:        "Skates",
			Description: "Cancels the ice penalty.",
			Effects: []EffectDefinition{{When: "on-terrain", Terrain: grid.TagIce, Modifiers: []stats.Modifier{
				{Attribute: stats.Attack, Current: 2},
				{Attribute: stats.Defence, Current: 2},
			}}},
		},
		"amulet": {
			Name:        "Amulet",
			Description: "+2 life while the sword is carried too.",
			Effects: []EffectDefinition{{When: "with-item", Item: "sword", Modifiers: []stats.Modifier{
				{Attribute: stats.Life, Base: 2, Current: 2},
			}}},
		},
	}})
	return c
}
