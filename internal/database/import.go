package database

import (
	"context"
	"fmt"
	"os"

	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/items"
	"gopkg.in/yaml.v3"
)

// GamesFile is the structure of a game definitions YAML file
type GamesFile struct {
	Games []GameYAML `yaml:"games"`
}

// GameYAML is one game in the YAML file. Layout rows use the grid legend.
type GameYAML struct {
	ID          string               `yaml:"id"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Mode        string               `yaml:"mode"`
	Layout      []string             `yaml:"layout"`
	Items       []grid.ItemPlacement `yaml:"items"`
}

// LoadGamesFile parses a game definitions file into definitions ready to
// save.
func LoadGamesFile(filename string) ([]*GameDefinition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read games file: %w", err)
	}
	return ParseGames(data)
}

// ParseGames decodes and validates game definitions YAML.
func ParseGames(data []byte) ([]*GameDefinition, error) {
	var file GamesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse games YAML: %w", err)
	}
	if len(file.Games) == 0 {
		return nil, fmt.Errorf("games file defines no games")
	}

	seen := make(map[string]bool)
	defs := make([]*GameDefinition, 0, len(file.Games))
	for i, g := range file.Games {
		def, err := g.definition()
		if err != nil {
			return nil, fmt.Errorf("game %d (%s): %w", i, g.ID, err)
		}
		if seen[def.ID] {
			return nil, fmt.Errorf("duplicate game id %q", def.ID)
		}
		seen[def.ID] = true
		defs = append(defs, def)
	}
	return defs, nil
}

func (g GameYAML) definition() (*GameDefinition, error) {
	if g.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	mode := g.Mode
	switch mode {
	case "":
		mode = "classic"
	case "classic", "ctf":
	default:
		return nil, fmt.Errorf("unknown mode %q", g.Mode)
	}

	board, err := grid.ParseLayout(g.Layout, g.Items)
	if err != nil {
		return nil, err
	}
	if len(board.StartPositions()) < 2 {
		return nil, fmt.Errorf("needs at least 2 spawn points, has %d", len(board.StartPositions()))
	}
	if mode == "ctf" && !hasFlag(g.Items) {
		return nil, fmt.Errorf("capture the flag game has no %q item", items.FlagID)
	}

	name := g.Name
	if name == "" {
		name = g.ID
	}
	return &GameDefinition{
		ID:          g.ID,
		Name:        name,
		Description: g.Description,
		Mode:        mode,
		Grid:        board,
	}, nil
}

func hasFlag(placements []grid.ItemPlacement) bool {
	for _, p := range placements {
		if p.Item == items.FlagID {
			return true
		}
	}
	return false
}

// ImportGames loads a game definitions file and upserts every game in it.
// Returns the number of games saved.
func (d *Database) ImportGames(ctx context.Context, filename string) (int, error) {
	defs, err := LoadGamesFile(filename)
	if err != nil {
		return 0, err
	}
	for i, def := range defs {
		if err := d.SaveGame(ctx, def); err != nil {
			return i, err
		}
	}
	return len(defs), nil
}
