package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/gridquest/internal/grid"
)

// GameDefinition is a playable map as stored in the games table.
type GameDefinition struct {
	ID          string
	Name        string
	Description string
	Mode        string
	Grid        *grid.Grid
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GameSummary is a game listing without its board.
type GameSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Mode        string `json:"mode"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
}

// SaveGame inserts or replaces a game definition.
func (d *Database) SaveGame(ctx context.Context, g *GameDefinition) error {
	if g.ID == "" || g.Grid == nil {
		return fmt.Errorf("save game: id and grid are required")
	}
	board, err := json.Marshal(g.Grid)
	if err != nil {
		return fmt.Errorf("encode grid of %s: %w", g.ID, err)
	}
	mode := g.Mode
	if mode == "" {
		mode = "classic"
	}

	now := time.Now().UTC()
	_, err = d.exec(ctx, d.db, `
		INSERT INTO games (id, name, description, mode, grid_rows, grid_cols, grid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			mode = excluded.mode,
			grid_rows = excluded.grid_rows,
			grid_cols = excluded.grid_cols,
			grid = excluded.grid,
			updated_at = excluded.updated_at
	`, g.ID, g.Name, g.Description, mode, g.Grid.Rows(), g.Grid.Cols(), string(board), now, now)
	if err != nil {
		return fmt.Errorf("save game %s: %w", g.ID, err)
	}
	return nil
}

// GetGame loads a game definition by id.
func (d *Database) GetGame(ctx context.Context, id string) (*GameDefinition, error) {
	row := d.queryRow(ctx, `
		SELECT id, name, description, mode, grid, created_at, updated_at
		FROM games
		WHERE id = ?
	`, id)

	g := &GameDefinition{}
	var board string
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.Mode, &board, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load game %q: %w", id, err)
	}

	g.Grid = &grid.Grid{}
	if err := json.Unmarshal([]byte(board), g.Grid); err != nil {
		return nil, fmt.Errorf("decode grid of %q: %w", id, err)
	}
	return g, nil
}

// ListGames returns every game ordered by name.
func (d *Database) ListGames(ctx context.Context) ([]GameSummary, error) {
	rows, err := d.query(ctx, `
		SELECT id, name, description, mode, grid_rows, grid_cols
		FROM games
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []GameSummary
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Mode, &g.Rows, &g.Cols); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// DeleteGame removes a game definition. Recorded results are kept.
func (d *Database) DeleteGame(ctx context.Context, id string) error {
	res, err := d.exec(ctx, d.db, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("game %q: %w", id, ErrNotFound)
	}
	return nil
}
