package database

import (
	"context"
	"errors"
	"testing"

	"github.com/lawnchairsociety/gridquest/internal/grid"
)

func testGame(t *testing.T, id string) *GameDefinition {
	t.Helper()
	board, err := grid.ParseLayout([]string{
		"S..D",
		".i~.",
		"#..S",
	}, []grid.ItemPlacement{{Row: 0, Col: 2, Item: "sword"}})
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	return &GameDefinition{ID: id, Name: "Test " + id, Description: "a small map", Mode: "classic", Grid: board}
}

func TestSaveAndGetGame(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	want := testGame(t, "arena")
	if err := db.SaveGame(ctx, want); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}

	got, err := db.GetGame(ctx, "arena")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if got.Name != want.Name || got.Description != want.Description || got.Mode != "classic" {
		t.Errorf("GetGame() = %+v", got)
	}
	if got.Grid.Rows() != 3 || got.Grid.Cols() != 4 {
		t.Fatalf("grid is %dx%d, want 3x4", got.Grid.Rows(), got.Grid.Cols())
	}
	cell, _ := got.Grid.Cell(grid.Position{Row: 0, Col: 2})
	if id, ok := cell.Item(); !ok || id != "sword" {
		t.Errorf("item = %q, want sword", id)
	}
	cell, _ = got.Grid.Cell(grid.Position{Row: 1, Col: 1})
	if cell.Terrain() != grid.TerrainIce {
		t.Errorf("terrain = %s, want ice", cell.Terrain())
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestSaveGameUpserts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	g := testGame(t, "arena")
	if err := db.SaveGame(ctx, g); err != nil {
		t.Fatal(err)
	}
	g.Name = "Renamed"
	g.Mode = "ctf"
	if err := db.SaveGame(ctx, g); err != nil {
		t.Fatalf("second SaveGame: %v", err)
	}

	got, err := db.GetGame(ctx, "arena")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Renamed" || got.Mode != "ctf" {
		t.Errorf("after upsert = %s/%s", got.Name, got.Mode)
	}
	games, _ := db.ListGames(ctx)
	if len(games) != 1 {
		t.Errorf("ListGames() returned %d games, want 1", len(games))
	}
}

func TestGetGameNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetGame(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetGame(missing) err = %v, want ErrNotFound", err)
	}
}

func TestSaveGameRequiresGrid(t *testing.T) {
	db := openTestDB(t)

	if err := db.SaveGame(context.Background(), &GameDefinition{ID: "empty"}); err == nil {
		t.Error("SaveGame without grid should fail")
	}
}

func TestListAndDeleteGames(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		if err := db.SaveGame(ctx, testGame(t, id)); err != nil {
			t.Fatal(err)
		}
	}

	games, err := db.ListGames(ctx)
	if err != nil {
		t.Fatalf("ListGames: %v", err)
	}
	if len(games) != 3 || games[0].ID != "a" || games[2].ID != "c" {
		t.Errorf("ListGames() = %+v", games)
	}
	if games[0].Rows != 3 || games[0].Cols != 4 {
		t.Errorf("summary size = %dx%d", games[0].Rows, games[0].Cols)
	}

	if err := db.DeleteGame(ctx, "b"); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}
	if err := db.DeleteGame(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteGame err = %v, want ErrNotFound", err)
	}
	games, _ = db.ListGames(ctx)
	if len(games) != 2 {
		t.Errorf("ListGames() after delete returned %d", len(games))
	}
}
