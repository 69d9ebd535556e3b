package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResultRecord is a finished game with per-player statistics.
type ResultRecord struct {
	ID          string
	SessionCode int
	GameID      string
	Mode        string
	WinnerID    string
	WinnerName  string
	Turns       int
	Doors       int
	StartedAt   time.Time
	EndedAt     time.Time
	Players     []PlayerRecord
}

// PlayerRecord is one player's line in a ResultRecord.
type PlayerRecord struct {
	PlayerID     string
	Name         string
	Avatar       string
	Left         bool
	Combats      int
	Wins         int
	Losses       int
	Evasions     int
	LifeLost     int
	LifeDealt    int
	ItemsPicked  int
	TilesVisited int
}

// RecordResult stores a finished game and its players in one transaction.
// A missing ID is generated. Returns the stored ID.
func (d *Database) RecordResult(ctx context.Context, r ResultRecord) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = d.exec(ctx, tx, `
		INSERT INTO game_results (id, session_code, game_id, mode, winner_id, winner_name, turns, doors, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.SessionCode, r.GameID, r.Mode, r.WinnerID, r.WinnerName, r.Turns, r.Doors, r.StartedAt.UTC(), r.EndedAt.UTC())
	if err != nil {
		if d.dialect.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("result %s already recorded: %w", r.ID, err)
		}
		return "", fmt.Errorf("insert result: %w", err)
	}

	for _, p := range r.Players {
		_, err = d.exec(ctx, tx, `
			INSERT INTO game_result_players (result_id, player_id, name, avatar, has_left,
				combats, wins, losses, evasions, life_lost, life_dealt, items_picked, tiles_visited)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, p.PlayerID, p.Name, p.Avatar, p.Left,
			p.Combats, p.Wins, p.Losses, p.Evasions, p.LifeLost, p.LifeDealt, p.ItemsPicked, p.TilesVisited)
		if err != nil {
			return "", fmt.Errorf("insert result player %s: %w", p.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return r.ID, nil
}

// RecentResults returns up to limit results for gameID, newest first. An
// empty gameID matches every game.
func (d *Database) RecentResults(ctx context.Context, gameID string, limit int) ([]ResultRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, session_code, game_id, mode, winner_id, winner_name, turns, doors, started_at, ended_at
		FROM game_results`
	args := []any{}
	if gameID != "" {
		query += ` WHERE game_id = ?`
		args = append(args, gameID)
	}
	query += ` ORDER BY ended_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var results []ResultRecord
	for rows.Next() {
		var r ResultRecord
		if err := rows.Scan(&r.ID, &r.SessionCode, &r.GameID, &r.Mode, &r.WinnerID, &r.WinnerName,
			&r.Turns, &r.Doors, &r.StartedAt, &r.EndedAt); err != nil {
			rows.Close()
			return nil, err
		}
		results = append(results, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		players, err := d.resultPlayers(ctx, results[i].ID)
		if err != nil {
			return nil, err
		}
		results[i].Players = players
	}
	return results, nil
}

func (d *Database) resultPlayers(ctx context.Context, resultID string) ([]PlayerRecord, error) {
	rows, err := d.query(ctx, `
		SELECT player_id, name, avatar, has_left, combats, wins, losses, evasions,
			life_lost, life_dealt, items_picked, tiles_visited
		FROM game_result_players
		WHERE result_id = ?
		ORDER BY wins DESC, player_id ASC
	`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []PlayerRecord
	for rows.Next() {
		var p PlayerRecord
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Avatar, &p.Left, &p.Combats, &p.Wins, &p.Losses,
			&p.Evasions, &p.LifeLost, &p.LifeDealt, &p.ItemsPicked, &p.TilesVisited); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// WinCounts tallies wins per winner name across all recorded games.
func (d *Database) WinCounts(ctx context.Context) (map[string]int, error) {
	rows, err := d.query(ctx, `
		SELECT winner_name, COUNT(*)
		FROM game_results
		GROUP BY winner_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, rows.Err()
}
