package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/lawnchairsociety/gridquest/internal/database"
	"github.com/lawnchairsociety/gridquest/internal/session"
)

// Store adapts database.Database to the session.GameStore and
// session.ResultRecorder interfaces and serves the HTTP read endpoints.
type Store struct {
	db *database.Database
}

// NewStore creates a new adapter wrapping the database.
func NewStore(db *database.Database) *Store {
	return &Store{db: db}
}

func (a *Store) GetGame(ctx context.Context, id string) (*session.Game, error) {
	def, err := a.db.GetGame(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("game %q: %w", id, session.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	mode, err := session.ParseMode(def.Mode)
	if err != nil {
		return nil, fmt.Errorf("game %q: %w", id, err)
	}
	return &session.Game{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Mode:        mode,
		Grid:        def.Grid,
	}, nil
}

func (a *Store) RecordResult(ctx context.Context, result session.GameResult) error {
	rec := database.ResultRecord{
		SessionCode: result.Code,
		GameID:      result.GameID,
		Mode:        string(result.Mode),
		WinnerID:    result.WinnerID,
		WinnerName:  result.WinnerName,
		Turns:       result.Turns,
		Doors:       result.Doors,
		StartedAt:   result.StartedAt,
		EndedAt:     result.EndedAt,
		Players:     make([]database.PlayerRecord, len(result.Players)),
	}
	for i, p := range result.Players {
		rec.Players[i] = database.PlayerRecord{
			PlayerID:     p.ID,
			Name:         p.Name,
			Avatar:       p.Avatar,
			Left:         p.Left,
			Combats:      p.Stats.Combats,
			Wins:         p.Stats.Wins,
			Losses:       p.Stats.Losses,
			Evasions:     p.Stats.Evasions,
			LifeLost:     p.Stats.LifeLost,
			LifeDealt:    p.Stats.LifeDealt,
			ItemsPicked:  p.Stats.ItemsPicked,
			TilesVisited: p.Stats.TilesVisited,
		}
	}
	_, err := a.db.RecordResult(ctx, rec)
	return err
}

func (a *Store) ListGames(ctx context.Context) ([]database.GameSummary, error) {
	return a.db.ListGames(ctx)
}

// RecentResults returns finished games in the wire shape used by gameEnded.
func (a *Store) RecentResults(ctx context.Context, gameID string, limit int) ([]session.GameResult, error) {
	records, err := a.db.RecentResults(ctx, gameID, limit)
	if err != nil {
		return nil, err
	}
	results := make([]session.GameResult, len(records))
	for i, r := range records {
		results[i] = session.GameResult{
			Code:       r.SessionCode,
			GameID:     r.GameID,
			Mode:       session.Mode(r.Mode),
			WinnerID:   r.WinnerID,
			WinnerName: r.WinnerName,
			Turns:      r.Turns,
			Doors:      r.Doors,
			StartedAt:  r.StartedAt,
			EndedAt:    r.EndedAt,
			Players:    make([]session.PlayerResult, len(r.Players)),
		}
		for j, p := range r.Players {
			results[i].Players[j] = session.PlayerResult{
				ID:     p.PlayerID,
				Name:   p.Name,
				Avatar: p.Avatar,
				Left:   p.Left,
			}
			st := &results[i].Players[j].Stats
			st.Combats = p.Combats
			st.Wins = p.Wins
			st.Losses = p.Losses
			st.Evasions = p.Evasions
			st.LifeLost = p.LifeLost
			st.LifeDealt = p.LifeDealt
			st.ItemsPicked = p.ItemsPicked
			st.TilesVisited = p.TilesVisited
		}
	}
	return results, nil
}

func (a *Store) WinCounts(ctx context.Context) (map[string]int, error) {
	return a.db.WinCounts(ctx)
}
