package session

import (
	"context"
	"time"

	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/player"
)

//go:generate go tool mockgen -destination=mocks/mock_deps.go -package=mocks github.com/lawnchairsociety/gridquest/internal/session GameStore,ResultRecorder

// Broadcaster delivers events to connections. Calls are made while a session
// lock is held, so implementations must not block, must encode payload before
// returning, and must deliver events to a connection in call order.
type Broadcaster interface {
	Join(code int, connID string)
	Leave(code int, connID string)
	ToRoom(code int, event string, payload any)
	ToClient(connID string, event string, payload any)
	CloseRoom(code int)
}

// Game is a playable map definition.
type Game struct {
	ID          string
	Name        string
	Description string
	Mode        Mode
	Grid        *grid.Grid
}

// GameStore loads game definitions. GetGame returns an error wrapping
// ErrNotFound for unknown ids. The returned grid is never mutated.
type GameStore interface {
	GetGame(ctx context.Context, id string) (*Game, error)
}

// PlayerResult is one player's line in a finished game.
type PlayerResult struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Avatar string            `json:"avatar"`
	Left   bool              `json:"hasLeft"`
	Stats  player.Statistics `json:"stats"`

	// TilesVisitedPercent is the share of walkable tiles this player stood on.
	TilesVisitedPercent float64 `json:"tilesVisitedPercent"`
}

// GameResult summarises a finished game.
type GameResult struct {
	Code       int            `json:"code"`
	GameID     string         `json:"gameId"`
	Mode       Mode           `json:"mode"`
	WinnerID   string         `json:"winnerId"`
	WinnerName string         `json:"winnerName"`
	Turns      int            `json:"turns"`
	Doors      int            `json:"doorsToggled"`
	StartedAt  time.Time      `json:"startedAt"`
	EndedAt    time.Time      `json:"endedAt"`
	Players    []PlayerResult `json:"players"`

	// Shares of the board's doors and walkable tiles used by anyone.
	DoorsPercent        float64 `json:"doorsToggledPercent"`
	TilesVisitedPercent float64 `json:"tilesVisitedPercent"`
}

// ResultRecorder persists finished games.
type ResultRecorder interface {
	RecordResult(ctx context.Context, result GameResult) error
}

// NameValidator rejects unacceptable display names.
type NameValidator interface {
	Validate(name string) error
}
