package session

import (
	"github.com/lawnchairsociety/gridquest/internal/combat"
	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/movement"
	"github.com/lawnchairsociety/gridquest/internal/player"
)

// Outbound event names.
const (
	EventSessionCreated     = "sessionCreated"
	EventSessionJoined      = "sessionJoined"
	EventTakenAvatars       = "takenAvatars"
	EventCharacterCreated   = "characterCreated"
	EventPlayerListUpdate   = "playerListUpdate"
	EventSessionDeleted     = "sessionDeleted"
	EventRoomLocked         = "roomLocked"
	EventExcluded           = "excluded"
	EventGameStarted        = "gameStarted"
	EventGridArray          = "gridArray"
	EventDoorStateUpdated   = "doorStateUpdated"
	EventAccessibleTiles    = "accessibleTiles"
	EventPlayerMovement     = "playerMovement"
	EventNoMovementPossible = "noMovementPossible"
	EventTurnStarted        = "turnStarted"
	EventTurnEnded          = "turnEnded"
	EventTimeLeft           = "timeLeft"
	EventInventoryFull      = "inventoryFull"
	EventUpdateInventory    = "updateInventory"
	EventDebugModeToggled   = "debugModeToggled"
	EventDebugMoveFailed    = "debugMoveFailed"
	EventCombatStarted      = "combatStarted"
	EventCombatTurnStarted  = "combatTurnStarted"
	EventCombatTimeLeft     = "combatTimeLeft"
	EventAttackResult       = "attackResult"
	EventEvasionResult      = "evasionResult"
	EventCombatTurnEnded    = "combatTurnEnded"
	EventCombatEnded        = "combatEnded"
	EventDefeated           = "defeated"
	EventOpponentDefeated   = "opponentDefeated"
	EventEvasionSuccess     = "evasionSuccess"
	EventOpponentEvaded     = "opponentEvaded"
	EventGameEnded          = "gameEnded"
	EventError              = "error"
)

type SessionInfo struct {
	Code       int    `json:"code"`
	GameID     string `json:"gameId"`
	Mode       Mode   `json:"mode"`
	MaxPlayers int    `json:"maxPlayers"`
	Organizer  string `json:"organizerId"`
}

type TakenAvatarsPayload struct {
	Avatars []string `json:"avatars"`
}

type PlayerListPayload struct {
	Players []*player.Player `json:"players"`
}

type RoomLockedPayload struct {
	Locked bool `json:"locked"`
}

type ExcludedPayload struct {
	Code int `json:"code"`
}

type GameStartedPayload struct {
	Players   []*player.Player `json:"players"`
	TurnOrder []string         `json:"turnOrder"`
}

type GridPayload struct {
	Grid *grid.Grid `json:"grid"`
}

type DoorStatePayload struct {
	Position grid.Position `json:"position"`
	IsOpen   bool          `json:"isOpen"`
}

type AccessibleTilesPayload struct {
	Tiles []movement.Tile `json:"tiles"`
}

type MovementPayload struct {
	PlayerID    string          `json:"playerSocketId"`
	Avatar      string          `json:"avatar"`
	DesiredPath []grid.Position `json:"desiredPath"`
	RealPath    []grid.Position `json:"realPath"`
}

// TurnPayload carries the id of the player a turn event concerns.
type TurnPayload struct {
	PlayerID string `json:"playerSocketId"`
}

type TimeLeftPayload struct {
	TimeLeft int `json:"timeLeft"`
}

type InventoryFullPayload struct {
	Inventory []string `json:"inventory"`
	PickedUp  string   `json:"pickedUp"`
}

type InventoryPayload struct {
	PlayerID  string   `json:"playerSocketId"`
	Inventory []string `json:"inventory"`
}

type DebugModePayload struct {
	Enabled bool `json:"enabled"`
}

type DebugMoveFailedPayload struct {
	Position grid.Position `json:"position"`
}

type CombatStartedPayload struct {
	Opponent    *player.Player `json:"opponentPlayer"`
	StartsFirst bool           `json:"startsFirst"`
}

type CombatTurnPayload struct {
	PlayerID string `json:"playerSocketId"`
	TimeLeft int    `json:"timeLeft"`
}

type AttackResultPayload = combat.AttackResult

type EvasionResultPayload struct {
	Success bool `json:"success"`
}

// CombatantPayload names the other side of a finished fight.
type CombatantPayload struct {
	PlayerID string `json:"playerSocketId"`
}

type CombatEndedPayload struct {
	Winner string `json:"winner,omitempty"`
}

type GameEndedPayload struct {
	Winner     string     `json:"winner"`
	WinnerName string     `json:"winnerName"`
	Result     GameResult `json:"result"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
