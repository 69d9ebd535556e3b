// Package session owns game sessions: membership, turn order, the turn and
// combat clocks, and the orchestration of movement and combat.
//
// Every session is guarded by its own mutex. Commands and timer callbacks
// lock it for their whole duration, so each session has a single writer.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lawnchairsociety/gridquest/internal/gametime"
	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/player"
)

// Mode selects the victory condition.
type Mode string

const (
	ModeClassic Mode = "classic"
	ModeCTF     Mode = "ctf"
)

// ParseMode validates a mode string. Empty means classic.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeClassic:
		return ModeClassic, nil
	case ModeCTF:
		return ModeCTF, nil
	default:
		return "", fmt.Errorf("%w: unknown game mode %q", ErrInvalidAction, s)
	}
}

// Phase is the lifecycle stage of a session.
type Phase int

const (
	PhaseLobby Phase = iota
	PhasePlaying
	PhaseEnded
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// timerSlot is a cancellable callback tagged with the token it was
// scheduled under. A callback whose token no longer matches is stale.
type timerSlot struct {
	timer gametime.Timer
	token uint64
}

func (t *timerSlot) stop() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.token = 0
}

func (t *timerSlot) active() bool {
	return t.timer != nil
}

// TurnState tracks whose turn it is.
type TurnState struct {
	Order         []string
	Index         int
	CurrentID     string
	TimeLeft      int
	ActionsLeft   int
	PendingPickup string

	// endAfterPickup ends the turn once the pending pickup is resolved,
	// for a slip that landed on an item.
	endAfterPickup bool
	timer          timerSlot
}

// CombatState is the nested fight suspending a main turn.
type CombatState struct {
	// Fighters are ordered by initiative.
	Fighters    [2]*player.Player
	Active      int
	TimeLeft    int
	ActionTaken bool

	SuspendedID       string
	SuspendedTimeLeft int

	timer timerSlot
}

// Acting returns the combatant whose sub-turn it is.
func (c *CombatState) Acting() *player.Player { return c.Fighters[c.Active] }

// Waiting returns the other combatant.
func (c *CombatState) Waiting() *player.Player { return c.Fighters[1-c.Active] }

// Involves reports whether id is one of the fighters.
func (c *CombatState) Involves(id string) bool {
	return c.Fighters[0].ID == id || c.Fighters[1].ID == id
}

// Statistics are game-wide counters.
type Statistics struct {
	Turns        int
	Combats      int
	StartedAt    time.Time
	doorsToggled map[grid.Position]bool
}

// DoorsToggled is the number of distinct doors used.
func (s *Statistics) DoorsToggled() int {
	return len(s.doorsToggled)
}

func (s *Statistics) recordDoor(p grid.Position) {
	if s.doorsToggled == nil {
		s.doorsToggled = make(map[grid.Position]bool)
	}
	s.doorsToggled[p] = true
}

// Session is one game room.
type Session struct {
	mu sync.Mutex

	Code        int
	OrganizerID string
	Locked      bool
	MaxPlayers  int
	Mode        Mode
	GameID      string
	Grid        *grid.Grid
	Players     []*player.Player
	Phase       Phase
	Debug       bool
	Turn        TurnState
	Combat      *CombatState
	Stats       Statistics

	members  map[string]bool
	departed []*player.Player
	joinSeq  int
	tokens   uint64
	closed   bool
	result   *GameResult
	log      *slog.Logger
}

func newSession(code int, organizerID string, maxPlayers int, mode Mode, game *Game, log *slog.Logger) *Session {
	return &Session{
		Code:        code,
		OrganizerID: organizerID,
		MaxPlayers:  maxPlayers,
		Mode:        mode,
		GameID:      game.ID,
		Grid:        game.Grid.Clone(),
		members:     map[string]bool{organizerID: true},
		log:         log,
	}
}

// Player returns the player with the given connection id.
func (s *Session) Player(id string) (*player.Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// PlayerByAvatar returns the player using avatar.
func (s *Session) PlayerByAvatar(avatar string) (*player.Player, bool) {
	for _, p := range s.Players {
		if p.Avatar == avatar {
			return p, true
		}
	}
	return nil, false
}

// TakenAvatars lists avatars already chosen, in join order.
func (s *Session) TakenAvatars() []string {
	out := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, p.Avatar)
	}
	return out
}

func (s *Session) names() []string {
	out := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, p.Name)
	}
	return out
}

// IsFull reports whether the player count reached the maximum.
func (s *Session) IsFull() bool {
	return len(s.Players) >= s.MaxPlayers
}

// Current returns the player whose turn it is.
func (s *Session) Current() (*player.Player, bool) {
	if s.Phase != PhasePlaying || s.Turn.CurrentID == "" {
		return nil, false
	}
	return s.Player(s.Turn.CurrentID)
}

func (s *Session) info() SessionInfo {
	return SessionInfo{
		Code:       s.Code,
		GameID:     s.GameID,
		Mode:       s.Mode,
		MaxPlayers: s.MaxPlayers,
		Organizer:  s.OrganizerID,
	}
}

func (s *Session) nextToken() uint64 {
	s.tokens++
	return s.tokens
}

func (s *Session) stopTimers() {
	s.Turn.timer.stop()
	if s.Combat != nil {
		s.Combat.timer.stop()
	}
}

func (s *Session) takeResult() *GameResult {
	r := s.result
	s.result = nil
	return r
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
