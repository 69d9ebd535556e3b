package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lawnchairsociety/gridquest/internal/combat"
	"github.com/lawnchairsociety/gridquest/internal/config"
	"github.com/lawnchairsociety/gridquest/internal/gametime"
	"github.com/lawnchairsociety/gridquest/internal/items"
	"github.com/lawnchairsociety/gridquest/internal/logger"
	"github.com/lawnchairsociety/gridquest/internal/movement"
	"github.com/lawnchairsociety/gridquest/internal/player"
	"github.com/lawnchairsociety/gridquest/internal/stats"
)

// Deps are the collaborators a Manager needs. Results and Names may be nil.
type Deps struct {
	Broadcaster Broadcaster
	Games       GameStore
	Results     ResultRecorder
	Names       NameValidator
	Clock       gametime.Clock
	Roller      stats.Roller
	Catalog     *items.Catalog
}

// Manager is the registry of live sessions and the entry point for every
// command.
type Manager struct {
	cfg      config.GameConfig
	out      Broadcaster
	games    GameStore
	results  ResultRecorder
	names    NameValidator
	clock    gametime.Clock
	roller   stats.Roller
	moves    *movement.Engine
	fights   *combat.Engine
	mu       sync.Mutex
	sessions map[int]*Session
	conns    map[string]int // connection id -> session code
}

// NewManager creates a Manager. Missing clock, roller and catalog default to
// the wall clock, a time-seeded roller and the built-in catalog.
func NewManager(cfg config.GameConfig, deps Deps) *Manager {
	if deps.Clock == nil {
		deps.Clock = gametime.RealClock{}
	}
	if deps.Roller == nil {
		deps.Roller = stats.NewRandRoller(0)
	}
	if deps.Catalog == nil {
		deps.Catalog = items.DefaultCatalog()
	}
	return &Manager{
		cfg:      cfg,
		out:      deps.Broadcaster,
		games:    deps.Games,
		results:  deps.Results,
		names:    deps.Names,
		clock:    deps.Clock,
		roller:   deps.Roller,
		moves:    movement.NewEngine(deps.Roller, deps.Catalog, cfg.SlipProbability, cfg.InventoryCapacity),
		fights:   combat.NewEngine(deps.Roller, cfg.EvasionProbability, cfg.AttackDamage),
		sessions: make(map[int]*Session),
		conns:    make(map[string]int),
	}
}

// lookup returns the registered session for code.
func (m *Manager) lookup(code int) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	return s, ok
}

// SessionOf returns the code of the session a connection belongs to.
func (m *Manager) SessionOf(connID string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.conns[connID]
	return code, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) bindConn(connID string, code int) {
	m.mu.Lock()
	m.conns[connID] = code
	m.mu.Unlock()
}

func (m *Manager) unbindConn(connID string, code int) {
	m.mu.Lock()
	if m.conns[connID] == code {
		delete(m.conns, connID)
	}
	m.mu.Unlock()
}

// withSession runs fn under the session lock. A finished game's result is
// recorded after the lock is released.
func (m *Manager) withSession(code int, fn func(s *Session) error) error {
	s, ok := m.lookup(code)
	if !ok {
		return fmt.Errorf("session %d: %w", code, ErrNotFound)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session %d: %w", code, ErrNotFound)
	}
	err := fn(s)
	result := s.takeResult()
	s.mu.Unlock()

	if result != nil {
		m.recordResult(*result)
	}
	return err
}

// schedule arms slot to run fn after d. The callback looks the session up
// again by code and does nothing if the session is gone or the slot was
// re-armed or stopped in the meantime.
func (m *Manager) schedule(s *Session, slot *timerSlot, d time.Duration, fn func(s *Session)) {
	slot.stop()
	token := s.nextToken()
	owner, code := s, s.Code
	slot.token = token
	slot.timer = m.clock.AfterFunc(d, func() {
		m.withSession(code, func(cur *Session) error {
			if cur != owner || slot.token != token {
				return nil
			}
			slot.timer = nil
			fn(cur)
			return nil
		})
	})
}

func (m *Manager) recordResult(result GameResult) {
	if m.results == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.results.RecordResult(ctx, result); err != nil {
		logger.Error("Failed to record game result", "session", result.Code, "error", err)
	}
}

func (m *Manager) newCode() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	span := m.cfg.CodeMax - m.cfg.CodeMin + 1
	if len(m.sessions) >= span {
		return 0, ErrNoCodesLeft
	}
	start := m.roller.Intn(span)
	for i := 0; i < span; i++ {
		code := m.cfg.CodeMin + (start+i)%span
		if _, taken := m.sessions[code]; !taken {
			return code, nil
		}
	}
	return 0, ErrNoCodesLeft
}

// CreateSession opens a new session on game gameID with connID as organizer.
// An empty mode uses the game's own mode.
func (m *Manager) CreateSession(ctx context.Context, organizerID string, maxPlayers int, gameID string, mode string) (int, error) {
	if _, busy := m.SessionOf(organizerID); busy {
		return 0, ErrAlreadyInSession
	}
	if maxPlayers < m.cfg.MinPlayers || maxPlayers > m.cfg.MaxPlayers {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMaxPlayers, maxPlayers)
	}
	parsed, err := ParseMode(mode)
	if err != nil {
		return 0, err
	}

	game, err := m.games.GetGame(ctx, gameID)
	if err != nil {
		return 0, fmt.Errorf("load game %q: %w", gameID, err)
	}
	if mode == "" && game.Mode != "" {
		parsed = game.Mode
	}

	code, err := m.newCode()
	if err != nil {
		return 0, err
	}
	s := newSession(code, organizerID, maxPlayers, parsed, game, logger.Session(code))

	m.mu.Lock()
	m.sessions[code] = s
	m.conns[organizerID] = code
	m.mu.Unlock()

	s.mu.Lock()
	m.out.Join(code, organizerID)
	m.out.ToClient(organizerID, EventSessionCreated, s.info())
	s.mu.Unlock()

	logger.Always("Session created", "session", code, "game", game.ID, "mode", parsed, "max_players", maxPlayers)
	return code, nil
}

// JoinSession lets a connection into the room of an unlocked session so it
// can pick a character.
func (m *Manager) JoinSession(code int, connID string) error {
	if cur, busy := m.SessionOf(connID); busy && cur != code {
		return ErrAlreadyInSession
	}
	return m.withSession(code, func(s *Session) error {
		if s.Locked || s.Phase != PhaseLobby {
			return ErrSessionLocked
		}
		s.members[connID] = true
		m.bindConn(connID, code)
		m.out.Join(code, connID)
		m.out.ToClient(connID, EventSessionJoined, s.info())
		m.out.ToClient(connID, EventTakenAvatars, TakenAvatarsPayload{Avatars: s.TakenAvatars()})
		m.out.ToClient(connID, EventPlayerListUpdate, PlayerListPayload{Players: s.Players})
		s.log.Debug("Connection joined room", "conn", connID)
		return nil
	})
}

// GetTakenAvatars sends the avatars already chosen to connID.
func (m *Manager) GetTakenAvatars(code int, connID string) error {
	return m.withSession(code, func(s *Session) error {
		m.out.ToClient(connID, EventTakenAvatars, TakenAvatarsPayload{Avatars: s.TakenAvatars()})
		return nil
	})
}

// Character is what a connection submits to become a player.
type Character struct {
	Name   string               `json:"name"`
	Avatar string               `json:"avatar"`
	Choice stats.CreationChoice `json:"attributes"`
}

// CreateCharacter turns a room member into a player. The session locks as
// soon as it reaches capacity; a request arriving at capacity is rejected
// and locks the session too.
func (m *Manager) CreateCharacter(code int, connID string, ch Character) error {
	return m.withSession(code, func(s *Session) error {
		if !s.members[connID] {
			return fmt.Errorf("%s not in room: %w", connID, ErrInvalidAction)
		}
		if _, already := s.Player(connID); already {
			return fmt.Errorf("%s already has a character: %w", connID, ErrInvalidAction)
		}
		if s.IsFull() {
			m.lock(s)
			return ErrSessionFull
		}
		if s.Locked || s.Phase != PhaseLobby {
			return ErrSessionLocked
		}
		if connID != s.OrganizerID {
			if _, ok := s.Player(s.OrganizerID); !ok {
				return ErrOrganizerFirst
			}
		}

		name := strings.TrimSpace(ch.Name)
		if name == "" {
			return fmt.Errorf("%w: empty name", ErrNameRejected)
		}
		if m.names != nil {
			if err := m.names.Validate(name); err != nil {
				return fmt.Errorf("%w: %v", ErrNameRejected, err)
			}
		}
		if ch.Avatar == "" {
			return fmt.Errorf("%w: no avatar", ErrInvalidAction)
		}
		if _, taken := s.PlayerByAvatar(ch.Avatar); taken {
			return ErrAvatarTaken
		}
		attrs, err := stats.NewAttributes(ch.Choice)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}

		p := player.New(connID, player.UniqueName(name, s.names()), ch.Avatar, attrs)
		p.IsOrganizer = connID == s.OrganizerID
		s.joinSeq++
		p.JoinOrder = s.joinSeq
		s.Players = append(s.Players, p)

		m.out.ToClient(connID, EventCharacterCreated, p)
		m.out.ToRoom(code, EventPlayerListUpdate, PlayerListPayload{Players: s.Players})
		m.out.ToRoom(code, EventTakenAvatars, TakenAvatarsPayload{Avatars: s.TakenAvatars()})
		s.log.Info("Character created", "player", connID, "name", p.Name, "avatar", p.Avatar)

		if s.IsFull() {
			m.lock(s)
		}
		return nil
	})
}

func (m *Manager) lock(s *Session) {
	if s.Locked {
		return
	}
	s.Locked = true
	m.out.ToRoom(s.Code, EventRoomLocked, RoomLockedPayload{Locked: true})
}

// ToggleLock locks or unlocks the lobby. A full session cannot be unlocked.
func (m *Manager) ToggleLock(code int, organizerID string, locked bool) error {
	return m.withSession(code, func(s *Session) error {
		if organizerID != s.OrganizerID || s.Phase != PhaseLobby {
			return ErrInvalidAction
		}
		if !locked && s.IsFull() {
			return ErrSessionFull
		}
		if s.Locked == locked {
			return nil
		}
		s.Locked = locked
		m.out.ToRoom(code, EventRoomLocked, RoomLockedPayload{Locked: locked})
		return nil
	})
}

// ToggleDebugMode flips debug mode for the session.
func (m *Manager) ToggleDebugMode(code int, organizerID string) error {
	return m.withSession(code, func(s *Session) error {
		if organizerID != s.OrganizerID {
			return ErrInvalidAction
		}
		s.Debug = !s.Debug
		m.out.ToRoom(code, EventDebugModeToggled, DebugModePayload{Enabled: s.Debug})
		s.log.Info("Debug mode toggled", "enabled", s.Debug)
		return nil
	})
}

// LeaveSession removes connID from the session. Reports whether a player
// was removed. The organizer leaving ends the session.
func (m *Manager) LeaveSession(code int, connID string) (bool, error) {
	removed := false
	err := m.withSession(code, func(s *Session) error {
		if !s.members[connID] {
			return fmt.Errorf("%s not in room: %w", connID, ErrNotFound)
		}
		if connID == s.OrganizerID {
			_, removed = s.Player(connID)
			m.terminate(s, "organizer left")
			return nil
		}
		removed = m.removeMember(s, connID)
		return nil
	})
	return removed, err
}

// Disconnect removes a connection from whatever session it was in.
func (m *Manager) Disconnect(connID string) {
	code, ok := m.SessionOf(connID)
	if !ok {
		return
	}
	m.LeaveSession(code, connID)
}

// ExcludePlayer lets the organizer kick a member out of the session.
func (m *Manager) ExcludePlayer(code int, organizerID, targetID string) error {
	return m.withSession(code, func(s *Session) error {
		if organizerID != s.OrganizerID || targetID == s.OrganizerID || !s.members[targetID] {
			return ErrInvalidAction
		}
		m.out.ToClient(targetID, EventExcluded, ExcludedPayload{Code: code})
		m.removeMember(s, targetID)
		s.log.Info("Player excluded", "player", targetID)
		return nil
	})
}

// DeleteSession ends the session on the organizer's request.
func (m *Manager) DeleteSession(code int, organizerID string) error {
	return m.withSession(code, func(s *Session) error {
		if organizerID != s.OrganizerID {
			return ErrInvalidAction
		}
		m.terminate(s, "deleted by organizer")
		return nil
	})
}

// TerminateSession ends a session regardless of who asks, e.g. on shutdown.
func (m *Manager) TerminateSession(code int) error {
	return m.withSession(code, func(s *Session) error {
		m.terminate(s, "terminated")
		return nil
	})
}

// Shutdown terminates every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	codes := make([]int, 0, len(m.sessions))
	for code := range m.sessions {
		codes = append(codes, code)
	}
	m.mu.Unlock()
	for _, code := range codes {
		m.TerminateSession(code)
	}
}

// terminate stops every timer, tells the room and drops the session.
func (m *Manager) terminate(s *Session, reason string) {
	s.stopTimers()
	s.Combat = nil
	s.closed = true
	m.out.ToRoom(s.Code, EventSessionDeleted, ExcludedPayload{Code: s.Code})
	m.out.CloseRoom(s.Code)

	m.mu.Lock()
	delete(m.sessions, s.Code)
	for id := range s.members {
		if m.conns[id] == s.Code {
			delete(m.conns, id)
		}
	}
	m.mu.Unlock()

	logger.Always("Session deleted", "session", s.Code, "reason", reason)
}

// removeMember takes a non-organizer connection out of the session, cleaning
// up its player if it had one. Reports whether a player was removed.
func (m *Manager) removeMember(s *Session, connID string) bool {
	delete(s.members, connID)
	m.unbindConn(connID, s.Code)
	m.out.Leave(s.Code, connID)

	p, ok := s.Player(connID)
	if !ok {
		return false
	}
	p.Left = true
	if s.Phase == PhasePlaying {
		s.departed = append(s.departed, p)
	}
	for i, other := range s.Players {
		if other == p {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			break
		}
	}

	if s.Phase == PhasePlaying {
		m.removeFromGame(s, p)
	}
	if s.closed {
		return true
	}

	m.out.ToRoom(s.Code, EventPlayerListUpdate, PlayerListPayload{Players: s.Players})
	m.out.ToRoom(s.Code, EventTakenAvatars, TakenAvatarsPayload{Avatars: s.TakenAvatars()})
	s.log.Info("Player left", "player", connID)
	return true
}

// StartGame places every player on a random spawn point, fixes turn order
// and starts the first turn.
func (m *Manager) StartGame(code int, organizerID string) error {
	return m.withSession(code, func(s *Session) error {
		if organizerID != s.OrganizerID || s.Phase != PhaseLobby {
			return ErrInvalidAction
		}
		if !s.Locked {
			return ErrSessionLocked
		}
		if len(s.Players) < m.cfg.MinPlayers {
			return ErrNotEnoughPlayers
		}
		starts := s.Grid.StartPositions()
		if len(starts) < len(s.Players) {
			return ErrNotEnoughStarts
		}

		shuffled := append(starts[:0:0], starts...)
		for i := len(shuffled) - 1; i > 0; i-- {
			j := m.roller.Intn(i + 1)
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		}
		for i, p := range s.Players {
			at := shuffled[i]
			p.Position = at
			p.StartPosition = at
			s.Grid.PlaceAvatar(at, p.Avatar)
			m.moves.RefreshEffects(s.Grid, p)
			p.Stats.RecordVisit(at)
		}
		for _, unused := range shuffled[len(s.Players):] {
			if cell, ok := s.Grid.Cell(unused); ok {
				cell.ClearStart()
			}
		}

		ordered := append([]*player.Player(nil), s.Players...)
		sort.SliceStable(ordered, func(i, j int) bool {
			a, b := ordered[i], ordered[j]
			if a.Attributes.Speed.BaseValue != b.Attributes.Speed.BaseValue {
				return a.Attributes.Speed.BaseValue > b.Attributes.Speed.BaseValue
			}
			return a.JoinOrder < b.JoinOrder
		})
		s.Turn = TurnState{Order: make([]string, len(ordered))}
		for i, p := range ordered {
			s.Turn.Order[i] = p.ID
		}

		s.Phase = PhasePlaying
		s.Stats.StartedAt = m.clock.Now()
		m.out.ToRoom(code, EventGameStarted, GameStartedPayload{Players: s.Players, TurnOrder: s.Turn.Order})
		m.out.ToRoom(code, EventGridArray, GridPayload{Grid: s.Grid})
		s.log.Info("Game started", "players", len(s.Players), "order", s.Turn.Order)

		m.startTurn(s, 0)
		return nil
	})
}

// Inspect runs fn with the session locked. fn must not keep s.
func (m *Manager) Inspect(code int, fn func(s *Session)) error {
	return m.withSession(code, func(s *Session) error {
		fn(s)
		return nil
	})
}
