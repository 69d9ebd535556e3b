package session

import (
	"time"

	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/logger"
	"github.com/lawnchairsociety/gridquest/internal/movement"
	"github.com/lawnchairsociety/gridquest/internal/player"
)

// startTurn hands the turn to the player at idx in turn order.
func (m *Manager) startTurn(s *Session, idx int) {
	if s.Phase != PhasePlaying || len(s.Turn.Order) == 0 {
		return
	}
	idx %= len(s.Turn.Order)
	p, ok := s.Player(s.Turn.Order[idx])
	if !ok {
		return
	}

	s.Turn.Index = idx
	s.Turn.CurrentID = p.ID
	s.Turn.ActionsLeft = 1
	s.Turn.PendingPickup = ""
	s.Turn.endAfterPickup = false
	s.Turn.TimeLeft = int(m.cfg.TurnDuration() / time.Second)
	p.StartTurn()
	s.Stats.Turns++

	m.out.ToRoom(s.Code, EventTurnStarted, TurnPayload{PlayerID: p.ID})
	s.log.Debug("Turn started", "player", p.ID, "index", idx)

	if !m.hasLegalAction(s, p) {
		m.noMovementPossible(s, p)
		return
	}
	m.scheduleTurnTick(s)
}

func (m *Manager) hasLegalAction(s *Session, p *player.Player) bool {
	return movement.HasLegalAction(s.Grid, p.Position, p.MovementPoints(), s.Turn.ActionsLeft)
}

func (m *Manager) scheduleTurnTick(s *Session) {
	m.schedule(s, &s.Turn.timer, time.Second, m.turnTick)
}

func (m *Manager) turnTick(s *Session) {
	s.Turn.TimeLeft--
	m.out.ToRoom(s.Code, EventTimeLeft, TimeLeftPayload{TimeLeft: s.Turn.TimeLeft})
	if s.Turn.TimeLeft > 0 {
		m.scheduleTurnTick(s)
		return
	}
	s.log.Debug("Turn timed out", "player", s.Turn.CurrentID)
	m.endTurn(s)
}

// noMovementPossible tells the room the current player is stuck and ends
// the turn after the grace period.
func (m *Manager) noMovementPossible(s *Session, p *player.Player) {
	m.out.ToRoom(s.Code, EventNoMovementPossible, TurnPayload{PlayerID: p.ID})
	grace := time.Duration(m.cfg.NoMovementGraceSeconds) * time.Second
	m.schedule(s, &s.Turn.timer, grace, m.endTurn)
}

// checkStuck ends the turn early once the current player has nothing left
// to do.
func (m *Manager) checkStuck(s *Session, p *player.Player) {
	if s.Phase != PhasePlaying || s.Combat != nil || s.Turn.PendingPickup != "" {
		return
	}
	if !m.hasLegalAction(s, p) {
		m.noMovementPossible(s, p)
	}
}

// resumeTurn restarts the current player's clock after a fight.
func (m *Manager) resumeTurn(s *Session) {
	p, ok := s.Current()
	if !ok {
		return
	}
	m.out.ToRoom(s.Code, EventTimeLeft, TimeLeftPayload{TimeLeft: s.Turn.TimeLeft})
	if !m.hasLegalAction(s, p) {
		m.noMovementPossible(s, p)
		return
	}
	m.scheduleTurnTick(s)
}

// endTurn closes the current turn and starts the next one.
func (m *Manager) endTurn(s *Session) {
	if s.Phase != PhasePlaying {
		return
	}
	m.resolvePendingPickup(s)
	s.Turn.timer.stop()
	m.out.ToRoom(s.Code, EventTurnEnded, TurnPayload{PlayerID: s.Turn.CurrentID})
	if len(s.Turn.Order) == 0 {
		return
	}
	m.startTurn(s, (s.Turn.Index+1)%len(s.Turn.Order))
}

// resolvePendingPickup drops the item that overflowed the inventory.
func (m *Manager) resolvePendingPickup(s *Session) {
	pending := s.Turn.PendingPickup
	if pending == "" {
		return
	}
	s.Turn.PendingPickup = ""
	p, ok := s.Current()
	if !ok {
		return
	}
	if _, err := m.moves.Discard(s.Grid, p, pending); err != nil {
		s.log.Warn("Failed to auto-discard item", "player", p.ID, "item", pending, "error", err)
		return
	}
	m.out.ToRoom(s.Code, EventUpdateInventory, InventoryPayload{PlayerID: p.ID, Inventory: p.Inventory})
	m.out.ToRoom(s.Code, EventGridArray, GridPayload{Grid: s.Grid})
}

// EndTurn ends connID's turn on request.
func (m *Manager) EndTurn(code int, connID string) error {
	return m.withSession(code, func(s *Session) error {
		if _, err := m.actingPlayer(s, connID); err != nil {
			return err
		}
		m.endTurn(s)
		return nil
	})
}

// removeFromGame clears a departing player from the board and turn order,
// keeping the turn cursor on the same player or handing the turn on.
func (m *Manager) removeFromGame(s *Session, p *player.Player) {
	s.Grid.RemoveAvatar(p.Avatar)
	for _, id := range p.TakeInventory() {
		movement.DropItem(s.Grid, p.Position, id)
	}

	wasCurrent := s.Turn.CurrentID == p.ID
	interrupted := false
	if s.Combat != nil && s.Combat.Involves(p.ID) {
		m.abortCombat(s)
		interrupted = true
	}

	if r := indexOf(s.Turn.Order, p.ID); r >= 0 {
		s.Turn.Order = append(s.Turn.Order[:r], s.Turn.Order[r+1:]...)
		if r < s.Turn.Index {
			s.Turn.Index--
		}
	}
	m.out.ToRoom(s.Code, EventGridArray, GridPayload{Grid: s.Grid})

	if len(s.Players) == 1 {
		m.endGame(s, s.Players[0])
		return
	}
	if len(s.Turn.Order) == 0 {
		return
	}

	switch {
	case wasCurrent:
		s.Turn.timer.stop()
		s.Turn.PendingPickup = ""
		if s.Turn.Index >= len(s.Turn.Order) {
			s.Turn.Index = 0
		}
		m.startTurn(s, s.Turn.Index)
	case interrupted:
		m.resumeTurn(s)
	}
}

// endGame stops the clocks, announces the winner and queues the result for
// recording.
func (m *Manager) endGame(s *Session, winner *player.Player) {
	s.stopTimers()
	s.Combat = nil
	s.Phase = PhaseEnded
	s.Turn.CurrentID = ""

	result := m.buildResult(s, winner)
	s.result = &result
	m.out.ToRoom(s.Code, EventGameEnded, GameEndedPayload{
		Winner:     winner.ID,
		WinnerName: winner.Name,
		Result:     result,
	})
	logger.Always("Game ended", "session", s.Code, "winner", winner.Name, "turns", s.Stats.Turns)
}

func (m *Manager) buildResult(s *Session, winner *player.Player) GameResult {
	walkable := s.Grid.CountWalkable()
	r := GameResult{
		Code:         s.Code,
		GameID:       s.GameID,
		Mode:         s.Mode,
		WinnerID:     winner.ID,
		WinnerName:   winner.Name,
		Turns:        s.Stats.Turns,
		Doors:        s.Stats.DoorsToggled(),
		DoorsPercent: percent(s.Stats.DoorsToggled(), s.Grid.CountDoors()),
		StartedAt:    s.Stats.StartedAt,
		EndedAt:      m.clock.Now(),
	}
	visited := make(map[grid.Position]bool)
	for _, group := range [][]*player.Player{s.Players, s.departed} {
		for _, p := range group {
			for _, at := range p.Stats.VisitedTiles() {
				visited[at] = true
			}
			r.Players = append(r.Players, PlayerResult{
				ID:                  p.ID,
				Name:                p.Name,
				Avatar:              p.Avatar,
				Left:                p.Left,
				Stats:               p.Stats,
				TilesVisitedPercent: percent(p.Stats.TilesVisited, walkable),
			})
		}
	}
	r.TilesVisitedPercent = percent(len(visited), walkable)
	return r
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}
