package session

import (
	"fmt"
	"time"

	"github.com/lawnchairsociety/gridquest/internal/combat"
	"github.com/lawnchairsociety/gridquest/internal/player"
)

// StartCombat engages the player using targetAvatar. It costs the current
// player's action and suspends its turn clock.
func (m *Manager) StartCombat(code int, connID string, targetAvatar string) error {
	return m.withSession(code, func(s *Session) error {
		p, err := m.freePlayer(s, connID)
		if err != nil {
			return err
		}
		if s.Turn.ActionsLeft <= 0 {
			return fmt.Errorf("no action left: %w", ErrInvalidAction)
		}
		target, ok := s.PlayerByAvatar(targetAvatar)
		if !ok || target == p {
			return fmt.Errorf("no opponent %q: %w", targetAvatar, ErrInvalidAction)
		}
		if !p.Position.Adjacent(target.Position) {
			return fmt.Errorf("opponent %q not adjacent: %w", targetAvatar, ErrInvalidAction)
		}

		s.Turn.ActionsLeft--
		s.Turn.timer.stop()
		first, second := combat.Initiative(p, target)
		s.Combat = &CombatState{
			Fighters:          [2]*player.Player{first, second},
			SuspendedID:       p.ID,
			SuspendedTimeLeft: s.Turn.TimeLeft,
		}
		s.Stats.Combats++
		p.Stats.RecordCombat()
		target.Stats.RecordCombat()

		m.out.ToClient(p.ID, EventCombatStarted, CombatStartedPayload{Opponent: target, StartsFirst: first == p})
		m.out.ToClient(target.ID, EventCombatStarted, CombatStartedPayload{Opponent: p, StartsFirst: first == target})
		s.log.Info("Combat started", "attacker", p.ID, "defender", target.ID, "first", first.ID)

		m.startCombatTurn(s, 0)
		return nil
	})
}

// startCombatTurn gives the sub-turn to fighter idx. Fighters without
// evasions left get the shorter clock.
func (m *Manager) startCombatTurn(s *Session, idx int) {
	c := s.Combat
	c.Active = idx
	c.ActionTaken = false
	c.TimeLeft = m.cfg.CombatTurnSeconds
	if c.Acting().EvasionsLeft() <= 0 {
		c.TimeLeft = m.cfg.CombatTurnNoEvasionSeconds
	}
	m.out.ToRoom(s.Code, EventCombatTurnStarted, CombatTurnPayload{PlayerID: c.Acting().ID, TimeLeft: c.TimeLeft})
	m.scheduleCombatTick(s)
}

func (m *Manager) scheduleCombatTick(s *Session) {
	m.schedule(s, &s.Combat.timer, time.Second, m.combatTick)
}

func (m *Manager) combatTick(s *Session) {
	c := s.Combat
	if c == nil {
		return
	}
	c.TimeLeft--
	m.out.ToRoom(s.Code, EventCombatTimeLeft, TimeLeftPayload{TimeLeft: c.TimeLeft})
	if c.TimeLeft > 0 {
		m.scheduleCombatTick(s)
		return
	}
	if !c.ActionTaken {
		s.log.Debug("Combat turn timed out, attacking", "player", c.Acting().ID)
		m.attack(s)
	}
}

// actingFighter returns connID's player if it may act in the running fight.
func (m *Manager) actingFighter(s *Session, connID string) (*player.Player, error) {
	c := s.Combat
	if c == nil {
		return nil, fmt.Errorf("no combat: %w", ErrInvalidAction)
	}
	if c.Acting().ID != connID || c.ActionTaken {
		return nil, fmt.Errorf("%s cannot act now: %w", connID, ErrInvalidAction)
	}
	return c.Acting(), nil
}

// Attack strikes the opponent during connID's combat sub-turn.
func (m *Manager) Attack(code int, connID string) error {
	return m.withSession(code, func(s *Session) error {
		if _, err := m.actingFighter(s, connID); err != nil {
			return err
		}
		m.attack(s)
		return nil
	})
}

func (m *Manager) attack(s *Session) {
	c := s.Combat
	c.ActionTaken = true
	c.timer.stop()
	attacker, defender := c.Acting(), c.Waiting()

	res := m.fights.Attack(attacker, defender, s.Debug)
	m.out.ToRoom(s.Code, EventAttackResult, res)
	m.out.ToRoom(s.Code, EventCombatTurnEnded, TurnPayload{PlayerID: attacker.ID})

	if combat.IsDefeated(defender) {
		m.defeat(s, attacker, defender)
		return
	}
	m.startCombatTurn(s, 1-c.Active)
}

// Evade tries to escape the fight during connID's sub-turn.
func (m *Manager) Evade(code int, connID string) error {
	return m.withSession(code, func(s *Session) error {
		p, err := m.actingFighter(s, connID)
		if err != nil {
			return err
		}
		c := s.Combat
		ok, err := m.fights.Evade(p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		c.ActionTaken = true
		c.timer.stop()
		other := c.Waiting()

		m.out.ToRoom(code, EventEvasionResult, EvasionResultPayload{Success: ok})
		m.out.ToRoom(code, EventCombatTurnEnded, TurnPayload{PlayerID: p.ID})
		if !ok {
			m.startCombatTurn(s, 1-c.Active)
			return nil
		}
		m.out.ToClient(p.ID, EventEvasionSuccess, CombatantPayload{PlayerID: other.ID})
		m.out.ToClient(other.ID, EventOpponentEvaded, CombatantPayload{PlayerID: p.ID})
		m.finishCombat(s, nil, nil)
		return nil
	})
}

// defeat sends the loser home and credits the winner.
func (m *Manager) defeat(s *Session, winner, loser *player.Player) {
	m.out.ToClient(loser.ID, EventDefeated, CombatantPayload{PlayerID: winner.ID})
	m.out.ToClient(winner.ID, EventOpponentDefeated, CombatantPayload{PlayerID: loser.ID})
	winner.Stats.RecordWin()
	loser.Stats.RecordLoss()
	if _, err := m.moves.Respawn(s.Grid, loser); err != nil {
		s.log.Warn("Loser left in place", "player", loser.ID, "error", err)
	}
	m.out.ToRoom(s.Code, EventGridArray, GridPayload{Grid: s.Grid})
	s.log.Info("Combat won", "winner", winner.ID, "loser", loser.ID, "wins", winner.Stats.Wins)
	m.finishCombat(s, winner, loser)
}

// finishCombat closes the fight and hands control back to the main turn,
// ending it when its owner lost.
func (m *Manager) finishCombat(s *Session, winner, loser *player.Player) {
	c := s.Combat
	c.timer.stop()
	for _, f := range c.Fighters {
		f.ResetAfterCombat()
	}
	s.Combat = nil

	ended := CombatEndedPayload{}
	if winner != nil {
		ended.Winner = winner.ID
	}
	m.out.ToRoom(s.Code, EventCombatEnded, ended)

	if winner != nil && s.Mode == ModeClassic && winner.Stats.Wins >= m.cfg.WinsToVictory {
		m.endGame(s, winner)
		return
	}
	s.Turn.TimeLeft = c.SuspendedTimeLeft
	if loser != nil && loser.ID == c.SuspendedID {
		m.endTurn(s)
		return
	}
	m.resumeTurn(s)
}

// abortCombat ends a fight without a winner, when a fighter leaves.
func (m *Manager) abortCombat(s *Session) {
	c := s.Combat
	c.timer.stop()
	for _, f := range c.Fighters {
		if !f.Left {
			f.ResetAfterCombat()
		}
	}
	s.Combat = nil
	s.Turn.TimeLeft = c.SuspendedTimeLeft
	m.out.ToRoom(s.Code, EventCombatEnded, CombatEndedPayload{})
}
