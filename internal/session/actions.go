package session

import (
	"fmt"

	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/movement"
	"github.com/lawnchairsociety/gridquest/internal/player"
)

// actingPlayer returns connID's player if it holds the turn and no fight is
// running.
func (m *Manager) actingPlayer(s *Session, connID string) (*player.Player, error) {
	p, ok := s.Current()
	if !ok || p.ID != connID {
		return nil, fmt.Errorf("%s is not the current player: %w", connID, ErrInvalidAction)
	}
	if s.Combat != nil {
		return nil, fmt.Errorf("combat in progress: %w", ErrInvalidAction)
	}
	return p, nil
}

// freePlayer is actingPlayer for actions a pending pickup blocks.
func (m *Manager) freePlayer(s *Session, connID string) (*player.Player, error) {
	p, err := m.actingPlayer(s, connID)
	if err != nil {
		return nil, err
	}
	if s.Turn.PendingPickup != "" {
		return nil, fmt.Errorf("pickup of %s pending: %w", s.Turn.PendingPickup, ErrInvalidAction)
	}
	return p, nil
}

// GetAccessibleTiles sends the current player the tiles it can reach.
func (m *Manager) GetAccessibleTiles(code int, connID string) error {
	return m.withSession(code, func(s *Session) error {
		p, err := m.freePlayer(s, connID)
		if err != nil {
			return err
		}
		tiles := movement.AccessibleTiles(s.Grid, p.Position, p.MovementPoints())
		if tiles == nil {
			tiles = []movement.Tile{}
		}
		m.out.ToClient(connID, EventAccessibleTiles, AccessibleTilesPayload{Tiles: tiles})
		return nil
	})
}

// MovePlayer moves the current player to dest.
func (m *Manager) MovePlayer(code int, connID string, dest grid.Position) error {
	return m.withSession(code, func(s *Session) error {
		p, err := m.freePlayer(s, connID)
		if err != nil {
			return err
		}
		out, err := m.moves.Move(s.Grid, p, dest, s.Mode == ModeCTF)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		m.out.ToRoom(code, EventPlayerMovement, MovementPayload{
			PlayerID:    p.ID,
			Avatar:      p.Avatar,
			DesiredPath: out.DesiredPath,
			RealPath:    out.RealPath,
		})
		if out.Slipped {
			s.log.Debug("Player slipped", "player", p.ID, "at", out.Final())
		}
		m.afterMove(s, p, out)
		return nil
	})
}

// afterMove reacts to what the move hooks found.
func (m *Manager) afterMove(s *Session, p *player.Player, out *movement.Outcome) {
	if out.PickedUp != "" {
		m.out.ToRoom(s.Code, EventGridArray, GridPayload{Grid: s.Grid})
		if out.InventoryFull {
			s.Turn.PendingPickup = out.PickedUp
			m.out.ToClient(p.ID, EventInventoryFull, InventoryFullPayload{Inventory: p.Inventory, PickedUp: out.PickedUp})
		} else {
			m.out.ToRoom(s.Code, EventUpdateInventory, InventoryPayload{PlayerID: p.ID, Inventory: p.Inventory})
		}
	}
	if out.FlagCaptured {
		m.endGame(s, p)
		return
	}
	if out.Slipped {
		if s.Turn.PendingPickup != "" {
			s.Turn.endAfterPickup = true
			return
		}
		m.endTurn(s)
		return
	}
	m.checkStuck(s, p)
}

// ToggleDoor opens or closes a door next to the current player.
func (m *Manager) ToggleDoor(code int, connID string, target grid.Position) error {
	return m.withSession(code, func(s *Session) error {
		p, err := m.freePlayer(s, connID)
		if err != nil {
			return err
		}
		if s.Turn.ActionsLeft <= 0 {
			return fmt.Errorf("no action left: %w", ErrInvalidAction)
		}
		open, err := movement.ToggleDoor(s.Grid, p, target)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		s.Turn.ActionsLeft--
		s.Stats.recordDoor(target)
		m.out.ToRoom(code, EventDoorStateUpdated, DoorStatePayload{Position: target, IsOpen: open})
		m.checkStuck(s, p)
		return nil
	})
}

// DiscardItem resolves a pending pickup by dropping one carried item.
func (m *Manager) DiscardItem(code int, connID string, itemID string) error {
	return m.withSession(code, func(s *Session) error {
		p, err := m.actingPlayer(s, connID)
		if err != nil {
			return err
		}
		if s.Turn.PendingPickup == "" {
			return fmt.Errorf("nothing to discard: %w", ErrInvalidAction)
		}
		if _, err := m.moves.Discard(s.Grid, p, itemID); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		s.Turn.PendingPickup = ""
		m.out.ToRoom(code, EventUpdateInventory, InventoryPayload{PlayerID: p.ID, Inventory: p.Inventory})
		m.out.ToRoom(code, EventGridArray, GridPayload{Grid: s.Grid})
		if s.Mode == ModeCTF && m.moves.HasCaptured(p) {
			m.endGame(s, p)
			return nil
		}
		if s.Turn.endAfterPickup {
			m.endTurn(s)
			return nil
		}
		m.checkStuck(s, p)
		return nil
	})
}

// DebugMove teleports the organizer during its own turn while debug mode is
// on.
func (m *Manager) DebugMove(code int, connID string, dest grid.Position) error {
	return m.withSession(code, func(s *Session) error {
		if connID != s.OrganizerID || !s.Debug {
			return fmt.Errorf("debug move by %s: %w", connID, ErrInvalidAction)
		}
		p, err := m.freePlayer(s, connID)
		if err != nil {
			return err
		}
		out, err := m.moves.Teleport(s.Grid, p, dest, s.Mode == ModeCTF)
		if err != nil {
			m.out.ToClient(connID, EventDebugMoveFailed, DebugMoveFailedPayload{Position: dest})
			return nil
		}
		m.out.ToRoom(code, EventPlayerMovement, MovementPayload{
			PlayerID:    p.ID,
			Avatar:      p.Avatar,
			DesiredPath: out.DesiredPath,
			RealPath:    out.RealPath,
		})
		m.afterMove(s, p, out)
		return nil
	})
}
