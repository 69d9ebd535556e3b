package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/logger"
	"github.com/lawnchairsociety/gridquest/internal/session"
)

// Inbound command names.
const (
	CmdCreateSession      = "createSession"
	CmdCreateCharacter    = "createCharacter"
	CmdGetTakenAvatars    = "getTakenAvatars"
	CmdJoinSession        = "joinSession"
	CmdLeaveSession       = "leaveSession"
	CmdDeleteSession      = "deleteSession"
	CmdExcludePlayer      = "excludePlayer"
	CmdToggleLock         = "toggleLock"
	CmdStartGame          = "startGame"
	CmdEndTurn            = "endTurn"
	CmdGetAccessibleTiles = "getAccessibleTiles"
	CmdMovePlayer         = "movePlayer"
	CmdToggleDoorState    = "toggleDoorState"
	CmdDiscardItem        = "discardItem"
	CmdToggleDebugMode    = "toggleDebugMode"
	CmdDebugMove          = "debugMove"
	CmdStartCombat        = "startCombat"
	CmdAttack             = "attack"
	CmdEvade              = "evade"
)

// Error codes the router adds to those of session.ErrorCode.
const (
	codeTooManyAttempts = "tooManyAttempts"
	codeBadRequest      = "badRequest"
	codeTooManyCommands = "tooManyCommands"
)

type CreateSessionRequest struct {
	MaxPlayers int    `json:"maxPlayers"`
	GameID     string `json:"gameId"`
	Mode       string `json:"mode,omitempty"`
}

type JoinSessionRequest struct {
	Code int `json:"code"`
}

type CreateCharacterRequest = session.Character

// SessionRef optionally names a session; the sender's own session is used
// when Code is zero.
type SessionRef struct {
	Code int `json:"code,omitempty"`
}

type ExcludePlayerRequest struct {
	PlayerID string `json:"playerSocketId"`
}

type ToggleLockRequest struct {
	Locked bool `json:"locked"`
}

// PositionRequest targets a tile: a move destination, a door, or a debug
// teleport.
type PositionRequest struct {
	Position grid.Position `json:"position"`
}

type DiscardItemRequest struct {
	ItemID string `json:"itemId"`
}

type StartCombatRequest struct {
	TargetAvatar string `json:"targetAvatar"`
}

var errBadRequest = errors.New("malformed payload")

type handlerFunc func(ctx context.Context, c *Client, data json.RawMessage) error

// Router decodes inbound envelopes and calls the matching Manager operation.
type Router struct {
	sessions *session.Manager
	out      session.Broadcaster
	joins    *JoinLimiter
	handlers map[string]handlerFunc
}

// NewRouter creates a router over sessions. Error events go through out.
func NewRouter(sessions *session.Manager, out session.Broadcaster, joins *JoinLimiter) *Router {
	r := &Router{sessions: sessions, out: out, joins: joins}
	m := sessions
	r.handlers = map[string]handlerFunc{
		CmdCreateSession: func(ctx context.Context, c *Client, data json.RawMessage) error {
			req, err := decode[CreateSessionRequest](data)
			if err != nil {
				return err
			}
			_, err = m.CreateSession(ctx, c.id, req.MaxPlayers, req.GameID, req.Mode)
			return err
		},
		CmdJoinSession: r.joinSession,
		CmdGetTakenAvatars: func(_ context.Context, c *Client, data json.RawMessage) error {
			ref, err := decode[SessionRef](data)
			if err != nil {
				return err
			}
			code := ref.Code
			if code == 0 {
				if code, err = r.own(c); err != nil {
					return err
				}
			}
			return m.GetTakenAvatars(code, c.id)
		},
		CmdCreateCharacter: withBody(r, func(code int, c *Client, req CreateCharacterRequest) error {
			return m.CreateCharacter(code, c.id, req)
		}),
		CmdLeaveSession: inSession(r, func(code int, c *Client) error {
			_, err := m.LeaveSession(code, c.id)
			return err
		}),
		CmdDeleteSession: inSession(r, func(code int, c *Client) error {
			return m.DeleteSession(code, c.id)
		}),
		CmdExcludePlayer: withBody(r, func(code int, c *Client, req ExcludePlayerRequest) error {
			return m.ExcludePlayer(code, c.id, req.PlayerID)
		}),
		CmdToggleLock: withBody(r, func(code int, c *Client, req ToggleLockRequest) error {
			return m.ToggleLock(code, c.id, req.Locked)
		}),
		CmdStartGame: inSession(r, func(code int, c *Client) error {
			return m.StartGame(code, c.id)
		}),
		CmdEndTurn: inSession(r, func(code int, c *Client) error {
			return m.EndTurn(code, c.id)
		}),
		CmdGetAccessibleTiles: inSession(r, func(code int, c *Client) error {
			return m.GetAccessibleTiles(code, c.id)
		}),
		CmdMovePlayer: withBody(r, func(code int, c *Client, req PositionRequest) error {
			return m.MovePlayer(code, c.id, req.Position)
		}),
		CmdToggleDoorState: withBody(r, func(code int, c *Client, req PositionRequest) error {
			return m.ToggleDoor(code, c.id, req.Position)
		}),
		CmdDiscardItem: withBody(r, func(code int, c *Client, req DiscardItemRequest) error {
			return m.DiscardItem(code, c.id, req.ItemID)
		}),
		CmdToggleDebugMode: inSession(r, func(code int, c *Client) error {
			return m.ToggleDebugMode(code, c.id)
		}),
		CmdDebugMove: withBody(r, func(code int, c *Client, req PositionRequest) error {
			return m.DebugMove(code, c.id, req.Position)
		}),
		CmdStartCombat: withBody(r, func(code int, c *Client, req StartCombatRequest) error {
			return m.StartCombat(code, c.id, req.TargetAvatar)
		}),
		CmdAttack: inSession(r, func(code int, c *Client) error {
			return m.Attack(code, c.id)
		}),
		CmdEvade: inSession(r, func(code int, c *Client) error {
			return m.Evade(code, c.id)
		}),
	}
	return r
}

// Events lists the command names the router understands.
func (r *Router) Events() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Dispatch runs one command. It never panics.
func (r *Router) Dispatch(ctx context.Context, c *Client, env Envelope) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Command panicked",
				"event", env.Event,
				"conn", c.id,
				"panic", p,
				"stack", string(debug.Stack()))
		}
	}()

	if ok, wait := c.commands.Allow(); !ok {
		logger.Debug("Command rate exceeded", "event", env.Event, "conn", c.id, "ip", c.ip)
		r.sendError(c, codeTooManyCommands, fmt.Errorf("too many commands, retry in %s", wait.Round(time.Millisecond)))
		return
	}

	h, ok := r.handlers[env.Event]
	if !ok {
		logger.Debug("Unknown event", "event", env.Event, "conn", c.id)
		return
	}
	if err := h(ctx, c, env.Data); err != nil {
		r.report(c, env.Event, err)
	}
}

// report sends conflicts back to the requester and logs everything else.
func (r *Router) report(c *Client, event string, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		logger.Debug("Malformed command", "event", event, "conn", c.id, "error", err)
		r.sendError(c, codeBadRequest, err)
	case errors.Is(err, session.ErrConflict):
		r.sendError(c, session.ErrorCode(err), err)
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrInvalidAction):
		logger.Debug("Command rejected", "event", event, "conn", c.id, "error", err)
	default:
		logger.Error("Command failed", "event", event, "conn", c.id, "error", err)
	}
}

func (r *Router) sendError(c *Client, code string, err error) {
	r.out.ToClient(c.id, session.EventError, session.ErrorPayload{Code: code, Message: err.Error()})
}

// joinSession is throttled per IP: unknown codes and locked sessions count
// as failures, and the requester is told about unknown codes.
func (r *Router) joinSession(_ context.Context, c *Client, data json.RawMessage) error {
	if locked, wait := r.joins.IsLocked(c.ip); locked {
		r.sendError(c, codeTooManyAttempts, fmt.Errorf("too many failed attempts, retry in %s", wait.Round(time.Second)))
		return nil
	}
	req, err := decode[JoinSessionRequest](data)
	if err != nil {
		return err
	}
	err = r.sessions.JoinSession(req.Code, c.id)
	switch {
	case err == nil:
		r.joins.RecordSuccess(c.ip)
		return nil
	case errors.Is(err, session.ErrNotFound):
		r.recordJoinFailure(c)
		r.sendError(c, session.ErrorCode(err), fmt.Errorf("no session with code %d", req.Code))
		return nil
	case errors.Is(err, session.ErrSessionLocked):
		r.recordJoinFailure(c)
	}
	return err
}

func (r *Router) recordJoinFailure(c *Client) {
	if locked, d := r.joins.RecordFailure(c.ip); locked {
		logger.Warning("Join attempts locked out", "ip", c.ip, "duration", d)
	}
}

// own returns the session the client belongs to.
func (r *Router) own(c *Client) (int, error) {
	code, ok := r.sessions.SessionOf(c.id)
	if !ok {
		return 0, fmt.Errorf("%s is not in a session: %w", c.id, session.ErrNotFound)
	}
	return code, nil
}

func inSession(r *Router, fn func(code int, c *Client) error) handlerFunc {
	return func(_ context.Context, c *Client, _ json.RawMessage) error {
		code, err := r.own(c)
		if err != nil {
			return err
		}
		return fn(code, c)
	}
}

func withBody[T any](r *Router, fn func(code int, c *Client, req T) error) handlerFunc {
	return func(_ context.Context, c *Client, data json.RawMessage) error {
		code, err := r.own(c)
		if err != nil {
			return err
		}
		req, err := decode[T](data)
		if err != nil {
			return err
		}
		return fn(code, c, req)
	}
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return v, nil
}
