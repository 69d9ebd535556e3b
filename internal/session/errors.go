package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the session, player or game does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidAction means the request is not legal in the current state.
	ErrInvalidAction = errors.New("invalid action")
	// ErrConflict is the parent of errors reported back to the requester.
	ErrConflict = errors.New("conflict")

	ErrAvatarTaken       = fmt.Errorf("%w: avatar already taken", ErrConflict)
	ErrSessionFull       = fmt.Errorf("%w: session is full", ErrConflict)
	ErrNameRejected      = fmt.Errorf("%w: name rejected", ErrConflict)
	ErrSessionLocked     = fmt.Errorf("%w: session is locked", ErrConflict)
	ErrAlreadyInSession  = fmt.Errorf("%w: connection already in a session", ErrConflict)
	ErrOrganizerFirst    = fmt.Errorf("%w: the organizer must create a character first", ErrConflict)
	ErrNotEnoughPlayers  = fmt.Errorf("%w: not enough players", ErrConflict)
	ErrNotEnoughStarts   = fmt.Errorf("%w: map has fewer spawn points than players", ErrConflict)
	ErrNoCodesLeft       = fmt.Errorf("%w: no session codes left", ErrConflict)
	ErrInvalidMaxPlayers = fmt.Errorf("%w: unsupported player count", ErrConflict)
)

// ErrorCode maps an error to the short code sent in error events.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAvatarTaken):
		return "avatarTaken"
	case errors.Is(err, ErrSessionFull):
		return "sessionFull"
	case errors.Is(err, ErrNameRejected):
		return "nameRejected"
	case errors.Is(err, ErrSessionLocked):
		return "sessionLocked"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "notFound"
	case errors.Is(err, ErrInvalidAction):
		return "invalidAction"
	default:
		return "internal"
	}
}
