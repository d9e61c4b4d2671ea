package session

import "errors"

// Request-level failures. All of these are returned to the requesting client
// as a structured reply; none of them terminate the connection or affect the
// other participants.
var (
	// ErrNotFound is returned when a room code or participant is unknown.
	ErrNotFound = errors.New("session not found")

	// ErrFull is returned when a join would exceed the participant cap.
	ErrFull = errors.New("session full")

	// ErrAlreadyStarted is returned when joining a session that is no
	// longer waiting.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrUnauthorized is returned when a non-creator tries to start.
	ErrUnauthorized = errors.New("only the creator may start the session")

	// ErrInvalidState is returned when a lifecycle transition is attempted
	// from the wrong state.
	ErrInvalidState = errors.New("invalid session state")
)

// Reason maps a registry error onto its wire reason code.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrFull):
		return "full"
	case errors.Is(err, ErrAlreadyStarted):
		return "already_started"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return "internal"
	}
}
