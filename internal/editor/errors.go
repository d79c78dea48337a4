package editor

import "errors"

var (
	// ErrInvalidState is returned when an operation's precondition on the
	// session state does not hold, for example assembling a result with no
	// selected rectangle or applying predictions twice.
	ErrInvalidState = errors.New("invalid session state")

	// ErrStaleResponse is returned when a boundary prediction arrives for a
	// selection that is no longer current.
	ErrStaleResponse = errors.New("stale boundary response")
)
