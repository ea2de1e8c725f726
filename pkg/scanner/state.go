package scanner

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of a scanner session.
type State int

const (
	// Idle is the state of a fresh session that has never started.
	Idle State = iota
	// Requesting means camera access was asked for and has not resolved.
	Requesting
	// Streaming means the handle is open and ticks are being scheduled.
	Streaming
	// Decoded means a symbol was found; the handle has been released.
	Decoded
	// Stopped means the caller stopped the session or the stream was lost.
	Stopped
	// PermissionDenied means acquisition failed; Start may be retried.
	PermissionDenied
)

var stateNames = [...]string{
	Idle:             "idle",
	Requesting:       "requesting",
	Streaming:        "streaming",
	Decoded:          "decoded",
	Stopped:          "stopped",
	PermissionDenied: "permission_denied",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText encodes the state by name for JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Active reports whether the session currently owns, or is acquiring, a camera.
func (s State) Active() bool {
	return s == Requesting || s == Streaming
}

var (
	// ErrAlreadyActive is returned by Start while Requesting or Streaming.
	ErrAlreadyActive = errors.New("scanner already active")

	// ErrPermissionDenied is the kind of failure reported through
	// OnPermissionDenied and Status().Reason.
	ErrPermissionDenied = errors.New("camera permission denied")
)
