package session

import (
	"errors"
	"fmt"
)

// Common errors for the session core.
var (
	// ErrNoCues is returned when starting a session without a cue set.
	ErrNoCues = errors.New("session: no cues loaded")

	// ErrShutdown is returned for operations on a torn-down controller.
	ErrShutdown = errors.New("session: controller has been shut down")

	// ErrInvalidState is returned when an operation is not valid in the
	// current lifecycle state.
	ErrInvalidState = errors.New("session: invalid state for operation")

	// ErrInvalidDuration is returned for non-positive session durations.
	ErrInvalidDuration = errors.New("session: duration must be positive")

	// ErrPreloadActive is returned when preload is triggered while a
	// preload pass is already loading or complete.
	ErrPreloadActive = errors.New("session: preload already in progress or complete")
)

// ErrorKind classifies a session error by the subsystem that produced it.
// Per-cue errors (synthesis, playback) never halt the session; parse and
// preload errors degrade without discarding prior good state.
type ErrorKind int

const (
	// KindSynthesis covers gateway failures for a single cue.
	KindSynthesis ErrorKind = iota
	// KindPlayback covers decode and device failures for a single cue,
	// including the distinguished locked-output case.
	KindPlayback
	// KindPreload covers failures of the batch preload call itself.
	KindPreload
	// KindLifecycle covers controller lifecycle misuse.
	KindLifecycle
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindSynthesis:
		return "synthesis"
	case KindPlayback:
		return "playback"
	case KindPreload:
		return "preload"
	case KindLifecycle:
		return "lifecycle"
	default:
		return "unknown"
	}
}

// SessionError wraps an error with the subsystem and cue it affected.
type SessionError struct {
	Err    error
	Kind   ErrorKind
	Offset int // Affected cue offset, -1 when not cue-specific
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("session: %s error", e.Kind)
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("session: %s error for cue at %ds: %v", e.Kind, e.Offset, e.Err)
	}
	return fmt.Sprintf("session: %s error: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// newError builds a SessionError for a cue-specific failure.
func newError(err error, kind ErrorKind, offset int) *SessionError {
	return &SessionError{Err: err, Kind: kind, Offset: offset}
}
