package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when the cipher is invoked without a password.
	// The validation gates in front of the toggles should make this
	// unreachable from user flows; hitting it is a defect.
	ErrInvalidKey = errors.New("invalid key: password required")
	// ErrAuth indicates an invalid or expired credential. It is terminal for
	// the session: credentials are wiped and the user is sent back to the
	// entry point, never retried.
	ErrAuth = errors.New("authentication failed")
	// ErrPreempted indicates the session was terminated because the same
	// identity logged in from another location. Terminal, never retried.
	ErrPreempted = errors.New("session preempted by duplicate login")
	// ErrRevealFailed is returned when the remote reveal endpoint reports a
	// password mismatch or corrupted input. The obfuscated content is left
	// unchanged so the user can retry.
	ErrRevealFailed = errors.New("reveal failed")
	// ErrNoActiveRoom is returned when a room-scoped action is attempted
	// while no room is active.
	ErrNoActiveRoom = errors.New("no active room")
)

// ValidationError is a locally detected input problem. It is raised before
// any network call, surfaced as a transient notice, and fully recoverable:
// no state has been mutated when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
