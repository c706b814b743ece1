package session

import (
	"context"
	"errors"
	"time"

	"github.com/ottohq/otto-gateway/pkg/fsm"
)

// ErrBackend wraps a backend failure. The orchestrator abandons the message
// and records "session_load_error" or "session_persist_error" on the webhook
// summary; the webhook request itself is not failed.
type ErrBackend struct {
	Backend string
	Err     error
}

func (e *ErrBackend) Error() string {
	return "session: " + e.Backend + ": " + e.Err.Error()
}

func (e *ErrBackend) Unwrap() error { return e.Err }

// ErrNotFound is returned by Load when no session exists for the given id.
var ErrNotFound = errors.New("session: not found")

// ErrConflict is returned by CompareAndSwapSave when the stored version has
// moved past the version the caller read. The orchestrator retries the
// whole read-modify-write window up to 3 times, then surfaces SessionConflict.
var ErrConflict = errors.New("session: version conflict")

// Store is the persistence capability for sessions: get/put/delete keyed by
// session-id, with TTL.
type Store interface {
	// Load fetches a session, returning ErrNotFound if absent or expired.
	Load(ctx context.Context, id string) (*Session, error)

	// Save unconditionally upserts a session with the given TTL.
	Save(ctx context.Context, s *Session, ttl time.Duration) error

	// CompareAndSwapSave saves s only if the backend's stored version still
	// equals s.Version, then advances s.Version. Returns ErrConflict if a
	// concurrent writer already moved the version on, ErrNotFound if the
	// session does not exist yet (callers needing create-or-update use Save
	// for the first write).
	CompareAndSwapSave(ctx context.Context, s *Session, ttl time.Duration) error

	// Delete removes a session. Returns (false, nil) if it was already absent.
	Delete(ctx context.Context, id string) (bool, error)

	// Exists reports whether a session currently exists (and is unexpired).
	Exists(ctx context.Context, id string) (bool, error)
}

// normalizeOutcomeForSave enforces the §4.4 invariant: outcome must be unset
// during non-terminal states, or a valid terminal tag. An invalid/missing
// outcome on a terminal-state save is normalized to FAILED_INTERNAL; callers
// must log this at ERROR.
func normalizeOutcomeForSave(s *Session) (normalized bool) {
	if !fsm.IsTerminal(s.CurrentState) {
		return false
	}
	if s.Outcome != nil && IsValidOutcome(*s.Outcome) {
		return false
	}
	fallback := OutcomeFailedInternal
	s.Outcome = &fallback
	return true
}
