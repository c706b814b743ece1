package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ottohq/otto-gateway/pkg/fsm"
	"github.com/ottohq/otto-gateway/pkg/webhookmsg"
)

// DefaultMaxHistoryEntries is used when Manager is not given an explicit cap.
const DefaultMaxHistoryEntries = 200

// DefaultTTL is the Session Store TTL applied on every Persist, absent an
// explicit override.
const DefaultTTL = 24 * time.Hour

// Manager is the C5 Session Manager: it resolves or creates sessions,
// appends user messages idempotently, prunes history, and normalizes
// invalid persisted state.
type Manager struct {
	store             Store
	maxHistoryEntries int
}

// NewManager builds a Manager over store with the given history cap. A cap
// of 0 uses DefaultMaxHistoryEntries.
func NewManager(store Store, maxHistoryEntries int) *Manager {
	if maxHistoryEntries <= 0 {
		maxHistoryEntries = DefaultMaxHistoryEntries
	}
	return &Manager{store: store, maxHistoryEntries: maxHistoryEntries}
}

// GetOrCreate resolves the session for an inbound message: msg.ChatID when
// the vendor supplied one, else the sender's phone number (msg.FromNumber)
// as the session-id, and a freshly minted UUID only when both are empty.
func (m *Manager) GetOrCreate(ctx context.Context, msg webhookmsg.NormalizedMessage) (*Session, error) {
	id := msg.ChatID
	if id == "" {
		id = msg.FromNumber
	}
	if id == "" {
		id = uuid.NewString()
	}

	s, err := m.store.Load(ctx, id)
	if err == nil {
		m.normalizeCurrentState(s)
		return s, nil
	}
	if err != ErrNotFound {
		return nil, fmt.Errorf("session manager: load %s: %w", id, err)
	}

	return NewSession(id, msg.FromNumber, time.Now().UTC()), nil
}

// AppendUserMessage appends a compact history record for msg unless
// msg.MessageID is already present, in which case it is a no-op (webhook
// retries must not grow history). Returns whether a new entry was appended.
func (m *Manager) AppendUserMessage(s *Session, msg webhookmsg.NormalizedMessage, correlationID string) (appended bool) {
	for _, h := range s.History {
		if h.MessageID == msg.MessageID {
			return false
		}
	}

	receivedAt := time.Now().UTC()
	if msg.Timestamp > 0 {
		receivedAt = time.Unix(msg.Timestamp, 0).UTC()
	}

	s.History = append(s.History, HistoryEntry{ReceivedAt: receivedAt, MessageID: msg.MessageID})
	s.UpdatedAt = time.Now().UTC()

	if len(s.History) > m.maxHistoryEntries {
		previousLen := len(s.History)
		s.History = s.History[len(s.History)-m.maxHistoryEntries:]
		slog.Info("session_history_pruned",
			"previous_len", previousLen,
			"new_len", len(s.History),
			"correlation_id", correlationID,
		)
	}

	return true
}

// normalizeCurrentState resets s.CurrentState to the canonical initial
// state if it is not a member of the FSM alphabet, logging the correction.
func (m *Manager) normalizeCurrentState(s *Session) fsm.State {
	if fsm.IsValid(s.CurrentState) {
		return s.CurrentState
	}
	slog.Warn("invalid_state_normalized", "session_id", s.ID, "invalid_state", string(s.CurrentState))
	s.CurrentState = fsm.InitialState
	return s.CurrentState
}

// NormalizeCurrentState is the exported form, for callers (e.g. the
// orchestrator) that load a session through another path.
func (m *Manager) NormalizeCurrentState(s *Session) fsm.State {
	return m.normalizeCurrentState(s)
}

// Persist delegates to the underlying Session Store.
func (m *Manager) Persist(ctx context.Context, s *Session, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if s.Version == 0 {
		return m.store.Save(ctx, s, ttl)
	}
	return m.store.CompareAndSwapSave(ctx, s, ttl)
}

// IsFirstMessageOfDay reports whether no prior history entry falls on the
// same UTC calendar day as ts.
func IsFirstMessageOfDay(s *Session, ts time.Time) bool {
	ts = ts.UTC()
	y, mo, d := ts.Date()
	for _, h := range s.History {
		hy, hm, hd := h.ReceivedAt.UTC().Date()
		if hy == y && hm == mo && hd == d {
			return false
		}
	}
	return true
}
