// Package session manages conversation state for one sender: resolving or
// creating a Session, appending message history idempotently, pruning it to
// a bounded window, and normalizing invalid state on load.
package session

import (
	"time"

	"github.com/ottohq/otto-gateway/pkg/fsm"
)

// Outcome is a terminal tag attached to a Session once its pipeline run
// settles into one of the LLM-facing terminal states.
type Outcome string

const (
	OutcomeHandoffHuman    Outcome = "HANDOFF_HUMAN"
	OutcomeSelfServeInfo   Outcome = "SELF_SERVE_INFO"
	OutcomeRouteExternal   Outcome = "ROUTE_EXTERNAL"
	OutcomeScheduledFollow Outcome = "SCHEDULED_FOLLOWUP"
	OutcomeAwaitingUser    Outcome = "AWAITING_USER"
	OutcomeDuplicateOrSpam Outcome = "DUPLICATE_OR_SPAM"
	OutcomeUnsupported     Outcome = "UNSUPPORTED"
	OutcomeFailedInternal  Outcome = "FAILED_INTERNAL"
)

var validOutcomes = map[Outcome]bool{
	OutcomeHandoffHuman:    true,
	OutcomeSelfServeInfo:   true,
	OutcomeRouteExternal:   true,
	OutcomeScheduledFollow: true,
	OutcomeAwaitingUser:    true,
	OutcomeDuplicateOrSpam: true,
	OutcomeUnsupported:     true,
	OutcomeFailedInternal:  true,
}

// IsValidOutcome reports whether o is one of the closed terminal tags.
func IsValidOutcome(o Outcome) bool {
	return validOutcomes[o]
}

// MaxIntentQueueSize bounds active + queued intents (1 active + 2 queued).
const MaxIntentQueueSize = 3

// IntentQueueItem is a single classified user need, queued behind the active
// intent until the pipeline can address it.
type IntentQueueItem struct {
	Intent     string    `json:"intent"`
	QueuedAt   time.Time `json:"queued_at"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// IntentQueue holds at most one active intent plus an ordered backlog.
type IntentQueue struct {
	Active *IntentQueueItem  `json:"active,omitempty"`
	Queued []IntentQueueItem `json:"queued,omitempty"`
}

// Len returns active (0 or 1) + len(queued).
func (q IntentQueue) Len() int {
	n := len(q.Queued)
	if q.Active != nil {
		n++
	}
	return n
}

// Full reports whether the queue has no room for another distinct intent.
func (q IntentQueue) Full() bool {
	return q.Len() >= MaxIntentQueueSize
}

// LeadProfile is the structured set of user facts accumulated so far. Kept
// as a free-form map since the fields it collects are domain-specific and
// grow over the life of a conversation.
type LeadProfile map[string]any

// HistoryEntry is a compact message-history record. It deliberately carries
// no message content, so retained history is not itself a PII surface.
type HistoryEntry struct {
	ReceivedAt time.Time `json:"received_at"`
	MessageID  string    `json:"message_id"`
	Summary    string    `json:"summary,omitempty"`
}

// Session is the conversation context for one sender.
type Session struct {
	ID           string         `json:"id"`
	SenderPhone  string         `json:"sender_phone"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LeadProfile  LeadProfile    `json:"lead_profile,omitempty"`
	IntentQueue  IntentQueue    `json:"intent_queue"`
	Outcome      *Outcome       `json:"outcome,omitempty"`
	CurrentState fsm.State      `json:"current_state"`
	History      []HistoryEntry `json:"message_history"`

	// Version is the document store's optimistic-concurrency token. Zero
	// means "not yet persisted".
	Version int64 `json:"version"`
}

// NewSession creates a fresh session in the canonical initial state.
func NewSession(id, senderPhone string, now time.Time) *Session {
	return &Session{
		ID:           id,
		SenderPhone:  senderPhone,
		CreatedAt:    now,
		UpdatedAt:    now,
		CurrentState: fsm.InitialState,
		History:      make([]HistoryEntry, 0),
	}
}
