package guards

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ottohq/otto-gateway/pkg/session"
)

// Rejection is returned by Check when a message is rejected, carrying the
// terminal outcome the orchestrator should attach to the session.
type Rejection struct {
	Reason  string // "flood", "spam", "intent_capacity"
	Outcome session.Outcome
}

// Checker runs the abuse guards in the fixed order spec'd for C6: flood,
// then spam, then intent capacity.
type Checker struct {
	Flood FloodDetector
}

// NewChecker builds a Checker. Flood may be nil to disable flood detection
// entirely (e.g. in tests exercising only spam/intent logic).
func NewChecker(flood FloodDetector) *Checker {
	return &Checker{Flood: flood}
}

// Check runs all guards for one inbound message against s. Returns
// (nil, nil) when the message passes every guard.
func (c *Checker) Check(ctx context.Context, s *session.Session, messageText string) (*Rejection, error) {
	if c.Flood != nil {
		flooded, err := c.Flood.CheckAndRecord(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("guards: flood check: %w", err)
		}
		if flooded {
			slog.Warn("guard_rejected", "session_id", s.ID, "reason", "flood")
			return &Rejection{Reason: "flood", Outcome: session.OutcomeDuplicateOrSpam}, nil
		}
	}

	if IsSpam(messageText) {
		slog.Warn("guard_rejected", "session_id", s.ID, "reason", "spam")
		return &Rejection{Reason: "spam", Outcome: session.OutcomeDuplicateOrSpam}, nil
	}

	if IntentCapacityExceeded(s.IntentQueue) {
		slog.Info("guard_rejected", "session_id", s.ID, "reason", "intent_capacity")
		return &Rejection{Reason: "intent_capacity", Outcome: session.OutcomeScheduledFollow}, nil
	}

	return nil, nil
}
