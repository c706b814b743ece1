package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries bounds how many times Recorder.Record retries on a
// concurrent writer winning the compare-and-swap race.
const DefaultMaxRetries = 3

// Recorder appends events to a user's hash chain, reading the current head,
// computing the next hash, and retrying on a lost compare-and-swap race.
type Recorder struct {
	store      UserAuditStore
	maxRetries int
}

// NewRecorder builds a Recorder with DefaultMaxRetries.
func NewRecorder(store UserAuditStore) *Recorder {
	return &Recorder{store: store, maxRetries: DefaultMaxRetries}
}

// NewRecorderWithRetries builds a Recorder with a caller-supplied retry budget.
func NewRecorderWithRetries(store UserAuditStore, maxRetries int) *Recorder {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Recorder{store: store, maxRetries: maxRetries}
}

// RecordInput carries the fields a caller supplies; EventID, Timestamp,
// PrevHash and Hash are computed by Record.
type RecordInput struct {
	UserKey       string
	TenantID      string
	Actor         Actor
	Action        Action
	Reason        string
	CorrelationID string
}

// Record appends a new event to userKey's chain, retrying up to maxRetries
// times if a concurrent writer wins the race. Returns *AuditChainError once
// the retry budget is exhausted.
func (r *Recorder) Record(ctx context.Context, in RecordInput, now time.Time) (*AuditEvent, error) {
	if !IsValidAction(in.Action) {
		return nil, fmt.Errorf("audit: invalid action %q", in.Action)
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		prevHash := ""
		latest, err := r.store.GetLatestEvent(ctx, in.UserKey)
		if err != nil && !errors.Is(err, ErrNotFound) {
			lastErr = err
			continue
		}
		if latest != nil {
			prevHash = latest.Hash
		}

		event := AuditEvent{
			EventID:       uuid.NewString(),
			UserKey:       in.UserKey,
			TenantID:      in.TenantID,
			Timestamp:     now,
			Actor:         in.Actor,
			Action:        in.Action,
			Reason:        in.Reason,
			PrevHash:      prevHash,
			CorrelationID: in.CorrelationID,
		}
		hash, err := ComputeHash(event)
		if err != nil {
			lastErr = err
			continue
		}
		event.Hash = hash

		if err := r.store.AppendEvent(ctx, event, prevHash); err != nil {
			lastErr = err
			if errors.Is(err, ErrPrevHashMismatch) {
				slog.Warn("audit_chain_cas_retry",
					"user_key", in.UserKey,
					"attempt", attempt,
				)
				continue
			}
			continue
		}
		return &event, nil
	}

	return nil, &AuditChainError{UserKey: in.UserKey, Attempts: r.maxRetries, Err: lastErr}
}
