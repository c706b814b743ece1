// Package audit implements the hash-chained, append-only user audit log
// (C12) and the best-effort decision-audit log for LLM pipeline outcomes.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Actor is who caused an AuditEvent.
type Actor string

const (
	ActorSystem Actor = "SYSTEM"
	ActorHuman  Actor = "HUMAN"
)

// Action is a member of the closed audit-action taxonomy.
type Action string

const (
	ActionUserContact     Action = "USER_CONTACT"
	ActionExportGenerated Action = "EXPORT_GENERATED"
	ActionProfileUpdated  Action = "PROFILE_UPDATED"
	ActionNoteAdded       Action = "NOTE_ADDED"
)

var validActions = map[Action]bool{
	ActionUserContact:     true,
	ActionExportGenerated: true,
	ActionProfileUpdated:  true,
	ActionNoteAdded:       true,
}

// IsValidAction reports whether a is a member of the closed taxonomy.
func IsValidAction(a Action) bool {
	return validActions[a]
}

// AuditEvent is one hash-chained record in a user's audit trail.
type AuditEvent struct {
	EventID       string    `json:"event_id"`
	UserKey       string    `json:"user_key"`
	TenantID      string    `json:"tenant_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Actor         Actor     `json:"actor"`
	Action        Action    `json:"action"`
	Reason        string    `json:"reason"`
	PrevHash      string    `json:"prev_hash,omitempty"`
	Hash          string    `json:"hash"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// auditEventBody is AuditEvent minus Hash, marshaled in a fixed field order
// so the same logical event always produces the same canonical JSON.
type auditEventBody struct {
	EventID       string    `json:"event_id"`
	UserKey       string    `json:"user_key"`
	TenantID      string    `json:"tenant_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Actor         Actor     `json:"actor"`
	Action        Action    `json:"action"`
	Reason        string    `json:"reason"`
	PrevHash      string    `json:"prev_hash,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ComputeHash returns SHA256(canonical-json(event-without-hash) || prev-hash).
func ComputeHash(e AuditEvent) (string, error) {
	body := auditEventBody{
		EventID:       e.EventID,
		UserKey:       e.UserKey,
		TenantID:      e.TenantID,
		Timestamp:     e.Timestamp,
		Actor:         e.Actor,
		Action:        e.Action,
		Reason:        e.Reason,
		PrevHash:      e.PrevHash,
		CorrelationID: e.CorrelationID,
	}
	canonical, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append(canonical, []byte(e.PrevHash)...))
	return hex.EncodeToString(sum[:]), nil
}

// DecisionAuditRecord is one row per pipeline execution, snapshotting every
// advisor's output alongside the final decision.
type DecisionAuditRecord struct {
	CorrelationID         string    `json:"correlation_id"`
	SessionID             string    `json:"session_id"`
	FinalState            string    `json:"final_state"`
	ApplyState            bool      `json:"apply_state"`
	SelectedResponseIndex int       `json:"selected_response_index"`
	MessageKind           string    `json:"message_kind"`
	OverallConfidence     float64   `json:"overall_confidence"`
	Reason                string    `json:"reason"`
	StateSelectorOutput   any       `json:"state_selector_output,omitempty"`
	ResponseGeneratorOut  any       `json:"response_generator_output,omitempty"`
	MasterDecisionOutput  any       `json:"master_decision_output,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}
