package audit

import (
	"context"
	"log/slog"
)

// RecordDecision appends record to store, logging and swallowing any error
// rather than propagating it: the decision audit trail is best-effort and
// must never fail or delay the pipeline it observes.
func RecordDecision(ctx context.Context, store DecisionAuditStore, record DecisionAuditRecord) {
	if store == nil {
		return
	}
	if err := store.Append(ctx, record); err != nil {
		slog.Error("decision_audit_append_failed",
			"correlation_id", record.CorrelationID,
			"session_id", record.SessionID,
			"error", err,
		)
	}
}
