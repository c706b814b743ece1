package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUserAuditStore_GetLatestEventNotFound(t *testing.T) {
	store := NewMemoryUserAuditStore()
	_, err := store.GetLatestEvent(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserAuditStore_AppendRejectsStalePrevHash(t *testing.T) {
	store := NewMemoryUserAuditStore()
	ctx := context.Background()

	require.NoError(t, store.AppendEvent(ctx, AuditEvent{UserKey: "u1", Hash: "h1"}, ""))

	err := store.AppendEvent(ctx, AuditEvent{UserKey: "u1", Hash: "h2"}, "wrong-prev")
	assert.ErrorIs(t, err, ErrPrevHashMismatch)
}

func TestMemoryUserAuditStore_ListEventsRespectsLimit(t *testing.T) {
	store := NewMemoryUserAuditStore()
	ctx := context.Background()

	require.NoError(t, store.AppendEvent(ctx, AuditEvent{UserKey: "u1", Hash: "h1"}, ""))
	require.NoError(t, store.AppendEvent(ctx, AuditEvent{UserKey: "u1", Hash: "h2"}, "h1"))
	require.NoError(t, store.AppendEvent(ctx, AuditEvent{UserKey: "u1", Hash: "h3"}, "h2"))

	all, err := store.ListEvents(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := store.ListEvents(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "h2", limited[0].Hash)
	assert.Equal(t, "h3", limited[1].Hash)
}

func TestMemoryDecisionAuditStore_Append(t *testing.T) {
	store := NewMemoryDecisionAuditStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, DecisionAuditRecord{CorrelationID: "c1", FinalState: "Completed"}))
	require.NoError(t, store.Append(ctx, DecisionAuditRecord{CorrelationID: "c2", FinalState: "Escalating"}))

	records := store.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0].CorrelationID)
	assert.Equal(t, "c2", records[1].CorrelationID)
}

func TestRecordDecision_SwallowsNilStore(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordDecision(context.Background(), nil, DecisionAuditRecord{CorrelationID: "c1"})
	})
}

func TestRecordDecision_DelegatesToStore(t *testing.T) {
	store := NewMemoryDecisionAuditStore()
	RecordDecision(context.Background(), store, DecisionAuditRecord{CorrelationID: "c1"})
	assert.Len(t, store.Records(), 1)
}
