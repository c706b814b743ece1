package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ottohq/otto-gateway/pkg/docstore"
)

// UserAuditCollection is the docstore collection holding one document per
// user key, each document body being the full ordered event chain.
const UserAuditCollection = "audit_user_events"

// DecisionAuditCollection is the docstore collection holding one document
// per decision audit record.
const DecisionAuditCollection = "audit_decisions"

// PostgresUserAuditStore implements UserAuditStore on top of a generic
// docstore.Store, storing each user's full chain as a single JSON document
// keyed by user key, with docstore's version column doubling as the
// chain's optimistic-concurrency guard.
type PostgresUserAuditStore struct {
	docs docstore.Store
}

// NewPostgresUserAuditStore wraps docs for the audit user-event chain.
func NewPostgresUserAuditStore(docs docstore.Store) *PostgresUserAuditStore {
	return &PostgresUserAuditStore{docs: docs}
}

func (s *PostgresUserAuditStore) loadChain(ctx context.Context, userKey string) ([]AuditEvent, int64, error) {
	doc, err := s.docs.Get(ctx, UserAuditCollection, userKey)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	var chain []AuditEvent
	if err := json.Unmarshal(doc.Data, &chain); err != nil {
		return nil, 0, fmt.Errorf("audit: decode chain for %q: %w", userKey, err)
	}
	return chain, doc.Version, nil
}

func (s *PostgresUserAuditStore) GetLatestEvent(ctx context.Context, userKey string) (*AuditEvent, error) {
	chain, _, err := s.loadChain(ctx, userKey)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, ErrNotFound
	}
	latest := chain[len(chain)-1]
	return &latest, nil
}

func (s *PostgresUserAuditStore) ListEvents(ctx context.Context, userKey string, limit int) ([]AuditEvent, error) {
	chain, _, err := s.loadChain(ctx, userKey)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(chain) {
		limit = len(chain)
	}
	return chain[len(chain)-limit:], nil
}

func (s *PostgresUserAuditStore) AppendEvent(ctx context.Context, event AuditEvent, expectedPrevHash string) error {
	chain, version, err := s.loadChain(ctx, event.UserKey)
	if err != nil {
		return err
	}

	currentHead := ""
	if len(chain) > 0 {
		currentHead = chain[len(chain)-1].Hash
	}
	if currentHead != expectedPrevHash {
		return ErrPrevHashMismatch
	}

	chain = append(chain, event)
	data, err := json.Marshal(chain)
	if err != nil {
		return fmt.Errorf("audit: encode chain for %q: %w", event.UserKey, err)
	}
	doc := docstore.Document{
		Collection: UserAuditCollection,
		ID:         event.UserKey,
		Data:       data,
	}

	if version == 0 && len(chain) == 1 {
		if err := s.docs.PutIfAbsent(ctx, doc); err != nil {
			if errors.Is(err, docstore.ErrAlreadyExists) {
				return ErrPrevHashMismatch
			}
			return err
		}
		return nil
	}

	if err := s.docs.CompareAndSwap(ctx, doc, version); err != nil {
		if errors.Is(err, docstore.ErrVersionConflict) || errors.Is(err, docstore.ErrNotFound) {
			return ErrPrevHashMismatch
		}
		return err
	}
	return nil
}

// PostgresDecisionAuditStore implements DecisionAuditStore on top of a
// generic docstore.Store, one document per decision record.
type PostgresDecisionAuditStore struct {
	docs docstore.Store
}

// NewPostgresDecisionAuditStore wraps docs for decision audit records.
func NewPostgresDecisionAuditStore(docs docstore.Store) *PostgresDecisionAuditStore {
	return &PostgresDecisionAuditStore{docs: docs}
}

func (s *PostgresDecisionAuditStore) Append(ctx context.Context, record DecisionAuditRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("audit: encode decision record: %w", err)
	}

	id := record.CorrelationID
	if id == "" {
		sum := sha256.Sum256(data)
		id = hex.EncodeToString(sum[:])
	}

	return s.docs.Put(ctx, docstore.Document{
		Collection: DecisionAuditCollection,
		ID:         id,
		Data:       data,
	})
}
