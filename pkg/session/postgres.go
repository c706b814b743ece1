package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/ottohq/otto-gateway/pkg/docstore"
)

// Collection is the docstore collection sessions live in.
const Collection = "session"

// PostgresStore backs Store with the shared document store, used as the
// fallback backend when Redis is unavailable.
type PostgresStore struct {
	docs docstore.Store
}

// NewPostgresStore wraps a docstore.Store for session use.
func NewPostgresStore(docs docstore.Store) *PostgresStore {
	return &PostgresStore{docs: docs}
}

func (p *PostgresStore) Load(ctx context.Context, id string) (*Session, error) {
	doc, err := p.docs.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &ErrBackend{Backend: "postgres", Err: err}
	}
	var s Session
	if err := json.Unmarshal(doc.Data, &s); err != nil {
		return nil, &ErrBackend{Backend: "postgres", Err: err}
	}
	s.Version = doc.Version
	return &s, nil
}

func (p *PostgresStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	if normalizeOutcomeForSave(s) {
		slog.Error("session_outcome_normalized", "session_id", s.ID, "outcome", string(*s.Outcome))
	}

	data, err := json.Marshal(s)
	if err != nil {
		return &ErrBackend{Backend: "postgres", Err: err}
	}
	expiresAt := time.Now().Add(ttl)
	if err := p.docs.Put(ctx, docstore.Document{
		Collection: Collection,
		ID:         s.ID,
		Data:       data,
		ExpiresAt:  &expiresAt,
	}); err != nil {
		return &ErrBackend{Backend: "postgres", Err: err}
	}
	s.Version++
	return nil
}

func (p *PostgresStore) CompareAndSwapSave(ctx context.Context, s *Session, ttl time.Duration) error {
	if normalizeOutcomeForSave(s) {
		slog.Error("session_outcome_normalized", "session_id", s.ID, "outcome", string(*s.Outcome))
	}

	data, err := json.Marshal(s)
	if err != nil {
		return &ErrBackend{Backend: "postgres", Err: err}
	}
	expiresAt := time.Now().Add(ttl)

	err = p.docs.CompareAndSwap(ctx, docstore.Document{
		Collection: Collection,
		ID:         s.ID,
		Data:       data,
		ExpiresAt:  &expiresAt,
	}, s.Version)

	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, docstore.ErrVersionConflict):
		return ErrConflict
	case err != nil:
		return &ErrBackend{Backend: "postgres", Err: err}
	}

	s.Version++
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	existed, err := p.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if err := p.docs.Delete(ctx, Collection, id); err != nil {
		return false, &ErrBackend{Backend: "postgres", Err: err}
	}
	return existed, nil
}

func (p *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := p.docs.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &ErrBackend{Backend: "postgres", Err: err}
	}
	return true, nil
}

var _ Store = (*PostgresStore)(nil)
