package dedupe

import (
	"context"
	"errors"
	"time"

	"github.com/ottohq/otto-gateway/pkg/docstore"
)

// Collection is the docstore collection dedupe entries live in.
const Collection = "dedupe"

// PostgresStore backs Store with the shared document store, used as the
// fallback backend when Redis is unavailable (spec §4.3).
type PostgresStore struct {
	docs docstore.Store
}

// NewPostgresStore wraps a docstore.Store for dedupe use.
func NewPostgresStore(docs docstore.Store) *PostgresStore {
	return &PostgresStore{docs: docs}
}

func (p *PostgresStore) MarkIfNew(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	expiresAt := time.Now().Add(ttl)
	err := p.docs.PutIfAbsent(ctx, docstore.Document{
		Collection: Collection,
		ID:         key,
		Data:       []byte(`{"marked":true}`),
		ExpiresAt:  &expiresAt,
	})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, &ErrBackend{Backend: "postgres", Err: err}
	}
	return true, nil
}

func (p *PostgresStore) IsDuplicate(ctx context.Context, key string) (bool, error) {
	_, err := p.docs.Get(ctx, Collection, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &ErrBackend{Backend: "postgres", Err: err}
	}
	return true, nil
}

func (p *PostgresStore) Clear(ctx context.Context, key string) error {
	if err := p.docs.Delete(ctx, Collection, key); err != nil {
		return &ErrBackend{Backend: "postgres", Err: err}
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
