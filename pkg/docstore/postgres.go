package docstore

import (
	"context"
	stdsql "database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

//go:embed migrations
var migrationsFS embed.FS

// PostgresStore is a Store backed by a single "documents" table, opened
// through the pgx stdlib driver and kept current via embedded golang-migrate
// migrations applied on startup.
type PostgresStore struct {
	db *stdsql.DB
}

// NewPostgresStore opens a connection pool, pings it, and applies any
// pending migrations before returning.
func NewPostgresStore(ctx context.Context, cfg Config) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("docstore: migrate: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an already-open *sql.DB, skipping migrations.
// Used by tests that run migrations once against a shared testcontainer.
func NewPostgresStoreFromDB(db *stdsql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *stdsql.DB, dbName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, dbName, driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Do not call m.Close(): that would also close db via the database
	// driver, breaking the shared *sql.DB handed back to the caller.
	return sourceDriver.Close()
}

// Close closes the underlying connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// DB exposes the underlying pool for health checks.
func (p *PostgresStore) DB() *stdsql.DB {
	return p.db
}

func (p *PostgresStore) Put(ctx context.Context, doc Document) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, version, expires_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, now())
		ON CONFLICT (collection, id) DO UPDATE SET
			data = EXCLUDED.data,
			version = documents.version + 1,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
	`, doc.Collection, doc.ID, doc.Data, doc.ExpiresAt)
	if err != nil {
		return fmt.Errorf("docstore: put: %w", err)
	}
	return nil
}

func (p *PostgresStore) PutIfAbsent(ctx context.Context, doc Document) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Reap-on-read: an expired row does not block a fresh insert.
	res, err := tx.ExecContext(ctx, `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2 AND expires_at IS NOT NULL AND expires_at <= now()
	`, doc.Collection, doc.ID)
	if err != nil {
		return fmt.Errorf("docstore: reap: %w", err)
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, version, expires_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (collection, id) DO NOTHING
	`, doc.Collection, doc.ID, doc.Data, doc.ExpiresAt)
	if err != nil {
		return fmt.Errorf("docstore: insert: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("docstore: rows affected: %w", err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return tx.Commit()
}

func (p *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var doc Document
	var expiresAt stdsql.NullTime
	doc.Collection = collection
	doc.ID = id

	err := p.db.QueryRowContext(ctx, `
		SELECT data, version, expires_at FROM documents
		WHERE collection = $1 AND id = $2
		  AND (expires_at IS NULL OR expires_at > now())
	`, collection, id).Scan(&doc.Data, &doc.Version, &expiresAt)
	if err == stdsql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("docstore: get: %w", err)
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		doc.ExpiresAt = &t
	}
	return doc, nil
}

func (p *PostgresStore) CompareAndSwap(ctx context.Context, doc Document, expectedVersion int64) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE documents SET
			data = $1,
			version = version + 1,
			expires_at = $2,
			updated_at = now()
		WHERE collection = $3 AND id = $4 AND version = $5
	`, doc.Data, doc.ExpiresAt, doc.Collection, doc.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("docstore: compare-and-swap: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("docstore: rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Distinguish "nothing there" from "version moved on" for callers that
	// retry a CAS loop only on the latter.
	if _, err := p.Get(ctx, doc.Collection, doc.ID); err == ErrNotFound {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (p *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("docstore: delete: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
