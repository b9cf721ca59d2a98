// Package sqlite stores session values in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joonyo2/yugwan/internal/session"
	"github.com/joonyo2/yugwan/internal/session/sqlite/migrations"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// DefaultNamespace scopes rows when no namespace is given
const DefaultNamespace = "default"

// Backend is a session.Backend over SQLite. Several namespaces can share one
// database without seeing each other's values.
type Backend struct {
	db        *sql.DB
	namespace string
}

var _ session.Backend = (*Backend)(nil)

// NewBackend opens the database at dsn and applies pending migrations
func NewBackend(dsn, namespace string) (*Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open session database")
	}
	// one writer keeps SQLite from reporting SQLITE_BUSY under concurrent writes
	db.SetMaxOpenConns(1)

	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}

	b := &Backend{db: db, namespace: namespace}
	if err := b.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to migrate session database")
	}
	return b, nil
}

// Close closes the database
func (b *Backend) Close() error { return b.db.Close() }

// Ping verifies the database connection is still alive.
func (b *Backend) Ping(ctx context.Context) error {
	return errors.Wrap(b.db.PingContext(ctx), "failed to ping session database")
}

// Get returns the value stored under key
func (b *Backend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE namespace = ? AND key = ?`,
		b.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read %s", key)
	}
	return value, true, nil
}

// Set stores value under key
func (b *Backend) Set(ctx context.Context, key, value string) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO session_values (namespace, key, value, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.namespace, key, value,
	)
	return errors.Wrapf(err, "failed to write %s", key)
}

// Delete removes keys in a single transaction
func (b *Backend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_values WHERE namespace = ? AND key = ?`,
			b.namespace, key,
		); err != nil {
			return errors.Wrapf(err, "failed to delete %s", key)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit delete")
}

// applyMigrations brings the schema up to date from the embedded migration files.
func (b *Backend) applyMigrations() error {
	driver, err := migratesqlite.WithInstance(b.db, &migratesqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to create migration driver")
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return errors.Wrap(err, "failed to load migrations")
	}

	instance, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "failed to create migrator")
	}

	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "failed to apply migrations")
	}
	return nil
}
