package sqlutil

import (
	"context"
	"database/sql"
)

const migrationsSchema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL DEFAULT NOW()
);
`

// Migration is a single named, forward-only schema change. Version must be
// stable and unique within a package's migrator; it is stored verbatim in
// schema_migrations so a migration is never replayed once applied.
type Migration struct {
	Version string
	Up      func(ctx context.Context, txn *sql.Tx) error
}

// Migrator applies a package's Migrations in order, skipping any whose
// Version is already recorded. It mirrors the teacher's
// roomserver/storage/postgres/deltas pattern: each storage package calls
// NewMigrator(db).AddMigrations(...).Up(ctx) once, immediately after
// creating its base schema.
type Migrator struct {
	db         *sql.DB
	migrations []Migration
}

// NewMigrator returns a Migrator bound to db. The bookkeeping table is
// created by Up, not here.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// AddMigrations appends migrations to the ordered list to be applied by Up.
func (m *Migrator) AddMigrations(migrations ...Migration) {
	m.migrations = append(m.migrations, migrations...)
}

// Up applies every migration not yet recorded in schema_migrations, each in
// its own transaction, in the order they were added.
func (m *Migrator) Up(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, migrationsSchema); err != nil {
		return err
	}
	for _, mig := range m.migrations {
		applied, err := m.isApplied(ctx, mig.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := WithTransaction(ctx, m.db, func(txn *sql.Tx) error {
			if err := mig.Up(ctx, txn); err != nil {
				return err
			}
			_, err := txn.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, mig.Version)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) isApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = $1`, version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
