// Package postgres stores local bucket metadata in PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/cloudpad/cloudpad"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides PostgreSQL database operations.
type DB struct {
	pool   *pgxpool.Pool
	tables cloudpad.Tables
}

// Connect creates a connection pool. The pool connects lazily; use Ping to
// verify connectivity. Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables cloudpad.Tables) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &DB{
		pool:   pool,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate creates the metadata table and its indexes.
func (d *DB) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.pool, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *DB) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool, d.tables)
}

// GetRepo returns the MetaDataRepo for database operations.
func (d *DB) GetRepo() cloudpad.MetaDataRepo {
	return &repo{pool: d.pool, tableName: pgx.Identifier{d.tables.MetaData}.Sanitize()}
}

// Close closes the database connection pool.
func (d *DB) Close() error {
	d.pool.Close()
	return nil
}
