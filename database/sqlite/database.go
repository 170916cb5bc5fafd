// Package sqlite stores local bucket metadata in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cloudpad/cloudpad"

	_ "modernc.org/sqlite" // SQLite driver
)

// DB provides SQLite database operations.
type DB struct {
	db     *sql.DB
	tables cloudpad.Tables
}

// Connect opens a SQLite database. The pool is limited to one connection so
// that ":memory:" databases are shared and writers never contend.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables cloudpad.Tables) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	return &DB{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the metadata table and its indexes.
func (d *DB) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.db, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *DB) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// GetRepo returns the MetaDataRepo for database operations.
func (d *DB) GetRepo() cloudpad.MetaDataRepo {
	return &repo{db: d.db, tableName: quoteIdentifier(d.tables.MetaData)}
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}
