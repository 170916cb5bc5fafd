package database

import (
	"context"
	"fmt"

	"github.com/cloudpad/cloudpad"
	"github.com/cloudpad/cloudpad/database/postgres"
	"github.com/cloudpad/cloudpad/database/sqlite"
)

// Database is a metadata backend for the local bucket.
type Database interface {
	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
	// Migrate creates the metadata table and its indexes if they are missing.
	Migrate(ctx context.Context) error
	// Validate checks that the metadata table has the expected columns.
	Validate(ctx context.Context) error
	// GetRepo returns the MetaDataRepo backed by this database.
	GetRepo() cloudpad.MetaDataRepo
	// Close releases the connection.
	Close() error
}

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string
	// DSN is the data source name (connection string)
	DSN string
	// Tables holds the table names
	Tables cloudpad.Tables
}

// Connect opens the configured backend. It does not migrate or validate;
// callers decide when to run Migrate and Validate.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	if err := cfg.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	switch cfg.Type {
	case "sqlite":
		db, err := sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.DSN, cfg.Tables)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("connect database: unsupported database type: %q", cfg.Type)
	}
}
