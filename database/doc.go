// Package database connects the local bucket to its metadata backend.
//
// Two backends are supported:
//
//   - PostgreSQL through a pgx connection pool
//   - SQLite through modernc.org/sqlite, suitable for single-node deployments
//
// # Usage
//
//	cfg := database.Config{
//	    Type:   "sqlite",
//	    DSN:    "cloudpad.db",
//	    Tables: cloudpad.Tables{MetaData: "cloudpad_metadata"},
//	}
//
//	db, err := database.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//	if err := db.Validate(ctx); err != nil {
//	    return err
//	}
//
//	repo := db.GetRepo()
//
// Table names come from configuration and are interpolated into SQL, so
// Connect refuses names that do not pass cloudpad.IsValidTableName.
package database
