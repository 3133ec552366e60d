// Package database provides the SQLite connection behind the round history.
//
// This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Schema migrations read from an fs.FS (normally the embedded
//     migrations package)
//   - Health checks for the inspection API
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.Source()); err != nil {
//	    return err
//	}
//
// Migrations are additive: every file pair is YYYYMMDD_HHMMSS_name.up.sql and
// .down.sql, and each one runs in its own transaction.
package database
