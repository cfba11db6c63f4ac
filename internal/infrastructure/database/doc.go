// Package database provides SQLite connectivity for Smart Lock Core.
//
// This package manages:
//   - The database connection (single writer, optional WAL)
//   - Forward and rollback schema migrations loaded from an fs.FS
//
// The schema itself lives in the top-level migrations package, which
// registers its embedded files with MigrationsFS at init time. Tables:
//   - attendance: one row per (name, date)
//   - audit_logs: every applied lock transition
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
