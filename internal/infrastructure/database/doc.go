// Package database provides the SQLite store behind calibration and profile
// persistence.
//
// The schema is managed by embedded, versioned migrations
// (YYYYMMDD_HHMMSS_name.up.sql with a matching .down.sql). The migrations
// package registers them through MigrationsFS at init time.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
