// Package sqlite provides a SQLite-based implementation of driven.ProgressStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. Each region's progress document is stored as one row, replaced in a
// single statement, so a crash never leaves a partially written checkpoint.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.vivenu-sync/data/progress.db
package sqlite
