// Package storage provides SQLite-backed persistence for the session
// registry, the per-session file records, and the durable tier of the
// embedding cache.
//
// Two drivers are supported through build tags. The default build uses
// modernc.org/sqlite, a pure Go driver that needs no C toolchain.
// Building with -tags sqlite_cgo switches to github.com/mattn/go-sqlite3
// for faster blob handling. Both run with WAL journaling, foreign keys
// on, and a single writer connection.
//
// Schema changes go through versioned migrations in migrations.go;
// ApplyMigrations runs automatically when a store is opened.
package storage
