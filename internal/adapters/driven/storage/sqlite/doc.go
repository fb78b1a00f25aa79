// Package sqlite provides the SQLite-backed implementation of the
// session store driven port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. Each stored
// session owns its artifact, edge and failure rows; saving a session
// replaces the whole graph in one transaction, which is what lets a
// resumed scan overwrite its earlier snapshot under the same ID.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.spider/data/spider.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
