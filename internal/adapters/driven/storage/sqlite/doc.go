// Package sqlite provides a single-file SQLite implementation of the chat,
// message, vote, version and scheduler stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. All stores share one database:
//
//   - ChatStore: chats and their tombstones
//   - MessageStore: messages indexed by chat and creation time
//   - VoteStore: one vote per message
//   - VersionStore: document versions keyed by (document, created_at)
//   - SchedulerStore: sweep task state and history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files,
// and applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.chatstate/data/chatstate.db
//
// # Thread Safety
//
// All operations are thread-safe. Multi-row writes run in a transaction, and
// SQLite in WAL mode serialises writers, which makes the version ordering check
// atomic with its insert.
package sqlite
