// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ChatStore: chat records, indexed by chat id and by owner
//   - MessageStore: messages, indexed by message id and by chat id
//   - VoteStore: votes, unique by message id and indexed by chat id
//   - VersionStore: document versions, indexed by document id and by chat scope
//   - Clock: monotonic millisecond timestamps
//   - IDGenerator: globally unique message ids
//
// # Optional Interfaces
//
//   - SchedulerStore: sweep task state and run history. Without it the
//     scheduler does not run.
//   - ConfigStore: application configuration.
//
// Every lookup a service performs is one of the indexes named above. Stores
// never filter by arbitrary fields, so each index is a requirement on every
// adapter.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
