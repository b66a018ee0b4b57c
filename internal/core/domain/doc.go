// Package domain defines the core entities of the conversation-state engine.
//
// This package is the innermost layer of the hexagonal architecture.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chat: a conversation owned by one user
//   - Message: an entry in a chat, ordered by CreatedAt
//   - Vote: feedback on a single message
//   - Version: one snapshot of a logical document
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
