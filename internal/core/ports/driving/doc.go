// Package driving defines interfaces that external actors (HTTP, MCP, CLI) use
// to interact with core services. These are the "driving" ports in hexagonal
// architecture terminology - they drive the application.
//
// Every method reads the acting identity from its context (see
// domain.WithIdentity) and returns domain.ErrUnauthorized when the
// identity may not act on the target.
//
// Implementations of these interfaces live in internal/core/services.
package driving
