// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Every mutation passes through the Guard before touching a store, and
// every multi-store deletion goes through the Coordinator so that no vote
// outlives its message and no message outlives its chat.
//
// Services are pure Go with no external dependencies beyond the
// sweeper's errgroup fan-out.
package services
