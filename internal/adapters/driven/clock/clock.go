// Package clock provides the system time and id sources used by the services.
package clock

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// Ensure the adapters implement the interfaces.
var (
	_ driven.Clock       = (*Monotonic)(nil)
	_ driven.IDGenerator = (*UUIDGenerator)(nil)
)

// Monotonic reports wall-clock Unix milliseconds that never repeat or go
// backwards within a process. Two messages appended in the same millisecond
// still get distinct, ordered timestamps.
type Monotonic struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewMonotonic creates a clock backed by time.Now.
func NewMonotonic() *Monotonic {
	return &Monotonic{now: time.Now}
}

// Now returns the current time in Unix milliseconds.
func (c *Monotonic) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

// UUIDGenerator issues random (version 4) UUIDs.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a UUID generator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID returns a new UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
