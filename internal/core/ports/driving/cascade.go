package driving

import (
	"context"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// Coordinator runs deletions that span several stores.
type Coordinator interface {
	// DeleteChat deletes a chat with its votes, messages and scoped versions.
	// Safe to retry until it succeeds.
	DeleteChat(ctx context.Context, chatID string) error

	// TruncateTrailing deletes a message, every later message in its chat,
	// and their votes.
	TruncateTrailing(ctx context.Context, messageID string) (*domain.TruncateResult, error)
}

// Sweeper reclaims records left behind by interleaved appends and deletes.
type Sweeper interface {
	// SweepOrphans purges messages, votes and scoped versions whose chat no longer exists.
	SweepOrphans(ctx context.Context) (domain.SweepResult, error)

	// SweepVotes removes votes whose message no longer exists.
	SweepVotes(ctx context.Context) (domain.SweepResult, error)
}
