package driving

import (
	"context"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// MessageService manages chat messages.
type MessageService interface {
	// Append stores every message whose id is not already present and returns
	// the inserted subset in input order. Retrying the same batch inserts nothing.
	Append(ctx context.Context, msgs []domain.Message) ([]domain.Message, error)

	// Get retrieves a single message from a chat the acting identity may read.
	Get(ctx context.Context, messageID string) (*domain.Message, error)

	// List returns a chat's messages in ascending CreatedAt order.
	List(ctx context.Context, chatID string) ([]domain.Message, error)

	// DeleteFrom removes every message in the chat with CreatedAt >= from.
	// Votes are left alone; use Coordinator.TruncateTrailing to remove both.
	DeleteFrom(ctx context.Context, chatID string, from int64) ([]domain.Message, error)
}
