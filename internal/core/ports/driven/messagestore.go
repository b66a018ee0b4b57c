package driven

import (
	"context"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// MessageStore persists messages.
// Indexes: by message id (unique), by chat id ordered by CreatedAt.
type MessageStore interface {
	// AppendMessages inserts every message whose ID is not already stored.
	// Messages repeated within the batch are inserted once.
	// Returns the inserted subset in input order. The batch is applied atomically.
	AppendMessages(ctx context.Context, msgs []domain.Message) ([]domain.Message, error)

	// GetMessage retrieves a message by ID.
	// Returns domain.ErrNotFound if absent.
	GetMessage(ctx context.Context, id string) (*domain.Message, error)

	// ListMessagesByChat returns a chat's messages ordered by CreatedAt, then ID.
	ListMessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error)

	// DeleteMessagesFrom removes every message in the chat with CreatedAt >= from.
	// Returns the deleted messages in order.
	DeleteMessagesFrom(ctx context.Context, chatID string, from int64) ([]domain.Message, error)

	// DeleteMessagesByChat removes every message in the chat.
	// Returns the number deleted; zero when nothing remains.
	DeleteMessagesByChat(ctx context.Context, chatID string) (int, error)

	// ListChatIDs returns the distinct chat ids referenced by stored messages.
	ListChatIDs(ctx context.Context) ([]string, error)
}
