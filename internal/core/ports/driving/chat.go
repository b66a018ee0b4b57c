package driving

import (
	"context"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// ChatService manages chat records.
type ChatService interface {
	// Create saves a new chat owned by ownerID, who must be the acting identity.
	// Returns domain.ErrConflict if the chat id is taken.
	Create(ctx context.Context, chatID, ownerID, title string, visibility domain.Visibility) (*domain.Chat, error)

	// Get retrieves a chat the acting identity may read.
	Get(ctx context.Context, chatID string) (*domain.Chat, error)

	// List returns an owner's chats, newest first.
	List(ctx context.Context, ownerID string) ([]domain.Chat, error)

	// SetVisibility changes a chat's visibility. Owner only.
	SetVisibility(ctx context.Context, chatID string, visibility domain.Visibility) (*domain.Chat, error)
}
