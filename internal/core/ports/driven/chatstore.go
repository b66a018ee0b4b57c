package driven

import (
	"context"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// ChatStore persists chat records.
// Indexes: by chat id (unique), by owner id ordered by CreatedAt.
//
// Deleting a chat is two steps. MarkDeleted turns the record into a tombstone
// that GetChat still returns (with DeletedAt set) so an interrupted cascade can
// be retried. PurgeDeleted later removes old tombstones for good.
type ChatStore interface {
	// CreateChat inserts a new chat.
	// Returns domain.ErrConflict if a chat with the same ID exists.
	CreateChat(ctx context.Context, chat *domain.Chat) error

	// GetChat retrieves a chat or tombstone by ID.
	// Returns domain.ErrNotFound if absent.
	GetChat(ctx context.Context, id string) (*domain.Chat, error)

	// ListChatsByOwner returns an owner's live chats, newest first.
	ListChatsByOwner(ctx context.Context, ownerID string) ([]domain.Chat, error)

	// SetVisibility updates a chat's visibility and returns the updated chat.
	// Returns domain.ErrNotFound if absent or deleted.
	SetVisibility(ctx context.Context, id string, visibility domain.Visibility) (*domain.Chat, error)

	// MarkDeleted records deletedAt on a chat. An existing tombstone keeps its
	// original DeletedAt. Returns domain.ErrNotFound if absent.
	MarkDeleted(ctx context.Context, id string, deletedAt int64) error

	// PurgeDeleted removes tombstones with DeletedAt < before.
	// Returns the number removed.
	PurgeDeleted(ctx context.Context, before int64) (int, error)
}
