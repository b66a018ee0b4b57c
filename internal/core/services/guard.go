package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// Guard checks that the acting identity may read or modify a chat or document.
// It only compares ids; authenticating the identity is the caller's job.
type Guard struct {
	chats    driven.ChatStore
	versions driven.VersionStore
}

// NewGuard creates a guard over the chat and version stores.
func NewGuard(chats driven.ChatStore, versions driven.VersionStore) *Guard {
	return &Guard{chats: chats, versions: versions}
}

// actor returns the acting user id, or domain.ErrUnauthorized if there is none.
func actor(ctx context.Context) (string, error) {
	id, ok := domain.IdentityFromContext(ctx)
	if !ok {
		return "", domain.ErrUnauthorized
	}
	return id.UserID, nil
}

// viewer returns the acting user id, or "" for anonymous callers.
func viewer(ctx context.Context) string {
	id, _ := domain.IdentityFromContext(ctx)
	return id.UserID
}

// liveChat loads a chat, hiding tombstones.
func (g *Guard) liveChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	if chatID == "" {
		return nil, domain.ErrInvalidInput
	}
	chat, err := g.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.IsDeleted() {
		return nil, domain.ErrNotFound
	}
	return chat, nil
}

// OwnedChat returns the chat if the acting identity owns it.
func (g *Guard) OwnedChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	chat, err := g.liveChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsOwnedBy(userID) {
		return nil, domain.ErrUnauthorized
	}
	return chat, nil
}

// ReadableChat returns the chat if it is public or owned by the acting identity.
func (g *Guard) ReadableChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	chat, err := g.liveChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsReadableBy(viewer(ctx)) {
		return nil, domain.ErrUnauthorized
	}
	return chat, nil
}

// OwnedDocument returns the latest version of a document owned by the acting identity.
func (g *Guard) OwnedDocument(ctx context.Context, documentID string) (*domain.Version, error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := g.versions.LatestVersion(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if latest.OwnerID != userID {
		return nil, domain.ErrUnauthorized
	}
	return latest, nil
}

// ReadableDocument returns the latest version of a document the acting
// identity may read: its own documents, and documents scoped to a public chat.
func (g *Guard) ReadableDocument(ctx context.Context, documentID string) (*domain.Version, error) {
	latest, err := g.versions.LatestVersion(ctx, documentID)
	if err != nil {
		return nil, err
	}
	userID := viewer(ctx)
	if userID != "" && latest.OwnerID == userID {
		return latest, nil
	}
	if latest.ChatID != "" {
		chat, err := g.liveChat(ctx, latest.ChatID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if err == nil && chat.Visibility == domain.VisibilityPublic {
			return latest, nil
		}
	}
	return nil, domain.ErrUnauthorized
}
