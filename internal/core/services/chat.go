package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService manages chat records.
type ChatService struct {
	chats driven.ChatStore
	clock driven.Clock
	guard *Guard
}

// NewChatService creates a new chat service.
func NewChatService(chats driven.ChatStore, clock driven.Clock, guard *Guard) *ChatService {
	return &ChatService{
		chats: chats,
		clock: clock,
		guard: guard,
	}
}

// Create saves a new chat owned by the acting identity.
func (s *ChatService) Create(
	ctx context.Context,
	chatID, ownerID, title string,
	visibility domain.Visibility,
) (*domain.Chat, error) {
	if s.chats == nil {
		return nil, domain.ErrNotImplemented
	}
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if chatID == "" {
		return nil, domain.ErrInvalidInput
	}
	if ownerID == "" {
		ownerID = userID
	}
	if ownerID != userID {
		return nil, domain.ErrUnauthorized
	}
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}
	if !visibility.IsValid() {
		return nil, fmt.Errorf("visibility %q: %w", visibility, domain.ErrInvalidInput)
	}

	chat := &domain.Chat{
		ID:         chatID,
		OwnerID:    ownerID,
		Title:      title,
		Visibility: visibility,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.chats.CreateChat(ctx, chat); err != nil {
		return nil, err
	}
	logger.Debug("chat %s created by %s", chatID, ownerID)
	return chat, nil
}

// Get retrieves a chat the acting identity may read.
func (s *ChatService) Get(ctx context.Context, chatID string) (*domain.Chat, error) {
	if s.chats == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.guard.ReadableChat(ctx, chatID)
}

// List returns the owner's chats, newest first.
// Only the owner may list; an empty ownerID means the acting identity.
func (s *ChatService) List(ctx context.Context, ownerID string) ([]domain.Chat, error) {
	if s.chats == nil {
		return nil, domain.ErrNotImplemented
	}
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if ownerID == "" {
		ownerID = userID
	}
	if ownerID != userID {
		return nil, domain.ErrUnauthorized
	}
	return s.chats.ListChatsByOwner(ctx, ownerID)
}

// SetVisibility changes a chat's visibility.
func (s *ChatService) SetVisibility(
	ctx context.Context,
	chatID string,
	visibility domain.Visibility,
) (*domain.Chat, error) {
	if s.chats == nil {
		return nil, domain.ErrNotImplemented
	}
	if !visibility.IsValid() {
		return nil, fmt.Errorf("visibility %q: %w", visibility, domain.ErrInvalidInput)
	}
	if _, err := s.guard.OwnedChat(ctx, chatID); err != nil {
		return nil, err
	}
	return s.chats.SetVisibility(ctx, chatID, visibility)
}
