package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// Ensure MessageService implements the interface.
var _ driving.MessageService = (*MessageService)(nil)

// MessageService manages chat messages.
type MessageService struct {
	messages driven.MessageStore
	clock    driven.Clock
	ids      driven.IDGenerator
	guard    *Guard
}

// NewMessageService creates a new message service.
func NewMessageService(
	messages driven.MessageStore,
	clock driven.Clock,
	ids driven.IDGenerator,
	guard *Guard,
) *MessageService {
	return &MessageService{
		messages: messages,
		clock:    clock,
		ids:      ids,
		guard:    guard,
	}
}

// Append stores every message whose id is not already present.
//
// Missing ids and timestamps are filled from the IDGenerator and Clock, and a
// missing author or state defaults to the acting identity and complete. An
// author other than the acting identity is rejected with ErrUnauthorized.
// Only batches that carry their own ids are safe to retry.
func (s *MessageService) Append(ctx context.Context, msgs []domain.Message) ([]domain.Message, error) {
	if s.messages == nil {
		return nil, domain.ErrNotImplemented
	}
	defer logger.DeferLogDuration("messages.append", time.Now())()

	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return []domain.Message{}, nil
	}

	prepared := make([]domain.Message, len(msgs))
	checked := make(map[string]bool)
	for i := range msgs {
		msg := msgs[i]
		if msg.ID == "" {
			msg.ID = s.ids.NewID()
		}
		if msg.CreatedAt == 0 {
			msg.CreatedAt = s.clock.Now()
		}
		if msg.AuthorID == "" {
			msg.AuthorID = userID
		}
		if msg.AuthorID != userID {
			return nil, fmt.Errorf("message %d (%s) authored by %s: %w", i, msg.ID, msg.AuthorID, domain.ErrUnauthorized)
		}
		if msg.State == "" {
			msg.State = domain.MessageStateComplete
		}
		if err := msg.Validate(); err != nil {
			return nil, fmt.Errorf("message %d (%s): %w", i, msg.ID, err)
		}
		if !checked[msg.ChatID] {
			if _, err := s.guard.OwnedChat(ctx, msg.ChatID); err != nil {
				return nil, fmt.Errorf("chat %s: %w", msg.ChatID, err)
			}
			checked[msg.ChatID] = true
		}
		prepared[i] = msg
	}

	inserted, err := s.messages.AppendMessages(ctx, prepared)
	if err != nil {
		return nil, err
	}
	logger.Debug("appended %d of %d messages", len(inserted), len(prepared))
	return inserted, nil
}

// Get retrieves a single message from a chat the acting identity may read.
func (s *MessageService) Get(ctx context.Context, messageID string) (*domain.Message, error) {
	if s.messages == nil {
		return nil, domain.ErrNotImplemented
	}
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.ReadableChat(ctx, msg.ChatID); err != nil {
		return nil, err
	}
	return msg, nil
}

// List returns a chat's messages in ascending CreatedAt order.
func (s *MessageService) List(ctx context.Context, chatID string) ([]domain.Message, error) {
	if s.messages == nil {
		return nil, domain.ErrNotImplemented
	}
	if _, err := s.guard.ReadableChat(ctx, chatID); err != nil {
		return nil, err
	}
	return s.messages.ListMessagesByChat(ctx, chatID)
}

// DeleteFrom removes every message in the chat with CreatedAt >= from.
func (s *MessageService) DeleteFrom(ctx context.Context, chatID string, from int64) ([]domain.Message, error) {
	if s.messages == nil {
		return nil, domain.ErrNotImplemented
	}
	if _, err := s.guard.OwnedChat(ctx, chatID); err != nil {
		return nil, err
	}
	return s.messages.DeleteMessagesFrom(ctx, chatID, from)
}
