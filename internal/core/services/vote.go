package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
)

// Ensure VoteService implements the interface.
var _ driving.VoteService = (*VoteService)(nil)

// VoteService records feedback on messages.
type VoteService struct {
	votes    driven.VoteStore
	messages driven.MessageStore
	guard    *Guard
}

// NewVoteService creates a new vote service.
func NewVoteService(votes driven.VoteStore, messages driven.MessageStore, guard *Guard) *VoteService {
	return &VoteService{
		votes:    votes,
		messages: messages,
		guard:    guard,
	}
}

// Vote sets the single vote of a message. Concurrent votes resolve
// last-write-wins in the store.
func (s *VoteService) Vote(
	ctx context.Context,
	chatID, messageID string,
	voteType domain.VoteType,
) (*domain.Vote, error) {
	if s.votes == nil || s.messages == nil {
		return nil, domain.ErrNotImplemented
	}
	if !voteType.IsValid() {
		return nil, fmt.Errorf("vote type %q: %w", voteType, domain.ErrInvalidInput)
	}
	if _, err := s.guard.OwnedChat(ctx, chatID); err != nil {
		return nil, err
	}
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ChatID != chatID {
		return nil, fmt.Errorf("message %s in chat %s: %w", messageID, chatID, domain.ErrNotFound)
	}

	vote := &domain.Vote{
		ChatID:    chatID,
		MessageID: messageID,
		IsUpvoted: voteType.IsUpvote(),
	}
	if err := s.votes.UpsertVote(ctx, vote); err != nil {
		return nil, err
	}
	return vote, nil
}

// List returns the votes of a chat.
func (s *VoteService) List(ctx context.Context, chatID string) ([]domain.Vote, error) {
	if s.votes == nil {
		return nil, domain.ErrNotImplemented
	}
	if _, err := s.guard.ReadableChat(ctx, chatID); err != nil {
		return nil, err
	}
	return s.votes.ListVotesByChat(ctx, chatID)
}
