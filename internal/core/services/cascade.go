package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// Ensure Coordinator implements the interface.
var _ driving.Coordinator = (*Coordinator)(nil)

// Coordinator runs deletions that span the chat, message, vote and version stores.
//
// A cascade is not one transaction. Each step is idempotent, so a failed or
// interrupted cascade is completed by calling it again.
type Coordinator struct {
	chats    driven.ChatStore
	messages driven.MessageStore
	votes    driven.VoteStore
	versions driven.VersionStore
	clock    driven.Clock
	guard    *Guard
}

// NewCoordinator creates a new cascade coordinator.
func NewCoordinator(
	chats driven.ChatStore,
	messages driven.MessageStore,
	votes driven.VoteStore,
	versions driven.VersionStore,
	clock driven.Clock,
	guard *Guard,
) *Coordinator {
	return &Coordinator{
		chats:    chats,
		messages: messages,
		votes:    votes,
		versions: versions,
		clock:    clock,
		guard:    guard,
	}
}

// DeleteChat deletes a chat with its votes, messages and scoped versions.
//
// The chat is first turned into a tombstone, which hides it from every read
// and rejects new appends. The tombstone is what makes a second call
// succeed: it finds the tombstone, repeats the idempotent sub-deletes and
// returns nil. Only a chat that never existed, or whose tombstone has been
// purged, yields domain.ErrNotFound.
func (c *Coordinator) DeleteChat(ctx context.Context, chatID string) error {
	if c.chats == nil || c.messages == nil || c.votes == nil || c.versions == nil {
		return domain.ErrNotImplemented
	}
	userID, err := actor(ctx)
	if err != nil {
		return err
	}
	if chatID == "" {
		return domain.ErrInvalidInput
	}
	chat, err := c.chats.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsOwnedBy(userID) {
		return domain.ErrUnauthorized
	}

	logger.Section("Delete Chat " + chatID)
	if !chat.IsDeleted() {
		if err := c.chats.MarkDeleted(ctx, chatID, c.clock.Now()); err != nil {
			return fmt.Errorf("marking chat %s deleted: %w", chatID, err)
		}
	}
	if _, err := c.purgeContents(ctx, chatID); err != nil {
		return err
	}
	return nil
}

// purgeContents deletes everything that references a chat, votes first.
// Any failure aborts the cascade; nothing is swallowed.
func (c *Coordinator) purgeContents(ctx context.Context, chatID string) (domain.SweepResult, error) {
	var result domain.SweepResult
	var err error

	if result.Votes, err = c.votes.DeleteVotesByChat(ctx, chatID); err != nil {
		return result, fmt.Errorf("deleting votes of chat %s: %w", chatID, err)
	}
	if result.Messages, err = c.messages.DeleteMessagesByChat(ctx, chatID); err != nil {
		return result, fmt.Errorf("deleting messages of chat %s: %w", chatID, err)
	}
	if result.Versions, err = c.versions.DeleteVersionsByChat(ctx, chatID); err != nil {
		return result, fmt.Errorf("deleting versions of chat %s: %w", chatID, err)
	}

	logger.Debug("chat %s: deleted %d votes, %d messages, %d versions",
		chatID, result.Votes, result.Messages, result.Versions)
	return result, nil
}

// TruncateTrailing deletes a message, every later message in its chat and
// their votes. Votes go first so that a failure between the two steps never
// leaves a vote without its message.
func (c *Coordinator) TruncateTrailing(ctx context.Context, messageID string) (*domain.TruncateResult, error) {
	if c.messages == nil || c.votes == nil {
		return nil, domain.ErrNotImplemented
	}
	if messageID == "" {
		return nil, domain.ErrInvalidInput
	}
	target, err := c.messages.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := c.guard.OwnedChat(ctx, target.ChatID); err != nil {
		return nil, err
	}

	cut := target.CreatedAt
	current, err := c.messages.ListMessagesByChat(ctx, target.ChatID)
	if err != nil {
		return nil, err
	}
	affected := make(map[string]bool)
	var affectedIDs []string
	for _, msg := range current {
		if msg.CreatedAt >= cut {
			affected[msg.ID] = true
			affectedIDs = append(affectedIDs, msg.ID)
		}
	}

	result := &domain.TruncateResult{}
	if result.DeletedVoteCount, err = c.votes.DeleteVotesByMessages(ctx, target.ChatID, affectedIDs); err != nil {
		return nil, fmt.Errorf("deleting trailing votes: %w", err)
	}

	deleted, err := c.messages.DeleteMessagesFrom(ctx, target.ChatID, cut)
	if err != nil {
		return nil, fmt.Errorf("deleting trailing messages: %w", err)
	}
	result.DeletedMessageCount = len(deleted)

	// Messages appended after the listing were deleted too; clear their votes.
	var late []string
	for _, msg := range deleted {
		if !affected[msg.ID] {
			late = append(late, msg.ID)
		}
	}
	if len(late) > 0 {
		n, err := c.votes.DeleteVotesByMessages(ctx, target.ChatID, late)
		if err != nil {
			return nil, fmt.Errorf("deleting late trailing votes: %w", err)
		}
		result.DeletedVoteCount += n
	}

	logger.Debug("chat %s: truncated at %d, %d messages, %d votes",
		target.ChatID, cut, result.DeletedMessageCount, result.DeletedVoteCount)
	return result, nil
}
