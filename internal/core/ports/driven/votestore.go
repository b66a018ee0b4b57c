package driven

import (
	"context"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// VoteStore persists message votes.
// Indexes: by message id (unique), by chat id.
type VoteStore interface {
	// UpsertVote inserts a vote, or overwrites IsUpvoted if the message already has one.
	UpsertVote(ctx context.Context, vote *domain.Vote) error

	// GetVote retrieves the vote for a message.
	// Returns domain.ErrNotFound if the message has no vote.
	GetVote(ctx context.Context, messageID string) (*domain.Vote, error)

	// ListVotesByChat returns every vote in a chat, in no particular order.
	ListVotesByChat(ctx context.Context, chatID string) ([]domain.Vote, error)

	// DeleteVotesByMessages removes the votes of the given messages.
	// Returns the number deleted. Messages without a vote are skipped.
	DeleteVotesByMessages(ctx context.Context, chatID string, messageIDs []string) (int, error)

	// DeleteVotesByChat removes every vote in a chat and returns the number deleted.
	DeleteVotesByChat(ctx context.Context, chatID string) (int, error)

	// ListChatIDs returns the distinct chat ids referenced by stored votes.
	ListChatIDs(ctx context.Context) ([]string, error)
}
