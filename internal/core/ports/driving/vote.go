package driving

import (
	"context"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

// VoteService records feedback on messages.
type VoteService interface {
	// Vote sets the single vote of a message, overwriting any earlier direction.
	Vote(ctx context.Context, chatID, messageID string, voteType domain.VoteType) (*domain.Vote, error)

	// List returns the votes of a chat.
	List(ctx context.Context, chatID string) ([]domain.Vote, error)
}
