package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// VoteRepository implements driven.VoteStore.
type VoteRepository struct {
	pool *pgxpool.Pool
}

var _ driven.VoteStore = (*VoteRepository)(nil)

// UpsertVote inserts the vote or flips the direction of an existing one.
func (r *VoteRepository) UpsertVote(ctx context.Context, vote *domain.Vote) error {
	defer logger.DeferLogDuration("vote.Upsert", time.Now())()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO votes (message_id, chat_id, is_upvoted)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id) DO UPDATE SET is_upvoted = EXCLUDED.is_upvoted`,
		vote.MessageID, vote.ChatID, vote.IsUpvoted)
	if err != nil {
		return fmt.Errorf("voteRepo.Upsert: %w", err)
	}
	return nil
}

// GetVote returns the vote on messageID or domain.ErrNotFound.
func (r *VoteRepository) GetVote(ctx context.Context, messageID string) (*domain.Vote, error) {
	defer logger.DeferLogDuration("vote.Get", time.Now())()

	var v domain.Vote
	err := r.pool.QueryRow(ctx,
		"SELECT chat_id, message_id, is_upvoted FROM votes WHERE message_id = $1", messageID).
		Scan(&v.ChatID, &v.MessageID, &v.IsUpvoted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("voteRepo.Get: %w", err)
	}
	return &v, nil
}

// ListVotesByChat returns the chat's votes ordered by message id.
func (r *VoteRepository) ListVotesByChat(ctx context.Context, chatID string) ([]domain.Vote, error) {
	defer logger.DeferLogDuration("vote.ListByChat", time.Now())()

	rows, err := r.pool.Query(ctx, `
		SELECT chat_id, message_id, is_upvoted FROM votes
		WHERE chat_id = $1
		ORDER BY message_id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("voteRepo.ListByChat: %w", err)
	}
	votes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Vote, error) {
		var v domain.Vote
		err := row.Scan(&v.ChatID, &v.MessageID, &v.IsUpvoted)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("voteRepo.ListByChat: %w", err)
	}
	return votes, nil
}

// DeleteVotesByMessages removes the chat's votes on the given messages.
func (r *VoteRepository) DeleteVotesByMessages(ctx context.Context, chatID string, messageIDs []string) (int, error) {
	defer logger.DeferLogDuration("vote.DeleteByMessages", time.Now())()

	if len(messageIDs) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM votes WHERE chat_id = $1 AND message_id = ANY($2)", chatID, messageIDs)
	if err != nil {
		return 0, fmt.Errorf("voteRepo.DeleteByMessages: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteVotesByChat removes every vote in the chat.
func (r *VoteRepository) DeleteVotesByChat(ctx context.Context, chatID string) (int, error) {
	defer logger.DeferLogDuration("vote.DeleteByChat", time.Now())()

	tag, err := r.pool.Exec(ctx, "DELETE FROM votes WHERE chat_id = $1", chatID)
	if err != nil {
		return 0, fmt.Errorf("voteRepo.DeleteByChat: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListChatIDs returns the distinct chat ids referenced by votes.
func (r *VoteRepository) ListChatIDs(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, r.pool, "voteRepo.ListChatIDs",
		"SELECT DISTINCT chat_id FROM votes ORDER BY chat_id")
}
