package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// ==================== Vote Store ====================

// voteStore implements driven.VoteStore.
type voteStore struct {
	store *Store
}

var _ driven.VoteStore = (*voteStore)(nil)

// UpsertVote inserts a vote or overwrites the existing one for the message.
func (s *voteStore) UpsertVote(ctx context.Context, vote *domain.Vote) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO votes (message_id, chat_id, is_upvoted)
		VALUES (?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			is_upvoted = excluded.is_upvoted
	`, vote.MessageID, vote.ChatID, boolToInt(vote.IsUpvoted))
	if err != nil {
		return fmt.Errorf("saving vote: %w", err)
	}
	return nil
}

// GetVote retrieves the vote for a message.
func (s *voteStore) GetVote(ctx context.Context, messageID string) (*domain.Vote, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT chat_id, message_id, is_upvoted FROM votes WHERE message_id = ?", messageID)
	vote, err := scanVote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return vote, err
}

// ListVotesByChat returns every vote in a chat ordered by message id.
func (s *voteStore) ListVotesByChat(ctx context.Context, chatID string) ([]domain.Vote, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chat_id, message_id, is_upvoted FROM votes
		WHERE chat_id = ? ORDER BY message_id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("querying votes: %w", err)
	}
	defer rows.Close()

	votes := []domain.Vote{}
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning vote: %w", err)
		}
		votes = append(votes, *vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating votes: %w", err)
	}
	return votes, nil
}

// DeleteVotesByMessages removes the votes of the given messages in the chat.
func (s *voteStore) DeleteVotesByMessages(ctx context.Context, chatID string, messageIDs []string) (int, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(messageIDs)+1)
	args = append(args, chatID)
	for _, id := range messageIDs {
		args = append(args, id)
	}
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM votes WHERE chat_id = ? AND message_id IN ("+placeholders(len(messageIDs))+")", args...)
	if err != nil {
		return 0, fmt.Errorf("deleting votes: %w", err)
	}
	return rowsAffected(res)
}

// DeleteVotesByChat removes every vote in a chat.
func (s *voteStore) DeleteVotesByChat(ctx context.Context, chatID string) (int, error) {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM votes WHERE chat_id = ?", chatID)
	if err != nil {
		return 0, fmt.Errorf("deleting votes: %w", err)
	}
	return rowsAffected(res)
}

// ListChatIDs returns the distinct chat ids referenced by stored votes.
func (s *voteStore) ListChatIDs(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, s.store.db, "SELECT DISTINCT chat_id FROM votes ORDER BY chat_id")
}

// scanVote returns sql.ErrNoRows unwrapped so callers can map it.
func scanVote(row rowScanner) (*domain.Vote, error) {
	var vote domain.Vote
	var upvoted int
	if err := row.Scan(&vote.ChatID, &vote.MessageID, &upvoted); err != nil {
		return nil, err
	}
	vote.IsUpvoted = upvoted == 1
	return &vote, nil
}
