package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

func TestSweeper_SweepOrphans_MissingChat(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "live", msg("l1", "live", 1))
	ctx := context.Background()

	// Records written straight to the stores with no chat behind them.
	_, err := env.messages.AppendMessages(ctx, []domain.Message{msg("o1", "ghost", 1), msg("o2", "ghost", 2)})
	require.NoError(t, err)
	require.NoError(t, env.votes.UpsertVote(ctx, &domain.Vote{ChatID: "ghost", MessageID: "o1", IsUpvoted: true}))
	require.NoError(t, env.versions.SaveVersion(ctx, &domain.Version{DocumentID: "gd", ChatID: "ghost", OwnerID: "u1", CreatedAt: 1}))

	result, err := env.sweeper.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SweepResult{OrphanChats: 1, Messages: 2, Votes: 1, Versions: 1}, result)

	msgs, err := env.messages.ListMessagesByChat(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, ids(msgs))

	again, err := env.sweeper.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Total())
}

func TestSweeper_SweepOrphans_LateAppendAfterDelete(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "c1", msg("m1", "c1", 1))
	ctx := context.Background()

	require.NoError(t, env.coord.DeleteChat(as("u1"), "c1"))
	// An append that passed its ownership check before the delete lands afterwards.
	_, err := env.messages.AppendMessages(ctx, []domain.Message{msg("late", "c1", 2)})
	require.NoError(t, err)

	result, err := env.sweeper.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.OrphanChats)
	assert.Equal(t, 1, result.Messages)
	assert.Zero(t, result.Tombstones)

	msgs, err := env.messages.ListMessagesByChat(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSweeper_SweepOrphans_PurgesExpiredTombstones(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "c1")
	ctx := context.Background()
	require.NoError(t, env.coord.DeleteChat(as("u1"), "c1"))

	env.clock.set(1_000_000 + (25 * time.Hour).Milliseconds())
	result, err := env.sweeper.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Tombstones)

	// With the tombstone gone the chat is simply unknown.
	assert.ErrorIs(t, env.coord.DeleteChat(as("u1"), "c1"), domain.ErrNotFound)
}

func TestSweeper_SweepVotes(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "c1", msg("m1", "c1", 1), msg("m2", "c1", 2))
	ctx := context.Background()
	for _, id := range []string{"m1", "m2"} {
		_, err := env.voteSvc.Vote(as("u1"), "c1", id, domain.VoteDown)
		require.NoError(t, err)
	}

	// Deleting messages without the coordinator leaves a dangling vote.
	_, err := env.messages.DeleteMessagesFrom(ctx, "c1", 2)
	require.NoError(t, err)

	result, err := env.sweeper.SweepVotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Votes)

	votes, err := env.votes.ListVotesByChat(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "m1", votes[0].MessageID)
}
