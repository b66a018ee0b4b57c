package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
)

// seedConversation builds chat c1 with m1..m4, votes on each and a scoped document.
func seedConversation(t *testing.T, env *testEnv) {
	t.Helper()
	env.seedChat(t, "c1",
		msg("m1", "c1", 1), msg("m2", "c1", 2), msg("m3", "c1", 3), msg("m4", "c1", 4))
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		_, err := env.voteSvc.Vote(as("u1"), "c1", id, domain.VoteUp)
		require.NoError(t, err)
	}
	_, err := env.documentSvc.SaveVersion(as("u1"), driving.SaveVersionRequest{DocumentID: "d1", ChatID: "c1", Content: "A"})
	require.NoError(t, err)
}

// Truncating at m2 removes m2..m4 and their votes.
func TestCoordinator_TruncateTrailing(t *testing.T) {
	env := newTestEnv(t)
	seedConversation(t, env)

	result, err := env.coord.TruncateTrailing(as("u1"), "m2")
	require.NoError(t, err)
	assert.Equal(t, &domain.TruncateResult{DeletedMessageCount: 3, DeletedVoteCount: 3}, result)

	msgs, err := env.messageSvc.List(as("u1"), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids(msgs))

	votes, err := env.voteSvc.List(as("u1"), "c1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Vote{{ChatID: "c1", MessageID: "m1", IsUpvoted: true}}, votes)

	// The target is gone, so a retry reports it missing.
	_, err = env.coord.TruncateTrailing(as("u1"), "m2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// No vote outlives its message after a truncation.
func TestCoordinator_TruncateTrailing_NoDanglingVotes(t *testing.T) {
	for _, target := range []string{"m1", "m2", "m3", "m4"} {
		env := newTestEnv(t)
		seedConversation(t, env)

		_, err := env.coord.TruncateTrailing(as("u1"), target)
		require.NoError(t, err)

		msgs, err := env.messages.ListMessagesByChat(context.Background(), "c1")
		require.NoError(t, err)
		live := make(map[string]bool)
		for _, m := range msgs {
			live[m.ID] = true
		}
		votes, err := env.votes.ListVotesByChat(context.Background(), "c1")
		require.NoError(t, err)
		for _, v := range votes {
			assert.True(t, live[v.MessageID], "vote on %s outlived its message (target %s)", v.MessageID, target)
		}
	}
}

func TestCoordinator_TruncateTrailing_Errors(t *testing.T) {
	env := newTestEnv(t)
	seedConversation(t, env)

	_, err := env.coord.TruncateTrailing(as("u2"), "m2")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.coord.TruncateTrailing(as("u1"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.coord.TruncateTrailing(as("u1"), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	msgs, err := env.messages.ListMessagesByChat(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

// Deleting a chat removes everything and a retry succeeds.
func TestCoordinator_DeleteChat(t *testing.T) {
	env := newTestEnv(t)
	seedConversation(t, env)
	env.seedChat(t, "c2", msg("keep", "c2", 1))
	ctx := context.Background()

	require.NoError(t, env.coord.DeleteChat(as("u1"), "c1"))

	msgs, err := env.messages.ListMessagesByChat(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	votes, err := env.votes.ListVotesByChat(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, votes)
	_, err = env.versions.LatestVersion(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.chatSvc.Get(as("u1"), "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, env.coord.DeleteChat(as("u1"), "c1"))

	others, err := env.messages.ListMessagesByChat(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, ids(others))
}

func TestCoordinator_DeleteChat_Errors(t *testing.T) {
	env := newTestEnv(t)
	seedConversation(t, env)

	assert.ErrorIs(t, env.coord.DeleteChat(as("u1"), "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, env.coord.DeleteChat(as("u2"), "c1"), domain.ErrUnauthorized)
	assert.ErrorIs(t, env.coord.DeleteChat(context.Background(), "c1"), domain.ErrUnauthorized)
	assert.ErrorIs(t, env.coord.DeleteChat(as("u1"), ""), domain.ErrInvalidInput)

	msgs, err := env.messages.ListMessagesByChat(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

// A chat with no record is unknown even when stray messages still point at it.
// Those are left to the orphan sweep.
func TestCoordinator_DeleteChat_AbsentChatWithContents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.messages.AppendMessages(ctx, []domain.Message{msg("o1", "ghost", 1)})
	require.NoError(t, err)
	require.NoError(t, env.votes.UpsertVote(ctx, &domain.Vote{ChatID: "ghost", MessageID: "o1", IsUpvoted: true}))

	assert.ErrorIs(t, env.coord.DeleteChat(as("u1"), "ghost"), domain.ErrNotFound)

	msgs, err := env.messages.ListMessagesByChat(ctx, "ghost")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	result, err := env.sweeper.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Messages)
	assert.Equal(t, 1, result.Votes)
}

func TestCoordinator_DeleteChat_FailureThenRetry(t *testing.T) {
	votes := &flakyVoteStore{VoteStore: memory.NewVoteStore()}
	messages := &flakyMessageStore{MessageStore: memory.NewMessageStore()}
	env := newTestEnvWith(t, messages, votes)
	seedConversation(t, env)
	ctx := context.Background()

	messages.failing = true
	err := env.coord.DeleteChat(as("u1"), "c1")
	require.ErrorIs(t, err, errStoreUnavailable)

	// Votes went first and are gone; messages remain behind a tombstone.
	left, err := votes.ListVotesByChat(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, left)
	chat, err := env.chats.GetChat(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, chat.IsDeleted())

	messages.failing = false
	require.NoError(t, env.coord.DeleteChat(as("u1"), "c1"))

	msgs, err := messages.ListMessagesByChat(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestCoordinator_TruncateTrailing_VoteFailureKeepsMessages(t *testing.T) {
	votes := &flakyVoteStore{VoteStore: memory.NewVoteStore()}
	env := newTestEnvWith(t, memory.NewMessageStore(), votes)
	seedConversation(t, env)

	votes.failing = true
	_, err := env.coord.TruncateTrailing(as("u1"), "m3")
	require.ErrorIs(t, err, errStoreUnavailable)

	msgs, err := env.messages.ListMessagesByChat(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, msgs, 4)

	votes.failing = false
	result, err := env.coord.TruncateTrailing(as("u1"), "m3")
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeletedMessageCount)
	assert.Equal(t, 2, result.DeletedVoteCount)
}
