package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewServer(newTestPorts(t))
	require.NoError(t, err)
	return server
}

// seedChat creates c1 for alice with three messages, ts 10, 20, 30.
func seedChat(t *testing.T, s *Server) {
	t.Helper()
	ctx := context.Background()

	_, _, err := s.handleSaveChat(ctx, nil, SaveChatInput{ActorID: "alice", ChatID: "c1", Title: "First"})
	require.NoError(t, err)

	_, out, err := s.handleAppendMessages(ctx, nil, AppendMessagesInput{
		ActorID: "alice",
		ChatID:  "c1",
		Messages: []MessageInput{
			{ID: "m1", Role: "user", Content: "hi", CreatedAt: 10},
			{ID: "m2", Role: "assistant", Content: "hello", CreatedAt: 20},
			{ID: "m3", Role: "user", Content: "again", CreatedAt: 30},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 3, out.Count)
}

func TestServer_handleAppendMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("retry inserts nothing", func(t *testing.T) {
		s := newTestServer(t)
		seedChat(t, s)

		_, out, err := s.handleAppendMessages(ctx, nil, AppendMessagesInput{
			ActorID:  "alice",
			ChatID:   "c1",
			Messages: []MessageInput{{ID: "m1", Role: "user", Content: "hi", CreatedAt: 10}},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Count)
		assert.NotNil(t, out.Messages)
	})

	t.Run("author is the actor", func(t *testing.T) {
		s := newTestServer(t)
		seedChat(t, s)

		_, out, err := s.handleListMessages(ctx, nil, ChatRefInput{ActorID: "alice", ChatID: "c1"})
		require.NoError(t, err)
		require.Len(t, out.Messages, 3)
		assert.Equal(t, "alice", out.Messages[0].AuthorID)
		assert.Equal(t, domain.MessageStateComplete, out.Messages[0].State)
	})

	t.Run("other identity is rejected", func(t *testing.T) {
		s := newTestServer(t)
		seedChat(t, s)

		_, _, err := s.handleAppendMessages(ctx, nil, AppendMessagesInput{
			ActorID:  "mallory",
			ChatID:   "c1",
			Messages: []MessageInput{{ID: "x", Role: "user", Content: "spam"}},
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("explicit author", func(t *testing.T) {
		s := newTestServer(t)
		seedChat(t, s)

		_, out, err := s.handleAppendMessages(ctx, nil, AppendMessagesInput{
			ActorID:  "alice",
			ChatID:   "c1",
			Messages: []MessageInput{{ID: "m4", AuthorID: "alice", Role: "user", Content: "more", CreatedAt: 40}},
		})
		require.NoError(t, err)
		require.Equal(t, 1, out.Count)
		assert.Equal(t, "alice", out.Messages[0].AuthorID)

		_, _, err = s.handleAppendMessages(ctx, nil, AppendMessagesInput{
			ActorID:  "alice",
			ChatID:   "c1",
			Messages: []MessageInput{{ID: "m5", AuthorID: "bob", Role: "user", Content: "forged", CreatedAt: 50}},
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestServer_handleDeleteTrailing(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	seedChat(t, s)

	_, _, err := s.handleVote(ctx, nil, VoteInput{ActorID: "alice", ChatID: "c1", MessageID: "m3", Type: "up"})
	require.NoError(t, err)

	_, result, err := s.handleDeleteTrailing(ctx, nil, MessageRefInput{ActorID: "alice", MessageID: "m2"})
	require.NoError(t, err)
	assert.Equal(t, domain.TruncateResult{DeletedMessageCount: 2, DeletedVoteCount: 1}, result)

	_, listed, err := s.handleListMessages(ctx, nil, ChatRefInput{ActorID: "alice", ChatID: "c1"})
	require.NoError(t, err)
	require.Len(t, listed.Messages, 1)
	assert.Equal(t, "m1", listed.Messages[0].ID)

	_, votes, err := s.handleListVotes(ctx, nil, ChatRefInput{ActorID: "alice", ChatID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 0, votes.Count)
}

func TestServer_handleVote(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	seedChat(t, s)

	_, _, err := s.handleVote(ctx, nil, VoteInput{ActorID: "alice", ChatID: "c1", MessageID: "m2", Type: "up"})
	require.NoError(t, err)
	_, vote, err := s.handleVote(ctx, nil, VoteInput{ActorID: "alice", ChatID: "c1", MessageID: "m2", Type: "down"})
	require.NoError(t, err)
	assert.False(t, vote.IsUpvoted)

	_, votes, err := s.handleListVotes(ctx, nil, ChatRefInput{ActorID: "alice", ChatID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Vote{{ChatID: "c1", MessageID: "m2", IsUpvoted: false}}, votes.Votes)

	_, _, err = s.handleVote(ctx, nil, VoteInput{ActorID: "alice", ChatID: "c1", MessageID: "m2", Type: "sideways"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestServer_chatTools(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	seedChat(t, s)

	t.Run("duplicate save conflicts", func(t *testing.T) {
		_, _, err := s.handleSaveChat(ctx, nil, SaveChatInput{ActorID: "alice", ChatID: "c1"})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("private chat hidden from others", func(t *testing.T) {
		_, _, err := s.handleGetChat(ctx, nil, ChatRefInput{ActorID: "bob", ChatID: "c1"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("public chat readable anonymously", func(t *testing.T) {
		_, out, err := s.handleSetVisibility(ctx, nil, SetVisibilityInput{ActorID: "alice", ChatID: "c1", Visibility: "public"})
		require.NoError(t, err)
		assert.Equal(t, domain.VisibilityPublic, out.Chat.Visibility)

		_, got, err := s.handleGetChat(ctx, nil, ChatRefInput{ChatID: "c1"})
		require.NoError(t, err)
		assert.Equal(t, "First", got.Chat.Title)
	})

	t.Run("list defaults to actor", func(t *testing.T) {
		_, out, err := s.handleListChats(ctx, nil, ListChatsInput{ActorID: "alice"})
		require.NoError(t, err)
		assert.Equal(t, 1, out.Count)

		_, empty, err := s.handleListChats(ctx, nil, ListChatsInput{ActorID: "bob"})
		require.NoError(t, err)
		assert.NotNil(t, empty.Chats)
		assert.Equal(t, 0, empty.Count)
	})
}

func TestServer_handleDeleteChat(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes and retries", func(t *testing.T) {
		s := newTestServer(t)
		seedChat(t, s)

		_, out, err := s.handleDeleteChat(ctx, nil, ChatRefInput{ActorID: "alice", ChatID: "c1"})
		require.NoError(t, err)
		assert.True(t, out.Deleted)

		_, _, err = s.handleDeleteChat(ctx, nil, ChatRefInput{ActorID: "alice", ChatID: "c1"})
		require.NoError(t, err)

		_, _, err = s.handleGetChat(ctx, nil, ChatRefInput{ActorID: "alice", ChatID: "c1"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("coordinator failure is returned", func(t *testing.T) {
		ports := newTestPorts(t)
		ports.Coordinator = failingCoordinator{}
		s, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = s.handleDeleteChat(ctx, nil, ChatRefInput{ActorID: "alice", ChatID: "c1"})
		assert.ErrorIs(t, err, errBackend)

		_, _, err = s.handleDeleteTrailing(ctx, nil, MessageRefInput{ActorID: "alice", MessageID: "m1"})
		assert.ErrorIs(t, err, errBackend)
	})
}

func TestServer_documentTools(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	for i, ts := range []int64{100, 200, 300} {
		_, out, err := s.handleSaveVersion(ctx, nil, SaveVersionInput{
			ActorID: "alice", DocumentID: "d1", Content: string(rune('a' + i)), CreatedAt: ts,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.DocumentKindText, out.Version.Kind)
	}

	_, _, err := s.handleSaveVersion(ctx, nil, SaveVersionInput{ActorID: "alice", DocumentID: "d1", CreatedAt: 250})
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)

	_, restored, err := s.handleRestoreVersion(ctx, nil, RestoreVersionInput{ActorID: "alice", DocumentID: "d1", Timestamp: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Remaining)

	_, listed, err := s.handleListVersions(ctx, nil, DocumentRefInput{ActorID: "alice", DocumentID: "d1"})
	require.NoError(t, err)
	require.Equal(t, 1, listed.Count)
	assert.Equal(t, "a", listed.Versions[0].Content)

	_, _, err = s.handleRestoreVersion(ctx, nil, RestoreVersionInput{ActorID: "alice", DocumentID: "d1", Timestamp: 150})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
