package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

func setupTestRedis(t *testing.T) (*VoteStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store := NewVoteStore(redis.NewClient(&redis.Options{Addr: s.Addr()}), DefaultPrefix)
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestVoteStore(t *testing.T) {
	storetest.RunVoteStoreTests(t, func(t *testing.T) driven.VoteStore {
		store, _ := setupTestRedis(t)
		return store
	})
}

func TestConnect(t *testing.T) {
	s := miniredis.RunT(t)

	store, err := Connect(context.Background(), "redis://"+s.Addr(), time.Second)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.UpsertVote(context.Background(), &domain.Vote{ChatID: "c1", MessageID: "m1", IsUpvoted: true}))
	assert.True(t, s.Exists(DefaultPrefix+"votes:c1"))
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-url://", time.Second)
	assert.Error(t, err)
}

func TestConnect_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := Connect(context.Background(), "redis://"+addr, 300*time.Millisecond)
	assert.Error(t, err)
}

func TestVoteStore_ChatMoveUpdatesIndex(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertVote(ctx, &domain.Vote{ChatID: "c1", MessageID: "m1", IsUpvoted: true}))
	require.NoError(t, store.UpsertVote(ctx, &domain.Vote{ChatID: "c2", MessageID: "m1", IsUpvoted: false}))

	got, err := store.GetVote(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "c2", got.ChatID)
	assert.False(t, got.IsUpvoted)

	assert.False(t, s.Exists(DefaultPrefix+"votes:c1"))
	ids, err := store.ListChatIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, ids)
}

func TestVoteStore_DeleteClearsIndex(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertVote(ctx, &domain.Vote{ChatID: "c1", MessageID: "m1", IsUpvoted: true}))
	require.NoError(t, store.UpsertVote(ctx, &domain.Vote{ChatID: "c1", MessageID: "m2", IsUpvoted: true}))

	n, err := store.DeleteVotesByMessages(ctx, "c1", []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.GetVote(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, s.Exists(DefaultPrefix+"vote-chats"))

	ids, err := store.ListChatIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
