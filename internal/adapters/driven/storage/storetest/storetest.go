// Package storetest provides conformance tests shared by every store adapter.
//
// Each adapter's test file calls the Run* functions with a constructor that
// returns an empty store, so memory, sqlite, postgres, redis and firestore
// are held to the same indexing and idempotency contracts.
package storetest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// Message builds a complete user message for tests.
func Message(id, chatID string, createdAt int64) domain.Message {
	return domain.Message{
		ID:        id,
		ChatID:    chatID,
		Role:      domain.RoleUser,
		Content:   "content of " + id,
		AuthorID:  "u1",
		State:     domain.MessageStateComplete,
		CreatedAt: createdAt,
	}
}

// IDs returns the ids of msgs in order.
func IDs(msgs []domain.Message) []string {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}

// RunChatStoreTests checks a driven.ChatStore implementation.
func RunChatStoreTests(t *testing.T, newStore func(t *testing.T) driven.ChatStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		store := newStore(t)
		chat := &domain.Chat{ID: "c1", OwnerID: "u1", Title: "First", Visibility: domain.VisibilityPrivate, CreatedAt: 100}
		require.NoError(t, store.CreateChat(ctx, chat))

		got, err := store.GetChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, *chat, *got)
	})

	t.Run("CreateConflict", func(t *testing.T) {
		store := newStore(t)
		chat := &domain.Chat{ID: "c1", OwnerID: "u1", Visibility: domain.VisibilityPrivate, CreatedAt: 100}
		require.NoError(t, store.CreateChat(ctx, chat))
		err := store.CreateChat(ctx, &domain.Chat{ID: "c1", OwnerID: "u2", Visibility: domain.VisibilityPublic, CreatedAt: 200})
		assert.ErrorIs(t, err, domain.ErrConflict)

		got, err := store.GetChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.OwnerID)
	})

	t.Run("GetNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetChat(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ListByOwnerNewestFirst", func(t *testing.T) {
		store := newStore(t)
		for _, c := range []domain.Chat{
			{ID: "a", OwnerID: "u1", Visibility: domain.VisibilityPrivate, CreatedAt: 100},
			{ID: "b", OwnerID: "u1", Visibility: domain.VisibilityPrivate, CreatedAt: 300},
			{ID: "c", OwnerID: "u2", Visibility: domain.VisibilityPrivate, CreatedAt: 200},
			{ID: "d", OwnerID: "u1", Visibility: domain.VisibilityPublic, CreatedAt: 200},
		} {
			require.NoError(t, store.CreateChat(ctx, &c))
		}

		chats, err := store.ListChatsByOwner(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, chats, 3)
		assert.Equal(t, "b", chats[0].ID)
		assert.Equal(t, "d", chats[1].ID)
		assert.Equal(t, "a", chats[2].ID)

		none, err := store.ListChatsByOwner(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("SetVisibility", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.CreateChat(ctx, &domain.Chat{ID: "c1", OwnerID: "u1", Visibility: domain.VisibilityPrivate, CreatedAt: 100}))

		updated, err := store.SetVisibility(ctx, "c1", domain.VisibilityPublic)
		require.NoError(t, err)
		assert.Equal(t, domain.VisibilityPublic, updated.Visibility)
		assert.Equal(t, "u1", updated.OwnerID)

		got, err := store.GetChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, domain.VisibilityPublic, got.Visibility)

		_, err = store.SetVisibility(ctx, "missing", domain.VisibilityPublic)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("MarkDeletedKeepsTombstone", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.CreateChat(ctx, &domain.Chat{ID: "c1", OwnerID: "u1", Visibility: domain.VisibilityPrivate, CreatedAt: 100}))
		require.NoError(t, store.MarkDeleted(ctx, "c1", 500))
		require.NoError(t, store.MarkDeleted(ctx, "c1", 900))

		got, err := store.GetChat(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, got.IsDeleted())
		assert.Equal(t, int64(500), got.DeletedAt)

		chats, err := store.ListChatsByOwner(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, chats)

		_, err = store.SetVisibility(ctx, "c1", domain.VisibilityPublic)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = store.CreateChat(ctx, &domain.Chat{ID: "c1", OwnerID: "u1", Visibility: domain.VisibilityPrivate, CreatedAt: 600})
		assert.ErrorIs(t, err, domain.ErrConflict)

		assert.ErrorIs(t, store.MarkDeleted(ctx, "missing", 500), domain.ErrNotFound)
	})

	t.Run("PurgeDeleted", func(t *testing.T) {
		store := newStore(t)
		for _, id := range []string{"old", "recent", "live"} {
			require.NoError(t, store.CreateChat(ctx, &domain.Chat{ID: id, OwnerID: "u1", Visibility: domain.VisibilityPrivate, CreatedAt: 100}))
		}
		require.NoError(t, store.MarkDeleted(ctx, "old", 200))
		require.NoError(t, store.MarkDeleted(ctx, "recent", 800))

		n, err := store.PurgeDeleted(ctx, 500)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = store.GetChat(ctx, "old")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.GetChat(ctx, "recent")
		require.NoError(t, err)
		_, err = store.GetChat(ctx, "live")
		require.NoError(t, err)
	})
}

// RunMessageStoreTests checks a driven.MessageStore implementation.
func RunMessageStoreTests(t *testing.T, newStore func(t *testing.T) driven.MessageStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("AppendReturnsInsertedInInputOrder", func(t *testing.T) {
		store := newStore(t)
		batch := []domain.Message{Message("m3", "c1", 300), Message("m1", "c1", 100), Message("m2", "c1", 200)}

		inserted, err := store.AppendMessages(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, []string{"m3", "m1", "m2"}, IDs(inserted))

		listed, err := store.ListMessagesByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "m2", "m3"}, IDs(listed))
		assert.Equal(t, batch[1], listed[0])
	})

	t.Run("AppendTwiceIsIdempotent", func(t *testing.T) {
		store := newStore(t)
		batch := []domain.Message{Message("x", "c1", 100)}

		first, err := store.AppendMessages(ctx, batch)
		require.NoError(t, err)
		assert.Len(t, first, 1)

		second, err := store.AppendMessages(ctx, batch)
		require.NoError(t, err)
		assert.Empty(t, second)

		listed, err := store.ListMessagesByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, IDs(listed))
	})

	t.Run("AppendSkipsExistingAndInBatchDuplicates", func(t *testing.T) {
		store := newStore(t)
		_, err := store.AppendMessages(ctx, []domain.Message{Message("m1", "c1", 100)})
		require.NoError(t, err)

		dup := Message("m2", "c1", 200)
		inserted, err := store.AppendMessages(ctx, []domain.Message{
			Message("m1", "c1", 100), dup, Message("m3", "c1", 300), dup,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"m2", "m3"}, IDs(inserted))

		listed, err := store.ListMessagesByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "m2", "m3"}, IDs(listed))
	})

	t.Run("GetMessage", func(t *testing.T) {
		store := newStore(t)
		_, err := store.AppendMessages(ctx, []domain.Message{Message("m1", "c1", 100)})
		require.NoError(t, err)

		got, err := store.GetMessage(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "c1", got.ChatID)

		_, err = store.GetMessage(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("DeleteFromIsInclusive", func(t *testing.T) {
		store := newStore(t)
		_, err := store.AppendMessages(ctx, []domain.Message{
			Message("m1", "c1", 100), Message("m2", "c1", 200), Message("m3", "c1", 300),
			Message("o1", "c2", 250),
		})
		require.NoError(t, err)

		deleted, err := store.DeleteMessagesFrom(ctx, "c1", 200)
		require.NoError(t, err)
		assert.Equal(t, []string{"m2", "m3"}, IDs(deleted))

		listed, err := store.ListMessagesByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, []string{"m1"}, IDs(listed))

		other, err := store.ListMessagesByChat(ctx, "c2")
		require.NoError(t, err)
		assert.Equal(t, []string{"o1"}, IDs(other))

		again, err := store.DeleteMessagesFrom(ctx, "c1", 200)
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("DeleteByChat", func(t *testing.T) {
		store := newStore(t)
		_, err := store.AppendMessages(ctx, []domain.Message{
			Message("m1", "c1", 100), Message("m2", "c1", 200), Message("o1", "c2", 100),
		})
		require.NoError(t, err)

		n, err := store.DeleteMessagesByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = store.DeleteMessagesByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		_, err = store.GetMessage(ctx, "m1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		ids, err := store.ListChatIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c2"}, ids)
	})

	t.Run("ReappendAfterDelete", func(t *testing.T) {
		store := newStore(t)
		_, err := store.AppendMessages(ctx, []domain.Message{Message("m1", "c1", 100)})
		require.NoError(t, err)
		_, err = store.DeleteMessagesFrom(ctx, "c1", 100)
		require.NoError(t, err)

		inserted, err := store.AppendMessages(ctx, []domain.Message{Message("m1", "c1", 150)})
		require.NoError(t, err)
		assert.Len(t, inserted, 1)
	})
}

// RunVoteStoreTests checks a driven.VoteStore implementation.
func RunVoteStoreTests(t *testing.T, newStore func(t *testing.T) driven.VoteStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("UpsertOverwrites", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertVote(ctx, &domain.Vote{ChatID: "c1", MessageID: "m1", IsUpvoted: true}))
		require.NoError(t, store.UpsertVote(ctx, &domain.Vote{ChatID: "c1", MessageID: "m1", IsUpvoted: false}))

		votes, err := store.ListVotesByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, []domain.Vote{{ChatID: "c1", MessageID: "m1", IsUpvoted: false}}, votes)

		got, err := store.GetVote(ctx, "m1")
		require.NoError(t, err)
		assert.False(t, got.IsUpvoted)
	})

	t.Run("GetNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetVote(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("DeleteByMessages", func(t *testing.T) {
		store := newStore(t)
		for _, id := range []string{"m1", "m2", "m3"} {
			require.NoError(t, store.UpsertVote(ctx, &domain.Vote{ChatID: "c1", MessageID: id, IsUpvoted: true}))
		}

		n, err := store.DeleteVotesByMessages(ctx, "c1", []string{"m2", "m3", "m4"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		votes, err := store.ListVotesByChat(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, votes, 1)
		assert.Equal(t, "m1", votes[0].MessageID)

		n, err = store.DeleteVotesByMessages(ctx, "c1", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("DeleteByChat", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertVote(ctx, &domain.Vote{ChatID: "c1", MessageID: "m1", IsUpvoted: true}))
		require.NoError(t, store.UpsertVote(ctx, &domain.Vote{ChatID: "c1", MessageID: "m2", IsUpvoted: false}))
		require.NoError(t, store.UpsertVote(ctx, &domain.Vote{ChatID: "c2", MessageID: "o1", IsUpvoted: true}))

		n, err := store.DeleteVotesByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = store.DeleteVotesByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		votes, err := store.ListVotesByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Empty(t, votes)

		ids, err := store.ListChatIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c2"}, ids)
	})
}

// RunVersionStoreTests checks a driven.VersionStore implementation.
func RunVersionStoreTests(t *testing.T, newStore func(t *testing.T) driven.VersionStore) {
	t.Helper()
	ctx := context.Background()

	save := func(t *testing.T, store driven.VersionStore, docID, chatID, content string, at int64) {
		t.Helper()
		require.NoError(t, store.SaveVersion(ctx, &domain.Version{
			DocumentID: docID, ChatID: chatID, OwnerID: "u1", Kind: domain.DocumentKindText,
			Title: "Doc", Content: content, CreatedAt: at,
		}))
	}

	t.Run("SaveAndListAscending", func(t *testing.T) {
		store := newStore(t)
		save(t, store, "d1", "", "A", 100)
		save(t, store, "d1", "", "B", 200)
		save(t, store, "d1", "", "C", 300)

		versions, err := store.ListVersions(ctx, "d1")
		require.NoError(t, err)
		require.Len(t, versions, 3)
		assert.Equal(t, "A", versions[0].Content)
		assert.Equal(t, "C", versions[2].Content)
		assert.True(t, sort.SliceIsSorted(versions, func(i, j int) bool {
			return versions[i].CreatedAt < versions[j].CreatedAt
		}))

		latest, err := store.LatestVersion(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, int64(300), latest.CreatedAt)
	})

	t.Run("SaveOutOfOrder", func(t *testing.T) {
		store := newStore(t)
		save(t, store, "d1", "", "A", 200)

		for _, at := range []int64{200, 100} {
			err := store.SaveVersion(ctx, &domain.Version{DocumentID: "d1", OwnerID: "u1", Kind: domain.DocumentKindText, Content: "X", CreatedAt: at})
			assert.ErrorIs(t, err, domain.ErrOutOfOrder)
		}

		// Ordering is per document.
		save(t, store, "d2", "", "A", 100)
	})

	t.Run("GetAndLatestNotFound", func(t *testing.T) {
		store := newStore(t)
		save(t, store, "d1", "", "A", 100)

		v, err := store.GetVersion(ctx, "d1", 100)
		require.NoError(t, err)
		assert.Equal(t, "A", v.Content)

		_, err = store.GetVersion(ctx, "d1", 150)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.LatestVersion(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("DeleteAfter", func(t *testing.T) {
		store := newStore(t)
		save(t, store, "d1", "", "A", 100)
		save(t, store, "d1", "", "B", 200)
		save(t, store, "d1", "", "C", 300)

		n, err := store.DeleteVersionsAfter(ctx, "d1", 200)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		versions, err := store.ListVersions(ctx, "d1")
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, int64(200), versions[1].CreatedAt)

		n, err = store.DeleteVersionsAfter(ctx, "d1", 200)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		// After truncation a newer save is accepted again.
		save(t, store, "d1", "", "D", 250)
	})

	t.Run("DeleteByChat", func(t *testing.T) {
		store := newStore(t)
		save(t, store, "d1", "c1", "A", 100)
		save(t, store, "d1", "c1", "B", 200)
		save(t, store, "d2", "c2", "A", 100)
		save(t, store, "d3", "", "A", 100)

		ids, err := store.ListChatIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "c2"}, ids)

		n, err := store.DeleteVersionsByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		versions, err := store.ListVersions(ctx, "d1")
		require.NoError(t, err)
		assert.Empty(t, versions)

		kept, err := store.ListVersions(ctx, "d3")
		require.NoError(t, err)
		assert.Len(t, kept, 1)

		n, err = store.DeleteVersionsByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}
