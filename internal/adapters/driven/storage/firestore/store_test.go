package firestore

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// newTestStore returns a store whose collections are unique to the test.
// It needs a running emulator.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "chatstate-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client, "t"+uuid.NewString()[:8]+"-")
}

func TestChatStore(t *testing.T) {
	storetest.RunChatStoreTests(t, func(t *testing.T) driven.ChatStore {
		return newTestStore(t).ChatStore()
	})
}

func TestMessageStore(t *testing.T) {
	storetest.RunMessageStoreTests(t, func(t *testing.T) driven.MessageStore {
		return newTestStore(t).MessageStore()
	})
}

func TestVoteStore(t *testing.T) {
	storetest.RunVoteStoreTests(t, func(t *testing.T) driven.VoteStore {
		return newTestStore(t).VoteStore()
	})
}

func TestVersionStore(t *testing.T) {
	storetest.RunVersionStoreTests(t, func(t *testing.T) driven.VersionStore {
		return newTestStore(t).VersionStore()
	})
}

func TestVersionDocID(t *testing.T) {
	require.Equal(t, "d%2F1@00000000000000000042", versionDocID("d/1", 42))
	require.Less(t, versionDocID("d1", 9), versionDocID("d1", 10))
}

func TestVersionIDRange(t *testing.T) {
	tests := []struct {
		name     string
		document string
		other    string
	}{
		{"plain", "d1", "d10"},
		{"at sign", "a", "a@0"},
		{"slash", "a", "a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := versionPrefix(tt.document), versionIDBound(tt.document)
			for _, ts := range []int64{0, 1, 1_700_000_000_000} {
				id := versionDocID(tt.document, ts)
				assert.GreaterOrEqual(t, id, lo)
				assert.Less(t, id, hi)

				other := versionDocID(tt.other, ts)
				assert.False(t, other >= lo && other < hi, "%s inside the range of %s", other, tt.document)
			}
		})
	}
}

func TestVersionStore_PrefixedDocumentsStaySeparate(t *testing.T) {
	versions := newTestStore(t).VersionStore()
	ctx := context.Background()

	require.NoError(t, versions.SaveVersion(ctx, &domain.Version{DocumentID: "a", OwnerID: "alice", Content: "A", CreatedAt: 100}))
	require.NoError(t, versions.SaveVersion(ctx, &domain.Version{DocumentID: "a@0", OwnerID: "alice", Content: "X", CreatedAt: 500}))
	require.NoError(t, versions.SaveVersion(ctx, &domain.Version{DocumentID: "a", OwnerID: "alice", Content: "B", CreatedAt: 200}))

	latest, err := versions.LatestVersion(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "B", latest.Content)

	n, err := versions.DeleteVersionsAfter(ctx, "a", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	other, err := versions.ListVersions(ctx, "a@0")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "X", other[0].Content)
}
