package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentKind_IsValid(t *testing.T) {
	for _, k := range []DocumentKind{DocumentKindText, DocumentKindCode, DocumentKindImage, DocumentKindSheet} {
		assert.True(t, k.IsValid(), k)
	}
	assert.False(t, DocumentKind("pdf").IsValid())
}

func TestSortVersions(t *testing.T) {
	versions := []Version{{CreatedAt: 300}, {CreatedAt: 100}, {CreatedAt: 200}}
	SortVersions(versions)
	assert.Equal(t, int64(100), versions[0].CreatedAt)
	assert.Equal(t, int64(200), versions[1].CreatedAt)
	assert.Equal(t, int64(300), versions[2].CreatedAt)
}

func TestIdentityFromContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1"})
	id, ok := IdentityFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", id.UserID)

	// An empty user id counts as anonymous.
	ctx = WithIdentity(context.Background(), Identity{})
	_, ok = IdentityFromContext(ctx)
	assert.False(t, ok)
}

func TestStorageBackend_IsValid(t *testing.T) {
	assert.True(t, BackendSQLite.IsValid())
	assert.True(t, BackendFirestore.IsValid())
	assert.False(t, StorageBackend("mysql").IsValid())
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.Scheduler.Enabled)
}
