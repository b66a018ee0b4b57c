package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
)

func save(t *testing.T, env *testEnv, docID, content string, at int64) {
	t.Helper()
	_, err := env.documentSvc.SaveVersion(as("u1"), driving.SaveVersionRequest{
		DocumentID: docID,
		Content:    content,
		CreatedAt:  at,
	})
	require.NoError(t, err)
}

func contents(versions []domain.Version) []string {
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.Content)
	}
	return out
}

// Restoring to an earlier version drops everything after it.
func TestDocumentService_RestoreTo(t *testing.T) {
	env := newTestEnv(t)
	save(t, env, "d", "A", 10)
	save(t, env, "d", "B", 20)
	save(t, env, "d", "C", 30)

	remaining, err := env.documentSvc.RestoreTo(as("u1"), "d", 20)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	versions, err := env.documentSvc.ListVersions(as("u1"), "d")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, contents(versions))

	latest, err := env.documentSvc.Latest(as("u1"), "d")
	require.NoError(t, err)
	assert.Equal(t, "B", latest.Content)

	// Restoring again is a no-op.
	remaining, err = env.documentSvc.RestoreTo(as("u1"), "d", 20)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	// A newer save after the restore is accepted.
	save(t, env, "d", "D", 25)
	latest, err = env.documentSvc.Latest(as("u1"), "d")
	require.NoError(t, err)
	assert.Equal(t, "D", latest.Content)
}

// Versions strictly increase; stale or equal timestamps are rejected.
func TestDocumentService_SaveVersion_OutOfOrder(t *testing.T) {
	env := newTestEnv(t)
	save(t, env, "d", "A", 10)
	save(t, env, "d", "B", 20)

	for _, at := range []int64{5, 20} {
		_, err := env.documentSvc.SaveVersion(as("u1"), driving.SaveVersionRequest{DocumentID: "d", Content: "X", CreatedAt: at})
		assert.ErrorIs(t, err, domain.ErrOutOfOrder, "createdAt %d", at)
	}

	versions, err := env.documentSvc.ListVersions(as("u1"), "d")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Less(t, versions[0].CreatedAt, versions[1].CreatedAt)
}

func TestDocumentService_SaveVersion_Defaults(t *testing.T) {
	env := newTestEnv(t)
	env.clock.set(4000)

	v, err := env.documentSvc.SaveVersion(as("u1"), driving.SaveVersionRequest{DocumentID: "d", Title: "Notes", Content: "A"})
	require.NoError(t, err)
	assert.Equal(t, int64(4000), v.CreatedAt)
	assert.Equal(t, domain.DocumentKindText, v.Kind)
	assert.Equal(t, "u1", v.OwnerID)
	assert.Empty(t, v.ChatID)
}

func TestDocumentService_SaveVersion_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "c1")
	env.seedChat(t, "c2")
	_, err := env.documentSvc.SaveVersion(as("u1"), driving.SaveVersionRequest{DocumentID: "d", ChatID: "c1", Content: "A", CreatedAt: 10})
	require.NoError(t, err)

	tests := []struct {
		name    string
		user    string
		req     driving.SaveVersionRequest
		wantErr error
	}{
		{"empty id", "u1", driving.SaveVersionRequest{Content: "A"}, domain.ErrInvalidInput},
		{"bad kind", "u1", driving.SaveVersionRequest{DocumentID: "x", Kind: "video"}, domain.ErrInvalidInput},
		{"other owner", "u2", driving.SaveVersionRequest{DocumentID: "d", CreatedAt: 20}, domain.ErrUnauthorized},
		{"scope change", "u1", driving.SaveVersionRequest{DocumentID: "d", ChatID: "c2", CreatedAt: 20}, domain.ErrInvalidInput},
		{"chat not owned", "u2", driving.SaveVersionRequest{DocumentID: "y", ChatID: "c1"}, domain.ErrUnauthorized},
		{"chat missing", "u1", driving.SaveVersionRequest{DocumentID: "z", ChatID: "nope"}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.documentSvc.SaveVersion(as(tt.user), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Omitting the scope on a later save keeps it.
	v, err := env.documentSvc.SaveVersion(as("u1"), driving.SaveVersionRequest{DocumentID: "d", Content: "B", CreatedAt: 20})
	require.NoError(t, err)
	assert.Equal(t, "c1", v.ChatID)
}

func TestDocumentService_RestoreTo_Errors(t *testing.T) {
	env := newTestEnv(t)
	save(t, env, "d", "A", 10)

	_, err := env.documentSvc.RestoreTo(as("u1"), "d", 15)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.documentSvc.RestoreTo(as("u1"), "missing", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.documentSvc.RestoreTo(as("u2"), "d", 10)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDocumentService_ListVersions_Unknown(t *testing.T) {
	env := newTestEnv(t)

	versions, err := env.documentSvc.ListVersions(as("u1"), "missing")
	require.NoError(t, err)
	assert.Empty(t, versions)

	_, err = env.documentSvc.Latest(as("u1"), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
