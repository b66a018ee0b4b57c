package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
)

func TestGuard_OwnedChat(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "c1")

	chat, err := env.guard.OwnedChat(as("u1"), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", chat.ID)

	_, err = env.guard.OwnedChat(as("u2"), "c1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.guard.OwnedChat(context.Background(), "c1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.guard.OwnedChat(as("u1"), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.guard.OwnedChat(as("u1"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGuard_ReadableChat_PublicAndPrivate(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "c1")

	_, err := env.guard.ReadableChat(as("u2"), "c1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.chatSvc.SetVisibility(as("u1"), "c1", domain.VisibilityPublic)
	require.NoError(t, err)

	_, err = env.guard.ReadableChat(as("u2"), "c1")
	assert.NoError(t, err)
	_, err = env.guard.ReadableChat(context.Background(), "c1")
	assert.NoError(t, err)

	// Public does not grant mutation.
	_, err = env.guard.OwnedChat(as("u2"), "c1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestGuard_TombstonedChatIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "c1")
	require.NoError(t, env.chats.MarkDeleted(context.Background(), "c1", 5000))

	_, err := env.guard.OwnedChat(as("u1"), "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.guard.ReadableChat(as("u1"), "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGuard_ReadableDocument(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "c1")
	_, err := env.documentSvc.SaveVersion(as("u1"), driving.SaveVersionRequest{DocumentID: "scoped", ChatID: "c1", Content: "A"})
	require.NoError(t, err)
	_, err = env.documentSvc.SaveVersion(as("u1"), driving.SaveVersionRequest{DocumentID: "free", Content: "A"})
	require.NoError(t, err)

	_, err = env.guard.ReadableDocument(as("u2"), "scoped")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.chatSvc.SetVisibility(as("u1"), "c1", domain.VisibilityPublic)
	require.NoError(t, err)

	_, err = env.guard.ReadableDocument(as("u2"), "scoped")
	assert.NoError(t, err)
	_, err = env.guard.ReadableDocument(as("u2"), "free")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.guard.OwnedDocument(as("u2"), "scoped")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = env.guard.OwnedDocument(as("u1"), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
