package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

func TestChatService_Create_Success(t *testing.T) {
	env := newTestEnv(t)

	chat, err := env.chatSvc.Create(as("u1"), "c1", "", "Hello", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", chat.OwnerID)
	assert.Equal(t, domain.VisibilityPrivate, chat.Visibility)
	assert.Equal(t, int64(1000), chat.CreatedAt)

	got, err := env.chatSvc.Get(as("u1"), "c1")
	require.NoError(t, err)
	assert.Equal(t, *chat, *got)
}

func TestChatService_Create_Conflict(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "c1")

	_, err := env.chatSvc.Create(as("u1"), "c1", "u1", "Again", domain.VisibilityPublic)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestChatService_Create_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		ctx     context.Context
		chatID  string
		ownerID string
		vis     domain.Visibility
		wantErr error
	}{
		{"anonymous", context.Background(), "c1", "u1", domain.VisibilityPrivate, domain.ErrUnauthorized},
		{"owner mismatch", as("u2"), "c1", "u1", domain.VisibilityPrivate, domain.ErrUnauthorized},
		{"empty id", as("u1"), "", "u1", domain.VisibilityPrivate, domain.ErrInvalidInput},
		{"bad visibility", as("u1"), "c1", "u1", "shared", domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.chatSvc.Create(tt.ctx, tt.chatID, tt.ownerID, "t", tt.vis)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestChatService_List_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "first")
	env.seedChat(t, "second")
	_, err := env.chatSvc.Create(as("u2"), "other", "u2", "t", "")
	require.NoError(t, err)

	chats, err := env.chatSvc.List(as("u1"), "")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "second", chats[0].ID)
	assert.Equal(t, "first", chats[1].ID)

	_, err = env.chatSvc.List(as("u2"), "u1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestChatService_SetVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.seedChat(t, "c1")

	chat, err := env.chatSvc.SetVisibility(as("u1"), "c1", domain.VisibilityPublic)
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPublic, chat.Visibility)

	_, err = env.chatSvc.SetVisibility(as("u2"), "c1", domain.VisibilityPrivate)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = env.chatSvc.SetVisibility(as("u1"), "missing", domain.VisibilityPrivate)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.chatSvc.SetVisibility(as("u1"), "c1", "everyone")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChatService_NilStore(t *testing.T) {
	svc := NewChatService(nil, newFakeClock(), nil)
	_, err := svc.Get(as("u1"), "c1")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}
