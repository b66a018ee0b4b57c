package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// Ensure ChatStore implements the interface.
var _ driven.ChatStore = (*ChatStore)(nil)

// ChatStore is an in-memory implementation of driven.ChatStore.
type ChatStore struct {
	mu    sync.RWMutex
	chats map[string]domain.Chat
	// byOwner indexes chat ids by owner.
	byOwner map[string]map[string]struct{}
}

// NewChatStore creates a new in-memory chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		chats:   make(map[string]domain.Chat),
		byOwner: make(map[string]map[string]struct{}),
	}
}

// CreateChat inserts a new chat.
func (s *ChatStore) CreateChat(_ context.Context, chat *domain.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.chats[chat.ID]; exists {
		return domain.ErrConflict
	}
	s.chats[chat.ID] = *chat
	if s.byOwner[chat.OwnerID] == nil {
		s.byOwner[chat.OwnerID] = make(map[string]struct{})
	}
	s.byOwner[chat.OwnerID][chat.ID] = struct{}{}
	return nil
}

// GetChat retrieves a chat by ID.
func (s *ChatStore) GetChat(_ context.Context, id string) (*domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chat, nil
}

// ListChatsByOwner returns an owner's chats, newest first.
func (s *ChatStore) ListChatsByOwner(_ context.Context, ownerID string) ([]domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Chat, 0, len(s.byOwner[ownerID]))
	for id := range s.byOwner[ownerID] {
		if chat := s.chats[id]; !chat.IsDeleted() {
			result = append(result, chat)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// SetVisibility updates a chat's visibility.
func (s *ChatStore) SetVisibility(_ context.Context, id string, visibility domain.Visibility) (*domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[id]
	if !ok || chat.IsDeleted() {
		return nil, domain.ErrNotFound
	}
	chat.Visibility = visibility
	s.chats[id] = chat
	return &chat, nil
}

// MarkDeleted turns a chat into a tombstone.
func (s *ChatStore) MarkDeleted(_ context.Context, id string, deletedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !chat.IsDeleted() {
		chat.DeletedAt = deletedAt
		s.chats[id] = chat
	}
	return nil
}

// PurgeDeleted removes tombstones older than before.
func (s *ChatStore) PurgeDeleted(_ context.Context, before int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, chat := range s.chats {
		if chat.IsDeleted() && chat.DeletedAt < before {
			delete(s.chats, id)
			delete(s.byOwner[chat.OwnerID], id)
			count++
		}
	}
	return count, nil
}
