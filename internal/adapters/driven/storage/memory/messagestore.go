package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// Ensure MessageStore implements the interface.
var _ driven.MessageStore = (*MessageStore)(nil)

// MessageStore is an in-memory implementation of driven.MessageStore.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[string]domain.Message
	// byChat indexes message ids by chat.
	byChat map[string]map[string]struct{}
}

// NewMessageStore creates a new in-memory message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[string]domain.Message),
		byChat:   make(map[string]map[string]struct{}),
	}
}

// AppendMessages inserts every message whose ID is not already stored.
func (s *MessageStore) AppendMessages(_ context.Context, msgs []domain.Message) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := make([]domain.Message, 0, len(msgs))
	for i := range msgs {
		msg := msgs[i]
		if _, exists := s.messages[msg.ID]; exists {
			continue
		}
		s.messages[msg.ID] = msg
		if s.byChat[msg.ChatID] == nil {
			s.byChat[msg.ChatID] = make(map[string]struct{})
		}
		s.byChat[msg.ChatID][msg.ID] = struct{}{}
		inserted = append(inserted, msg)
	}
	return inserted, nil
}

// GetMessage retrieves a message by ID.
func (s *MessageStore) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &msg, nil
}

// ListMessagesByChat returns a chat's messages in order.
func (s *MessageStore) ListMessagesByChat(_ context.Context, chatID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatMessages(chatID), nil
}

// DeleteMessagesFrom removes every message in the chat with CreatedAt >= from.
func (s *MessageStore) DeleteMessagesFrom(_ context.Context, chatID string, from int64) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted []domain.Message
	for _, msg := range s.chatMessages(chatID) {
		if msg.CreatedAt < from {
			continue
		}
		s.remove(msg)
		deleted = append(deleted, msg)
	}
	return deleted, nil
}

// DeleteMessagesByChat removes every message in the chat.
func (s *MessageStore) DeleteMessagesByChat(_ context.Context, chatID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id := range s.byChat[chatID] {
		delete(s.messages, id)
		count++
	}
	delete(s.byChat, chatID)
	return count, nil
}

// ListChatIDs returns the distinct chat ids referenced by stored messages.
func (s *MessageStore) ListChatIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.byChat))
	for chatID, msgs := range s.byChat {
		if len(msgs) > 0 {
			ids = append(ids, chatID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// chatMessages returns a chat's messages in order (caller must hold lock).
func (s *MessageStore) chatMessages(chatID string) []domain.Message {
	result := make([]domain.Message, 0, len(s.byChat[chatID]))
	for id := range s.byChat[chatID] {
		result = append(result, s.messages[id])
	}
	domain.SortMessages(result)
	return result
}

// remove deletes a message from both indexes (caller must hold lock).
func (s *MessageStore) remove(msg domain.Message) {
	delete(s.messages, msg.ID)
	delete(s.byChat[msg.ChatID], msg.ID)
	if len(s.byChat[msg.ChatID]) == 0 {
		delete(s.byChat, msg.ChatID)
	}
}
