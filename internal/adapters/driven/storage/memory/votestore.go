package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// Ensure VoteStore implements the interface.
var _ driven.VoteStore = (*VoteStore)(nil)

// VoteStore is an in-memory implementation of driven.VoteStore.
// Votes are keyed by message id, which enforces one vote per message.
type VoteStore struct {
	mu     sync.RWMutex
	votes  map[string]domain.Vote
	byChat map[string]map[string]struct{}
}

// NewVoteStore creates a new in-memory vote store.
func NewVoteStore() *VoteStore {
	return &VoteStore{
		votes:  make(map[string]domain.Vote),
		byChat: make(map[string]map[string]struct{}),
	}
}

// UpsertVote inserts or overwrites the vote for a message.
func (s *VoteStore) UpsertVote(_ context.Context, vote *domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.votes[vote.MessageID]; ok && existing.ChatID != vote.ChatID {
		delete(s.byChat[existing.ChatID], vote.MessageID)
	}
	s.votes[vote.MessageID] = *vote
	if s.byChat[vote.ChatID] == nil {
		s.byChat[vote.ChatID] = make(map[string]struct{})
	}
	s.byChat[vote.ChatID][vote.MessageID] = struct{}{}
	return nil
}

// GetVote retrieves the vote for a message.
func (s *VoteStore) GetVote(_ context.Context, messageID string) (*domain.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, ok := s.votes[messageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &vote, nil
}

// ListVotesByChat returns every vote in a chat.
func (s *VoteStore) ListVotesByChat(_ context.Context, chatID string) ([]domain.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Vote, 0, len(s.byChat[chatID]))
	for messageID := range s.byChat[chatID] {
		result = append(result, s.votes[messageID])
	}
	return result, nil
}

// DeleteVotesByMessages removes the votes of the given messages.
func (s *VoteStore) DeleteVotesByMessages(_ context.Context, chatID string, messageIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, id := range messageIDs {
		vote, ok := s.votes[id]
		if !ok || vote.ChatID != chatID {
			continue
		}
		delete(s.votes, id)
		delete(s.byChat[chatID], id)
		count++
	}
	if len(s.byChat[chatID]) == 0 {
		delete(s.byChat, chatID)
	}
	return count, nil
}

// DeleteVotesByChat removes every vote in a chat.
func (s *VoteStore) DeleteVotesByChat(_ context.Context, chatID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for messageID := range s.byChat[chatID] {
		delete(s.votes, messageID)
		count++
	}
	delete(s.byChat, chatID)
	return count, nil
}

// ListChatIDs returns the distinct chat ids referenced by stored votes.
func (s *VoteStore) ListChatIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.byChat))
	for chatID, votes := range s.byChat {
		if len(votes) > 0 {
			ids = append(ids, chatID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
