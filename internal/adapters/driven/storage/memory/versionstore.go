package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// Ensure VersionStore implements the interface.
var _ driven.VersionStore = (*VersionStore)(nil)

// VersionStore is an in-memory implementation of driven.VersionStore.
// Each document's versions are kept sorted, so the latest is always last.
type VersionStore struct {
	mu       sync.RWMutex
	versions map[string][]domain.Version
}

// NewVersionStore creates a new in-memory version store.
func NewVersionStore() *VersionStore {
	return &VersionStore{
		versions: make(map[string][]domain.Version),
	}
}

// SaveVersion appends a version after checking it is newer than the latest.
func (s *VersionStore) SaveVersion(_ context.Context, version *domain.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.versions[version.DocumentID]
	if n := len(existing); n > 0 && version.CreatedAt <= existing[n-1].CreatedAt {
		return domain.ErrOutOfOrder
	}
	s.versions[version.DocumentID] = append(existing, *version)
	return nil
}

// GetVersion retrieves the version created at exactly createdAt.
func (s *VersionStore) GetVersion(_ context.Context, documentID string, createdAt int64) (*domain.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.versions[documentID]
	i := sort.Search(len(versions), func(i int) bool { return versions[i].CreatedAt >= createdAt })
	if i == len(versions) || versions[i].CreatedAt != createdAt {
		return nil, domain.ErrNotFound
	}
	v := versions[i]
	return &v, nil
}

// LatestVersion returns the newest version of a document.
func (s *VersionStore) LatestVersion(_ context.Context, documentID string) (*domain.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.versions[documentID]
	if len(versions) == 0 {
		return nil, domain.ErrNotFound
	}
	v := versions[len(versions)-1]
	return &v, nil
}

// ListVersions returns a document's versions in ascending order.
func (s *VersionStore) ListVersions(_ context.Context, documentID string) ([]domain.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Version, len(s.versions[documentID]))
	copy(result, s.versions[documentID])
	return result, nil
}

// DeleteVersionsAfter removes every version with CreatedAt > after.
func (s *VersionStore) DeleteVersionsAfter(_ context.Context, documentID string, after int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := s.versions[documentID]
	cut := sort.Search(len(versions), func(i int) bool { return versions[i].CreatedAt > after })
	deleted := len(versions) - cut
	if cut == 0 {
		delete(s.versions, documentID)
	} else {
		s.versions[documentID] = versions[:cut:cut]
	}
	return deleted, nil
}

// DeleteVersionsByChat removes every version scoped to a chat.
func (s *VersionStore) DeleteVersionsByChat(_ context.Context, chatID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for docID, versions := range s.versions {
		kept := versions[:0:0]
		for _, v := range versions {
			if v.ChatID == chatID {
				count++
				continue
			}
			kept = append(kept, v)
		}
		if len(kept) == 0 {
			delete(s.versions, docID)
		} else {
			s.versions[docID] = kept
		}
	}
	return count, nil
}

// ListChatIDs returns the distinct chat scopes referenced by stored versions.
func (s *VersionStore) ListChatIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, versions := range s.versions {
		for _, v := range versions {
			if v.ChatID != "" {
				seen[v.ChatID] = struct{}{}
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
