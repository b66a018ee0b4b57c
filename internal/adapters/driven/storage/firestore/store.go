// Package firestore implements the chat, message, vote and version stores on
// Cloud Firestore.
//
// Each entity kind is a top-level collection. Message and vote documents are
// keyed by message id, so the unique indexes come from document identity.
// Version documents are keyed by document id and a zero-padded timestamp.
// Multi-document invariants are enforced inside transactions.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// Store groups the Firestore-backed stores around one client.
type Store struct {
	client *firestore.Client
	prefix string
}

// Connect creates a client for projectID. FIRESTORE_EMULATOR_HOST is honoured
// by the client library.
func Connect(ctx context.Context, projectID string) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore: creating client: %w", err)
	}
	return NewStore(client, ""), nil
}

// NewStore wraps client. prefix is prepended to every collection name so
// several deployments, or tests, can share a project.
func NewStore(client *firestore.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// ChatStore returns a driven.ChatStore.
func (s *Store) ChatStore() driven.ChatStore { return &chatStore{s} }

// MessageStore returns a driven.MessageStore.
func (s *Store) MessageStore() driven.MessageStore { return &messageStore{s} }

// VoteStore returns a driven.VoteStore.
func (s *Store) VoteStore() driven.VoteStore { return &voteStore{s} }

// VersionStore returns a driven.VersionStore.
func (s *Store) VersionStore() driven.VersionStore { return &versionStore{s} }

func (s *Store) collection(name string) *firestore.CollectionRef {
	return s.client.Collection(s.prefix + name)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// deleteAll removes every document matched by q and returns how many were
// deleted.
func (s *Store) deleteAll(ctx context.Context, q firestore.Query) (int, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, doc := range docs {
		job, err := bw.Delete(doc.Ref)
		if err != nil {
			bw.End()
			return 0, err
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return 0, err
		}
	}
	return len(docs), nil
}

// distinctChatIDs scans the chatId field of a collection.
func (s *Store) distinctChatIDs(ctx context.Context, collection string) ([]string, error) {
	iter := s.collection(collection).Select("chatId").Documents(ctx)
	defer iter.Stop()

	seen := map[string]struct{}{}
	ids := []string{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		id, _ := doc.Data()["chatId"].(string)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func domainError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrOutOfOrder)
}
