package firestore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

const versionsCollection = "versions"

type versionRecord struct {
	DocumentID string `firestore:"documentId"`
	ChatID     string `firestore:"chatId"`
	OwnerID    string `firestore:"ownerId"`
	Kind       string `firestore:"kind"`
	Title      string `firestore:"title"`
	Content    string `firestore:"content"`
	CreatedAt  int64  `firestore:"createdAt"`
}

type versionStore struct {
	s *Store
}

// versionPrefix is the id prefix shared by every version of a document. The
// escaped id never contains '@', so no document's prefix extends another's.
func versionPrefix(documentID string) string {
	return strings.ReplaceAll(url.PathEscape(documentID), "@", "%40") + "@"
}

// versionDocID is unique per (document, createdAt) and sorts by time within
// a document.
func versionDocID(documentID string, createdAt int64) string {
	return fmt.Sprintf("%s%020d", versionPrefix(documentID), createdAt)
}

// versionIDBound sorts after every version id of the document: the prefix is
// followed only by digits, and ':' sorts after '9'.
func versionIDBound(documentID string) string {
	return versionPrefix(documentID) + ":"
}

// byDocument selects a document's versions by id range, so ordering and
// range deletes use the built-in name index and need no composite index.
func (c *versionStore) byDocument(documentID string) firestore.Query {
	return c.s.collection(versionsCollection).
		Where(firestore.DocumentID, ">=", versionPrefix(documentID)).
		Where(firestore.DocumentID, "<", versionIDBound(documentID))
}

func (c *versionStore) latestQuery(documentID string) firestore.Query {
	return c.byDocument(documentID).OrderBy(firestore.DocumentID, firestore.Desc).Limit(1)
}

// SaveVersion reads the latest version and creates the new one in the same
// transaction. Concurrent saves of one document contend on that read.
func (c *versionStore) SaveVersion(ctx context.Context, version *domain.Version) error {
	latestQuery := c.latestQuery(version.DocumentID)
	ref := c.s.collection(versionsCollection).Doc(versionDocID(version.DocumentID, version.CreatedAt))

	err := c.s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		latest, err := tx.Documents(latestQuery).GetAll()
		if err != nil {
			return err
		}
		if len(latest) > 0 {
			var rec versionRecord
			if err := latest[0].DataTo(&rec); err != nil {
				return err
			}
			if version.CreatedAt <= rec.CreatedAt {
				return domain.ErrOutOfOrder
			}
		}
		return tx.Create(ref, versionRecord{
			DocumentID: version.DocumentID,
			ChatID:     version.ChatID,
			OwnerID:    version.OwnerID,
			Kind:       string(version.Kind),
			Title:      version.Title,
			Content:    version.Content,
			CreatedAt:  version.CreatedAt,
		})
	})
	if errors.Is(err, domain.ErrOutOfOrder) {
		return domain.ErrOutOfOrder
	}
	if err != nil {
		return fmt.Errorf("firestore: saving version: %w", err)
	}
	return nil
}

// GetVersion reads the version document keyed by documentID and createdAt.
func (c *versionStore) GetVersion(ctx context.Context, documentID string, createdAt int64) (*domain.Version, error) {
	snap, err := c.s.collection(versionsCollection).Doc(versionDocID(documentID, createdAt)).Get(ctx)
	if isNotFound(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore: getting version: %w", err)
	}
	v, err := decodeVersion(snap)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// LatestVersion returns the highest-keyed version in the document's id range.
func (c *versionStore) LatestVersion(ctx context.Context, documentID string) (*domain.Version, error) {
	docs, err := c.latestQuery(documentID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore: getting latest version: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	v, err := decodeVersion(docs[0])
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *versionStore) ListVersions(ctx context.Context, documentID string) ([]domain.Version, error) {
	docs, err := c.byDocument(documentID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore: listing versions: %w", err)
	}
	versions := make([]domain.Version, 0, len(docs))
	for _, doc := range docs {
		v, err := decodeVersion(doc)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	domain.SortVersions(versions)
	return versions, nil
}

// DeleteVersionsAfter deletes the ids above after within the document's range.
func (c *versionStore) DeleteVersionsAfter(ctx context.Context, documentID string, after int64) (int, error) {
	n, err := c.s.deleteAll(ctx, c.s.collection(versionsCollection).
		Where(firestore.DocumentID, ">", versionDocID(documentID, after)).
		Where(firestore.DocumentID, "<", versionIDBound(documentID)))
	if err != nil {
		return 0, fmt.Errorf("firestore: deleting versions: %w", err)
	}
	return n, nil
}

func (c *versionStore) DeleteVersionsByChat(ctx context.Context, chatID string) (int, error) {
	if chatID == "" {
		return 0, nil
	}
	n, err := c.s.deleteAll(ctx, c.s.collection(versionsCollection).Where("chatId", "==", chatID))
	if err != nil {
		return 0, fmt.Errorf("firestore: deleting versions: %w", err)
	}
	return n, nil
}

func (c *versionStore) ListChatIDs(ctx context.Context) ([]string, error) {
	ids, err := c.s.distinctChatIDs(ctx, versionsCollection)
	if err != nil {
		return nil, fmt.Errorf("firestore: listing version chats: %w", err)
	}
	return ids, nil
}

func decodeVersion(snap *firestore.DocumentSnapshot) (domain.Version, error) {
	var rec versionRecord
	if err := snap.DataTo(&rec); err != nil {
		return domain.Version{}, fmt.Errorf("firestore: decoding version %s: %w", snap.Ref.ID, err)
	}
	return domain.Version{
		DocumentID: rec.DocumentID,
		ChatID:     rec.ChatID,
		OwnerID:    rec.OwnerID,
		Kind:       domain.DocumentKind(rec.Kind),
		Title:      rec.Title,
		Content:    rec.Content,
		CreatedAt:  rec.CreatedAt,
	}, nil
}
