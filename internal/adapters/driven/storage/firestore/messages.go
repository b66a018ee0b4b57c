package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

const messagesCollection = "messages"

type messageRecord struct {
	ChatID    string `firestore:"chatId"`
	Role      string `firestore:"role"`
	Content   string `firestore:"content"`
	AuthorID  string `firestore:"authorId"`
	State     string `firestore:"state"`
	CreatedAt int64  `firestore:"createdAt"`
}

func newMessageRecord(m domain.Message) messageRecord {
	return messageRecord{
		ChatID:    m.ChatID,
		Role:      string(m.Role),
		Content:   m.Content,
		AuthorID:  m.AuthorID,
		State:     string(m.State),
		CreatedAt: m.CreatedAt,
	}
}

type messageStore struct {
	s *Store
}

// AppendMessages reads every target document and creates the missing ones in
// a single transaction.
func (c *messageStore) AppendMessages(ctx context.Context, msgs []domain.Message) ([]domain.Message, error) {
	inserted := []domain.Message{}
	if len(msgs) == 0 {
		return inserted, nil
	}

	col := c.s.collection(messagesCollection)
	refs := make([]*firestore.DocumentRef, 0, len(msgs))
	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		refs = append(refs, col.Doc(m.ID))
	}

	err := c.s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		inserted = inserted[:0]

		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		exists := make(map[string]bool, len(snaps))
		for _, snap := range snaps {
			exists[snap.Ref.ID] = snap.Exists()
		}

		written := make(map[string]struct{}, len(refs))
		for _, m := range msgs {
			if _, ok := written[m.ID]; ok || exists[m.ID] {
				continue
			}
			written[m.ID] = struct{}{}
			if err := tx.Create(col.Doc(m.ID), newMessageRecord(m)); err != nil {
				return err
			}
			inserted = append(inserted, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("firestore: appending messages: %w", err)
	}
	return inserted, nil
}

func (c *messageStore) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	snap, err := c.s.collection(messagesCollection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore: getting message: %w", err)
	}
	m, err := decodeMessage(snap)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *messageStore) ListMessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	docs, err := c.s.collection(messagesCollection).Where("chatId", "==", chatID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore: listing messages: %w", err)
	}
	return decodeMessages(docs)
}

// DeleteMessagesFrom reads the whole chat and applies the timestamp cut in
// Go. An equality plus range filter would need a composite index.
func (c *messageStore) DeleteMessagesFrom(ctx context.Context, chatID string, from int64) ([]domain.Message, error) {
	q := c.s.collection(messagesCollection).Where("chatId", "==", chatID)

	var deleted []domain.Message
	err := c.s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(q).GetAll()
		if err != nil {
			return err
		}
		deleted = deleted[:0]
		for _, doc := range docs {
			m, err := decodeMessage(doc)
			if err != nil {
				return err
			}
			if m.CreatedAt < from {
				continue
			}
			if err := tx.Delete(doc.Ref); err != nil {
				return err
			}
			deleted = append(deleted, m)
		}
		domain.SortMessages(deleted)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("firestore: deleting messages: %w", err)
	}
	return deleted, nil
}

func (c *messageStore) DeleteMessagesByChat(ctx context.Context, chatID string) (int, error) {
	n, err := c.s.deleteAll(ctx, c.s.collection(messagesCollection).Where("chatId", "==", chatID))
	if err != nil {
		return 0, fmt.Errorf("firestore: deleting messages: %w", err)
	}
	return n, nil
}

func (c *messageStore) ListChatIDs(ctx context.Context) ([]string, error) {
	ids, err := c.s.distinctChatIDs(ctx, messagesCollection)
	if err != nil {
		return nil, fmt.Errorf("firestore: listing message chats: %w", err)
	}
	return ids, nil
}

func decodeMessage(snap *firestore.DocumentSnapshot) (domain.Message, error) {
	var rec messageRecord
	if err := snap.DataTo(&rec); err != nil {
		return domain.Message{}, fmt.Errorf("firestore: decoding message %s: %w", snap.Ref.ID, err)
	}
	return domain.Message{
		ID:        snap.Ref.ID,
		ChatID:    rec.ChatID,
		Role:      domain.Role(rec.Role),
		Content:   rec.Content,
		AuthorID:  rec.AuthorID,
		State:     domain.MessageState(rec.State),
		CreatedAt: rec.CreatedAt,
	}, nil
}

// decodeMessages returns the snapshots as messages ordered by CreatedAt, then ID.
func decodeMessages(docs []*firestore.DocumentSnapshot) ([]domain.Message, error) {
	msgs := make([]domain.Message, 0, len(docs))
	for _, doc := range docs {
		m, err := decodeMessage(doc)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	domain.SortMessages(msgs)
	return msgs, nil
}
