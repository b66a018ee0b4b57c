package firestore

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

const chatsCollection = "chats"

type chatRecord struct {
	OwnerID    string `firestore:"ownerId"`
	Title      string `firestore:"title"`
	Visibility string `firestore:"visibility"`
	CreatedAt  int64  `firestore:"createdAt"`
	DeletedAt  int64  `firestore:"deletedAt"`
}

func (r chatRecord) toDomain(id string) domain.Chat {
	return domain.Chat{
		ID:         id,
		OwnerID:    r.OwnerID,
		Title:      r.Title,
		Visibility: domain.Visibility(r.Visibility),
		CreatedAt:  r.CreatedAt,
		DeletedAt:  r.DeletedAt,
	}
}

type chatStore struct {
	s *Store
}

func (c *chatStore) CreateChat(ctx context.Context, chat *domain.Chat) error {
	doc := c.s.collection(chatsCollection).Doc(chat.ID)
	_, err := doc.Create(ctx, chatRecord{
		OwnerID:    chat.OwnerID,
		Title:      chat.Title,
		Visibility: string(chat.Visibility),
		CreatedAt:  chat.CreatedAt,
		DeletedAt:  chat.DeletedAt,
	})
	if status.Code(err) == codes.AlreadyExists {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("firestore: creating chat: %w", err)
	}
	return nil
}

func (c *chatStore) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	snap, err := c.s.collection(chatsCollection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore: getting chat: %w", err)
	}
	return decodeChat(snap)
}

func (c *chatStore) ListChatsByOwner(ctx context.Context, ownerID string) ([]domain.Chat, error) {
	docs, err := c.s.collection(chatsCollection).
		Where("ownerId", "==", ownerID).
		Where("deletedAt", "==", 0).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore: listing chats: %w", err)
	}

	chats := make([]domain.Chat, 0, len(docs))
	for _, doc := range docs {
		chat, err := decodeChat(doc)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].CreatedAt != chats[j].CreatedAt {
			return chats[i].CreatedAt > chats[j].CreatedAt
		}
		return chats[i].ID > chats[j].ID
	})
	return chats, nil
}

func (c *chatStore) SetVisibility(ctx context.Context, id string, visibility domain.Visibility) (*domain.Chat, error) {
	ref := c.s.collection(chatsCollection).Doc(id)
	var updated *domain.Chat
	err := c.s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		chat, err := decodeChat(snap)
		if err != nil {
			return err
		}
		if chat.IsDeleted() {
			return domain.ErrNotFound
		}
		chat.Visibility = visibility
		updated = chat
		return tx.Update(ref, []firestore.Update{{Path: "visibility", Value: string(visibility)}})
	})
	if err != nil {
		return nil, wrapTxError("setting visibility", err)
	}
	return updated, nil
}

func (c *chatStore) MarkDeleted(ctx context.Context, id string, deletedAt int64) error {
	ref := c.s.collection(chatsCollection).Doc(id)
	err := c.s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		var rec chatRecord
		if err := snap.DataTo(&rec); err != nil {
			return err
		}
		if rec.DeletedAt != 0 {
			return nil
		}
		return tx.Update(ref, []firestore.Update{{Path: "deletedAt", Value: deletedAt}})
	})
	if err != nil {
		return wrapTxError("marking chat deleted", err)
	}
	return nil
}

func (c *chatStore) PurgeDeleted(ctx context.Context, before int64) (int, error) {
	n, err := c.s.deleteAll(ctx, c.s.collection(chatsCollection).
		Where("deletedAt", ">", 0).
		Where("deletedAt", "<", before))
	if err != nil {
		return 0, fmt.Errorf("firestore: purging chats: %w", err)
	}
	return n, nil
}

func decodeChat(snap *firestore.DocumentSnapshot) (*domain.Chat, error) {
	var rec chatRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("firestore: decoding chat %s: %w", snap.Ref.ID, err)
	}
	chat := rec.toDomain(snap.Ref.ID)
	return &chat, nil
}

// wrapTxError passes domain errors returned from a transaction through
// unchanged and wraps everything else.
func wrapTxError(op string, err error) error {
	if domainError(err) {
		return err
	}
	return fmt.Errorf("firestore: %s: %w", op, err)
}
