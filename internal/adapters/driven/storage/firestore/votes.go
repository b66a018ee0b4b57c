package firestore

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

const votesCollection = "votes"

type voteRecord struct {
	ChatID    string `firestore:"chatId"`
	IsUpvoted bool   `firestore:"isUpvoted"`
}

type voteStore struct {
	s *Store
}

func (c *voteStore) UpsertVote(ctx context.Context, vote *domain.Vote) error {
	doc := c.s.collection(votesCollection).Doc(vote.MessageID)
	if _, err := doc.Set(ctx, voteRecord{ChatID: vote.ChatID, IsUpvoted: vote.IsUpvoted}); err != nil {
		return fmt.Errorf("firestore: saving vote: %w", err)
	}
	return nil
}

func (c *voteStore) GetVote(ctx context.Context, messageID string) (*domain.Vote, error) {
	snap, err := c.s.collection(votesCollection).Doc(messageID).Get(ctx)
	if isNotFound(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore: getting vote: %w", err)
	}
	v, err := decodeVote(snap)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *voteStore) ListVotesByChat(ctx context.Context, chatID string) ([]domain.Vote, error) {
	docs, err := c.s.collection(votesCollection).Where("chatId", "==", chatID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore: listing votes: %w", err)
	}
	votes := make([]domain.Vote, 0, len(docs))
	for _, doc := range docs {
		v, err := decodeVote(doc)
		if err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	sort.Slice(votes, func(i, j int) bool { return votes[i].MessageID < votes[j].MessageID })
	return votes, nil
}

func (c *voteStore) DeleteVotesByMessages(ctx context.Context, chatID string, messageIDs []string) (int, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	col := c.s.collection(votesCollection)
	refs := make([]*firestore.DocumentRef, 0, len(messageIDs))
	seen := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		refs = append(refs, col.Doc(id))
	}

	var deleted int
	err := c.s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		deleted = 0
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			if !snap.Exists() {
				continue
			}
			v, err := decodeVote(snap)
			if err != nil {
				return err
			}
			if v.ChatID != chatID {
				continue
			}
			if err := tx.Delete(snap.Ref); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("firestore: deleting votes: %w", err)
	}
	return deleted, nil
}

func (c *voteStore) DeleteVotesByChat(ctx context.Context, chatID string) (int, error) {
	n, err := c.s.deleteAll(ctx, c.s.collection(votesCollection).Where("chatId", "==", chatID))
	if err != nil {
		return 0, fmt.Errorf("firestore: deleting votes: %w", err)
	}
	return n, nil
}

func (c *voteStore) ListChatIDs(ctx context.Context) ([]string, error) {
	ids, err := c.s.distinctChatIDs(ctx, votesCollection)
	if err != nil {
		return nil, fmt.Errorf("firestore: listing vote chats: %w", err)
	}
	return ids, nil
}

func decodeVote(snap *firestore.DocumentSnapshot) (domain.Vote, error) {
	var rec voteRecord
	if err := snap.DataTo(&rec); err != nil {
		return domain.Vote{}, fmt.Errorf("firestore: decoding vote %s: %w", snap.Ref.ID, err)
	}
	return domain.Vote{ChatID: rec.ChatID, MessageID: snap.Ref.ID, IsUpvoted: rec.IsUpvoted}, nil
}
