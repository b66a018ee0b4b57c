package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// ChatRepository implements driven.ChatStore.
type ChatRepository struct {
	pool *pgxpool.Pool
}

var _ driven.ChatStore = (*ChatRepository)(nil)

const chatColumns = "id, owner_id, title, visibility, created_at, deleted_at"

// CreateChat inserts the chat. An existing id yields domain.ErrConflict.
func (r *ChatRepository) CreateChat(ctx context.Context, chat *domain.Chat) error {
	defer logger.DeferLogDuration("chat.Create", time.Now())()

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO chats (`+chatColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		chat.ID, chat.OwnerID, chat.Title, string(chat.Visibility), chat.CreatedAt, chat.DeletedAt)
	if err != nil {
		return fmt.Errorf("chatRepo.Create: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// GetChat returns the chat, tombstoned or not, or domain.ErrNotFound.
func (r *ChatRepository) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	defer logger.DeferLogDuration("chat.Get", time.Now())()

	rows, err := r.pool.Query(ctx, "SELECT "+chatColumns+" FROM chats WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.Get: %w", err)
	}
	chat, err := pgx.CollectOneRow(rows, scanChat)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatRepo.Get: %w", err)
	}
	return &chat, nil
}

// ListChatsByOwner returns the owner's live chats, newest first.
func (r *ChatRepository) ListChatsByOwner(ctx context.Context, ownerID string) ([]domain.Chat, error) {
	defer logger.DeferLogDuration("chat.ListByOwner", time.Now())()

	rows, err := r.pool.Query(ctx, `
		SELECT `+chatColumns+` FROM chats
		WHERE owner_id = $1 AND deleted_at = 0
		ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ListByOwner: %w", err)
	}
	chats, err := pgx.CollectRows(rows, scanChat)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ListByOwner: %w", err)
	}
	return chats, nil
}

// SetVisibility updates a live chat and returns it.
func (r *ChatRepository) SetVisibility(ctx context.Context, id string, visibility domain.Visibility) (*domain.Chat, error) {
	defer logger.DeferLogDuration("chat.SetVisibility", time.Now())()

	rows, err := r.pool.Query(ctx, `
		UPDATE chats SET visibility = $2
		WHERE id = $1 AND deleted_at = 0
		RETURNING `+chatColumns, id, string(visibility))
	if err != nil {
		return nil, fmt.Errorf("chatRepo.SetVisibility: %w", err)
	}
	chat, err := pgx.CollectOneRow(rows, scanChat)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatRepo.SetVisibility: %w", err)
	}
	return &chat, nil
}

// MarkDeleted sets deleted_at once. A repeated call on a tombstone succeeds
// without moving the timestamp.
func (r *ChatRepository) MarkDeleted(ctx context.Context, id string, deletedAt int64) error {
	defer logger.DeferLogDuration("chat.MarkDeleted", time.Now())()

	var found bool
	err := r.pool.QueryRow(ctx, `
		WITH updated AS (
			UPDATE chats SET deleted_at = $2 WHERE id = $1 AND deleted_at = 0 RETURNING id
		)
		SELECT EXISTS (SELECT 1 FROM updated) OR EXISTS (SELECT 1 FROM chats WHERE id = $1)`,
		id, deletedAt).Scan(&found)
	if err != nil {
		return fmt.Errorf("chatRepo.MarkDeleted: %w", err)
	}
	if !found {
		return domain.ErrNotFound
	}
	return nil
}

// PurgeDeleted removes tombstones written before the cutoff.
func (r *ChatRepository) PurgeDeleted(ctx context.Context, before int64) (int, error) {
	defer logger.DeferLogDuration("chat.PurgeDeleted", time.Now())()

	tag, err := r.pool.Exec(ctx,
		"DELETE FROM chats WHERE deleted_at <> 0 AND deleted_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("chatRepo.PurgeDeleted: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanChat(row pgx.CollectableRow) (domain.Chat, error) {
	var c domain.Chat
	var visibility string
	err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &visibility, &c.CreatedAt, &c.DeletedAt)
	c.Visibility = domain.Visibility(visibility)
	return c, err
}
