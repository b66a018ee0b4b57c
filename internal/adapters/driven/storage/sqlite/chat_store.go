package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// ==================== Chat Store ====================

// chatStore implements driven.ChatStore.
type chatStore struct {
	store *Store
}

var _ driven.ChatStore = (*chatStore)(nil)

const chatColumns = "id, owner_id, title, visibility, created_at, deleted_at"

// CreateChat inserts a new chat.
func (s *chatStore) CreateChat(ctx context.Context, chat *domain.Chat) error {
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO chats (id, owner_id, title, visibility, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, chat.ID, chat.OwnerID, chat.Title, string(chat.Visibility), chat.CreatedAt, chat.DeletedAt)
	if err != nil {
		return fmt.Errorf("inserting chat: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrConflict
	}
	return nil
}

// GetChat retrieves a chat or tombstone by ID.
func (s *chatStore) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+chatColumns+" FROM chats WHERE id = ?", id)
	return scanChat(row)
}

// ListChatsByOwner returns an owner's live chats, newest first.
func (s *chatStore) ListChatsByOwner(ctx context.Context, ownerID string) ([]domain.Chat, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+chatColumns+` FROM chats
		WHERE owner_id = ? AND deleted_at = 0
		ORDER BY created_at DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying chats: %w", err)
	}
	defer rows.Close()

	chats := []domain.Chat{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chats: %w", err)
	}
	return chats, nil
}

// SetVisibility updates a live chat's visibility.
func (s *chatStore) SetVisibility(ctx context.Context, id string, visibility domain.Visibility) (*domain.Chat, error) {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE chats SET visibility = ? WHERE id = ? AND deleted_at = 0", string(visibility), id)
	if err != nil {
		return nil, fmt.Errorf("updating visibility: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound
	}
	return s.GetChat(ctx, id)
}

// MarkDeleted turns a chat into a tombstone, keeping an earlier DeletedAt.
func (s *chatStore) MarkDeleted(ctx context.Context, id string, deletedAt int64) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE chats SET deleted_at = ? WHERE id = ? AND deleted_at = 0", deletedAt, id)
	if err != nil {
		return fmt.Errorf("marking chat deleted: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		// Either already a tombstone or absent.
		if _, err := s.GetChat(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// PurgeDeleted removes tombstones older than before.
func (s *chatStore) PurgeDeleted(ctx context.Context, before int64) (int, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM chats WHERE deleted_at > 0 AND deleted_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("purging tombstones: %w", err)
	}
	return rowsAffected(res)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (*domain.Chat, error) {
	var chat domain.Chat
	var visibility string
	if err := row.Scan(&chat.ID, &chat.OwnerID, &chat.Title, &visibility,
		&chat.CreatedAt, &chat.DeletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chat: %w", err)
	}
	chat.Visibility = domain.Visibility(visibility)
	return &chat, nil
}
