package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// ==================== Message Store ====================

// messageStore implements driven.MessageStore.
type messageStore struct {
	store *Store
}

var _ driven.MessageStore = (*messageStore)(nil)

const messageColumns = "id, chat_id, role, content, author_id, state, created_at"

// AppendMessages inserts every message whose id is new, in one transaction.
func (s *messageStore) AppendMessages(ctx context.Context, msgs []domain.Message) ([]domain.Message, error) {
	inserted := []domain.Message{}
	if len(msgs) == 0 {
		return inserted, nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		res, err := stmt.ExecContext(ctx, m.ID, m.ChatID, string(m.Role), m.Content,
			m.AuthorID, string(m.State), m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("inserting message %s: %w", m.ID, err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return nil, err
		}
		if n == 1 {
			inserted = append(inserted, m)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing messages: %w", err)
	}
	return inserted, nil
}

// GetMessage retrieves a message by ID.
func (s *messageStore) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
	return scanMessage(row)
}

// ListMessagesByChat returns a chat's messages ordered by CreatedAt, then ID.
func (s *messageStore) ListMessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = ?
		ORDER BY created_at, id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	return collectMessages(rows)
}

// DeleteMessagesFrom removes every message in the chat with CreatedAt >= from.
// The rows come back from a single DELETE ... RETURNING statement.
func (s *messageStore) DeleteMessagesFrom(ctx context.Context, chatID string, from int64) ([]domain.Message, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		DELETE FROM messages WHERE chat_id = ? AND created_at >= ?
		RETURNING `+messageColumns, chatID, from)
	if err != nil {
		return nil, fmt.Errorf("deleting messages: %w", err)
	}
	deleted, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	domain.SortMessages(deleted)
	return deleted, nil
}

// DeleteMessagesByChat removes every message in the chat.
func (s *messageStore) DeleteMessagesByChat(ctx context.Context, chatID string) (int, error) {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM messages WHERE chat_id = ?", chatID)
	if err != nil {
		return 0, fmt.Errorf("deleting messages: %w", err)
	}
	return rowsAffected(res)
}

// ListChatIDs returns the distinct chat ids referenced by stored messages.
func (s *messageStore) ListChatIDs(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, s.store.db, "SELECT DISTINCT chat_id FROM messages ORDER BY chat_id")
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// collectMessages scans and closes rows.
func collectMessages(rows *sql.Rows) ([]domain.Message, error) {
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}

// queryStrings runs a single-column query.
func queryStrings(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating: %w", err)
	}
	return values, nil
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	var m domain.Message
	var role, state string
	if err := row.Scan(&m.ID, &m.ChatID, &role, &m.Content, &m.AuthorID, &state, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning message: %w", err)
	}
	m.Role = domain.Role(role)
	m.State = domain.MessageState(state)
	return &m, nil
}
