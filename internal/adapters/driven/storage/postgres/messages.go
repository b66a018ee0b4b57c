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

// MessageRepository implements driven.MessageStore.
type MessageRepository struct {
	pool *pgxpool.Pool
}

var _ driven.MessageStore = (*MessageRepository)(nil)

const messageColumns = "id, chat_id, role, content, author_id, state, created_at"

// AppendMessages inserts the batch in one transaction, skipping ids that
// already exist. The returned slice keeps input order.
func (r *MessageRepository) AppendMessages(ctx context.Context, msgs []domain.Message) ([]domain.Message, error) {
	defer logger.DeferLogDuration("msg.Append", time.Now())()

	inserted := []domain.Message{}
	if len(msgs) == 0 {
		return inserted, nil
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, m := range msgs {
			tag, err := tx.Exec(ctx, `
				INSERT INTO messages (`+messageColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO NOTHING`,
				m.ID, m.ChatID, string(m.Role), m.Content, m.AuthorID, string(m.State), m.CreatedAt)
			if err != nil {
				return fmt.Errorf("inserting message %s: %w", m.ID, err)
			}
			if tag.RowsAffected() == 1 {
				inserted = append(inserted, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("msgRepo.Append: %w", err)
	}
	return inserted, nil
}

// GetMessage returns the message with id or domain.ErrNotFound.
func (r *MessageRepository) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	defer logger.DeferLogDuration("msg.GetByID", time.Now())()

	rows, err := r.pool.Query(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	m, err := pgx.CollectOneRow(rows, scanMessage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	return &m, nil
}

// ListMessagesByChat returns the chat's messages in conversation order.
func (r *MessageRepository) ListMessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	defer logger.DeferLogDuration("msg.ListByChat", time.Now())()

	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = $1
		ORDER BY created_at, id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByChat: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByChat: %w", err)
	}
	return msgs, nil
}

// DeleteMessagesFrom removes messages created at or after from and returns
// them in conversation order.
func (r *MessageRepository) DeleteMessagesFrom(ctx context.Context, chatID string, from int64) ([]domain.Message, error) {
	defer logger.DeferLogDuration("msg.DeleteFrom", time.Now())()

	rows, err := r.pool.Query(ctx, `
		DELETE FROM messages WHERE chat_id = $1 AND created_at >= $2
		RETURNING `+messageColumns, chatID, from)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.DeleteFrom: %w", err)
	}
	deleted, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.DeleteFrom: %w", err)
	}
	domain.SortMessages(deleted)
	return deleted, nil
}

// DeleteMessagesByChat removes every message in the chat.
func (r *MessageRepository) DeleteMessagesByChat(ctx context.Context, chatID string) (int, error) {
	defer logger.DeferLogDuration("msg.DeleteByChat", time.Now())()

	tag, err := r.pool.Exec(ctx, "DELETE FROM messages WHERE chat_id = $1", chatID)
	if err != nil {
		return 0, fmt.Errorf("msgRepo.DeleteByChat: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListChatIDs returns the distinct chat ids referenced by messages.
func (r *MessageRepository) ListChatIDs(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, r.pool, "msgRepo.ListChatIDs",
		"SELECT DISTINCT chat_id FROM messages ORDER BY chat_id")
}

func scanMessage(row pgx.CollectableRow) (domain.Message, error) {
	var m domain.Message
	var role, state string
	err := row.Scan(&m.ID, &m.ChatID, &role, &m.Content, &m.AuthorID, &state, &m.CreatedAt)
	m.Role = domain.Role(role)
	m.State = domain.MessageState(state)
	return m, err
}

// queryStrings runs a single-column text query and collects the values.
func queryStrings(ctx context.Context, pool *pgxpool.Pool, op, query string, args ...any) ([]string, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return values, nil
}
