package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
)

// ==================== Version Store ====================

// versionStore implements driven.VersionStore.
type versionStore struct {
	store *Store
}

var _ driven.VersionStore = (*versionStore)(nil)

const versionColumns = "document_id, chat_id, owner_id, kind, title, content, created_at"

// SaveVersion inserts a version only if no version of the document is at or
// after its CreatedAt. The check is part of the INSERT statement.
func (s *versionStore) SaveVersion(ctx context.Context, v *domain.Version) error {
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO versions (`+versionColumns+`)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM versions WHERE document_id = ? AND created_at >= ?
		)
	`, v.DocumentID, v.ChatID, v.OwnerID, string(v.Kind), v.Title, v.Content, v.CreatedAt,
		v.DocumentID, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting version: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrOutOfOrder
	}
	return nil
}

// GetVersion retrieves the version created at exactly createdAt.
func (s *versionStore) GetVersion(ctx context.Context, documentID string, createdAt int64) (*domain.Version, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+versionColumns+" FROM versions WHERE document_id = ? AND created_at = ?",
		documentID, createdAt)
	return scanVersion(row)
}

// LatestVersion returns the newest version of a document.
func (s *versionStore) LatestVersion(ctx context.Context, documentID string) (*domain.Version, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE document_id = ? ORDER BY created_at DESC LIMIT 1
	`, documentID)
	return scanVersion(row)
}

// ListVersions returns a document's versions in ascending order.
func (s *versionStore) ListVersions(ctx context.Context, documentID string) ([]domain.Version, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE document_id = ? ORDER BY created_at
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	versions := []domain.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating versions: %w", err)
	}
	return versions, nil
}

// DeleteVersionsAfter removes every version with CreatedAt > after.
func (s *versionStore) DeleteVersionsAfter(ctx context.Context, documentID string, after int64) (int, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM versions WHERE document_id = ? AND created_at > ?", documentID, after)
	if err != nil {
		return 0, fmt.Errorf("deleting versions: %w", err)
	}
	return rowsAffected(res)
}

// DeleteVersionsByChat removes every version scoped to a chat.
func (s *versionStore) DeleteVersionsByChat(ctx context.Context, chatID string) (int, error) {
	if chatID == "" {
		return 0, nil
	}
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM versions WHERE chat_id = ?", chatID)
	if err != nil {
		return 0, fmt.Errorf("deleting versions: %w", err)
	}
	return rowsAffected(res)
}

// ListChatIDs returns the distinct chat scopes referenced by stored versions.
func (s *versionStore) ListChatIDs(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, s.store.db,
		"SELECT DISTINCT chat_id FROM versions WHERE chat_id <> '' ORDER BY chat_id")
}

func scanVersion(row rowScanner) (*domain.Version, error) {
	var v domain.Version
	var kind string
	if err := row.Scan(&v.DocumentID, &v.ChatID, &v.OwnerID, &kind, &v.Title, &v.Content, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning version: %w", err)
	}
	v.Kind = domain.DocumentKind(kind)
	return &v, nil
}
