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

// VersionRepository implements driven.VersionStore.
type VersionRepository struct {
	pool *pgxpool.Pool
}

var _ driven.VersionStore = (*VersionRepository)(nil)

const versionColumns = "document_id, chat_id, owner_id, kind, title, content, created_at"

// SaveVersion takes a transaction-scoped advisory lock on the document so two
// concurrent saves cannot both pass the ordering check.
func (r *VersionRepository) SaveVersion(ctx context.Context, version *domain.Version) error {
	defer logger.DeferLogDuration("version.Save", time.Now())()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", version.DocumentID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO versions (`+versionColumns+`)
			SELECT $1, $2, $3, $4, $5, $6, $7
			WHERE NOT EXISTS (
				SELECT 1 FROM versions WHERE document_id = $1 AND created_at >= $7
			)`,
			version.DocumentID, version.ChatID, version.OwnerID, string(version.Kind),
			version.Title, version.Content, version.CreatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrOutOfOrder
		}
		return nil
	})
	if errors.Is(err, domain.ErrOutOfOrder) {
		return err
	}
	if err != nil {
		return fmt.Errorf("versionRepo.Save: %w", err)
	}
	return nil
}

// GetVersion returns the version of documentID saved at createdAt.
func (r *VersionRepository) GetVersion(ctx context.Context, documentID string, createdAt int64) (*domain.Version, error) {
	defer logger.DeferLogDuration("version.Get", time.Now())()

	return r.one(ctx, "versionRepo.Get", `
		SELECT `+versionColumns+` FROM versions
		WHERE document_id = $1 AND created_at = $2`, documentID, createdAt)
}

// LatestVersion returns the newest version of documentID.
func (r *VersionRepository) LatestVersion(ctx context.Context, documentID string) (*domain.Version, error) {
	defer logger.DeferLogDuration("version.Latest", time.Now())()

	return r.one(ctx, "versionRepo.Latest", `
		SELECT `+versionColumns+` FROM versions
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, documentID)
}

// ListVersions returns every version of documentID, oldest first.
func (r *VersionRepository) ListVersions(ctx context.Context, documentID string) ([]domain.Version, error) {
	defer logger.DeferLogDuration("version.List", time.Now())()

	rows, err := r.pool.Query(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE document_id = $1
		ORDER BY created_at`, documentID)
	if err != nil {
		return nil, fmt.Errorf("versionRepo.List: %w", err)
	}
	versions, err := pgx.CollectRows(rows, scanVersion)
	if err != nil {
		return nil, fmt.Errorf("versionRepo.List: %w", err)
	}
	return versions, nil
}

// DeleteVersionsAfter removes versions of documentID newer than after.
func (r *VersionRepository) DeleteVersionsAfter(ctx context.Context, documentID string, after int64) (int, error) {
	defer logger.DeferLogDuration("version.DeleteAfter", time.Now())()

	tag, err := r.pool.Exec(ctx,
		"DELETE FROM versions WHERE document_id = $1 AND created_at > $2", documentID, after)
	if err != nil {
		return 0, fmt.Errorf("versionRepo.DeleteAfter: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteVersionsByChat removes versions scoped to the chat.
func (r *VersionRepository) DeleteVersionsByChat(ctx context.Context, chatID string) (int, error) {
	defer logger.DeferLogDuration("version.DeleteByChat", time.Now())()

	if chatID == "" {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, "DELETE FROM versions WHERE chat_id = $1", chatID)
	if err != nil {
		return 0, fmt.Errorf("versionRepo.DeleteByChat: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListChatIDs returns the distinct chat ids referenced by versions.
func (r *VersionRepository) ListChatIDs(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, r.pool, "versionRepo.ListChatIDs",
		"SELECT DISTINCT chat_id FROM versions WHERE chat_id <> '' ORDER BY chat_id")
}

func (r *VersionRepository) one(ctx context.Context, op, query string, args ...any) (*domain.Version, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	v, err := pgx.CollectOneRow(rows, scanVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &v, nil
}

func scanVersion(row pgx.CollectableRow) (domain.Version, error) {
	var v domain.Version
	var kind string
	err := row.Scan(&v.DocumentID, &v.ChatID, &v.OwnerID, &kind, &v.Title, &v.Content, &v.CreatedAt)
	v.Kind = domain.DocumentKind(kind)
	return v, err
}
