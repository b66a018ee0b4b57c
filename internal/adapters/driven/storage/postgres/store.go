// Package postgres implements the chat, message, vote and version stores on
// PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// Store owns the pool shared by every Postgres-backed store.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool to databaseURL, retrying with exponential backoff
// until maxWait has passed, then applies pending migrations.
func Connect(ctx context.Context, databaseURL string, maxWait time.Duration) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres url: %w", err)
	}

	pool, err := backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
		if err != nil {
			logger.Warn("postgres connect failed, retrying: %v", err)
			return nil, err
		}
		if err := pool.Ping(connectCtx); err != nil {
			pool.Close()
			logger.Warn("postgres ping failed, retrying: %v", err)
			return nil, err
		}
		return pool, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(maxWait))
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	store := NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an existing pool. Call Migrate before first use.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ChatStore returns a ChatStore backed by this pool.
func (s *Store) ChatStore() driven.ChatStore {
	return &ChatRepository{pool: s.pool}
}

// MessageStore returns a MessageStore backed by this pool.
func (s *Store) MessageStore() driven.MessageStore {
	return &MessageRepository{pool: s.pool}
}

// VoteStore returns a VoteStore backed by this pool.
func (s *Store) VoteStore() driven.VoteStore {
	return &VoteRepository{pool: s.pool}
}

// VersionStore returns a VersionStore backed by this pool.
func (s *Store) VersionStore() driven.VersionStore {
	return &VersionRepository{pool: s.pool}
}

// Migrate applies every embedded .up.sql file not yet recorded in schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		script, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx,
				"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING", version)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return errAlreadyApplied
			}
			_, err = tx.Exec(ctx, string(script))
			return err
		})
		if errors.Is(err, errAlreadyApplied) {
			continue
		}
		if err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		logger.Debug("postgres: applied migration %s", name)
	}
	return nil
}

var errAlreadyApplied = errors.New("migration already applied")
