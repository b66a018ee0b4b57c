package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/chatstate/internal/adapters/driven/clock"
	"github.com/custodia-labs/chatstate/internal/adapters/driven/config/file"
	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/firestore"
	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/chatstate/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/chatstate/internal/adapters/driving/cli"
	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/core/services"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// connectTimeout bounds the retries against remote stores at startup.
var connectTimeout = 30 * time.Second

const (
	// embeddedPostgresPort is used when postgres is selected without a URL.
	embeddedPostgresPort = 54320
)

// stores are the driven adapters selected by configuration.
type stores struct {
	chats     driven.ChatStore
	messages  driven.MessageStore
	votes     driven.VoteStore
	versions  driven.VersionStore
	scheduler driven.SchedulerStore
	closers   []func() error
}

func (s *stores) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// bootstrap resolves configuration, opens the configured stores and builds
// the services.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	var (
		configStore driven.ConfigStore
		fileStore   *file.ConfigStore
	)
	if opts.Ephemeral {
		configStore = memory.NewConfigStore()
	} else {
		fs, err := file.NewConfigStore(opts.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		fileStore = fs
		configStore = fs
	}

	settings := services.NewSettingsService(configStore)
	cfg, err := settings.Get()
	if err != nil {
		return nil, fmt.Errorf("resolving settings: %w", err)
	}
	if opts.Ephemeral {
		cfg.Storage.Backend = domain.BackendMemory
		cfg.Storage.RedisAddr = ""
	}

	st, err := openStores(ctx, cfg.Storage, opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	clk := clock.NewMonotonic()
	guard := services.NewGuard(st.chats, st.versions)
	coord := services.NewCoordinator(st.chats, st.messages, st.votes, st.versions, clk, guard)
	sweeper := services.NewSweeper(coord, cfg.Scheduler.TombstoneRetention)

	svc := &cli.Services{
		Chats:       services.NewChatService(st.chats, clk, guard),
		Messages:    services.NewMessageService(st.messages, clk, clock.NewUUIDGenerator(), guard),
		Votes:       services.NewVoteService(st.votes, st.messages, guard),
		Documents:   services.NewDocumentService(st.versions, clk, guard),
		Coordinator: coord,
		Sweeper:     sweeper,
		Scheduler:   services.NewScheduler(cfg.Scheduler, st.scheduler, sweeper),
		Settings:    settings,
		Close:       st.close,
	}
	if fileStore != nil {
		svc.WatchConfig = func(ctx context.Context, onReload func()) error {
			return file.NewWatcher(fileStore, onReload).Run(ctx)
		}
	}

	logger.Debug("storage backend %s", cfg.Storage.Backend)
	return svc, nil
}

// openStores opens the backend named by cfg and, when redis.addr is set,
// moves votes into Redis. Stores opened before a failure are closed before
// the error is returned.
func openStores(ctx context.Context, cfg domain.StorageConfig, configDir string) (*stores, error) {
	st := &stores{}
	if err := st.open(ctx, cfg, configDir); err != nil {
		if closeErr := st.close(); closeErr != nil {
			logger.Warn("closing stores after failed open: %v", closeErr)
		}
		return nil, err
	}
	return st, nil
}

func (st *stores) open(ctx context.Context, cfg domain.StorageConfig, configDir string) error {
	dataDir := cfg.DataDir
	if dataDir == "" && configDir != "" {
		dataDir = filepath.Join(configDir, "data")
	}

	switch cfg.Backend {
	case domain.BackendMemory:
		st.chats = memory.NewChatStore()
		st.messages = memory.NewMessageStore()
		st.votes = memory.NewVoteStore()
		st.versions = memory.NewVersionStore()
		st.scheduler = memory.NewSchedulerStore()

	case domain.BackendSQLite:
		db, err := sqlite.NewStore(dataDir)
		if err != nil {
			return fmt.Errorf("opening sqlite: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		st.chats = db.ChatStore()
		st.messages = db.MessageStore()
		st.votes = db.VoteStore()
		st.versions = db.VersionStore()
		st.scheduler = db.SchedulerStore()

	case domain.BackendPostgres:
		url := cfg.PostgresURL
		if url == "" {
			if dataDir == "" {
				dir, err := file.DefaultDir()
				if err != nil {
					return err
				}
				dataDir = filepath.Join(dir, "data")
			}
			pg, embeddedURL, err := postgres.StartEmbedded(filepath.Join(dataDir, "postgres"), embeddedPostgresPort)
			if err != nil {
				return err
			}
			st.closers = append(st.closers, pg.Stop)
			url = embeddedURL
		}
		db, err := postgres.Connect(ctx, url, connectTimeout)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		st.closers = append(st.closers, func() error {
			db.Close()
			return nil
		})
		st.chats = db.ChatStore()
		st.messages = db.MessageStore()
		st.votes = db.VoteStore()
		st.versions = db.VersionStore()
		st.scheduler = memory.NewSchedulerStore()

	case domain.BackendFirestore:
		if cfg.FirestoreProject == "" {
			return fmt.Errorf("firestore.project is required: %w", domain.ErrInvalidInput)
		}
		db, err := firestore.Connect(ctx, cfg.FirestoreProject)
		if err != nil {
			return fmt.Errorf("connecting to firestore: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		st.chats = db.ChatStore()
		st.messages = db.MessageStore()
		st.votes = db.VoteStore()
		st.versions = db.VersionStore()
		st.scheduler = memory.NewSchedulerStore()

	default:
		return fmt.Errorf("storage backend %q: %w", cfg.Backend, domain.ErrInvalidInput)
	}

	if cfg.RedisAddr != "" {
		addr := cfg.RedisAddr
		if !strings.Contains(addr, "://") {
			addr = "redis://" + addr
		}
		votes, err := redis.Connect(ctx, addr, connectTimeout)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		st.closers = append(st.closers, votes.Close)
		st.votes = votes
	}

	return nil
}
