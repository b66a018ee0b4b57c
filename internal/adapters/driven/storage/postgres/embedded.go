package postgres

import (
	"fmt"
	"io"
	"path/filepath"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"

	"github.com/custodia-labs/chatstate/internal/logger"
)

// Embedded credentials for the local development database.
const (
	embeddedUser     = "chatstate"
	embeddedPassword = "chatstate"
	embeddedDatabase = "chatstate"
)

// StartEmbedded launches a PostgreSQL server whose data lives under dataDir
// and returns it together with a connection URL. The caller must Stop it.
func StartEmbedded(dataDir string, port uint32) (*embeddedpostgres.EmbeddedPostgres, string, error) {
	cfg := embeddedpostgres.DefaultConfig().
		Port(port).
		Username(embeddedUser).
		Password(embeddedPassword).
		Database(embeddedDatabase).
		DataPath(filepath.Join(dataDir, "data")).
		RuntimePath(filepath.Join(dataDir, "runtime")).
		Logger(io.Discard)

	db := embeddedpostgres.NewDatabase(cfg)
	logger.Info("Starting embedded PostgreSQL on port %d", port)
	if err := db.Start(); err != nil {
		return nil, "", fmt.Errorf("starting embedded postgres: %w", err)
	}

	url := fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		embeddedUser, embeddedPassword, port, embeddedDatabase)
	return db, url, nil
}
