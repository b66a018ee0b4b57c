package file

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/chatstate/internal/logger"
)

// LoadEnv merges the given .env files into the process environment. Variables
// that are already set win. Missing files are skipped.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		err := godotenv.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		logger.Debug("loaded environment from %s", path)
	}
	return nil
}
