package driving

import "github.com/custodia-labs/chatstate/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get resolves the current configuration, applying defaults and
	// environment overrides.
	Get() (*domain.ServerConfig, error)

	// Set stores a single key. Unknown keys return domain.ErrInvalidInput.
	Set(key, value string) error

	// Keys lists the supported configuration keys.
	Keys() []string
}
