package domain

// StorageBackend selects the store adapters.
type StorageBackend string

// Storage backends.
const (
	BackendMemory    StorageBackend = "memory"
	BackendSQLite    StorageBackend = "sqlite"
	BackendPostgres  StorageBackend = "postgres"
	BackendFirestore StorageBackend = "firestore"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case BackendMemory, BackendSQLite, BackendPostgres, BackendFirestore:
		return true
	default:
		return false
	}
}

// ServerConfig holds the runtime configuration of the engine.
type ServerConfig struct {
	Storage   StorageConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
}

// StorageConfig selects and configures the store adapters.
type StorageConfig struct {
	// Backend selects where chats, messages and versions live.
	Backend StorageBackend

	// DataDir is the sqlite database directory.
	DataDir string

	// PostgresURL is the pgx connection string.
	PostgresURL string

	// RedisAddr, when set, moves votes into Redis regardless of Backend.
	RedisAddr string

	// FirestoreProject is the Google Cloud project for the firestore backend.
	FirestoreProject string
}

// HTTPConfig configures the HTTP surface.
type HTTPConfig struct {
	// Addr is the listen address.
	Addr string

	// RateLimit is the sustained requests per second allowed per identity.
	RateLimit float64

	// Burst is the maximum burst per identity.
	Burst int

	// AllowedOrigins lists CORS origins.
	AllowedOrigins []string
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Storage: StorageConfig{
			Backend: BackendSQLite,
		},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			RateLimit:      20,
			Burst:          40,
			AllowedOrigins: []string{"*"},
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}
