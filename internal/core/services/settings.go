package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driven"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyStorageBackend     = "storage.backend"
	keyStorageDataDir     = "storage.data_dir"
	keyPostgresURL        = "postgres.url"
	keyRedisAddr          = "redis.addr"
	keyFirestoreProject   = "firestore.project"
	keyHTTPAddr           = "http.addr"
	keyHTTPRateLimit      = "http.rate_limit"
	keyHTTPBurst          = "http.burst"
	keyHTTPAllowedOrigins = "http.allowed_origins"
	keySchedulerEnabled   = "scheduler.enabled"
	keyOrphanSweepEvery   = "scheduler.orphan_sweep_interval"
	keyVoteSweepEvery     = "scheduler.vote_sweep_interval"
	keyTombstoneRetention = "scheduler.tombstone_retention"
)

// envPrefix prefixes environment overrides: storage.backend is read from
// CHATSTATE_STORAGE_BACKEND.
const envPrefix = "CHATSTATE_"

// keyKind is the value type a key parses to.
type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindBool
	kindList
	kindDuration
)

var settingKeys = map[string]keyKind{
	keyStorageBackend:     kindString,
	keyStorageDataDir:     kindString,
	keyPostgresURL:        kindString,
	keyRedisAddr:          kindString,
	keyFirestoreProject:   kindString,
	keyHTTPAddr:           kindString,
	keyHTTPRateLimit:      kindFloat,
	keyHTTPBurst:          kindInt,
	keyHTTPAllowedOrigins: kindList,
	keySchedulerEnabled:   kindBool,
	keyOrphanSweepEvery:   kindDuration,
	keyVoteSweepEvery:     kindDuration,
	keyTombstoneRetention: kindDuration,
}

// SettingsService resolves configuration from a ConfigStore with
// environment overrides on top.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service reading the process environment.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// Keys lists the supported configuration keys.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get resolves the current configuration.
func (s *SettingsService) Get() (*domain.ServerConfig, error) {
	cfg := domain.DefaultServerConfig()

	if v := s.getString(keyStorageBackend); v != "" {
		backend := domain.StorageBackend(v)
		if !backend.IsValid() {
			return nil, fmt.Errorf("%s %q: %w", keyStorageBackend, v, domain.ErrInvalidInput)
		}
		cfg.Storage.Backend = backend
	}
	cfg.Storage.DataDir = s.getString(keyStorageDataDir)
	cfg.Storage.PostgresURL = s.getString(keyPostgresURL)
	cfg.Storage.RedisAddr = s.getString(keyRedisAddr)
	cfg.Storage.FirestoreProject = s.getString(keyFirestoreProject)

	if v := s.getString(keyHTTPAddr); v != "" {
		cfg.HTTP.Addr = v
	}
	if v, ok, err := s.getFloat(keyHTTPRateLimit); err != nil {
		return nil, err
	} else if ok {
		cfg.HTTP.RateLimit = v
	}
	if v, ok, err := s.getInt(keyHTTPBurst); err != nil {
		return nil, err
	} else if ok {
		cfg.HTTP.Burst = v
	}
	if v := s.getList(keyHTTPAllowedOrigins); len(v) > 0 {
		cfg.HTTP.AllowedOrigins = v
	}

	if v, ok, err := s.getBool(keySchedulerEnabled); err != nil {
		return nil, err
	} else if ok {
		cfg.Scheduler.Enabled = v
	}
	for key, taskID := range map[string]string{
		keyOrphanSweepEvery: domain.TaskIDOrphanSweep,
		keyVoteSweepEvery:   domain.TaskIDVoteSweep,
	} {
		d, ok, err := s.getDuration(key)
		if err != nil {
			return nil, err
		}
		if ok {
			cfg.Scheduler.TaskConfigs[taskID] = domain.TaskConfig{Enabled: d > 0, Interval: d}
		}
	}
	if d, ok, err := s.getDuration(keyTombstoneRetention); err != nil {
		return nil, err
	} else if ok {
		cfg.Scheduler.TombstoneRetention = d
	}

	return &cfg, nil
}

// Set parses value according to the key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	parsed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	if key == keyStorageBackend && !domain.StorageBackend(value).IsValid() {
		return fmt.Errorf("%s %q: %w", key, value, domain.ErrInvalidInput)
	}
	return s.configStore.Set(key, parsed)
}

// parseSetting converts a textual value to the type stored for kind.
func parseSetting(kind keyKind, value string) (any, error) {
	var (
		parsed any
		err    error
	)
	switch kind {
	case kindInt:
		var n int
		n, err = strconv.Atoi(value)
		parsed = int64(n)
	case kindFloat:
		parsed, err = strconv.ParseFloat(value, 64)
	case kindBool:
		parsed, err = strconv.ParseBool(value)
	case kindList:
		parsed = splitList(value)
	case kindDuration:
		_, err = time.ParseDuration(value)
		parsed = value
	default:
		parsed = value
	}
	if err != nil {
		return nil, fmt.Errorf("%q: %w", value, domain.ErrInvalidInput)
	}
	return parsed, nil
}

// env returns the environment override for key.
func (s *SettingsService) env(key string) (string, bool) {
	name := envPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	return s.lookupEnv(name)
}

func (s *SettingsService) getString(key string) string {
	if v, ok := s.env(key); ok {
		return v
	}
	return s.configStore.GetString(key)
}

func (s *SettingsService) getInt(key string) (int, bool, error) {
	if v, ok := s.env(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false, fmt.Errorf("%s %q: %w", key, v, domain.ErrInvalidInput)
		}
		return n, true, nil
	}
	if _, ok := s.configStore.Get(key); !ok {
		return 0, false, nil
	}
	return s.configStore.GetInt(key), true, nil
}

func (s *SettingsService) getFloat(key string) (float64, bool, error) {
	if v, ok := s.env(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%s %q: %w", key, v, domain.ErrInvalidInput)
		}
		return f, true, nil
	}
	if _, ok := s.configStore.Get(key); !ok {
		return 0, false, nil
	}
	return s.configStore.GetFloat(key), true, nil
}

func (s *SettingsService) getBool(key string) (bool, bool, error) {
	if v, ok := s.env(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, false, fmt.Errorf("%s %q: %w", key, v, domain.ErrInvalidInput)
		}
		return b, true, nil
	}
	if _, ok := s.configStore.Get(key); !ok {
		return false, false, nil
	}
	return s.configStore.GetBool(key), true, nil
}

func (s *SettingsService) getList(key string) []string {
	if v, ok := s.env(key); ok {
		return splitList(v)
	}
	return s.configStore.GetStringSlice(key)
}

func (s *SettingsService) getDuration(key string) (time.Duration, bool, error) {
	v := s.getString(key)
	if v == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s %q: %w", key, v, domain.ErrInvalidInput)
	}
	return d, true, nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
