package cli

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/chatstate/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change chatstate settings.

Settings are stored in config.toml in the configuration directory. Any key
can be overridden from the environment: storage.backend is read from
CHATSTATE_STORAGE_BACKEND.`,
	RunE: runSettingsGet,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show resolved settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a setting.

When the value is omitted it is read from the terminal without echo, which
keeps credentials such as postgres.url out of shell history.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if services.Settings == nil {
		return errors.New("settings service not configured")
	}

	cfg, err := services.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if len(args) == 1 {
		v, ok := settingValue(cfg, args[0])
		if !ok {
			return fmt.Errorf("unknown setting %q: %w", args[0], domain.ErrInvalidInput)
		}
		cmd.Println(v)
		return nil
	}

	section := ""
	for _, key := range services.Settings.Keys() {
		prefix, name, _ := strings.Cut(key, ".")
		if prefix != section {
			if section != "" {
				cmd.Println()
			}
			cmd.Printf("[%s]\n", prefix)
			section = prefix
		}
		v, _ := settingValue(cfg, key)
		if v == "" {
			v = "(not set)"
		}
		cmd.Printf("  %s = %s\n", name, v)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if services.Settings == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		cmd.Printf("%s: ", key)
		value = readPassword()
		cmd.Println()
	}

	if err := services.Settings.Set(key, value); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

// settingValue renders the resolved value of a key.
func settingValue(cfg *domain.ServerConfig, key string) (string, bool) {
	switch key {
	case "storage.backend":
		return string(cfg.Storage.Backend), true
	case "storage.data_dir":
		return cfg.Storage.DataDir, true
	case "postgres.url":
		return maskURL(cfg.Storage.PostgresURL), true
	case "redis.addr":
		return maskURL(cfg.Storage.RedisAddr), true
	case "firestore.project":
		return cfg.Storage.FirestoreProject, true
	case "http.addr":
		return cfg.HTTP.Addr, true
	case "http.rate_limit":
		return strconv.FormatFloat(cfg.HTTP.RateLimit, 'g', -1, 64), true
	case "http.burst":
		return strconv.Itoa(cfg.HTTP.Burst), true
	case "http.allowed_origins":
		return strings.Join(cfg.HTTP.AllowedOrigins, ","), true
	case "scheduler.enabled":
		return strconv.FormatBool(cfg.Scheduler.Enabled), true
	case "scheduler.orphan_sweep_interval":
		return taskInterval(cfg, domain.TaskIDOrphanSweep), true
	case "scheduler.vote_sweep_interval":
		return taskInterval(cfg, domain.TaskIDVoteSweep), true
	case "scheduler.tombstone_retention":
		return cfg.Scheduler.TombstoneRetention.String(), true
	default:
		return "", false
	}
}

func taskInterval(cfg *domain.ServerConfig, taskID string) string {
	tc := cfg.Scheduler.GetTaskConfig(taskID)
	if !tc.Enabled {
		return "disabled"
	}
	return tc.Interval.String()
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// maskURL hides the password of a connection URL.
func maskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
