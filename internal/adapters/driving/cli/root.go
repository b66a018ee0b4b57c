// Package cli implements the chatstate command line.
//
// Commands call the driving ports only. The binary's main package supplies a
// bootstrap function that builds the services once flags are parsed.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatstate/internal/core/domain"
	"github.com/custodia-labs/chatstate/internal/core/ports/driving"
	"github.com/custodia-labs/chatstate/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

var (
	userFlag      string
	verboseFlag   bool
	configFlag    string
	ephemeralFlag bool
)

// Options are passed to the bootstrap function.
type Options struct {
	// ConfigDir holds config.toml and the sqlite database. Empty uses the default.
	ConfigDir string

	// Ephemeral keeps all state in memory.
	Ephemeral bool
}

// Services are the driving ports the commands use.
type Services struct {
	Chats       driving.ChatService
	Messages    driving.MessageService
	Votes       driving.VoteService
	Documents   driving.DocumentService
	Coordinator driving.Coordinator
	Sweeper     driving.Sweeper
	Scheduler   driving.Scheduler
	Settings    driving.SettingsService

	// WatchConfig blocks until ctx is done, calling onReload after the
	// configuration file changes. Nil when configuration is not file backed.
	WatchConfig func(ctx context.Context, onReload func()) error

	// Close releases store connections. May be nil.
	Close func() error
}

// BootstrapFunc builds the services.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, error)

var (
	bootstrap BootstrapFunc
	services  *Services
)

// SetBootstrap sets the function that builds services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs ready-made services, bypassing the bootstrap.
func SetServices(s *Services) {
	services = s
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "chatstate",
	Short: "Conversation state engine",
	Long: `chatstate keeps chats, messages, votes and versioned documents consistent
under retries, concurrent writers and partial failures.

Run 'chatstate serve' to expose the HTTP and MCP APIs, or use the
subcommands to inspect and modify state directly.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", os.Getenv("CHATSTATE_USER"), "acting user id")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "configuration directory (default ~/.chatstate)")
	rootCmd.PersistentFlags().BoolVar(&ephemeralFlag, "ephemeral", false, "keep all state in memory")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verboseFlag)
	if cmd.Annotations[skipBootstrap] == "true" || services != nil {
		return nil
	}
	if bootstrap == nil {
		return errors.New("services not configured")
	}
	s, err := bootstrap(cmd.Context(), Options{ConfigDir: configFlag, Ephemeral: ephemeralFlag})
	if err != nil {
		return fmt.Errorf("starting chatstate: %w", err)
	}
	services = s
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if services == nil || services.Close == nil {
		return nil
	}
	err := services.Close()
	services = nil
	return err
}

// actorContext returns the command context carrying the --user identity.
func actorContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if userFlag == "" {
		return ctx
	}
	return domain.WithIdentity(ctx, domain.Identity{UserID: userFlag})
}
