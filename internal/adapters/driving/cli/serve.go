package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/chatstate/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/chatstate/internal/adapters/driving/mcp"
	"github.com/custodia-labs/chatstate/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP and MCP APIs",
	Long: `Serve the JSON HTTP API with the MCP server mounted at /mcp, and run the
background sweeps.

The acting user is taken from the X-User-ID request header. Rate limits and
CORS origins come from the http.* settings; rate limits are reloaded when
config.toml changes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr    string
	serveNoSweep bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http.addr)")
	serveCmd.Flags().BoolVar(&serveNoSweep, "no-sweep", false, "do not run the background sweeps")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := services.Settings.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	addr := cfg.HTTP.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	mcpServer, err := mcp.NewServer(mcpPorts())
	if err != nil {
		return err
	}
	api, err := httpapi.NewServer(&httpapi.Ports{
		Chats:       services.Chats,
		Messages:    services.Messages,
		Votes:       services.Votes,
		Documents:   services.Documents,
		Coordinator: services.Coordinator,
	}, httpapi.Options{HTTP: cfg.HTTP, MCP: mcpServer.Handler()})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Run(ctx, addr)
	})

	if services.Scheduler != nil && cfg.Scheduler.Enabled && !serveNoSweep {
		g.Go(func() error {
			err := services.Scheduler.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		defer services.Scheduler.Stop() //nolint:errcheck
	}

	if services.WatchConfig != nil {
		g.Go(func() error {
			return services.WatchConfig(ctx, func() {
				reloaded, err := services.Settings.Get()
				if err != nil {
					logger.Warn("config reload: %v", err)
					return
				}
				api.Limiter().Update(reloaded.HTTP.RateLimit, reloaded.HTTP.Burst)
				logger.Info("rate limit now %g/s, burst %d", reloaded.HTTP.RateLimit, reloaded.HTTP.Burst)
			})
		})
	}

	return g.Wait()
}
