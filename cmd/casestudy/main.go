package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"casestudy/internal/config"
	"casestudy/internal/http/server"
	"casestudy/internal/infra/logging"
	"casestudy/internal/infra/ratelimit"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfgPath string
	load := func() config.Config {
		var cfg config.Config
		if cfgPath != "" {
			cfg = config.LoadFrom(cfgPath)
		} else {
			cfg = config.Load()
		}
		initLogging(cfg)
		return cfg
	}

	root := &cobra.Command{
		Use:           "casestudy",
		Short:         "Business case study agent: tools, PDF reports and HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config.yaml (default $CONFIG_PATH or ./config.yaml)")

	root.AddCommand(
		newServeCommand(load),
		newRenderCommand(load),
		newAskCommand(load),
		newIngestCommand(load),
	)
	return root
}

func newServeCommand(load func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := load()
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			svc, err := buildServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			deps := server.Deps{
				Config: cfg,
				Tools:  svc.Tools,
				Pool:   svc.Pool,
				Tokens: svc.Tokens,
				Store: ratelimit.NewStore(ratelimit.RedisConfig{
					Addr: cfg.Cache.RedisHost,
					DB:   cfg.Cache.RateLimitDB,
				}),
			}
			if svc.Agent != nil {
				deps.Agent = svc.Agent
			}
			app := server.New(deps)

			idleConnsClosed := make(chan struct{})
			startServer(app, cfg, idleConnsClosed)
			<-idleConnsClosed
			return nil
		},
	}
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		logging.Info("Server listening", "addr", cfg.Server.Host+cfg.Server.Port)
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigint)
	<-sigint

	logging.Warn("Shutdown signal received, closing server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}

// readInput joins args, or reads stdin when there are none.
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errNoInput
	}
	return string(b), nil
}
