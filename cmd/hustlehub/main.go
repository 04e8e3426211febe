package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hustlehub/hustle-hub-app/config"
	"github.com/hustlehub/hustle-hub-app/internal/bootstrap"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	// Logs go to stderr so they do not interleave with the shell's output.
	logger := bootstrap.InitLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, &cfg); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.InfoContext(ctx, "starting hustlehub client",
		"api_base_url", cfg.API.BaseURL,
		"refresh_on_navigate", cfg.Session.RefreshOnNavigate,
		"watch_expiry", cfg.Session.WatchExpiry,
		"metrics_enabled", cfg.Observability.Metrics.IsEnabled())

	c, err := bootstrap.BuildContainer(bootstrap.ContainerDeps{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			logger.Error("close container failed", "error", cerr)
		}
	}()

	sh := newShell(c, os.Stdin, os.Stdout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Quitting the shell ends the process.
		defer cancel()
		return sh.repl(gctx)
	})
	g.Go(func() error {
		return sh.printIdentities(gctx)
	})
	if c.Expiry != nil {
		g.Go(func() error {
			return c.Expiry.Run(gctx)
		})
	}

	return g.Wait()
}
