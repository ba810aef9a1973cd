package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benvon/email-reminders/internal/app"
	"github.com/benvon/email-reminders/internal/config"
	logpkg "github.com/benvon/email-reminders/internal/logger"
	"github.com/benvon/email-reminders/internal/mcpserver"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging on stderr")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [--debug]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Serves the reminder tools over MCP on stdin/stdout.")
		fmt.Fprintln(os.Stderr, "The store and notifier are configured through the same environment as the server.")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(debug bool) error {
	logger, err := logpkg.NewDevelopmentLogger(debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logpkg.Sync(logger) }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close_failed", zap.Error(err))
		}
	}()

	logger.Info("mcp_server_starting", zap.String("store_driver", cfg.StoreDriver))
	return server.ServeStdio(mcpserver.NewServer(a.Dispatcher, logger).MCPServer())
}
