// Package main is the entry point for the todosync CLI.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"todosync/internal/app"
	"todosync/internal/cli"
	"todosync/internal/commands"
	"todosync/internal/config"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Build the Google-backed task stack; login prompts go to stderr.
	factory := func(ctx context.Context, cfg *config.Config, logger *slog.Logger, errOut io.Writer) (*app.App, error) {
		return app.New(ctx, cfg, logger, errOut)
	}

	// Create dispatcher
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
