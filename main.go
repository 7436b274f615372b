package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/samber/do/v2"
	slogmulti "github.com/samber/slog-multi"
)

func main() {
	// Setup structured logging with multiple handlers using slog-multi
	// Fanout sends logs to multiple handlers simultaneously
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	// Use Fanout to send logs to both handlers
	multiHandler := slogmulti.Fanout(textHandler, jsonHandler)
	logger := slog.New(multiHandler)
	slog.SetDefault(logger)

	// Setup dependency injection
	injector, err := SetupDI()
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := ShutdownDI(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	// Get services from DI container
	cfg := do.MustInvoke[*Config](injector)
	collector := do.MustInvoke[*Collector](injector)
	builder := do.MustInvoke[*SiteBuilder](injector)
	siteServer := do.MustInvoke[*SiteServer](injector)
	tgBot := do.MustInvoke[*bot.Bot](injector)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initial build so the dashboard has artifacts before the first tick
	if err := builder.Build(ctx); err != nil {
		slog.Error("Initial site build failed", "error", err)
		os.Exit(1)
	}

	// Start collecting channel posts
	collector.Start()
	go tgBot.Start(ctx)

	// Periodic full rebuild
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.BuildInterval) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := builder.Build(ctx); err != nil {
					slog.Error("Site build failed", "error", err)
				}
			}
		}
	}()

	// Start preview HTTP server
	go func() {
		if err := siteServer.Start(); err != nil {
			slog.Error("Failed to start site server", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Collector started", "port", cfg.HTTPPort, "sources", len(cfg.SourceChannels))
	slog.Info("Press Ctrl+C to stop")

	<-ctx.Done()
	slog.Info("Shutting down...")
}
