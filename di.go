package main

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Service names for dependency injection
const (
	ServiceConfig      = "config"
	ServiceGeoIndex    = "geo-index"
	ServiceStorage     = "storage"
	ServiceFeedService = "feed-service"
	ServiceSiteBuilder = "site-builder"
	ServiceCollector   = "collector"
	ServiceBotHandler  = "bot-handler"
	ServiceSiteServer  = "site-server"
	ServiceBot         = "bot"
)

// SetupDI initializes the dependency injection container
func SetupDI() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*Config, error) {
		cfg, err := LoadConfig()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register GeoIndex (static alias table, loaded once)
	do.Provide(injector, func(i do.Injector) (*GeoIndex, error) {
		cfg := do.MustInvoke[*Config](i)
		geo, err := LoadGeoIndex(cfg.CountriesPath)
		if err != nil {
			return nil, oops.With("countries_path", cfg.CountriesPath, "context", "failed to load country aliases").Wrap(err)
		}
		return geo, nil
	})

	// Register Storage
	do.Provide(injector, func(i do.Injector) (Storage, error) {
		cfg := do.MustInvoke[*Config](i)
		storage, err := NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			return nil, oops.With("database_path", cfg.DatabasePath, "context", "failed to initialize storage").Wrap(err)
		}
		return storage, nil
	})

	// Register FeedService
	do.Provide(injector, func(i do.Injector) (*FeedService, error) {
		cfg := do.MustInvoke[*Config](i)
		return NewFeedService(cfg), nil
	})

	// Register SiteBuilder
	do.Provide(injector, func(i do.Injector) (*SiteBuilder, error) {
		cfg := do.MustInvoke[*Config](i)
		storage := do.MustInvoke[Storage](i)
		geo := do.MustInvoke[*GeoIndex](i)
		feed := do.MustInvoke[*FeedService](i)
		return NewSiteBuilder(cfg, storage, geo, feed), nil
	})

	// Register Collector
	do.Provide(injector, func(i do.Injector) (*Collector, error) {
		cfg := do.MustInvoke[*Config](i)
		storage := do.MustInvoke[Storage](i)
		return NewCollector(cfg, storage), nil
	})

	// Register BotHandler
	do.Provide(injector, func(i do.Injector) (*BotHandler, error) {
		cfg := do.MustInvoke[*Config](i)
		storage := do.MustInvoke[Storage](i)
		builder := do.MustInvoke[*SiteBuilder](i)
		collector := do.MustInvoke[*Collector](i)
		return NewBotHandler(cfg, storage, builder, collector), nil
	})

	// Register SiteServer
	do.Provide(injector, func(i do.Injector) (*SiteServer, error) {
		cfg := do.MustInvoke[*Config](i)
		server := NewSiteServer(cfg)
		// Set logger from default slog
		server.SetLogger(slog.Default())
		return server, nil
	})

	// Register Bot (needs to be initialized after handlers are ready)
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*Config](i)
		collector := do.MustInvoke[*Collector](i)
		botHandler := do.MustInvoke[*BotHandler](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(collector.HandleUpdate),
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		// Register bot commands
		botHandler.RegisterCommands(b)

		return b, nil
	})

	return injector, nil
}

// ShutdownDI gracefully shuts down all services
func ShutdownDI(injector do.Injector) error {
	ctx := context.Background()

	// Shutdown bot if it exists
	if b, err := do.Invoke[*bot.Bot](injector); err == nil && b != nil {
		b.Close(ctx)
	}

	// Stop the collector (flushes any buffered posts)
	if collector, err := do.Invoke[*Collector](injector); err == nil && collector != nil {
		collector.Stop()
	}

	// Close storage last
	if storage, err := do.Invoke[Storage](injector); err == nil && storage != nil {
		return storage.Close()
	}

	return nil
}
