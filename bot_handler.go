package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"
)

// BotHandler exposes operator commands over the collection bot.
type BotHandler struct {
	cfg       *Config
	storage   Storage
	builder   *SiteBuilder
	collector *Collector
}

func NewBotHandler(cfg *Config, storage Storage, builder *SiteBuilder, collector *Collector) *BotHandler {
	return &BotHandler{
		cfg:       cfg,
		storage:   storage,
		builder:   builder,
		collector: collector,
	}
}

func (h *BotHandler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.handleStatus)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/build", bot.MatchTypeExact, h.handleBuild)
}

// isAllowed checks the operator allow-list. An empty list leaves the
// commands open, matching the config default.
func (h *BotHandler) isAllowed(userID int64) bool {
	if len(h.cfg.AllowedUsers) == 0 {
		return true
	}
	return lo.Contains(h.cfg.AllowedUsers, userID)
}

func (h *BotHandler) authorize(update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	if !h.isAllowed(update.Message.From.ID) {
		slog.Warn("Rejected bot command", "user_id", update.Message.From.ID, "error", ErrUnauthorized)
		return false
	}
	return true
}

func (h *BotHandler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorize(update) {
		return
	}
	h.reply(ctx, b, update, "Commands:\n"+
		"/status - record count and monitored sources\n"+
		"/build - rebuild the static site now\n"+
		"/help - this message")
}

func (h *BotHandler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorize(update) {
		return
	}

	count, err := h.storage.CountRecords(ctx)
	if err != nil {
		slog.Error("Failed to count records", "error", err)
		h.reply(ctx, b, update, "Failed to read storage")
		return
	}
	h.reply(ctx, b, update, fmt.Sprintf("Records stored: %d\nMonitored sources: %d", count, len(h.cfg.SourceChannels)))
}

func (h *BotHandler) handleBuild(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.authorize(update) {
		return
	}

	// Flush first so the build sees everything collected so far.
	if err := h.collector.Flush(ctx); err != nil {
		slog.Error("Flush before build failed", "error", err)
	}
	if err := h.builder.Build(ctx); err != nil {
		slog.Error("Manual site build failed", "error", err)
		h.reply(ctx, b, update, "Build failed, see logs")
		return
	}
	h.reply(ctx, b, update, "Site rebuilt")
}

func (h *BotHandler) reply(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		slog.Error("Failed to send reply", "error", err)
	}
}
