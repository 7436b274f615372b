package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Collector buffers channel posts from the monitored Telegram sources and
// periodically appends the ones not already stored.
type Collector struct {
	cfg     *Config
	storage Storage

	mu      sync.Mutex
	pending []Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCollector(cfg *Config, storage Storage) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		cfg:     cfg,
		storage: storage,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Collector) Start() {
	c.wg.Add(1)
	go c.flushLoop()
}

func (c *Collector) Stop() {
	c.cancel()
	c.wg.Wait()
}

// HandleUpdate receives bot updates and captures posts from the monitored
// source channels.
func (c *Collector) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.ChannelPost
	if msg == nil && update.Message != nil && update.Message.Chat.Type == "channel" {
		msg = update.Message
	}
	if msg == nil {
		return
	}

	username := msg.Chat.Username
	if !c.isMonitored(username) {
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	messageID := int64(msg.ID)
	channel := username
	record := Record{
		TelegramMessageID: &messageID,
		Source:            "telegram",
		Channel:           &channel,
		RawText:           text,
		CreatedAt:         time.Unix(int64(msg.Date), 0).UTC(),
	}

	c.mu.Lock()
	c.pending = append(c.pending, record)
	c.mu.Unlock()

	slog.Debug("Captured channel post", "channel", username, "message_id", messageID)
}

func (c *Collector) isMonitored(username string) bool {
	if username == "" {
		return false
	}
	return lo.ContainsBy(c.cfg.SourceChannels, func(source string) bool {
		return strings.EqualFold(strings.TrimPrefix(source, "@"), username)
	})
}

func (c *Collector) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Duration(c.cfg.FlushInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			// Final flush so buffered posts survive a shutdown.
			if err := c.Flush(context.Background()); err != nil {
				slog.Error("Final flush failed", "error", err)
			}
			return
		case <-ticker.C:
			if err := c.Flush(c.ctx); err != nil {
				slog.Error("Flush failed", "error", err)
			}
		}
	}
}

// Flush deduplicates the buffered batch against the stored records and
// appends the survivors.
func (c *Collector) Flush(ctx context.Context) error {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	existing, err := c.storage.ListRecords(ctx)
	if err != nil {
		return oops.With("context", "loading stored records for dedup").Wrap(err)
	}

	seen := make(map[string]struct{}, len(existing))
	for i := range existing {
		seen[dedupeKey(&existing[i])] = struct{}{}
	}

	inserted := 0
	deduped := DedupeRecords(batch)
	for i := range deduped {
		if _, ok := seen[dedupeKey(&deduped[i])]; ok {
			continue
		}
		if err := c.storage.InsertRecord(ctx, &deduped[i]); err != nil {
			return err
		}
		inserted++
	}

	if inserted > 0 {
		slog.Info("Stored new records", "received", len(batch), "inserted", inserted)
	}
	return nil
}
