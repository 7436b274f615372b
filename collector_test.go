package main

import (
	"context"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T, channels ...string) (*Collector, *SQLiteStorage) {
	t.Helper()
	storage := newTestStorage(t)
	cfg := &Config{SourceChannels: channels, FlushInterval: 30}
	return NewCollector(cfg, storage), storage
}

func channelPost(channel, text string, messageID int, date time.Time) *models.Update {
	return &models.Update{
		ChannelPost: &models.Message{
			ID:   messageID,
			Date: int(date.Unix()),
			Text: text,
			Chat: models.Chat{Username: channel, Type: "channel"},
		},
	}
}

func TestHandleUpdateCapturesMonitoredPost(t *testing.T) {
	collector, _ := newTestCollector(t, "@warnews")

	posted := at("2024-05-10T08:00:00Z")
	collector.HandleUpdate(context.Background(), nil, channelPost("warnews", "shelling reported", 42, posted))

	require.Len(t, collector.pending, 1)
	record := collector.pending[0]
	assert.Equal(t, "telegram", record.Source)
	assert.Equal(t, "shelling reported", record.RawText)
	assert.Equal(t, "warnews", deref(record.Channel))
	require.NotNil(t, record.TelegramMessageID)
	assert.Equal(t, int64(42), *record.TelegramMessageID)
	assert.True(t, record.CreatedAt.Equal(posted))
}

func TestHandleUpdateMatchesChannelCaseInsensitively(t *testing.T) {
	collector, _ := newTestCollector(t, "@WarNews")

	collector.HandleUpdate(context.Background(), nil, channelPost("warnews", "text", 1, at("2024-05-10T08:00:00Z")))

	assert.Len(t, collector.pending, 1)
}

func TestHandleUpdateIgnoresUnmonitoredChannel(t *testing.T) {
	collector, _ := newTestCollector(t, "@warnews")

	collector.HandleUpdate(context.Background(), nil, channelPost("othernews", "text", 1, at("2024-05-10T08:00:00Z")))

	assert.Empty(t, collector.pending)
}

func TestHandleUpdateIgnoresEmptyText(t *testing.T) {
	collector, _ := newTestCollector(t, "@warnews")

	collector.HandleUpdate(context.Background(), nil, channelPost("warnews", "   ", 1, at("2024-05-10T08:00:00Z")))

	assert.Empty(t, collector.pending)
}

func TestHandleUpdateFallsBackToCaption(t *testing.T) {
	collector, _ := newTestCollector(t, "@warnews")

	update := &models.Update{
		ChannelPost: &models.Message{
			ID:      7,
			Date:    int(at("2024-05-10T08:00:00Z").Unix()),
			Caption: "photo caption",
			Chat:    models.Chat{Username: "warnews", Type: "channel"},
		},
	}
	collector.HandleUpdate(context.Background(), nil, update)

	require.Len(t, collector.pending, 1)
	assert.Equal(t, "photo caption", collector.pending[0].RawText)
}

func TestHandleUpdateAcceptsChannelTypedMessage(t *testing.T) {
	collector, _ := newTestCollector(t, "@warnews")

	update := &models.Update{
		Message: &models.Message{
			ID:   8,
			Date: int(at("2024-05-10T08:00:00Z").Unix()),
			Text: "via message field",
			Chat: models.Chat{Username: "warnews", Type: "channel"},
		},
	}
	collector.HandleUpdate(context.Background(), nil, update)

	assert.Len(t, collector.pending, 1)
}

func TestFlushInsertsDedupedBatch(t *testing.T) {
	collector, storage := newTestCollector(t, "@warnews")
	ctx := context.Background()

	posted := at("2024-05-10T08:00:00Z")
	collector.HandleUpdate(ctx, nil, channelPost("warnews", "same post", 1, posted))
	collector.HandleUpdate(ctx, nil, channelPost("warnews", "same post", 2, posted))
	collector.HandleUpdate(ctx, nil, channelPost("warnews", "other post", 3, posted))

	require.NoError(t, collector.Flush(ctx))

	count, err := storage.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Empty(t, collector.pending)
}

func TestFlushSkipsAlreadyStoredRecords(t *testing.T) {
	collector, storage := newTestCollector(t, "@warnews")
	ctx := context.Background()

	posted := at("2024-05-10T08:00:00Z")
	collector.HandleUpdate(ctx, nil, channelPost("warnews", "same post", 1, posted))
	require.NoError(t, collector.Flush(ctx))

	// The same content arrives again later, under a new message id.
	collector.HandleUpdate(ctx, nil, channelPost("warnews", "same post", 9, posted.Add(time.Hour)))
	require.NoError(t, collector.Flush(ctx))

	count, err := storage.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFlushEmptyBatchIsNoop(t *testing.T) {
	collector, storage := newTestCollector(t, "@warnews")
	ctx := context.Background()

	require.NoError(t, collector.Flush(ctx))

	count, err := storage.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
