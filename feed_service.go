package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/samber/lo"
)

const feedItemLimit = 50

// FeedService renders the most recent records as an RSS feed, published as
// feed.xml alongside the dashboard.
type FeedService struct {
	cfg *Config
}

func NewFeedService(cfg *Config) *FeedService {
	return &FeedService{cfg: cfg}
}

func (s *FeedService) GenerateFeed(records []Record) *feeds.Feed {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > feedItemLimit {
		sorted = sorted[:feedItemLimit]
	}

	feed := &feeds.Feed{
		Title:       "OSINT events",
		Link:        &feeds.Link{Href: "/feed.xml"},
		Description: "Latest collected records",
		Created:     time.Now(),
	}
	if len(sorted) > 0 {
		feed.Updated = sorted[0].CreatedAt
	}

	feed.Items = lo.Map(sorted, func(r Record, _ int) *feeds.Item {
		view := serializeRecord(&r)
		item := &feeds.Item{
			Title:       feedTitle(&r),
			Link:        &feeds.Link{},
			Description: view.Preview,
			Created:     r.CreatedAt,
			Id:          fmt.Sprintf("record-%d", r.ID),
		}
		if view.URL != nil {
			item.Link.Href = *view.URL
		}
		return item
	})

	return feed
}

func feedTitle(r *Record) string {
	if title := strings.TrimSpace(deref(r.Title)); title != "" {
		return title
	}
	text := r.DisplayText()
	if text == "" {
		return "No text content"
	}
	if runes := []rune(text); len(runes) > 100 {
		return string(runes[:100]) + "..."
	}
	return text
}
