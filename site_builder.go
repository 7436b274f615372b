package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/oops"
)

const generatedSubdir = "static/data/generated"

// SiteBuilder materializes one aggregation pass as a static site tree:
// static assets, the dashboard page, the pre-aggregated JSON documents and
// the RSS feed. The tree is assembled in a stage directory next to the
// output and swapped into place with a single rename, so a failed build
// leaves the previous site untouched.
type SiteBuilder struct {
	cfg        *Config
	storage    Storage
	aggregator *Aggregator
	feed       *FeedService
}

func NewSiteBuilder(cfg *Config, storage Storage, geo *GeoIndex, feed *FeedService) *SiteBuilder {
	return &SiteBuilder{
		cfg:        cfg,
		storage:    storage,
		aggregator: NewAggregator(geo),
		feed:       feed,
	}
}

// Build runs one full recompute. Store-read and filesystem failures abort
// the build; single-record defects never do.
func (b *SiteBuilder) Build(ctx context.Context) error {
	records, err := b.storage.ListRecords(ctx)
	if err != nil {
		return oops.With("context", "reading record snapshot").Wrap(err)
	}

	siteDir, err := filepath.Abs(b.cfg.SiteDir)
	if err != nil {
		return oops.With("site_dir", b.cfg.SiteDir).Wrap(err)
	}
	if err := os.MkdirAll(filepath.Dir(siteDir), 0755); err != nil {
		return oops.With("site_dir", siteDir).Wrap(err)
	}

	stage, err := os.MkdirTemp(filepath.Dir(siteDir), ".site-stage-*")
	if err != nil {
		return oops.With("context", "creating stage directory").Wrap(err)
	}
	defer os.RemoveAll(stage)
	if err := os.Chmod(stage, 0755); err != nil {
		return oops.With("stage", stage).Wrap(err)
	}

	if err := b.copyAssets(stage); err != nil {
		return err
	}
	if err := b.writeArtifacts(stage, b.aggregator.Aggregate(records)); err != nil {
		return err
	}
	if err := b.writeFeed(stage, records); err != nil {
		return err
	}

	if err := os.RemoveAll(siteDir); err != nil {
		return oops.With("site_dir", siteDir, "context", "removing previous site").Wrap(err)
	}
	if err := os.Rename(stage, siteDir); err != nil {
		return oops.With("site_dir", siteDir, "context", "swapping stage into place").Wrap(err)
	}

	slog.Info("Site build complete", "records", len(records), "site_dir", siteDir)
	return nil
}

func (b *SiteBuilder) copyAssets(stage string) error {
	if err := os.CopyFS(filepath.Join(stage, "static"), os.DirFS(b.cfg.StaticDir)); err != nil {
		return oops.With("static_dir", b.cfg.StaticDir, "context", "copying static assets").Wrap(err)
	}

	page, err := os.ReadFile(b.cfg.TemplatePath)
	if err != nil {
		return oops.With("template_path", b.cfg.TemplatePath, "context", "reading dashboard template").Wrap(err)
	}
	return os.WriteFile(filepath.Join(stage, "index.html"), page, 0644)
}

func (b *SiteBuilder) writeArtifacts(stage string, data *SiteData) error {
	generated := filepath.Join(stage, filepath.FromSlash(generatedSubdir))

	if err := writeJSON(filepath.Join(generated, "dates.json"), Timeline{Dates: data.Dates}); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(generated, "active", "ALL.json"), data.ActiveAll); err != nil {
		return err
	}
	for date, snapshot := range data.ActiveByDate {
		if err := writeJSON(filepath.Join(generated, "active", date+".json"), snapshot); err != nil {
			return err
		}
	}
	for country, events := range data.EventsAll {
		if err := writeJSON(filepath.Join(generated, "events", "ALL", countryFilename(country)), events); err != nil {
			return err
		}
	}
	for date, perCountry := range data.EventsByDate {
		for country, events := range perCountry {
			if err := writeJSON(filepath.Join(generated, "events", date, countryFilename(country)), events); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *SiteBuilder) writeFeed(stage string, records []Record) error {
	rss, err := b.feed.GenerateFeed(records).ToRss()
	if err != nil {
		return oops.With("context", "rendering rss feed").Wrap(err)
	}
	return os.WriteFile(filepath.Join(stage, "feed.xml"), []byte(rss), 0644)
}

// countryFilename keeps UTF-8 names intact so web servers can resolve
// decoded URLs; only the path separator is replaced.
func countryFilename(country string) string {
	return strings.ReplaceAll(country, "/", "-") + ".json"
}

// writeJSON writes one artifact compact, UTF-8, with non-ASCII characters
// left unescaped.
func writeJSON(path string, payload any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return oops.With("path", path).Wrap(err)
	}
	data, err := json.MarshalWithOption(payload, json.DisableHTMLEscape())
	if err != nil {
		return oops.With("path", path, "context", "marshaling artifact").Wrap(err)
	}
	return os.WriteFile(path, data, 0644)
}
