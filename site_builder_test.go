package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilderEnv(t *testing.T) (*SiteBuilder, *SQLiteStorage, string) {
	t.Helper()
	root := t.TempDir()

	staticDir := filepath.Join(root, "static")
	require.NoError(t, os.MkdirAll(filepath.Join(staticDir, "js"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "js", "main.js"), []byte("console.log('ok');"), 0644))

	templatesDir := filepath.Join(root, "templates")
	require.NoError(t, os.MkdirAll(templatesDir, 0755))
	templatePath := filepath.Join(templatesDir, "dashboard.html")
	require.NoError(t, os.WriteFile(templatePath, []byte("<html><body>dashboard</body></html>"), 0644))

	cfg := &Config{
		SiteDir:      filepath.Join(root, "site"),
		StaticDir:    staticDir,
		TemplatePath: templatePath,
	}
	storage := newTestStorage(t)
	builder := NewSiteBuilder(cfg, storage, testGeoIndex(), NewFeedService(cfg))
	return builder, storage, cfg.SiteDir
}

func readArtifact(t *testing.T, siteDir string, parts ...string) []byte {
	t.Helper()
	path := filepath.Join(append([]string{siteDir, "static", "data", "generated"}, parts...)...)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestBuildEmptyStore(t *testing.T) {
	builder, _, siteDir := newBuilderEnv(t)
	require.NoError(t, builder.Build(context.Background()))

	// Assets and page are in place.
	assert.FileExists(t, filepath.Join(siteDir, "index.html"))
	assert.FileExists(t, filepath.Join(siteDir, "static", "js", "main.js"))
	assert.FileExists(t, filepath.Join(siteDir, "feed.xml"))

	// Empty snapshot still produces well-formed artifacts.
	assert.JSONEq(t, `{"dates":[]}`, string(readArtifact(t, siteDir, "dates.json")))
	assert.JSONEq(t, `{"countries":[],"ignored_countries":[]}`,
		string(readArtifact(t, siteDir, "active", "ALL.json")))
}

func TestBuildWritesAllArtifacts(t *testing.T) {
	builder, storage, siteDir := newBuilderEnv(t)
	ctx := context.Background()

	records := []Record{
		rec(0, "2024-05-10T08:00:00Z", func(r *Record) {
			r.Country = strPtr("Ukraine")
			r.Region = strPtr("Donbas")
			r.Channel = strPtr("warnews")
			r.TelegramMessageID = i64Ptr(7)
			r.TranslatedText = strPtr("Artillerie près de la frontière")
		}),
		rec(0, "2024-05-11T08:00:00Z", func(r *Record) {
			r.Country = strPtr("Ukraine")
			r.Region = strPtr("donbas ")
		}),
		rec(0, "2024-05-11T09:00:00Z", func(r *Record) {
			r.Country = strPtr("Russie")
		}),
	}
	for i := range records {
		require.NoError(t, storage.InsertRecord(ctx, &records[i]))
	}

	require.NoError(t, builder.Build(ctx))

	var timeline Timeline
	require.NoError(t, json.Unmarshal(readArtifact(t, siteDir, "dates.json"), &timeline))
	assert.Equal(t, []string{"2024-05-11", "2024-05-10"}, timeline.Dates)

	var snapshot ActivitySnapshot
	require.NoError(t, json.Unmarshal(readArtifact(t, siteDir, "active", "ALL.json"), &snapshot))
	require.Len(t, snapshot.Countries, 1)
	assert.Equal(t, 2, snapshot.Countries[0].EventsCount)
	assert.Equal(t, []string{"Russie"}, snapshot.IgnoredCountries)

	// Per-day snapshots for each timeline date.
	assert.FileExists(t, filepath.Join(siteDir, "static", "data", "generated", "active", "2024-05-10.json"))
	assert.FileExists(t, filepath.Join(siteDir, "static", "data", "generated", "active", "2024-05-11.json"))

	var events CountryEvents
	require.NoError(t, json.Unmarshal(readArtifact(t, siteDir, "events", "ALL", "Ukraine.json"), &events))
	assert.Equal(t, "Ukraine", events.Country)
	require.Len(t, events.Zones, 1)
	assert.Equal(t, 2, events.Zones[0].MessagesCount)

	assert.FileExists(t, filepath.Join(siteDir, "static", "data", "generated", "events", "2024-05-10", "Ukraine.json"))
	assert.FileExists(t, filepath.Join(siteDir, "static", "data", "generated", "events", "2024-05-11", "Ukraine.json"))
}

func TestBuildJSONIsCompactAndUnescaped(t *testing.T) {
	builder, storage, siteDir := newBuilderEnv(t)
	ctx := context.Background()

	record := rec(0, "2024-05-10T08:00:00Z", func(r *Record) {
		r.Country = strPtr("Ukraine")
		r.Region = strPtr("Donbas")
		r.TranslatedText = strPtr("Artillerie <près> de la frontière")
	})
	require.NoError(t, storage.InsertRecord(ctx, &record))
	require.NoError(t, builder.Build(ctx))

	data := readArtifact(t, siteDir, "events", "ALL", "Ukraine.json")
	text := string(data)
	assert.NotContains(t, text, "\n")
	assert.NotContains(t, text, `": `)
	assert.Contains(t, text, "<près>")
	assert.NotContains(t, text, `\u00e8`)
	assert.NotContains(t, text, `\u003c`)
}

func TestBuildSanitizesCountryFilename(t *testing.T) {
	builder, storage, siteDir := newBuilderEnv(t)
	ctx := context.Background()

	record := rec(0, "2024-05-10T08:00:00Z", func(r *Record) {
		r.Country = strPtr("Bosnie")
	})
	require.NoError(t, storage.InsertRecord(ctx, &record))
	require.NoError(t, builder.Build(ctx))

	assert.FileExists(t, filepath.Join(siteDir, "static", "data", "generated", "events", "ALL", "Bosnia-Herzegovina.json"))

	var events CountryEvents
	require.NoError(t, json.Unmarshal(readArtifact(t, siteDir, "events", "ALL", "Bosnia-Herzegovina.json"), &events))
	assert.Equal(t, "Bosnia/Herzegovina", events.Country)
}

func TestBuildReplacesPreviousTree(t *testing.T) {
	builder, _, siteDir := newBuilderEnv(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(siteDir, 0755))
	stale := filepath.Join(siteDir, "stale.json")
	require.NoError(t, os.WriteFile(stale, []byte("{}"), 0644))

	require.NoError(t, builder.Build(ctx))

	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(siteDir, "index.html"))
}

func TestBuildFailsWithoutStaticAssets(t *testing.T) {
	builder, _, siteDir := newBuilderEnv(t)
	builder.cfg.StaticDir = filepath.Join(siteDir, "missing")

	err := builder.Build(context.Background())
	assert.Error(t, err)
	// The previous output (none here) is never half-written: no site dir
	// appears on failure.
	assert.NoDirExists(t, siteDir)
}

func TestCountryFilename(t *testing.T) {
	assert.Equal(t, "Ukraine.json", countryFilename("Ukraine"))
	assert.Equal(t, "Bosnia-Herzegovina.json", countryFilename("Bosnia/Herzegovina"))
	assert.Equal(t, "Côte d'Ivoire.json", countryFilename("Côte d'Ivoire"))
}
