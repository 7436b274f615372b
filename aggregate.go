package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	// Number of day partitions materialized for the dashboard timeline.
	timelineDays = 10
	// The "ALL" activity snapshot counts back this far from the most
	// recent record, lower bound inclusive.
	activityWindow = 30 * 24 * time.Hour

	// Zone label for records carrying neither region nor location. The
	// dashboard frontend matches on this literal.
	unknownZone = "Zone inconnue"

	previewThreshold = 280
	previewCut       = 277
)

// Aggregator buckets the full record snapshot by day, country and zone.
// One full recompute per invocation; nothing is kept between runs except
// the per-record country resolution cache within a single pass.
type Aggregator struct {
	geo *GeoIndex

	// canonical codes per record id, resolved once and reused across the
	// "ALL" pass and each per-day pass
	countryCache map[int64][]string
}

func NewAggregator(geo *GeoIndex) *Aggregator {
	return &Aggregator{geo: geo}
}

// Aggregate runs one pass over the snapshot. Records without a creation
// time have already been excluded by the store read. An empty snapshot
// still yields an empty timeline and an empty "ALL" activity snapshot.
func (a *Aggregator) Aggregate(records []Record) *SiteData {
	a.countryCache = make(map[int64][]string, len(records))

	data := &SiteData{
		Dates:        []string{},
		ActiveAll:    ActivitySnapshot{Countries: []ActiveCountry{}, IgnoredCountries: []string{}},
		ActiveByDate: map[string]ActivitySnapshot{},
		EventsAll:    map[string]CountryEvents{},
		EventsByDate: map[string]map[string]CountryEvents{},
	}
	if len(records) == 0 {
		return data
	}

	// Timeline: distinct creation dates, most recent first, capped.
	dates := lo.Uniq(lo.Map(records, func(r Record, _ int) string {
		return r.CreatedAt.Format(time.DateOnly)
	}))
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > timelineDays {
		dates = dates[:timelineDays]
	}
	data.Dates = dates

	// Activity over the trailing window, anchored at the newest record.
	maxCreated := lo.MaxBy(records, func(x, y Record) bool {
		return x.CreatedAt.After(y.CreatedAt)
	}).CreatedAt
	cutoff := maxCreated.Add(-activityWindow)
	windowed := lo.Filter(records, func(r Record, _ int) bool {
		return !r.CreatedAt.Before(cutoff)
	})
	data.ActiveAll = a.buildActivity(windowed)

	byDate := lo.GroupBy(records, func(r Record) string {
		return r.CreatedAt.Format(time.DateOnly)
	})
	for _, d := range dates {
		data.ActiveByDate[d] = a.buildActivity(byDate[d])
	}

	// Events per country, all time. A record whose country field resolves
	// to the same code twice is deliberately counted twice, matching the
	// alias-resolution contract.
	for code, recs := range a.partitionByCountry(records) {
		last := lo.MaxBy(recs, func(x, y Record) bool {
			return x.CreatedAt.After(y.CreatedAt)
		})
		data.EventsAll[code] = CountryEvents{
			Date:    last.CreatedAt.Format(time.DateOnly),
			Country: code,
			Zones:   a.buildZonesAllTime(recs),
		}
	}

	// Events per country, per timeline day.
	for _, d := range dates {
		perCountry := a.partitionByCountry(byDate[d])
		if len(perCountry) == 0 {
			continue
		}
		out := make(map[string]CountryEvents, len(perCountry))
		for code, recs := range perCountry {
			out[code] = CountryEvents{
				Date:    d,
				Country: code,
				Zones:   a.buildZonesByRegionLocation(recs),
			}
		}
		data.EventsByDate[d] = out
	}

	return data
}

// resolveCountries caches the alias resolution per record id so the country
// string is parsed once per pass, not once per bucketing dimension.
func (a *Aggregator) resolveCountries(r *Record) []string {
	if codes, ok := a.countryCache[r.ID]; ok {
		return codes
	}
	codes := a.geo.ResolveAliases(deref(r.Country))
	a.countryCache[r.ID] = codes
	return codes
}

// partitionByCountry groups records under each resolved code that has
// known coordinates; codes without coordinates stay invisible.
func (a *Aggregator) partitionByCountry(records []Record) map[string][]Record {
	partition := map[string][]Record{}
	for i := range records {
		for _, code := range a.resolveCountries(&records[i]) {
			if a.geo.HasCoordinates(code) {
				partition[code] = append(partition[code], records[i])
			}
		}
	}
	return partition
}

func (a *Aggregator) buildActivity(records []Record) ActivitySnapshot {
	type countryStat struct {
		code     string
		count    int
		lastDate time.Time
	}

	// Ordered accumulation keeps count ties in first-seen order.
	var order []*countryStat
	index := map[string]*countryStat{}
	ignored := map[string]struct{}{}

	for i := range records {
		r := &records[i]
		country := strings.TrimSpace(deref(r.Country))
		if country == "" {
			continue
		}
		codes := a.resolveCountries(r)
		if len(codes) == 0 {
			ignored[country] = struct{}{}
			continue
		}
		day := dateOf(r.CreatedAt)
		for _, code := range codes {
			stat, ok := index[code]
			if !ok {
				stat = &countryStat{code: code, lastDate: day}
				index[code] = stat
				order = append(order, stat)
			}
			stat.count++
			if day.After(stat.lastDate) {
				stat.lastDate = day
			}
		}
	}

	countries := []ActiveCountry{}
	for _, stat := range order {
		if !a.geo.HasCoordinates(stat.code) {
			continue
		}
		countries = append(countries, ActiveCountry{
			Country:     stat.code,
			EventsCount: stat.count,
			LastDate:    stat.lastDate.Format(time.DateOnly),
		})
	}
	sort.SliceStable(countries, func(i, j int) bool {
		return countries[i].EventsCount > countries[j].EventsCount
	})

	ignoredList := lo.Keys(ignored)
	sort.Strings(ignoredList)

	return ActivitySnapshot{Countries: countries, IgnoredCountries: ignoredList}
}

// buildZonesAllTime groups by a single collapsed display label. The first
// record's raw label is what the group displays.
func (a *Aggregator) buildZonesAllTime(records []Record) []Zone {
	type zoneBucket struct {
		label string
		recs  []Record
	}

	var order []*zoneBucket
	index := map[string]*zoneBucket{}

	for i := range records {
		label := zoneLabel(&records[i])
		key := normalizeLabel(label)
		bucket, ok := index[key]
		if !ok {
			bucket = &zoneBucket{label: label}
			index[key] = bucket
			order = append(order, bucket)
		}
		bucket.recs = append(bucket.recs, records[i])
	}

	zones := make([]Zone, 0, len(order))
	for _, bucket := range order {
		label := bucket.label
		zones = append(zones, Zone{
			Region:        &label,
			Location:      nil,
			MessagesCount: len(bucket.recs),
			Messages:      serializeRecords(bucket.recs),
		})
	}
	sortZones(zones)
	return zones
}

// buildZonesByRegionLocation groups by the normalized (region, location)
// pair; the displayed values are the first non-empty raw ones in the group.
func (a *Aggregator) buildZonesByRegionLocation(records []Record) []Zone {
	type zoneBucket struct {
		recs []Record
	}

	var order []*zoneBucket
	index := map[[2]string]*zoneBucket{}

	for i := range records {
		r := &records[i]
		key := [2]string{normalizeLabel(deref(r.Region)), normalizeLabel(deref(r.Location))}
		bucket, ok := index[key]
		if !ok {
			bucket = &zoneBucket{}
			index[key] = bucket
			order = append(order, bucket)
		}
		bucket.recs = append(bucket.recs, records[i])
	}

	zones := make([]Zone, 0, len(order))
	for _, bucket := range order {
		var region, location *string
		for i := range bucket.recs {
			if region == nil && deref(bucket.recs[i].Region) != "" {
				region = bucket.recs[i].Region
			}
			if location == nil && deref(bucket.recs[i].Location) != "" {
				location = bucket.recs[i].Location
			}
		}
		zones = append(zones, Zone{
			Region:        region,
			Location:      location,
			MessagesCount: len(bucket.recs),
			Messages:      serializeRecords(bucket.recs),
		})
	}
	sortZones(zones)
	return zones
}

func sortZones(zones []Zone) {
	sort.SliceStable(zones, func(i, j int) bool {
		return zones[i].MessagesCount > zones[j].MessagesCount
	})
}

// zoneLabel is the all-time display label: region, else location, else the
// unknown-zone placeholder.
func zoneLabel(r *Record) string {
	if region := strings.TrimSpace(deref(r.Region)); region != "" {
		return region
	}
	if location := strings.TrimSpace(deref(r.Location)); location != "" {
		return location
	}
	return unknownZone
}

func serializeRecords(records []Record) []RecordView {
	views := make([]RecordView, 0, len(records))
	for i := range records {
		views = append(views, serializeRecord(&records[i]))
	}
	return views
}

// serializeRecord derives the display view written into event payloads: a
// public t.me URL when both channel and message id are known, and a text
// preview capped for the dashboard cards.
func serializeRecord(r *Record) RecordView {
	var url *string
	if deref(r.Channel) != "" && r.TelegramMessageID != nil && *r.TelegramMessageID != 0 {
		href := fmt.Sprintf("https://t.me/%s/%d", *r.Channel, *r.TelegramMessageID)
		url = &href
	}

	text := r.DisplayText()
	preview := text
	if runes := []rune(text); len(runes) > previewThreshold {
		preview = string(runes[:previewCut]) + "..."
	}

	return RecordView{
		ID:                r.ID,
		TelegramMessageID: r.TelegramMessageID,
		Channel:           r.Channel,
		Title:             r.Title,
		Source:            r.Source,
		Orientation:       r.Orientation,
		EventTimestamp:    formatOptionalTimestamp(r.EventTimestamp),
		CreatedAt:         formatTimestamp(r.CreatedAt),
		URL:               url,
		TranslatedText:    text,
		Preview:           preview,
		Region:            r.Region,
		Location:          r.Location,
		Country:           r.Country,
	}
}

// formatTimestamp renders RFC 3339 and falls back to the raw time string
// for values outside the representable range rather than failing the build.
func formatTimestamp(t time.Time) string {
	if b, err := t.MarshalText(); err == nil {
		return string(b)
	}
	return t.String()
}

func formatOptionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTimestamp(*t)
	return &s
}

func dateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
