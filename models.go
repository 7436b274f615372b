package main

import (
	"strings"
	"time"
)

// Record is one ingested text item with provenance, geography and
// timestamps. Records are created once by the collector and are read-only
// afterwards; the aggregation pipeline never updates or deletes them.
type Record struct {
	ID                int64
	TelegramMessageID *int64
	Source            string
	Channel           *string
	RawText           string
	TranslatedText    *string
	Country           *string
	Region            *string
	Location          *string
	Title             *string
	Orientation       *string
	EventTimestamp    *time.Time
	CreatedAt         time.Time
}

// DisplayText prefers the translation over the raw text.
func (r *Record) DisplayText() string {
	if r.TranslatedText != nil {
		if text := strings.TrimSpace(*r.TranslatedText); text != "" {
			return text
		}
	}
	return strings.TrimSpace(r.RawText)
}

// RecordView is the serialized form of a record inside the event payloads.
type RecordView struct {
	ID                int64   `json:"id"`
	TelegramMessageID *int64  `json:"telegram_message_id"`
	Channel           *string `json:"channel"`
	Title             *string `json:"title"`
	Source            string  `json:"source"`
	Orientation       *string `json:"orientation"`
	EventTimestamp    *string `json:"event_timestamp"`
	CreatedAt         string  `json:"created_at"`
	URL               *string `json:"url"`
	TranslatedText    string  `json:"translated_text"`
	Preview           string  `json:"preview"`
	Region            *string `json:"region"`
	Location          *string `json:"location"`
	Country           *string `json:"country"`
}

// Zone groups the records of one country sharing a display location. The
// all-time grouping fills Region with the collapsed label and leaves
// Location null; the per-day grouping keeps the two fields separate.
type Zone struct {
	Region        *string      `json:"region"`
	Location      *string      `json:"location"`
	MessagesCount int          `json:"messages_count"`
	Messages      []RecordView `json:"messages"`
}

// ActiveCountry is one entry of an activity snapshot.
type ActiveCountry struct {
	Country     string `json:"country"`
	EventsCount int    `json:"events_count"`
	LastDate    string `json:"last_date"`
}

// ActivitySnapshot is the per-country event count over a time window,
// together with the raw country strings that resolved to nothing.
type ActivitySnapshot struct {
	Countries        []ActiveCountry `json:"countries"`
	IgnoredCountries []string        `json:"ignored_countries"`
}

// CountryEvents is the zone breakdown of one country for one date scope.
type CountryEvents struct {
	Date    string `json:"date"`
	Country string `json:"country"`
	Zones   []Zone `json:"zones"`
}

// Timeline is the bounded, descending list of distinct creation dates.
type Timeline struct {
	Dates []string `json:"dates"`
}

// SiteData is the result of one full aggregation pass: everything the site
// materializer writes, keyed the way the output tree is laid out.
type SiteData struct {
	Dates        []string
	ActiveAll    ActivitySnapshot
	ActiveByDate map[string]ActivitySnapshot
	EventsAll    map[string]CountryEvents
	EventsByDate map[string]map[string]CountryEvents
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
