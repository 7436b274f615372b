package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	_ "modernc.org/sqlite"
)

// Storage is the persistence boundary: the collector appends records, the
// site builder reads the full snapshot. Nothing in the pipeline updates or
// deletes a stored record.
type Storage interface {
	InsertRecord(ctx context.Context, record *Record) error
	ListRecords(ctx context.Context) ([]Record, error)
	CountRecords(ctx context.Context) (int, error)
	Close() error
}

const recordsSchema = `
CREATE TABLE IF NOT EXISTS records (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	telegram_message_id INTEGER,
	source              TEXT NOT NULL,
	channel             TEXT,
	raw_text            TEXT NOT NULL,
	translated_text     TEXT,
	country             TEXT,
	region              TEXT,
	location            TEXT,
	title               TEXT,
	orientation         TEXT,
	event_timestamp     TEXT,
	created_at          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_records_created_at ON records (created_at);
CREATE INDEX IF NOT EXISTS ix_records_country_created ON records (country, created_at);
`

// SQLiteStorage implements Storage on a local SQLite database. Timestamps
// are persisted as RFC 3339 text so rows stay readable with any client.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, oops.With("database_path", path, "context", "failed to create database directory").Wrap(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, oops.With("database_path", path, "context", "failed to open database").Wrap(err)
	}
	if path == ":memory:" {
		// Each connection to :memory: would otherwise get its own database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, oops.With("pragma", pragma).Wrap(err)
		}
	}

	if _, err := db.Exec(recordsSchema); err != nil {
		db.Close()
		return nil, oops.With("context", "applying schema").Wrap(err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) InsertRecord(ctx context.Context, record *Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (
			telegram_message_id, source, channel, raw_text, translated_text,
			country, region, location, title, orientation, event_timestamp, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.TelegramMessageID, record.Source, record.Channel, record.RawText,
		record.TranslatedText, record.Country, record.Region, record.Location,
		record.Title, record.Orientation, optionalTimeText(record.EventTimestamp),
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return oops.With("source", record.Source, "context", "failed to insert record").Wrap(err)
	}

	if id, err := res.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

// ListRecords returns every record carrying a creation time, oldest first
// by insertion order. Rows with an unparseable creation time are skipped,
// not fatal.
func (s *SQLiteStorage) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, telegram_message_id, source, channel, raw_text, translated_text,
			country, region, location, title, orientation, event_timestamp, created_at
		FROM records
		WHERE created_at IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, oops.With("context", "failed to query records").Wrap(err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			record      Record
			eventText   *string
			createdText string
		)
		if err := rows.Scan(
			&record.ID, &record.TelegramMessageID, &record.Source, &record.Channel,
			&record.RawText, &record.TranslatedText, &record.Country, &record.Region,
			&record.Location, &record.Title, &record.Orientation, &eventText, &createdText,
		); err != nil {
			return nil, oops.With("context", "failed to scan record").Wrap(err)
		}

		created, err := time.Parse(time.RFC3339, createdText)
		if err != nil {
			slog.Warn("Skipping record with unparseable creation time", "id", record.ID, "created_at", createdText)
			continue
		}
		record.CreatedAt = created

		if eventText != nil {
			if ts, err := time.Parse(time.RFC3339, *eventText); err == nil {
				record.EventTimestamp = &ts
			}
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.With("context", "iterating records").Wrap(err)
	}
	return records, nil
}

func (s *SQLiteStorage) CountRecords(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0, oops.With("context", "failed to count records").Wrap(err)
	}
	return count, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func optionalTimeText(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
