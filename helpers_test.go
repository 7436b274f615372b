package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func at(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return ts
}

// testGeoIndex mirrors the countries.json shape: aliases in several
// languages, coordinates keyed by canonical name. "Atlantis" resolves but
// has no coordinates, so it must stay invisible to country-scoped outputs.
func testGeoIndex() *GeoIndex {
	return NewGeoIndex(
		map[string]string{
			"ukraine":  "Ukraine",
			"україна":  "Ukraine",
			"france":   "France",
			"francia":  "France",
			"bosnie":   "Bosnia/Herzegovina",
			"atlantis": "Atlantis",
		},
		map[string][]float64{
			"Ukraine":            {48.3794, 31.1656},
			"France":             {46.2276, 2.2137},
			"Bosnia/Herzegovina": {43.9159, 17.6791},
		},
	)
}

// rec builds a minimal record; mut tweaks the fields under test.
func rec(id int64, created string, mut func(*Record)) Record {
	r := Record{
		ID:        id,
		Source:    "telegram",
		RawText:   fmt.Sprintf("record %d", id),
		CreatedAt: at(created),
	}
	if mut != nil {
		mut(&r)
	}
	return r
}

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}
