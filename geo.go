package main

import (
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// GeoIndex is the static alias table: free-text country name variants
// mapped to a canonical code, plus display coordinates per code. It is
// loaded once at startup and never mutated afterwards.
type GeoIndex struct {
	aliases     map[string]string
	coordinates map[string][]float64
}

type countriesDocument struct {
	Aliases     map[string]string    `json:"aliases"`
	Coordinates map[string][]float64 `json:"coordinates"`
}

// NewGeoIndex builds an index from already-decoded mappings.
func NewGeoIndex(aliases map[string]string, coordinates map[string][]float64) *GeoIndex {
	if aliases == nil {
		aliases = map[string]string{}
	}
	if coordinates == nil {
		coordinates = map[string][]float64{}
	}
	return &GeoIndex{aliases: aliases, coordinates: coordinates}
}

// LoadGeoIndex reads the countries document. Codes missing from the
// coordinates mapping stay resolvable but are filtered out of every
// country-scoped output.
func LoadGeoIndex(path string) (*GeoIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.With("countries_path", path, "context", "failed to read countries file").Wrap(err)
	}

	var doc countriesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, oops.With("countries_path", path, "context", "failed to parse countries file").Wrap(err)
	}

	return NewGeoIndex(doc.Aliases, doc.Coordinates), nil
}

// ResolveAliases maps a free-text country field, possibly comma-separated,
// to canonical codes. Tokens are trimmed and lower-cased before lookup;
// unmatched tokens are dropped silently. Output order follows input order
// and duplicate matches are preserved.
func (g *GeoIndex) ResolveAliases(name string) []string {
	if name == "" {
		return []string{}
	}
	return lo.FilterMap(strings.Split(name, ","), func(token string, _ int) (string, bool) {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			return "", false
		}
		code, ok := g.aliases[token]
		return code, ok
	})
}

// HasCoordinates reports whether a canonical code can be placed on the map.
func (g *GeoIndex) HasCoordinates(code string) bool {
	_, ok := g.coordinates[code]
	return ok
}

// Coordinates returns the display coordinates for a canonical code.
func (g *GeoIndex) Coordinates(code string) ([]float64, bool) {
	coords, ok := g.coordinates[code]
	return coords, ok
}
