package main

import "strings"

// DedupeRecords drops records whose identity key was already seen, keeping
// the first occurrence. Single pass, order preserving.
//
// The key is a coarse heuristic inherited from the collection pipeline:
// near-duplicate text that differs only in whitespace or casing is not
// caught, and the country enters the key raw, before alias normalization.
func DedupeRecords(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	result := make([]Record, 0, len(records))

	for i := range records {
		key := dedupeKey(&records[i])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, records[i])
	}

	return result
}

// dedupeKey is title-based when a title is present, text-based otherwise.
// The collector uses it too, to filter fresh batches against records that
// are already stored.
func dedupeKey(r *Record) string {
	title := strings.TrimSpace(deref(r.Title))
	if title != "" {
		return strings.Join([]string{"title", r.Source, deref(r.Channel), deref(r.Country), title}, "\x1f")
	}
	return strings.Join([]string{"text", r.Source, deref(r.Channel), deref(r.Country), r.DisplayText()}, "\x1f")
}
