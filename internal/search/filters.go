package search

import (
	"strings"

	"github.com/MikePfunk28/intelhub/internal/models"
)

// ApplyFilters applies post-hoc metadata filters. Categories are ANDed;
// within a category any value may match. Author, source, and tag matching is
// case-insensitive substring matching; the date range is inclusive.
func ApplyFilters(results []*models.SearchResult, f *models.SearchFilters) []*models.SearchResult {
	if !f.Active() {
		return results
	}
	filtered := make([]*models.SearchResult, 0, len(results))
	for _, r := range results {
		if matchesFilters(r, f) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func matchesFilters(r *models.SearchResult, f *models.SearchFilters) bool {
	if len(f.Authors) > 0 && !matchesAny(r.Metadata["authors"], f.Authors) {
		return false
	}
	if len(f.Sources) > 0 && !matchesAny(r.Metadata["source"], f.Sources) {
		return false
	}
	if len(f.Tags) > 0 && !matchesAny(r.Metadata["tags"], f.Tags) {
		return false
	}
	if dr := f.DateRange; dr != nil {
		if dr.Start != nil && r.CreatedAt.Before(*dr.Start) {
			return false
		}
		if dr.End != nil && r.CreatedAt.After(*dr.End) {
			return false
		}
	}
	return true
}

// matchesAny reports whether any wanted value occurs in field,
// case-insensitively.
func matchesAny(field string, wanted []string) bool {
	if field == "" {
		return false
	}
	lower := strings.ToLower(field)
	for _, w := range wanted {
		w = strings.TrimSpace(strings.ToLower(w))
		if w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
