package models

import (
	"fmt"
	"time"
)

// SearchMode selects how results are retrieved and ranked.
type SearchMode string

const (
	ModeSemantic SearchMode = "semantic"
	ModeHybrid   SearchMode = "hybrid"
	ModeKeyword  SearchMode = "keyword"
)

// DefaultLimit is the result count used when a request does not set one.
const DefaultLimit = 20

// MaxLimit caps the result count a single request may ask for.
const MaxLimit = 100

// DateRange restricts results by creation time. Either bound may be nil.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// SearchFilters are post-hoc metadata filters applied after retrieval.
// Author, source, and tag matching is case-insensitive substring matching;
// within a category any match keeps the result, and active categories are
// ANDed together.
type SearchFilters struct {
	Authors   []string   `json:"authors,omitempty"`
	Sources   []string   `json:"sources,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	DateRange *DateRange `json:"dateRange,omitempty"`
}

// Active reports whether any filter category is set.
func (f *SearchFilters) Active() bool {
	if f == nil {
		return false
	}
	if len(f.Authors) > 0 || len(f.Sources) > 0 || len(f.Tags) > 0 {
		return true
	}
	return f.DateRange != nil && (f.DateRange.Start != nil || f.DateRange.End != nil)
}

// SearchRequest is a search call. Threshold is a pointer so that an absent
// value can fall back to the configured default (0.7) while an explicit zero
// still means "no similarity floor".
type SearchRequest struct {
	Query        string         `json:"query"`
	Mode         SearchMode     `json:"searchType,omitempty"`
	ContentTypes []ContentType  `json:"contentTypes,omitempty"`
	Threshold    *float64       `json:"threshold,omitempty"`
	Limit        int            `json:"limit,omitempty"`
	Filters      *SearchFilters `json:"filters,omitempty"`
}

// Validate applies defaults and rejects unknown modes and content types.
// The empty-query check is the engine's responsibility so it can fail before
// any embedding call is made.
func (r *SearchRequest) Validate() error {
	if r.Mode == "" {
		r.Mode = ModeSemantic
	}
	switch r.Mode {
	case ModeSemantic, ModeHybrid, ModeKeyword:
	default:
		return fmt.Errorf("unknown search type: %q", r.Mode)
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	for i, ct := range r.ContentTypes {
		parsed, err := ParseContentType(string(ct))
		if err != nil {
			return err
		}
		r.ContentTypes[i] = parsed
	}
	return nil
}

// WantsType reports whether the request's type restriction admits ct.
// An empty restriction admits every type.
func (r *SearchRequest) WantsType(ct ContentType) bool {
	if len(r.ContentTypes) == 0 {
		return true
	}
	for _, want := range r.ContentTypes {
		if want == ct {
			return true
		}
	}
	return false
}
