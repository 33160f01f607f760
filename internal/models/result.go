package models

import "time"

// SearchResult is a single ranked hit. Only the score fields relevant to the
// mode that produced it are set; a nil score field means "not computed", not
// "zero".
type SearchResult struct {
	ID          string            `json:"id"`
	ContentID   string            `json:"content_id"`
	ContentType ContentType       `json:"content_type"`
	Title       string            `json:"title"`
	Content     string            `json:"content,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`

	Similarity    *float64 `json:"similarity,omitempty"`
	KeywordRank   *float64 `json:"keywordRank,omitempty"`
	CombinedScore *float64 `json:"combinedScore,omitempty"`
}

// Key returns the (content id, content type) pair for deduplication.
func (r *SearchResult) Key() RecordKey {
	return RecordKey{ContentID: r.ContentID, ContentType: r.ContentType}
}

// SearchResponse is the uniform response of the query interface.
type SearchResponse struct {
	Success          bool            `json:"success"`
	Results          []*SearchResult `json:"results"`
	TotalCount       int             `json:"totalCount"`
	SearchType       SearchMode      `json:"searchType"`
	Query            string          `json:"query"`
	ProcessingTimeMs int64           `json:"processingTimeMs"`
	// Fallback is set when a semantic or hybrid request was answered by the
	// keyword fallback path after a provider failure.
	Fallback bool `json:"fallback,omitempty"`
}
