package models

import (
	"fmt"
	"strings"
	"time"
)

// RecordKey uniquely identifies an embedding record.
type RecordKey struct {
	ContentID   string      `json:"content_id"`
	ContentType ContentType `json:"content_type"`
}

// String returns the "type/id" form used in index IDs and error messages.
func (k RecordKey) String() string {
	return string(k.ContentType) + "/" + k.ContentID
}

// ParseRecordKey parses the "type/id" form produced by String.
func ParseRecordKey(s string) (RecordKey, error) {
	ct, id, ok := strings.Cut(s, "/")
	if !ok || ct == "" || id == "" {
		return RecordKey{}, fmt.Errorf("malformed record key %q", s)
	}
	return RecordKey{ContentID: id, ContentType: ContentType(ct)}, nil
}

// EmbeddingRecord is one stored embedding. At most one record exists per
// (ContentID, ContentType); regeneration overwrites in place.
type EmbeddingRecord struct {
	ID          string            `json:"id" db:"id"`
	ContentID   string            `json:"content_id" db:"content_id"`
	ContentType ContentType       `json:"content_type" db:"content_type"`
	Title       string            `json:"title" db:"title"`
	ContentText string            `json:"content_text" db:"content_text"`
	Vector      []float32         `json:"-" db:"-"`
	Metadata    map[string]string `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// Key returns the record's upsert key.
func (r *EmbeddingRecord) Key() RecordKey {
	return RecordKey{ContentID: r.ContentID, ContentType: r.ContentType}
}

// EmbeddingStats is the read-only coverage report.
type EmbeddingStats struct {
	TotalEmbeddings  int64                 `json:"totalEmbeddings"`
	EmbeddingsByType map[ContentType]int64 `json:"embeddingsByType"`
	TotalContent     int64                 `json:"totalContent"`
	// Coverage maps content type to a percentage string, e.g. "66.7%".
	// A type with no content reports "0%".
	Coverage map[ContentType]string `json:"coverage"`
}

// CoverageString formats embedded/total as a percentage with one decimal.
func CoverageString(embedded, total int64) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(embedded)/float64(total)*100)
}

// BatchProgress aggregates one batch embedding run. Counters only grow during
// a run; the struct is returned to the caller and not persisted.
type BatchProgress struct {
	TotalItems   int      `json:"totalItems"`
	Processed    int      `json:"processed"`
	Successful   int      `json:"successful"`
	Failed       int      `json:"failed"`
	CurrentBatch int      `json:"currentBatch"`
	Errors       []string `json:"errors,omitempty"`
}

// RecordFailure counts a failed item and records its error.
func (p *BatchProgress) RecordFailure(key RecordKey, err error) {
	p.Processed++
	p.Failed++
	p.Errors = append(p.Errors, fmt.Sprintf("%s: %v", key, err))
}

// RecordSuccess counts a successfully embedded item.
func (p *BatchProgress) RecordSuccess() {
	p.Processed++
	p.Successful++
}
