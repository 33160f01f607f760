// Package keyword provides full-text keyword indexing and search over
// content items.
package keyword

import (
	"context"

	"github.com/MikePfunk28/intelhub/internal/models"
)

// Index defines keyword search operations. Documents are keyed by
// RecordKey so hits can be joined against embedding records.
type Index interface {
	Index(ctx context.Context, key models.RecordKey, item *models.ContentItem) error
	// Search runs a match query restricted to the given content types
	// (empty means all) and returns up to limit hits.
	Search(ctx context.Context, query string, limit int, types []models.ContentType) ([]*Result, error)
	Delete(ctx context.Context, key models.RecordKey) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit. Score is the raw relevance score
// from the underlying index; callers normalize before fusing with semantic
// similarity.
type Result struct {
	Key   models.RecordKey
	Score float64
}
