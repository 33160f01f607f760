// Package vector provides an in-memory vector index over embedding records,
// using brute-force inner product search on normalized vectors.
package vector

import (
	"github.com/MikePfunk28/intelhub/internal/models"
)

// Result is one vector search hit.
type Result struct {
	Key   models.RecordKey
	Score float64
}

// Index is the vector search surface. The index is rebuilt from storage at
// startup and kept in sync by the embedding pipeline; it is never the source
// of truth.
type Index interface {
	// Upsert replaces the vector for key, or adds it if absent.
	Upsert(key models.RecordKey, vec []float32) error
	// Remove drops the given keys; unknown keys are ignored.
	Remove(keys ...models.RecordKey)
	// Search returns the top-k keys by cosine similarity, restricted to the
	// given content types. A nil or empty types set means all types.
	Search(query []float32, k int, types map[models.ContentType]bool) ([]*Result, error)
	Size() int
}
