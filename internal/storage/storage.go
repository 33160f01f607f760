// Package storage persists content items and their embeddings in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MikePfunk28/intelhub/internal/models"
)

// ErrNotFound is returned (wrapped in a StoreError) when a lookup misses.
var ErrNotFound = errors.New("not found")

// StoreError wraps a failed storage operation. Callers can distinguish
// persistence failures from search or provider failures with errors.As.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// Storage is the persistence boundary for content and embeddings.
type Storage interface {
	// Content items.
	UpsertContent(ctx context.Context, item *models.ContentItem) error
	GetContent(ctx context.Context, key models.RecordKey) (*models.ContentItem, error)
	ListContent(ctx context.Context, contentType models.ContentType, offset, limit int) ([]*models.ContentItem, error)
	ListContentMissingEmbedding(ctx context.Context, contentType models.ContentType) ([]*models.ContentItem, error)
	CountContent(ctx context.Context, contentType models.ContentType) (int64, error)

	// Embedding records. UpsertEmbedding keeps the record id and creation
	// time stable when re-embedding the same content.
	UpsertEmbedding(ctx context.Context, rec *models.EmbeddingRecord) (string, error)
	GetEmbedding(ctx context.Context, key models.RecordKey) (*models.EmbeddingRecord, error)
	HasEmbedding(ctx context.Context, key models.RecordKey) (bool, error)
	CountEmbeddings(ctx context.Context, contentType models.ContentType) (int64, error)
	ListEmbeddings(ctx context.Context) ([]*models.EmbeddingRecord, error)

	Stats(ctx context.Context) (*models.EmbeddingStats, error)
	Close() error
}

// DiskUsageBytes returns the total size in bytes of the given paths. Each path
// may be a file or a directory (recursively summed). Missing paths contribute
// nothing.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
