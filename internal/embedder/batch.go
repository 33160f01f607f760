package embedder

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/MikePfunk28/intelhub/internal/models"
)

const (
	// DefaultBatchSize is the page size used when a request does not set one.
	DefaultBatchSize = 10
	// MaxBatchSize caps the page size a single run may ask for.
	MaxBatchSize = 50
)

// BatchRequest configures one batch embedding run.
type BatchRequest struct {
	// ContentType selects one type, or "all" (or empty) for every type.
	ContentType string `json:"contentType,omitempty"`
	BatchSize   int    `json:"batchSize,omitempty"`
	// SkipExisting skips content that already has an embedding. Nil means
	// true; an explicit false re-embeds everything.
	SkipExisting *bool `json:"skipExisting,omitempty"`
}

// RunBatch sweeps stored content and embeds everything pending. Per-item
// failures are recorded and do not abort the run; a listing failure abandons
// that type and continues with the others. Provider calls are strictly
// sequential, paced by a rate limiter between items and a longer delay
// between pages.
func (s *Service) RunBatch(ctx context.Context, req *BatchRequest) (*models.BatchProgress, error) {
	types, err := resolveTypes(req.ContentType)
	if err != nil {
		return nil, &RequestError{Msg: err.Error()}
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	skipExisting := req.SkipExisting == nil || *req.SkipExisting

	progress := &models.BatchProgress{}
	pending := make(map[models.ContentType][]*models.ContentItem, len(types))
	for _, ct := range types {
		items, err := s.listPending(ctx, ct, skipExisting)
		if err != nil {
			s.logger.Error("batch listing failed, skipping type",
				zap.String("content_type", string(ct)), zap.Error(err))
			progress.Errors = append(progress.Errors, fmt.Sprintf("%s: %v", ct, err))
			continue
		}
		pending[ct] = items
		progress.TotalItems += len(items)
	}

	if progress.TotalItems == 0 {
		s.logger.Info("batch run has nothing to embed",
			zap.String("content_type", req.ContentType),
			zap.Bool("skip_existing", skipExisting))
		return progress, nil
	}

	itemLimiter := rate.NewLimiter(rate.Every(s.itemInterval), 1)
	pageLimiter := rate.NewLimiter(rate.Every(s.pageInterval), 1)

	for _, ct := range types {
		items := pending[ct]
		for start := 0; start < len(items); start += batchSize {
			end := start + batchSize
			if end > len(items) {
				end = len(items)
			}
			if err := pageLimiter.Wait(ctx); err != nil {
				return progress, err
			}
			progress.CurrentBatch++
			s.logger.Info("batch page",
				zap.Int("batch", progress.CurrentBatch),
				zap.String("content_type", string(ct)),
				zap.Int("items", end-start))

			for _, item := range items[start:end] {
				if err := itemLimiter.Wait(ctx); err != nil {
					return progress, err
				}
				key := models.RecordKey{ContentID: item.ID, ContentType: item.Type}
				if _, err := s.EmbedContent(ctx, requestFromItem(item, !skipExisting)); err != nil {
					s.logger.Warn("batch item failed",
						zap.String("key", key.String()), zap.Error(err))
					progress.RecordFailure(key, err)
					continue
				}
				progress.RecordSuccess()
			}
		}
	}

	s.logger.Info("batch run finished",
		zap.Int("total", progress.TotalItems),
		zap.Int("successful", progress.Successful),
		zap.Int("failed", progress.Failed))
	return progress, nil
}

func (s *Service) listPending(ctx context.Context, ct models.ContentType, skipExisting bool) ([]*models.ContentItem, error) {
	if skipExisting {
		return s.store.ListContentMissingEmbedding(ctx, ct)
	}
	// SQLite treats a negative LIMIT as unbounded.
	return s.store.ListContent(ctx, ct, 0, -1)
}

func resolveTypes(selector string) ([]models.ContentType, error) {
	selector = strings.TrimSpace(strings.ToLower(selector))
	if selector == "" || selector == "all" {
		return models.AllContentTypes(), nil
	}
	ct, err := models.ParseContentType(selector)
	if err != nil {
		return nil, err
	}
	return []models.ContentType{ct}, nil
}

func requestFromItem(item *models.ContentItem, force bool) *EmbedRequest {
	md := make(map[string]string)
	if item.Source != "" {
		md["source"] = item.Source
	}
	if item.URL != "" {
		md["url"] = item.URL
	}
	if len(item.Tags) > 0 {
		md["tags"] = strings.Join(item.Tags, ",")
	}
	return &EmbedRequest{
		ContentID:       item.ID,
		ContentType:     string(item.Type),
		Title:           item.Title,
		Content:         item.Content,
		Summary:         item.Summary,
		Authors:         item.Authors,
		Metadata:        md,
		ForceRegenerate: force,
	}
}
