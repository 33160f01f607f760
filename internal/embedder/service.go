// Package embedder runs the embedding pipeline: normalize content, call the
// provider, persist the record, and keep the vector and keyword indexes in
// sync.
package embedder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MikePfunk28/intelhub/internal/keyword"
	"github.com/MikePfunk28/intelhub/internal/models"
	"github.com/MikePfunk28/intelhub/internal/normalize"
	"github.com/MikePfunk28/intelhub/internal/provider"
	"github.com/MikePfunk28/intelhub/internal/storage"
	"github.com/MikePfunk28/intelhub/internal/vector"
)

// RequestError marks an embed request that was rejected before any provider
// call: missing ids, unknown content types, empty content.
type RequestError struct {
	Msg string
}

func (e *RequestError) Error() string {
	return e.Msg
}

// EmbedRequest is one piece of content to embed.
type EmbedRequest struct {
	ContentID   string            `json:"contentId"`
	ContentType string            `json:"contentType"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Summary     string            `json:"summary,omitempty"`
	Authors     []string          `json:"authors,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	// ForceRegenerate overwrites an existing embedding instead of returning
	// its id unchanged.
	ForceRegenerate bool `json:"forceRegenerate,omitempty"`
}

// EmbedResult reports the outcome of a single embed call.
type EmbedResult struct {
	EmbeddingID string `json:"embeddingId"`
	// Created is false when the key already had an embedding and the call
	// was a no-op.
	Created bool   `json:"created"`
	Message string `json:"message"`
}

// Service owns the single-item pipeline and the batch sweep.
type Service struct {
	store    storage.Storage
	embedder provider.Embedder
	vectors  vector.Index
	keywords keyword.Index
	logger   *zap.Logger

	// Pacing between provider calls during batch runs.
	itemInterval time.Duration
	pageInterval time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithPacing overrides the batch pacing intervals, mainly for tests.
func WithPacing(item, page time.Duration) Option {
	return func(s *Service) {
		s.itemInterval = item
		s.pageInterval = page
	}
}

// NewService creates the embedding service.
func NewService(store storage.Storage, embedder provider.Embedder, vectors vector.Index, keywords keyword.Index, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:        store,
		embedder:     embedder,
		vectors:      vectors,
		keywords:     keywords,
		logger:       logger,
		itemInterval: 100 * time.Millisecond,
		pageInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EmbedContent embeds one piece of content. When the key already has an
// embedding and ForceRegenerate is false, the existing record id is returned
// without calling the provider.
func (s *Service) EmbedContent(ctx context.Context, req *EmbedRequest) (*EmbedResult, error) {
	if req.ContentID == "" {
		return nil, &RequestError{Msg: "contentId is required"}
	}
	ct, err := models.ParseContentType(req.ContentType)
	if err != nil {
		return nil, &RequestError{Msg: err.Error()}
	}
	key := models.RecordKey{ContentID: req.ContentID, ContentType: ct}

	if !req.ForceRegenerate {
		has, err := s.store.HasEmbedding(ctx, key)
		if err != nil {
			return nil, err
		}
		if has {
			existing, err := s.store.GetEmbedding(ctx, key)
			if err != nil {
				return nil, err
			}
			return &EmbedResult{
				EmbeddingID: existing.ID,
				Created:     false,
				Message:     "embedding already exists",
			}, nil
		}
	}

	text := normalize.Prepare(req.Title, req.Content, req.Summary, req.Authors, req.Metadata)
	if text == "" {
		return nil, &RequestError{Msg: "no content to embed"}
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", key, err)
	}

	item := s.contentItem(req, ct)
	if err := s.store.UpsertContent(ctx, item); err != nil {
		return nil, err
	}

	rec := &models.EmbeddingRecord{
		ContentID:   req.ContentID,
		ContentType: ct,
		Title:       req.Title,
		ContentText: text,
		Vector:      vec,
		Metadata:    recordMetadata(req),
		CreatedAt:   item.CreatedAt,
	}
	id, err := s.store.UpsertEmbedding(ctx, rec)
	if err != nil {
		return nil, err
	}
	if err := s.vectors.Upsert(key, vec); err != nil {
		return nil, fmt.Errorf("index vector %s: %w", key, err)
	}
	if err := s.keywords.Index(ctx, key, item); err != nil {
		return nil, fmt.Errorf("index keywords %s: %w", key, err)
	}

	s.logger.Debug("embedded content",
		zap.String("key", key.String()),
		zap.String("embedding_id", id),
		zap.Bool("force", req.ForceRegenerate))
	return &EmbedResult{EmbeddingID: id, Created: true, Message: "embedding generated"}, nil
}

// RebuildIndexes reloads the vector and keyword indexes from storage. Called
// at startup; SQLite is the source of truth.
func (s *Service) RebuildIndexes(ctx context.Context) (int, error) {
	recs, err := s.store.ListEmbeddings(ctx)
	if err != nil {
		return 0, err
	}
	for _, rec := range recs {
		key := rec.Key()
		if err := s.vectors.Upsert(key, rec.Vector); err != nil {
			return 0, fmt.Errorf("rebuild vector %s: %w", key, err)
		}
		item, err := s.store.GetContent(ctx, key)
		if err != nil {
			// An embedding without its content row; index what the record has.
			item = &models.ContentItem{
				ID:        rec.ContentID,
				Type:      rec.ContentType,
				Title:     rec.Title,
				Content:   rec.ContentText,
				CreatedAt: rec.CreatedAt,
			}
		}
		if err := s.keywords.Index(ctx, key, item); err != nil {
			return 0, fmt.Errorf("rebuild keywords %s: %w", key, err)
		}
	}
	return len(recs), nil
}

func (s *Service) contentItem(req *EmbedRequest, ct models.ContentType) *models.ContentItem {
	item := &models.ContentItem{
		ID:      req.ContentID,
		Type:    ct,
		Title:   req.Title,
		Content: req.Content,
		Summary: req.Summary,
		Authors: req.Authors,
		Source:  req.Metadata["source"],
		URL:     req.Metadata["url"],
	}
	if tags := req.Metadata["tags"]; tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				item.Tags = append(item.Tags, tag)
			}
		}
	}
	return item
}

func recordMetadata(req *EmbedRequest) map[string]string {
	md := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		md[k] = v
	}
	if len(req.Authors) > 0 {
		md["authors"] = strings.Join(req.Authors, ", ")
	}
	return md
}
