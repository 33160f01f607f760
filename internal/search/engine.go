// Package search runs semantic, keyword, and hybrid search over the
// embedding and keyword indexes.
package search

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MikePfunk28/intelhub/internal/keyword"
	"github.com/MikePfunk28/intelhub/internal/models"
	"github.com/MikePfunk28/intelhub/internal/provider"
	"github.com/MikePfunk28/intelhub/internal/storage"
	"github.com/MikePfunk28/intelhub/internal/vector"
)

// Options tunes retrieval and fusion. Zero fields fall back to defaults.
type Options struct {
	// DefaultThreshold is the similarity floor used when a request does not
	// set one. A request with an explicit zero threshold disables the floor.
	DefaultThreshold float64
	SemanticWeight   float64
	KeywordWeight    float64
	// TopKCandidates is how many candidates each signal retrieves before
	// filtering and the limit are applied.
	TopKCandidates int
}

func (o *Options) applyDefaults() {
	if o.DefaultThreshold == 0 {
		o.DefaultThreshold = 0.7
	}
	if o.SemanticWeight == 0 {
		o.SemanticWeight = 0.6
	}
	if o.KeywordWeight == 0 {
		o.KeywordWeight = 0.4
	}
	if o.TopKCandidates <= 0 {
		o.TopKCandidates = 50
	}
}

// Engine executes search requests. It is stateless between calls; all state
// lives in the store and the two indexes.
type Engine struct {
	store    storage.Storage
	embedder provider.Embedder
	vectors  vector.Index
	keywords keyword.Index
	opts     Options
	logger   *zap.Logger
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(store storage.Storage, embedder provider.Embedder, vectors vector.Index, keywords keyword.Index, opts Options, logger *zap.Logger) *Engine {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
		keywords: keywords,
		opts:     opts,
		logger:   logger,
	}
}

// Search validates the request, retrieves by the requested mode, applies
// post-hoc filters, and returns ranked results. A blank query fails before
// any provider call is made.
func (e *Engine) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	startTime := time.Now()

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, &QueryError{Msg: "query is required"}
	}
	if err := req.Validate(); err != nil {
		return nil, &QueryError{Msg: err.Error()}
	}
	threshold := e.opts.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	var (
		results []*models.SearchResult
		err     error
	)
	switch req.Mode {
	case models.ModeSemantic:
		results, err = e.semanticSearch(ctx, req, threshold)
	case models.ModeKeyword:
		results, err = e.keywordSearch(ctx, req)
	case models.ModeHybrid:
		results, err = e.hybridSearch(ctx, req, threshold)
	}
	if err != nil {
		return nil, err
	}

	if req.Filters != nil {
		results = ApplyFilters(results, req.Filters)
	}
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	return &models.SearchResponse{
		Success:          true,
		Results:          results,
		TotalCount:       len(results),
		SearchType:       req.Mode,
		Query:            req.Query,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	}, nil
}

func (e *Engine) semanticSearch(ctx context.Context, req *models.SearchRequest, threshold float64) ([]*models.SearchResult, error) {
	queryVec, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := e.vectors.Search(queryVec, e.opts.TopKCandidates, typeSet(req.ContentTypes))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		sim := clamp01(hit.Score)
		if sim < threshold {
			continue
		}
		r, ok := e.resolve(ctx, hit.Key)
		if !ok {
			continue
		}
		s := sim
		r.Similarity = &s
		results = append(results, r)
	}
	sortResults(results, func(r *models.SearchResult) float64 { return *r.Similarity })
	return results, nil
}

func (e *Engine) keywordSearch(ctx context.Context, req *models.SearchRequest) ([]*models.SearchResult, error) {
	hits, err := e.keywords.Search(ctx, req.Query, e.opts.TopKCandidates, req.ContentTypes)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		r, ok := e.resolve(ctx, hit.Key)
		if !ok {
			continue
		}
		rank := hit.Score
		r.KeywordRank = &rank
		results = append(results, r)
	}
	sortResults(results, func(r *models.SearchResult) float64 { return *r.KeywordRank })
	return results, nil
}

func (e *Engine) hybridSearch(ctx context.Context, req *models.SearchRequest, threshold float64) ([]*models.SearchResult, error) {
	var (
		semantic    map[models.RecordKey]float64
		keywordHits []*keyword.Result
		errChan     = make(chan error, 2)
		wg          sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		queryVec, err := e.embedder.Embed(ctx, req.Query)
		if err != nil {
			errChan <- fmt.Errorf("embed query: %w", err)
			return
		}
		hits, err := e.vectors.Search(queryVec, e.opts.TopKCandidates, typeSet(req.ContentTypes))
		if err != nil {
			errChan <- fmt.Errorf("vector search: %w", err)
			return
		}
		semantic = make(map[models.RecordKey]float64, len(hits))
		for _, h := range hits {
			semantic[h.Key] = clamp01(h.Score)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		hits, err := e.keywords.Search(ctx, req.Query, e.opts.TopKCandidates, req.ContentTypes)
		if err != nil {
			errChan <- fmt.Errorf("keyword search: %w", err)
			return
		}
		keywordHits = hits
	}()

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	fused := fuse(semantic, keywordHits, e.opts.SemanticWeight, e.opts.KeywordWeight, threshold)
	results := make([]*models.SearchResult, 0, len(fused))
	for _, c := range fused {
		r, ok := e.resolve(ctx, c.key)
		if !ok {
			continue
		}
		combined := c.combined
		r.CombinedScore = &combined
		if c.hasSim {
			sim := c.similarity
			r.Similarity = &sim
		}
		if c.keywordNorm > 0 {
			rank := c.keywordRaw
			r.KeywordRank = &rank
		}
		results = append(results, r)
	}
	sortResults(results, func(r *models.SearchResult) float64 { return *r.CombinedScore })
	return results, nil
}

// resolve loads the record behind a hit. Embedded content resolves to its
// embedding record; keyword hits for not-yet-embedded content fall back to
// the content row with the key form as the result id.
func (e *Engine) resolve(ctx context.Context, key models.RecordKey) (*models.SearchResult, bool) {
	rec, err := e.store.GetEmbedding(ctx, key)
	if err == nil {
		return &models.SearchResult{
			ID:          rec.ID,
			ContentID:   rec.ContentID,
			ContentType: rec.ContentType,
			Title:       rec.Title,
			Content:     rec.ContentText,
			Metadata:    rec.Metadata,
			CreatedAt:   rec.CreatedAt,
		}, true
	}
	item, err := e.store.GetContent(ctx, key)
	if err != nil {
		e.logger.Warn("dropping unresolvable hit", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	return &models.SearchResult{
		ID:          key.String(),
		ContentID:   item.ID,
		ContentType: item.Type,
		Title:       item.Title,
		Content:     item.Content,
		Metadata:    itemMetadata(item),
		CreatedAt:   item.CreatedAt,
	}, true
}

func itemMetadata(item *models.ContentItem) map[string]string {
	md := make(map[string]string)
	if len(item.Authors) > 0 {
		md["authors"] = strings.Join(item.Authors, ", ")
	}
	if len(item.Tags) > 0 {
		md["tags"] = strings.Join(item.Tags, ",")
	}
	if item.Source != "" {
		md["source"] = item.Source
	}
	return md
}

func typeSet(types []models.ContentType) map[models.ContentType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[models.ContentType]bool, len(types))
	for _, ct := range types {
		set[ct] = true
	}
	return set
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
