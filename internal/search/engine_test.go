package search

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MikePfunk28/intelhub/internal/keyword"
	"github.com/MikePfunk28/intelhub/internal/models"
	"github.com/MikePfunk28/intelhub/internal/storage"
	"github.com/MikePfunk28/intelhub/internal/vector"
)

// stubEmbedder maps known query texts to fixed vectors so similarity is
// controlled exactly in tests.
type stubEmbedder struct {
	vecs  map[string][]float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vecs[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Close() error    { return nil }

type fixture struct {
	store    *storage.SQLiteStore
	vectors  *vector.MemoryIndex
	keywords *keyword.BleveIndex
	emb      *stubEmbedder
	engine   *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	vectors, err := vector.NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	keywords, err := keyword.NewMemoryBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = keywords.Close() })

	emb := &stubEmbedder{vecs: make(map[string][]float32)}
	engine := NewEngine(store, emb, vectors, keywords, Options{}, nil)
	return &fixture{store: store, vectors: vectors, keywords: keywords, emb: emb, engine: engine}
}

// add stores, embeds, and indexes one content item.
func (fx *fixture) add(t *testing.T, item *models.ContentItem, vec []float32) {
	t.Helper()
	ctx := context.Background()
	if err := fx.store.UpsertContent(ctx, item); err != nil {
		t.Fatal(err)
	}
	key := models.RecordKey{ContentID: item.ID, ContentType: item.Type}
	rec := &models.EmbeddingRecord{
		ContentID:   item.ID,
		ContentType: item.Type,
		Title:       item.Title,
		ContentText: item.Content,
		Vector:      vec,
		Metadata:    itemMetadata(item),
		CreatedAt:   item.CreatedAt,
	}
	if _, err := fx.store.UpsertEmbedding(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := fx.vectors.Upsert(key, vec); err != nil {
		t.Fatal(err)
	}
	if err := fx.keywords.Index(ctx, key, item); err != nil {
		t.Fatal(err)
	}
}

func item(id string, ct models.ContentType, title, content string, age time.Duration) *models.ContentItem {
	return &models.ContentItem{
		ID:        id,
		Type:      ct,
		Title:     title,
		Content:   content,
		Authors:   []string{"Jordan Smith"},
		Source:    "arxiv",
		Tags:      []string{"ml"},
		CreatedAt: time.Now().Add(-age).UTC().Truncate(time.Second),
	}
}

func TestEngine_BlankQueryFailsBeforeEmbedding(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.engine.Search(context.Background(), &models.SearchRequest{Query: "   "})
	if !IsQueryError(err) {
		t.Fatalf("err = %v, want *QueryError", err)
	}
	if fx.emb.calls != 0 {
		t.Errorf("provider was called %d times for a blank query", fx.emb.calls)
	}
}

func TestEngine_UnknownSearchType(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.engine.Search(context.Background(), &models.SearchRequest{Query: "q", Mode: "fuzzy"})
	if !IsQueryError(err) {
		t.Errorf("err = %v, want *QueryError", err)
	}
}

func TestEngine_SemanticSearch(t *testing.T) {
	fx := newFixture(t)
	fx.add(t, item("close", models.TypeAIContent, "Transformers", "attention mechanisms", time.Hour), []float32{1, 0, 0})
	fx.add(t, item("near", models.TypeAIContent, "CNNs", "convolutions", time.Hour), []float32{1, 0.5, 0})
	fx.add(t, item("far", models.TypeAIContent, "Databases", "b-trees", time.Hour), []float32{0, 0, 1})
	fx.emb.vecs["attention"] = []float32{1, 0, 0}

	resp, err := fx.engine.Search(context.Background(), &models.SearchRequest{Query: "attention", Mode: models.ModeSemantic})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.SearchType != models.ModeSemantic {
		t.Errorf("response envelope = %+v", resp)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2 above the 0.7 default threshold", len(resp.Results))
	}
	if resp.Results[0].ContentID != "close" {
		t.Errorf("top result = %s, want close", resp.Results[0].ContentID)
	}
	for _, r := range resp.Results {
		if r.Similarity == nil {
			t.Fatalf("semantic result missing similarity: %+v", r)
		}
		if r.CombinedScore != nil || r.KeywordRank != nil {
			t.Errorf("semantic result has extra score fields: %+v", r)
		}
	}
	if *resp.Results[0].Similarity < *resp.Results[1].Similarity {
		t.Error("results not ordered by similarity")
	}
}

func TestEngine_ExplicitZeroThresholdDisablesFloor(t *testing.T) {
	fx := newFixture(t)
	fx.add(t, item("far", models.TypeAIContent, "Databases", "b-trees", time.Hour), []float32{0, 0, 1})
	fx.emb.vecs["q"] = []float32{1, 0, 0}

	zero := 0.0
	resp, err := fx.engine.Search(context.Background(), &models.SearchRequest{
		Query: "q", Mode: models.ModeSemantic, Threshold: &zero,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("got %d results, want the orthogonal item with no floor", len(resp.Results))
	}
}

func TestEngine_ThresholdMonotonicity(t *testing.T) {
	fx := newFixture(t)
	fx.add(t, item("s95", models.TypeAIContent, "A", "text a", time.Hour), []float32{1, 0, 0})
	fx.add(t, item("s80", models.TypeAIContent, "B", "text b", time.Hour), []float32{0.8, 0.6, 0})
	fx.add(t, item("s50", models.TypeAIContent, "C", "text c", time.Hour), []float32{0.5, 0.866, 0})
	fx.add(t, item("s00", models.TypeAIContent, "D", "text d", time.Hour), []float32{0, 0, 1})
	fx.emb.vecs["q"] = []float32{1, 0, 0}

	// Raising the threshold over a fixed corpus must only shrink the result
	// set, and each set must be a subset of the previous one.
	thresholds := []float64{0, 0.6, 0.9, 0.99}
	var prev map[string]bool
	prevLen := -1
	for _, th := range thresholds {
		th := th
		resp, err := fx.engine.Search(context.Background(), &models.SearchRequest{
			Query: "q", Mode: models.ModeSemantic, Threshold: &th,
		})
		if err != nil {
			t.Fatal(err)
		}
		got := make(map[string]bool, len(resp.Results))
		for _, r := range resp.Results {
			got[r.ContentID] = true
			if *r.Similarity < th {
				t.Errorf("threshold %v admitted similarity %v", th, *r.Similarity)
			}
		}
		if prevLen >= 0 {
			if len(got) > prevLen {
				t.Errorf("threshold %v grew the result set: %d > %d", th, len(got), prevLen)
			}
			for id := range got {
				if !prev[id] {
					t.Errorf("threshold %v introduced %q absent at the lower threshold", th, id)
				}
			}
		}
		prev = got
		prevLen = len(got)
	}
	if prevLen != 1 {
		t.Errorf("highest threshold kept %d results, want only the exact match", prevLen)
	}
}

func TestEngine_SemanticTypeRestriction(t *testing.T) {
	fx := newFixture(t)
	fx.add(t, item("a", models.TypeAIContent, "Paper", "text", time.Hour), []float32{1, 0, 0})
	fx.add(t, item("h", models.TypeHackathon, "Event", "text", time.Hour), []float32{1, 0, 0})
	fx.emb.vecs["q"] = []float32{1, 0, 0}

	resp, err := fx.engine.Search(context.Background(), &models.SearchRequest{
		Query: "q", Mode: models.ModeSemantic,
		ContentTypes: []models.ContentType{"hackathons"}, // plural alias
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ContentType != models.TypeHackathon {
		t.Errorf("results = %+v, want only the hackathon", resp.Results)
	}
}

func TestEngine_KeywordSearchWorksWithoutProvider(t *testing.T) {
	fx := newFixture(t)
	fx.add(t, item("a", models.TypeKnowledgeItem, "Kubernetes notes", "ingress and services", time.Hour), []float32{1, 0, 0})
	fx.emb.err = errors.New("provider down")

	resp, err := fx.engine.Search(context.Background(), &models.SearchRequest{Query: "kubernetes", Mode: models.ModeKeyword})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results", len(resp.Results))
	}
	r := resp.Results[0]
	if r.KeywordRank == nil || *r.KeywordRank <= 0 {
		t.Errorf("keyword result missing rank: %+v", r)
	}
	if r.Similarity != nil {
		t.Errorf("keyword result should not carry similarity: %+v", r)
	}
}

func TestEngine_HybridSearch(t *testing.T) {
	fx := newFixture(t)
	// "both" matches the query by keyword and by vector; "semantic-only" and
	// "keyword-only" each match one signal.
	fx.add(t, item("both", models.TypeAIContent, "Retrieval augmented generation", "rag pipelines", time.Hour), []float32{1, 0, 0})
	fx.add(t, item("semantic-only", models.TypeAIContent, "Vector databases", "embedding stores", time.Hour), []float32{0.95, 0.3, 0})
	fx.add(t, item("keyword-only", models.TypeAIContent, "Retrieval for dummies", "plain retrieval notes", time.Hour), []float32{0, 0, 1})
	fx.emb.vecs["retrieval"] = []float32{1, 0, 0}

	resp, err := fx.engine.Search(context.Background(), &models.SearchRequest{Query: "retrieval", Mode: models.ModeHybrid})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("got %d results, want 3: %+v", len(resp.Results), resp.Results)
	}
	if resp.Results[0].ContentID != "both" {
		t.Errorf("top result = %s, want the item matching both signals", resp.Results[0].ContentID)
	}
	for _, r := range resp.Results {
		if r.CombinedScore == nil {
			t.Fatalf("hybrid result missing combined score: %+v", r)
		}
	}
	// keyword-only survives despite being below the similarity threshold.
	found := false
	for _, r := range resp.Results {
		if r.ContentID == "keyword-only" {
			found = true
			if r.Similarity != nil && *r.Similarity >= 0.7 {
				t.Errorf("keyword-only similarity = %v", *r.Similarity)
			}
		}
	}
	if !found {
		t.Error("keyword-only candidate should be kept by its keyword contribution")
	}
}

func TestEngine_FiltersAndLimit(t *testing.T) {
	fx := newFixture(t)
	a := item("a", models.TypeAIContent, "Paper A", "shared text", time.Hour)
	b := item("b", models.TypeAIContent, "Paper B", "shared text", 2*time.Hour)
	b.Authors = []string{"Casey Nguyen"}
	fx.add(t, a, []float32{1, 0, 0})
	fx.add(t, b, []float32{1, 0, 0})
	fx.emb.vecs["shared"] = []float32{1, 0, 0}

	resp, err := fx.engine.Search(context.Background(), &models.SearchRequest{
		Query: "shared", Mode: models.ModeSemantic,
		Filters: &models.SearchFilters{Authors: []string{"nguyen"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ContentID != "b" {
		t.Errorf("author filter returned %+v", resp.Results)
	}

	resp, err = fx.engine.Search(context.Background(), &models.SearchRequest{
		Query: "shared", Mode: models.ModeSemantic, Limit: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.TotalCount != 1 {
		t.Errorf("limit not applied: %d results, total %d", len(resp.Results), resp.TotalCount)
	}
	// Equal scores break ties by recency.
	if resp.Results[0].ContentID != "a" {
		t.Errorf("tie-break winner = %s, want the newer item", resp.Results[0].ContentID)
	}
}

func TestClient_FallsBackToKeyword(t *testing.T) {
	fx := newFixture(t)
	fx.add(t, item("a", models.TypeKnowledgeItem, "Kubernetes notes", "ingress and services", time.Hour), []float32{1, 0, 0})
	fx.emb.err = errors.New("provider down")
	client := NewClient(fx.engine, nil)

	resp, err := client.Search(context.Background(), &models.SearchRequest{Query: "kubernetes", Mode: models.ModeSemantic})
	if err != nil {
		t.Fatalf("fallback should have answered: %v", err)
	}
	if !resp.Fallback {
		t.Error("response should be marked as fallback")
	}
	if resp.SearchType != models.ModeKeyword {
		t.Errorf("searchType = %s, want keyword", resp.SearchType)
	}
	if len(resp.Results) != 1 {
		t.Errorf("got %d results", len(resp.Results))
	}
}

func TestClient_DoesNotRetryQueryErrors(t *testing.T) {
	fx := newFixture(t)
	client := NewClient(fx.engine, nil)

	_, err := client.Search(context.Background(), &models.SearchRequest{Query: ""})
	if !IsQueryError(err) {
		t.Errorf("err = %v, want the original *QueryError", err)
	}
	if fx.emb.calls != 0 {
		t.Errorf("provider called %d times", fx.emb.calls)
	}
}

func TestClient_PropagatesKeywordFailureAsIs(t *testing.T) {
	fx := newFixture(t)
	fx.emb.err = errors.New("provider down")
	client := NewClient(fx.engine, nil)

	// Keyword mode has no fallback target; the engine error surfaces.
	resp, err := client.Search(context.Background(), &models.SearchRequest{Query: "anything", Mode: models.ModeKeyword})
	if err != nil {
		t.Fatalf("keyword search should not touch the provider: %v", err)
	}
	if resp.Fallback {
		t.Error("direct keyword search must not be marked fallback")
	}
}
