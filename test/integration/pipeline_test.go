// Package integration exercises the full pipeline against real storage and
// on-disk indexes.
package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MikePfunk28/intelhub/internal/embedder"
	"github.com/MikePfunk28/intelhub/internal/keyword"
	"github.com/MikePfunk28/intelhub/internal/models"
	"github.com/MikePfunk28/intelhub/internal/provider"
	"github.com/MikePfunk28/intelhub/internal/search"
	"github.com/MikePfunk28/intelhub/internal/storage"
	"github.com/MikePfunk28/intelhub/internal/vector"
)

const dims = 8

func TestPipeline_EmbedSearchRebuild(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := storage.NewSQLiteStore(filepath.Join(dir, "intelhub.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	emb := provider.NewMockEmbedder(dims)
	vectors, err := vector.NewMemoryIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	keywords, err := keyword.NewBleveIndex(filepath.Join(dir, "keyword.bleve"))
	if err != nil {
		t.Fatal(err)
	}

	svc := embedder.NewService(store, emb, vectors, keywords, nil,
		embedder.WithPacing(time.Millisecond, time.Millisecond))

	for _, req := range []*embedder.EmbedRequest{
		{
			ContentID:   "paper-1",
			ContentType: "ai_content",
			Title:       "Attention Is All You Need",
			Content:     "transformer architectures replace recurrence with attention",
			Authors:     []string{"Vaswani"},
		},
		{
			ContentID:   "note-1",
			ContentType: "knowledge_item",
			Title:       "Raft Notes",
			Content:     "leader election and log replication in raft consensus",
		},
	} {
		result, err := svc.EmbedContent(ctx, req)
		if err != nil {
			t.Fatalf("embed %s: %v", req.ContentID, err)
		}
		if !result.Created {
			t.Errorf("embed %s: expected a new embedding", req.ContentID)
		}
	}

	engine := search.NewEngine(store, emb, vectors, keywords, search.Options{}, nil)
	client := search.NewClient(engine, nil)

	zero := 0.0
	resp, err := client.Search(ctx, &models.SearchRequest{
		Query:     "raft consensus",
		Mode:      models.ModeHybrid,
		Threshold: &zero,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalCount < 1 {
		t.Fatalf("expected at least 1 result, got %d", resp.TotalCount)
	}
	if resp.Results[0].ContentID != "note-1" {
		t.Errorf("top result = %s, want note-1", resp.Results[0].ContentID)
	}
	if resp.Results[0].CombinedScore == nil {
		t.Error("hybrid result missing combined score")
	}

	// A fresh process rebuilds its indexes from SQLite and answers the same
	// queries.
	if err := keywords.Close(); err != nil {
		t.Fatal(err)
	}
	vectors2, err := vector.NewMemoryIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	keywords2, err := keyword.NewBleveIndex(filepath.Join(dir, "keyword.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer keywords2.Close()

	svc2 := embedder.NewService(store, emb, vectors2, keywords2, nil)
	n, err := svc2.RebuildIndexes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("rebuilt %d embeddings, want 2", n)
	}

	engine2 := search.NewEngine(store, emb, vectors2, keywords2, search.Options{}, nil)
	resp2, err := engine2.Search(ctx, &models.SearchRequest{
		Query:     "transformer attention",
		Mode:      models.ModeHybrid,
		Threshold: &zero,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp2.TotalCount < 1 {
		t.Fatalf("expected results after rebuild, got %d", resp2.TotalCount)
	}
	if resp2.Results[0].ContentID != "paper-1" {
		t.Errorf("top result after rebuild = %s, want paper-1", resp2.Results[0].ContentID)
	}
}
