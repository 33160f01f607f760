package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MikePfunk28/intelhub/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewMemoryBleveIndex()
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func indexItem(t *testing.T, idx *BleveIndex, id string, ct models.ContentType, title, content string, tags ...string) {
	t.Helper()
	item := &models.ContentItem{ID: id, Type: ct, Title: title, Content: content, Tags: tags}
	key := models.RecordKey{ContentID: id, ContentType: ct}
	if err := idx.Index(context.Background(), key, item); err != nil {
		t.Fatalf("failed to index %s: %v", key, err)
	}
}

func TestBleveIndex_SearchMatchesContent(t *testing.T) {
	idx := newTestIndex(t)
	indexItem(t, idx, "a1", models.TypeAIContent, "Attention Is All You Need", "We propose the transformer architecture")
	indexItem(t, idx, "a2", models.TypeAIContent, "ResNet", "Deep residual learning for image recognition")

	results, err := idx.Search(context.Background(), "transformer", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Key.ContentID != "a1" {
		t.Errorf("hit = %s, want a1", results[0].Key)
	}
	if results[0].Score <= 0 {
		t.Errorf("score = %f, want > 0", results[0].Score)
	}
}

func TestBleveIndex_TitleMatchRanksAboveBodyMatch(t *testing.T) {
	idx := newTestIndex(t)
	indexItem(t, idx, "title-hit", models.TypeKnowledgeItem, "Kubernetes networking guide", "Service meshes and ingress explained")
	indexItem(t, idx, "body-hit", models.TypeKnowledgeItem, "Cluster operations", "Notes about kubernetes upgrades and maintenance procedures")

	results, err := idx.Search(context.Background(), "kubernetes", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Key.ContentID != "title-hit" {
		t.Errorf("top hit = %s, want the title match", results[0].Key)
	}
}

func TestBleveIndex_TypeFilter(t *testing.T) {
	idx := newTestIndex(t)
	indexItem(t, idx, "a1", models.TypeAIContent, "RAG survey", "Retrieval augmented generation techniques")
	indexItem(t, idx, "h1", models.TypeHackathon, "RAG hackathon", "Build a retrieval augmented generation demo")

	results, err := idx.Search(context.Background(), "retrieval", 10, []models.ContentType{models.TypeHackathon})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Key.ContentType != models.TypeHackathon {
		t.Errorf("hit type = %s, want hackathon", results[0].Key.ContentType)
	}
}

func TestBleveIndex_TagsSearchable(t *testing.T) {
	idx := newTestIndex(t)
	indexItem(t, idx, "k1", models.TypeKnowledgeItem, "Weekly notes", "Misc reading list", "distributed-systems", "golang")

	results, err := idx.Search(context.Background(), "golang", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("tag search returned %d results, want 1", len(results))
	}
}

func TestBleveIndex_IndexReplacesAndDeletes(t *testing.T) {
	idx := newTestIndex(t)
	indexItem(t, idx, "a1", models.TypeAIContent, "Old title", "old body text")
	indexItem(t, idx, "a1", models.TypeAIContent, "New title", "completely different words")

	count, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("doc count = %d, want 1 after re-index", count)
	}

	results, _ := idx.Search(context.Background(), "old", 10, nil)
	if len(results) != 0 {
		t.Errorf("stale content still matches after re-index: %v", results)
	}

	key := models.RecordKey{ContentID: "a1", ContentType: models.TypeAIContent}
	if err := idx.Delete(context.Background(), key); err != nil {
		t.Fatal(err)
	}
	count, _ = idx.DocCount()
	if count != 0 {
		t.Errorf("doc count = %d, want 0 after delete", count)
	}
}

func TestBleveIndex_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	indexItem(t, idx, "a1", models.TypeAIContent, "Persistent doc", "stored on disk")
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	results, err := reopened.Search(context.Background(), "persistent", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results after reopen, want 1", len(results))
	}
}
