package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MikePfunk28/intelhub/internal/models"
	"github.com/MikePfunk28/intelhub/internal/storage"
)

func newTestImporter(t *testing.T) (*Importer, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "ingest.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewImporter(store, nil, nil), store
}

func TestImportFile_JSONSingle(t *testing.T) {
	im, store := newTestImporter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "item.json")
	payload := `{"id":"a1","content_type":"ai_content","title":"Paper","content":"body","tags":["ml"]}`
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := im.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("imported %d, want 1", n)
	}

	key := models.RecordKey{ContentID: "a1", ContentType: models.TypeAIContent}
	item, err := store.GetContent(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if item.Title != "Paper" || len(item.Tags) != 1 {
		t.Errorf("item = %+v", item)
	}
}

func TestImportFile_JSONArrayWithAlias(t *testing.T) {
	im, store := newTestImporter(t)
	path := filepath.Join(t.TempDir(), "batch.json")
	payload := `[
		{"id":"k1","content_type":"knowledge_items","title":"Note","content":"text"},
		{"id":"h1","content_type":"hackathon","title":"Event","content":"text"}
	]`
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := im.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}
	// Alias normalized to the canonical type.
	key := models.RecordKey{ContentID: "k1", ContentType: models.TypeKnowledgeItem}
	if _, err := store.GetContent(context.Background(), key); err != nil {
		t.Errorf("alias type not normalized: %v", err)
	}
}

func TestImportFile_JSONRejectsUnknownType(t *testing.T) {
	im, _ := newTestImporter(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(path, []byte(`{"id":"x","content_type":"videos","content":"t"}`), 0644)

	if _, err := im.ImportFile(context.Background(), path); err == nil {
		t.Error("unknown content type should fail")
	}
}

func TestImportFile_Document(t *testing.T) {
	im, store := newTestImporter(t)
	path := filepath.Join(t.TempDir(), "Reading Notes_2025.md")
	if err := os.WriteFile(path, []byte("# Notes\n\nUseful content here"), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := im.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("imported %d, want 1", n)
	}

	key := models.RecordKey{ContentID: "reading-notes-2025", ContentType: models.TypeKnowledgeItem}
	item, err := store.GetContent(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if item.Source != "import" || item.Title != "Reading Notes_2025" {
		t.Errorf("item = %+v", item)
	}
}

func TestImportDirectory_SkipsFailuresAndUnsupported(t *testing.T) {
	im, store := newTestImporter(t)
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "good.json"), []byte(`{"id":"a","content_type":"ai_content","content":"t","title":"A"}`), 0644)
	_ = os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{not json`), 0644)
	_ = os.WriteFile(filepath.Join(dir, "ignore.xlsx"), []byte("binary"), 0644)
	_ = os.WriteFile(filepath.Join(dir, ".hidden.json"), []byte(`{}`), 0644)
	_ = os.WriteFile(filepath.Join(dir, "note.txt"), []byte("plain note"), 0644)

	imported, failed, err := im.ImportDirectory(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if imported != 2 {
		t.Errorf("imported = %d, want 2", imported)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1 (the broken json)", failed)
	}

	total, _ := store.CountContent(context.Background(), "")
	if total != 2 {
		t.Errorf("stored rows = %d, want 2", total)
	}
}

func TestWatcher_ImportsDroppedFiles(t *testing.T) {
	im, store := newTestImporter(t)
	dir := t.TempDir()
	w := NewWatcher(im, dir, nil, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "dropped.json")
	payload := `{"id":"d1","content_type":"ai_content","title":"Dropped","content":"body"}`
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	key := models.RecordKey{ContentID: "d1", ContentType: models.TypeAIContent}
	deadline := time.After(5 * time.Second)
	for {
		if _, err := store.GetContent(context.Background(), key); err == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatal("dropped file was not imported")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
