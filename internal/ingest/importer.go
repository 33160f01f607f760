// Package ingest loads content items into storage from a drop directory:
// JSON content records, plus documents whose text is extracted and stored as
// knowledge items. Embedding is not done here; the batch sweep picks new
// rows up.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/MikePfunk28/intelhub/internal/extract"
	"github.com/MikePfunk28/intelhub/internal/models"
	"github.com/MikePfunk28/intelhub/internal/storage"
)

// Importer reads files into content rows.
type Importer struct {
	store     storage.Storage
	extractor *extract.Extractor
	logger    *zap.Logger
}

// NewImporter creates an importer.
func NewImporter(store storage.Storage, extractor *extract.Extractor, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	return &Importer{store: store, extractor: extractor, logger: logger}
}

// ImportFile imports one file and returns how many content items it yielded.
// A .json file holds one content item or an array of them; any extractable
// document becomes a single knowledge item keyed by its file name.
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		return im.importJSON(ctx, path)
	}
	if !im.extractor.Supported(ext) {
		return 0, fmt.Errorf("unsupported file type %q", ext)
	}
	return im.importDocument(ctx, path)
}

func (im *Importer) importJSON(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	var items []*models.ContentItem
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		if err := json.Unmarshal(data, &items); err != nil {
			return 0, fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		var item models.ContentItem
		if err := json.Unmarshal(data, &item); err != nil {
			return 0, fmt.Errorf("decode %s: %w", path, err)
		}
		items = []*models.ContentItem{&item}
	}

	n := 0
	for _, item := range items {
		if item.ID == "" {
			return n, fmt.Errorf("%s: content item without id", path)
		}
		ct, err := models.ParseContentType(string(item.Type))
		if err != nil {
			return n, fmt.Errorf("%s: %w", path, err)
		}
		item.Type = ct
		if err := im.store.UpsertContent(ctx, item); err != nil {
			return n, err
		}
		n++
	}
	im.logger.Info("imported content records", zap.String("path", path), zap.Int("items", n))
	return n, nil
}

func (im *Importer) importDocument(ctx context.Context, path string) (int, error) {
	text, err := im.extractor.Extract(path)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%s: no extractable text", path)
	}
	base := filepath.Base(path)
	item := &models.ContentItem{
		ID:      docID(base),
		Type:    models.TypeKnowledgeItem,
		Title:   strings.TrimSuffix(base, filepath.Ext(base)),
		Content: text,
		Source:  "import",
	}
	if err := im.store.UpsertContent(ctx, item); err != nil {
		return 0, err
	}
	im.logger.Info("imported document", zap.String("path", path), zap.String("id", item.ID))
	return 1, nil
}

// ImportDirectory walks dir and imports every supported file. Per-file
// failures are logged and skipped; the counts report what happened.
func (im *Importer) ImportDirectory(ctx context.Context, dir string) (imported, failed int, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".json" && !im.extractor.Supported(ext) {
			return nil
		}
		n, fileErr := im.ImportFile(ctx, path)
		imported += n
		if fileErr != nil {
			failed++
			im.logger.Warn("import failed", zap.String("path", path), zap.Error(fileErr))
		}
		return nil
	})
	return imported, failed, err
}

// docID derives a stable content id from a file name: lowercase, with
// spaces collapsed to dashes and the extension dropped.
func docID(base string) string {
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(strings.ReplaceAll(name, "_", " ")), "-")
}
