package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/MikePfunk28/intelhub/internal/models"
)

// titleBoost makes title matches rank above body matches.
const titleBoost = 2.0

// indexedContent is the document shape stored in Bleve. content_type uses the
// keyword analyzer so type filters are exact term matches.
type indexedContent struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"`
	Authors     []string `json:"authors"`
	Source      string   `json:"source"`
	ContentType string   `json:"content_type"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// opened and reused so restarts do not re-index. If the mapping in code
// changes, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so queries like
	// "transformer" match the exact word rather than a stem.
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	for _, f := range []string{"title", "content", "summary", "tags", "authors", "source"} {
		docMapping.AddFieldMappingsAt(f, textField)
	}
	typeField := bleve.NewTextFieldMapping()
	typeField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("content_type", typeField)
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open keyword index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryBleveIndex creates a transient in-memory index, used in tests.
func NewMemoryBleveIndex() (*BleveIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	for _, f := range []string{"title", "content", "summary", "tags", "authors", "source"} {
		docMapping.AddFieldMappingsAt(f, textField)
	}
	typeField := bleve.NewTextFieldMapping()
	typeField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("content_type", typeField)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create in-memory keyword index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces the document for key.
func (b *BleveIndex) Index(ctx context.Context, key models.RecordKey, item *models.ContentItem) error {
	doc := indexedContent{
		Title:       item.Title,
		Content:     item.Content,
		Summary:     item.Summary,
		Tags:        item.Tags,
		Authors:     item.Authors,
		Source:      item.Source,
		ContentType: string(key.ContentType),
	}
	if err := b.index.Index(key.String(), doc); err != nil {
		return fmt.Errorf("index %s: %w", key, err)
	}
	return nil
}

// Search runs a match query over title, content, summary and tags, restricted
// to the given content types.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, types []models.ContentType) ([]*Result, error) {
	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField("title")
	titleQuery.SetBoost(titleBoost)
	contentQuery := bleve.NewMatchQuery(query)
	contentQuery.SetField("content")
	summaryQuery := bleve.NewMatchQuery(query)
	summaryQuery.SetField("summary")
	tagsQuery := bleve.NewMatchQuery(query)
	tagsQuery.SetField("tags")

	var q blevequery.Query = bleve.NewDisjunctionQuery(titleQuery, contentQuery, summaryQuery, tagsQuery)
	if len(types) > 0 {
		typeQueries := make([]blevequery.Query, len(types))
		for i, ct := range types {
			tq := bleve.NewTermQuery(string(ct))
			tq.SetField("content_type")
			typeQueries[i] = tq
		}
		q = bleve.NewConjunctionQuery(q, bleve.NewDisjunctionQuery(typeQueries...))
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	out := make([]*Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		key, err := models.ParseRecordKey(hit.ID)
		if err != nil {
			// Stale entry from an older mapping; skip it.
			continue
		}
		out = append(out, &Result{Key: key, Score: hit.Score})
	}
	return out, nil
}

// Delete removes the document for key.
func (b *BleveIndex) Delete(ctx context.Context, key models.RecordKey) error {
	return b.index.Delete(key.String())
}

// DocCount returns the total number of indexed documents.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
