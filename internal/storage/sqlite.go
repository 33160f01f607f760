package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MikePfunk28/intelhub/internal/models"
)

// SQLiteStore implements Storage using SQLite with WAL journaling.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, storeErr("open", fmt.Errorf("create database directory: %w", err))
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, storeErr("open", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, storeErr("open", fmt.Errorf("enable WAL: %w", err))
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, storeErr("open", fmt.Errorf("initialize schema: %w", err))
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS content_items (
		content_id TEXT NOT NULL,
		content_type TEXT NOT NULL,
		title TEXT,
		content TEXT NOT NULL,
		summary TEXT,
		authors TEXT,
		source TEXT,
		url TEXT,
		tags TEXT,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (content_id, content_type)
	);

	CREATE INDEX IF NOT EXISTS idx_content_created_at ON content_items(created_at);

	CREATE TABLE IF NOT EXISTS embeddings (
		id TEXT NOT NULL UNIQUE,
		content_id TEXT NOT NULL,
		content_type TEXT NOT NULL,
		title TEXT,
		content_text TEXT NOT NULL,
		vector BLOB NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (content_id, content_type)
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_type ON embeddings(content_type);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertContent inserts or replaces a content item. The original created_at
// is kept when the item already exists.
func (s *SQLiteStore) UpsertContent(ctx context.Context, item *models.ContentItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	authorsJSON, err := json.Marshal(item.Authors)
	if err != nil {
		return storeErr("upsert content", err)
	}
	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return storeErr("upsert content", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO content_items (content_id, content_type, title, content, summary, authors, source, url, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(content_id, content_type) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			summary = excluded.summary,
			authors = excluded.authors,
			source = excluded.source,
			url = excluded.url,
			tags = excluded.tags`,
		item.ID, string(item.Type), item.Title, item.Content, item.Summary,
		string(authorsJSON), item.Source, item.URL, string(tagsJSON), item.CreatedAt,
	)
	if err != nil {
		return storeErr("upsert content", err)
	}
	return nil
}

// GetContent returns the content item for key, or ErrNotFound.
func (s *SQLiteStore) GetContent(ctx context.Context, key models.RecordKey) (*models.ContentItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT content_id, content_type, title, content, summary, authors, source, url, tags, created_at
		 FROM content_items WHERE content_id = ? AND content_type = ?`,
		key.ContentID, string(key.ContentType),
	)
	item, err := scanContentItem(row)
	if err == sql.ErrNoRows {
		return nil, storeErr("get content", fmt.Errorf("%s: %w", key.String(), ErrNotFound))
	}
	if err != nil {
		return nil, storeErr("get content", err)
	}
	return item, nil
}

// ListContent returns content items of the given type ordered by creation
// time descending. An empty type lists all types.
func (s *SQLiteStore) ListContent(ctx context.Context, contentType models.ContentType, offset, limit int) ([]*models.ContentItem, error) {
	query := `SELECT content_id, content_type, title, content, summary, authors, source, url, tags, created_at
		 FROM content_items`
	args := []interface{}{}
	if contentType != "" {
		query += ` WHERE content_type = ?`
		args = append(args, string(contentType))
	}
	query += ` ORDER BY created_at DESC, content_id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list content", err)
	}
	defer rows.Close()

	var items []*models.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, storeErr("list content", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list content", err)
	}
	return items, nil
}

// ListContentMissingEmbedding returns content items of the given type that
// have no embedding record yet, ordered by creation time ascending so older
// content is embedded first.
func (s *SQLiteStore) ListContentMissingEmbedding(ctx context.Context, contentType models.ContentType) ([]*models.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.content_id, c.content_type, c.title, c.content, c.summary, c.authors, c.source, c.url, c.tags, c.created_at
		 FROM content_items c
		 LEFT JOIN embeddings e ON e.content_id = c.content_id AND e.content_type = c.content_type
		 WHERE c.content_type = ? AND e.id IS NULL
		 ORDER BY c.created_at, c.content_id`,
		string(contentType),
	)
	if err != nil {
		return nil, storeErr("list missing embeddings", err)
	}
	defer rows.Close()

	var items []*models.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, storeErr("list missing embeddings", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list missing embeddings", err)
	}
	return items, nil
}

// CountContent returns the number of content items of the given type, or of
// all types when contentType is empty.
func (s *SQLiteStore) CountContent(ctx context.Context, contentType models.ContentType) (int64, error) {
	var count int64
	var err error
	if contentType == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_items`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM content_items WHERE content_type = ?`, string(contentType),
		).Scan(&count)
	}
	if err != nil {
		return 0, storeErr("count content", err)
	}
	return count, nil
}

// UpsertEmbedding inserts or replaces the embedding for (content_id,
// content_type) and returns the record id. Re-embedding the same content
// keeps the original id and created_at so callers see a stable identifier.
func (s *SQLiteStore) UpsertEmbedding(ctx context.Context, rec *models.EmbeddingRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return "", storeErr("upsert embedding", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO embeddings (id, content_id, content_type, title, content_text, vector, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(content_id, content_type) DO UPDATE SET
			title = excluded.title,
			content_text = excluded.content_text,
			vector = excluded.vector,
			metadata = excluded.metadata`,
		rec.ID, rec.ContentID, string(rec.ContentType), rec.Title, rec.ContentText,
		encodeVector(rec.Vector), string(metadataJSON), rec.CreatedAt,
	)
	if err != nil {
		return "", storeErr("upsert embedding", err)
	}

	// Read back the persisted id and timestamp; on conflict they belong to
	// the original record, not this call.
	err = s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM embeddings WHERE content_id = ? AND content_type = ?`,
		rec.ContentID, string(rec.ContentType),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return "", storeErr("upsert embedding", err)
	}
	return rec.ID, nil
}

// GetEmbedding returns the embedding record for key, or ErrNotFound.
func (s *SQLiteStore) GetEmbedding(ctx context.Context, key models.RecordKey) (*models.EmbeddingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content_id, content_type, title, content_text, vector, metadata, created_at
		 FROM embeddings WHERE content_id = ? AND content_type = ?`,
		key.ContentID, string(key.ContentType),
	)
	rec, err := scanEmbedding(row)
	if err == sql.ErrNoRows {
		return nil, storeErr("get embedding", fmt.Errorf("%s: %w", key.String(), ErrNotFound))
	}
	if err != nil {
		return nil, storeErr("get embedding", err)
	}
	return rec, nil
}

// HasEmbedding reports whether an embedding exists for key.
func (s *SQLiteStore) HasEmbedding(ctx context.Context, key models.RecordKey) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM embeddings WHERE content_id = ? AND content_type = ?`,
		key.ContentID, string(key.ContentType),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storeErr("has embedding", err)
	}
	return true, nil
}

// CountEmbeddings returns the number of embeddings of the given type, or of
// all types when contentType is empty.
func (s *SQLiteStore) CountEmbeddings(ctx context.Context, contentType models.ContentType) (int64, error) {
	var count int64
	var err error
	if contentType == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM embeddings WHERE content_type = ?`, string(contentType),
		).Scan(&count)
	}
	if err != nil {
		return 0, storeErr("count embeddings", err)
	}
	return count, nil
}

// ListEmbeddings returns every embedding record, used to rebuild the
// in-memory vector index at startup.
func (s *SQLiteStore) ListEmbeddings(ctx context.Context) ([]*models.EmbeddingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_id, content_type, title, content_text, vector, metadata, created_at
		 FROM embeddings ORDER BY created_at`,
	)
	if err != nil {
		return nil, storeErr("list embeddings", err)
	}
	defer rows.Close()

	var recs []*models.EmbeddingRecord
	for rows.Next() {
		rec, err := scanEmbedding(rows)
		if err != nil {
			return nil, storeErr("list embeddings", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list embeddings", err)
	}
	return recs, nil
}

// Stats returns embedding counts and per-type coverage.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.EmbeddingStats, error) {
	stats := &models.EmbeddingStats{
		EmbeddingsByType: make(map[models.ContentType]int64),
		Coverage:         make(map[models.ContentType]string),
	}
	for _, ct := range models.AllContentTypes() {
		embedded, err := s.CountEmbeddings(ctx, ct)
		if err != nil {
			return nil, err
		}
		total, err := s.CountContent(ctx, ct)
		if err != nil {
			return nil, err
		}
		stats.EmbeddingsByType[ct] = embedded
		stats.Coverage[ct] = models.CoverageString(embedded, total)
		stats.TotalEmbeddings += embedded
		stats.TotalContent += total
	}
	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContentItem(row rowScanner) (*models.ContentItem, error) {
	var item models.ContentItem
	var ct, authorsJSON, tagsJSON string
	err := row.Scan(&item.ID, &ct, &item.Title, &item.Content, &item.Summary,
		&authorsJSON, &item.Source, &item.URL, &tagsJSON, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.Type = models.ContentType(ct)
	if authorsJSON != "" {
		if err := json.Unmarshal([]byte(authorsJSON), &item.Authors); err != nil {
			return nil, fmt.Errorf("unmarshal authors: %w", err)
		}
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &item.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	return &item, nil
}

func scanEmbedding(row rowScanner) (*models.EmbeddingRecord, error) {
	var rec models.EmbeddingRecord
	var ct, metadataJSON string
	var blob []byte
	err := row.Scan(&rec.ID, &rec.ContentID, &ct, &rec.Title, &rec.ContentText,
		&blob, &metadataJSON, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.ContentType = models.ContentType(ct)
	rec.Vector, err = decodeVector(blob)
	if err != nil {
		return nil, err
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &rec, nil
}
