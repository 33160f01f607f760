// Package models defines core data structures for content, embeddings, and search.
package models

import (
	"fmt"
	"time"
)

// ContentType identifies a class of dashboard content.
type ContentType string

const (
	TypeAIContent     ContentType = "ai_content"
	TypeKnowledgeItem ContentType = "knowledge_item"
	TypeHackathon     ContentType = "hackathon"
)

// AllContentTypes lists every known content type in a stable order.
func AllContentTypes() []ContentType {
	return []ContentType{TypeAIContent, TypeKnowledgeItem, TypeHackathon}
}

// ParseContentType normalizes a content type string. The plural form
// "knowledge_items" is accepted as an alias for "knowledge_item" because the
// batch endpoint historically used it.
func ParseContentType(s string) (ContentType, error) {
	switch s {
	case string(TypeAIContent):
		return TypeAIContent, nil
	case string(TypeKnowledgeItem), "knowledge_items":
		return TypeKnowledgeItem, nil
	case string(TypeHackathon), "hackathons":
		return TypeHackathon, nil
	default:
		return "", fmt.Errorf("unknown content type: %q", s)
	}
}

// ContentItem is a row of dashboard content. Owned by the ingestion side;
// the search/embedding core only reads it.
type ContentItem struct {
	ID        string      `json:"id" db:"content_id"`
	Type      ContentType `json:"content_type" db:"content_type"`
	Title     string      `json:"title" db:"title"`
	Content   string      `json:"content,omitempty" db:"content"`
	Summary   string      `json:"summary,omitempty" db:"summary"`
	Authors   []string    `json:"authors,omitempty" db:"authors"`
	Source    string      `json:"source,omitempty" db:"source"`
	URL       string      `json:"url,omitempty" db:"url"`
	Tags      []string    `json:"tags,omitempty" db:"tags"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
