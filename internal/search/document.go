// Package search keeps a Bleve index of tags for typeahead suggestions.
package search

import (
	"github.com/kaziapp/taggraph/internal/domain"
)

// TagDocument is the indexed form of a tag.
type TagDocument struct {
	ID          string
	Name        string
	Slug        string
	TagType     string
	Description string
	UsageCount  int
	IsActive    bool
	CreatedAt   int64 // Unix millis
}

// NewTagDocument converts a tag into its index document.
func NewTagDocument(t *domain.Tag) *TagDocument {
	return &TagDocument{
		ID:          t.ID,
		Name:        t.Name,
		Slug:        t.Slug,
		TagType:     t.TagType,
		Description: t.Description,
		UsageCount:  t.UsageCount,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map keyed by the mapping's field names.
func (d *TagDocument) ToMap() map[string]any {
	m := map[string]any{
		"name":        d.Name,
		"slug":        d.Slug,
		"usage_count": float64(d.UsageCount),
		"is_active":   d.IsActive,
		"created_at":  float64(d.CreatedAt),
	}
	if d.TagType != "" {
		m["tag_type"] = d.TagType
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	return m
}
