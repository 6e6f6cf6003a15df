package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	defaultSuggestLimit = 10
	maxSuggestLimit     = 50
)

// SuggestParams configures a suggestion query.
type SuggestParams struct {
	Query   string
	TagType string
	Limit   int
	// IncludeInactive also returns deactivated tags.
	IncludeInactive bool
}

// Suggestion is one ranked match.
type Suggestion struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	TagType    string  `json:"tag_type,omitempty"`
	UsageCount int     `json:"usage_count"`
	Score      float64 `json:"score"`
}

// Suggest ranks tags whose name or slug matches q as a prefix, a term, or a
// one-edit typo. Ties on score go to the more used tag.
func (s *TagIndex) Suggest(ctx context.Context, p SuggestParams) ([]Suggestion, error) {
	text := strings.ToLower(strings.TrimSpace(p.Query))
	if text == "" {
		return []Suggestion{}, nil
	}

	limit := p.Limit
	if limit <= 0 {
		limit = defaultSuggestLimit
	}
	limit = min(limit, maxSuggestLimit)

	req := bleve.NewSearchRequestOptions(buildSuggestQuery(text, p), limit, 0, false)
	req.Fields = []string{"name", "slug", "tag_type", "usage_count"}
	req.SortBy([]string{"-_score", "-usage_count", "_id"})

	s.mu.RLock()
	res, err := s.index.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("suggest tags: %w", err)
	}

	out := make([]Suggestion, 0, len(res.Hits))
	for _, hit := range res.Hits {
		sug := Suggestion{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["name"].(string); ok {
			sug.Name = v
		}
		if v, ok := hit.Fields["slug"].(string); ok {
			sug.Slug = v
		}
		if v, ok := hit.Fields["tag_type"].(string); ok {
			sug.TagType = v
		}
		if v, ok := hit.Fields["usage_count"].(float64); ok {
			sug.UsageCount = int(v)
		}
		out = append(out, sug)
	}
	return out, nil
}

func buildSuggestQuery(text string, p SuggestParams) query.Query {
	var should []query.Query

	// Whole-phrase prefix against the slug ("client wo" -> "client-wo").
	slugPrefix := bleve.NewPrefixQuery(strings.Join(strings.Fields(text), "-"))
	slugPrefix.SetField("slug")
	slugPrefix.SetBoost(3)
	should = append(should, slugPrefix)

	terms := strings.Fields(text)
	last := terms[len(terms)-1]

	namePrefix := bleve.NewPrefixQuery(last)
	namePrefix.SetField("name")
	namePrefix.SetBoost(2)
	should = append(should, namePrefix)

	match := bleve.NewMatchQuery(text)
	match.SetField("name")
	match.SetFuzziness(1)
	should = append(should, match)

	desc := bleve.NewMatchQuery(text)
	desc.SetField("description")
	desc.SetBoost(0.3)
	should = append(should, desc)

	must := []query.Query{bleve.NewDisjunctionQuery(should...)}

	if !p.IncludeInactive {
		active := bleve.NewBoolFieldQuery(true)
		active.SetField("is_active")
		must = append(must, active)
	}
	if p.TagType != "" {
		tt := bleve.NewTermQuery(p.TagType)
		tt.SetField("tag_type")
		must = append(must, tt)
	}

	return bleve.NewConjunctionQuery(must...)
}
