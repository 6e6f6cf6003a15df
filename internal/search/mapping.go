package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping maps tag documents:
//
//	name         standard analyzer, prefix and fuzzy matched
//	slug         keyword, prefix matched
//	tag_type     keyword filter
//	description  English text, low weight
//	usage_count  numeric, secondary sort
//	is_active    boolean filter
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	doc := bleve.NewDocumentMapping()

	name := bleve.NewTextFieldMapping()
	name.Analyzer = standard.Name
	name.Store = true
	doc.AddFieldMappingsAt("name", name)

	slug := bleve.NewTextFieldMapping()
	slug.Analyzer = keyword.Name
	slug.Store = true
	doc.AddFieldMappingsAt("slug", slug)

	tagType := bleve.NewTextFieldMapping()
	tagType.Analyzer = keyword.Name
	tagType.Store = true
	doc.AddFieldMappingsAt("tag_type", tagType)

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = en.AnalyzerName
	desc.Store = false
	doc.AddFieldMappingsAt("description", desc)

	usage := bleve.NewNumericFieldMapping()
	usage.Store = true
	doc.AddFieldMappingsAt("usage_count", usage)

	created := bleve.NewNumericFieldMapping()
	doc.AddFieldMappingsAt("created_at", created)

	active := bleve.NewBooleanFieldMapping()
	doc.AddFieldMappingsAt("is_active", active)

	indexMapping.DefaultMapping = doc
	return indexMapping
}
