package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaziapp/taggraph/internal/domain"
)

func tagDoc(id, name, slug, tagType string, usage int, active bool) *TagDocument {
	t := &domain.Tag{ID: id, Name: name, Slug: slug, TagType: tagType, UsageCount: usage, IsActive: active}
	t.CreatedAt = time.Now()
	return NewTagDocument(t)
}

func seededIndex(t *testing.T, opts Options) *TagIndex {
	t.Helper()
	idx, err := NewTagIndex(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.IndexTags([]*TagDocument{
		tagDoc("tag-1", "Urgent", "urgent", "priority", 12, true),
		tagDoc("tag-2", "Urban Design", "urban-design", "topic", 3, true),
		tagDoc("tag-3", "Client Work", "client-work", "", 40, true),
		tagDoc("tag-4", "Urgent Legacy", "urgent-legacy", "priority", 99, false),
		tagDoc("tag-5", "Backlog", "backlog", "", 1, true),
	}))
	return idx
}

func ids(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = v.ID
	}
	return out
}

func TestNewTagIndex_InMemory(t *testing.T) {
	idx, err := NewTagIndex(Options{})
	require.NoError(t, err)
	defer idx.Close()

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSuggest_Prefix(t *testing.T) {
	idx := seededIndex(t, Options{})

	got, err := idx.Suggest(context.Background(), SuggestParams{Query: "ur"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"tag-1", "tag-2"}, ids(got))
	for _, s := range got {
		assert.NotEmpty(t, s.Slug)
	}
}

func TestSuggest_Typo(t *testing.T) {
	idx := seededIndex(t, Options{})

	got, err := idx.Suggest(context.Background(), SuggestParams{Query: "urgnt"})
	require.NoError(t, err)
	assert.Contains(t, ids(got), "tag-1")
}

func TestSuggest_MultiWordMatchesSlug(t *testing.T) {
	idx := seededIndex(t, Options{})

	got, err := idx.Suggest(context.Background(), SuggestParams{Query: "Client Wo"})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "tag-3", got[0].ID)
	assert.Equal(t, 40, got[0].UsageCount)
}

func TestSuggest_Filters(t *testing.T) {
	idx := seededIndex(t, Options{})
	ctx := context.Background()

	got, err := idx.Suggest(ctx, SuggestParams{Query: "urgent", IncludeInactive: true})
	require.NoError(t, err)
	assert.Contains(t, ids(got), "tag-4")

	got, err = idx.Suggest(ctx, SuggestParams{Query: "ur", TagType: "topic"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tag-2"}, ids(got))

	got, err = idx.Suggest(ctx, SuggestParams{Query: "   "})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSuggest_Limit(t *testing.T) {
	idx := seededIndex(t, Options{})

	got, err := idx.Suggest(context.Background(), SuggestParams{Query: "ur", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDeleteTag(t *testing.T) {
	idx := seededIndex(t, Options{})

	require.NoError(t, idx.DeleteTag("tag-5"))
	require.NoError(t, idx.DeleteTag("tag-missing"))

	got, err := idx.Suggest(context.Background(), SuggestParams{Query: "backlog"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRebuild(t *testing.T) {
	for name, opts := range map[string]Options{
		"memory": {},
		"disk":   {DataPath: t.TempDir()},
	} {
		t.Run(name, func(t *testing.T) {
			idx := seededIndex(t, opts)

			require.NoError(t, idx.Rebuild([]*TagDocument{tagDoc("tag-9", "Fresh", "fresh", "", 0, true)}))

			count, err := idx.DocumentCount()
			require.NoError(t, err)
			assert.Equal(t, uint64(1), count)
		})
	}
}

func TestNewTagIndex_ReopensFromDisk(t *testing.T) {
	dir := t.TempDir()

	idx, err := NewTagIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, idx.IndexTag(tagDoc("tag-1", "Urgent", "urgent", "", 1, true)))
	require.NoError(t, idx.Close())

	reopened, err := NewTagIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
