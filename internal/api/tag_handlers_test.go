package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/search"
	"github.com/kaziapp/taggraph/internal/service"
)

func TestCreateTag_Success(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Post("/api/v1/tags", map[string]any{
		"name":  "Web Development",
		"color": "#FF8800",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var tag domain.Tag
	env := decodeEnvelope(t, resp, &tag)
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.True(t, env.Success)
	assert.Equal(t, "web-development", tag.Slug)
	assert.Equal(t, "#ff8800", tag.Color)
	assert.Zero(t, tag.UsageCount)
	assert.True(t, tag.IsActive)
}

func TestCreateTag_SlugConflict(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.createTag(t, "Web Development")

	resp := ts.api.Post("/api/v1/tags", map[string]any{"name": "Web   Development"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	env := decodeEnvelope(t, resp, nil)
	assert.False(t, env.Success)
	assert.Equal(t, "CONFLICT", env.Kind)
	assert.NotEmpty(t, env.Error)
}

func TestCreateTag_ValidationErrors(t *testing.T) {
	ts := setupTestServer(t, Options{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{}},
		{"empty name", map[string]any{"name": ""}},
		{"punctuation only", map[string]any{"name": "!!!"}},
		{"bad color", map[string]any{"name": "Colorful", "color": "orange"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/tags", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

			env := decodeEnvelope(t, resp, nil)
			assert.False(t, env.Success)
			assert.Equal(t, "VALIDATION", env.Kind)
		})
	}
}

func TestGetTag(t *testing.T) {
	ts := setupTestServer(t, Options{})
	created := ts.createTag(t, "Urgent")

	resp := ts.api.Get("/api/v1/tags/" + created.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	var tag domain.Tag
	decodeEnvelope(t, resp, &tag)
	assert.Equal(t, created.ID, tag.ID)

	resp = ts.api.Get("/api/v1/tags/slug/urgent")
	require.Equal(t, http.StatusOK, resp.Code)
	decodeEnvelope(t, resp, &tag)
	assert.Equal(t, created.ID, tag.ID)

	resp = ts.api.Get("/api/v1/tags/tag-missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, resp, nil).Kind)
}

func TestUpdateTag_Rename(t *testing.T) {
	ts := setupTestServer(t, Options{})
	created := ts.createTag(t, "Urgent")
	ts.createTag(t, "Blocked")

	resp := ts.api.Patch("/api/v1/tags/"+created.ID, map[string]any{"name": "Very Urgent"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var tag domain.Tag
	decodeEnvelope(t, resp, &tag)
	assert.Equal(t, "very-urgent", tag.Slug)

	resp = ts.api.Patch("/api/v1/tags/"+created.ID, map[string]any{"name": "blocked"})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestResolveTag(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Post("/api/v1/tags/resolve", map[string]any{"name": "Design"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var first ResolveTagResponse
	decodeEnvelope(t, resp, &first)
	assert.True(t, first.Created)

	resp = ts.api.Post("/api/v1/tags/resolve", map[string]any{"name": "design"})
	require.Equal(t, http.StatusOK, resp.Code)
	var second ResolveTagResponse
	decodeEnvelope(t, resp, &second)
	assert.False(t, second.Created)
	assert.Equal(t, first.Tag.ID, second.Tag.ID)
}

func TestAssignTag_IdempotentAndCounted(t *testing.T) {
	ts := setupTestServer(t, Options{})
	tag := ts.createTag(t, "Urgent")
	item := map[string]any{"item_id": "t1", "item_type": "task"}

	for range 2 {
		resp := ts.api.Post("/api/v1/tags/"+tag.ID+"/items", item)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	resp := ts.api.Get("/api/v1/tags/" + tag.ID + "/items")
	require.Equal(t, http.StatusOK, resp.Code)
	var view service.ItemsByTagView
	decodeEnvelope(t, resp, &view)
	assert.Equal(t, 1, view.Tag.UsageCount)
	assert.Equal(t, []domain.ItemRef{{ID: "t1", Type: "task"}}, view.Items)

	resp = ts.api.Delete("/api/v1/tags/" + tag.ID + "/items/task/t1")
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = ts.api.Delete("/api/v1/tags/" + tag.ID + "/items/task/t1")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/tags/" + tag.ID)
	var after domain.Tag
	decodeEnvelope(t, resp, &after)
	assert.Zero(t, after.UsageCount)
}

func TestAssignTag_UnknownItemType(t *testing.T) {
	ts := setupTestServer(t, Options{})
	tag := ts.createTag(t, "Urgent")

	resp := ts.api.Post("/api/v1/tags/"+tag.ID+"/items", map[string]any{"item_id": "x1", "item_type": "spaceship"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decodeEnvelope(t, resp, nil).Kind)

	resp = ts.api.Post("/api/v1/tags/tag-missing/items", map[string]any{"item_id": "x1", "item_type": "task"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteTag_Cascades(t *testing.T) {
	ts := setupTestServer(t, Options{})
	tag := ts.createTag(t, "Temporary")
	for _, id := range []string{"t1", "t2", "t3"} {
		resp := ts.api.Post("/api/v1/tags/"+tag.ID+"/items", map[string]any{"item_id": id, "item_type": "task"})
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Delete("/api/v1/tags/" + tag.ID)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/items/task/t1/tags")
	require.Equal(t, http.StatusOK, resp.Code)
	var tags []*domain.Tag
	decodeEnvelope(t, resp, &tags)
	assert.Empty(t, tags)

	resp = ts.api.Delete("/api/v1/tags/" + tag.ID)
	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestSetItemTags_Diff(t *testing.T) {
	ts := setupTestServer(t, Options{})
	a := ts.createTag(t, "A")
	b := ts.createTag(t, "B")
	c := ts.createTag(t, "C")
	path := "/api/v1/items/task/t1/tags"

	resp := ts.api.Put(path, map[string]any{"tag_ids": []string{a.ID, b.ID}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Put(path, map[string]any{"tag_ids": []string{b.ID, c.ID, c.ID}})
	require.Equal(t, http.StatusOK, resp.Code)
	var result service.SetItemTagsResult
	decodeEnvelope(t, resp, &result)
	assert.Equal(t, []string{c.ID}, result.Added)
	assert.Equal(t, []string{a.ID}, result.Removed)
	require.Len(t, result.Tags, 2)

	usage := func(id string) int {
		var tag domain.Tag
		decodeEnvelope(t, ts.api.Get("/api/v1/tags/"+id), &tag)
		return tag.UsageCount
	}
	assert.Equal(t, 0, usage(a.ID))
	assert.Equal(t, 1, usage(b.ID))
	assert.Equal(t, 1, usage(c.ID))

	resp = ts.api.Delete(path)
	require.Equal(t, http.StatusOK, resp.Code)
	var cleared ClearItemTagsResponse
	decodeEnvelope(t, resp, &cleared)
	assert.Equal(t, 2, cleared.Removed)
}

func TestPopularAndSuggest(t *testing.T) {
	ts := setupTestServer(t, Options{})
	urgent := ts.createTag(t, "Urgent")
	ts.createTag(t, "Upcoming")
	resp := ts.api.Post("/api/v1/tags/"+urgent.ID+"/items", map[string]any{"item_id": "t1", "item_type": "task"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/tags/popular?limit=1")
	require.Equal(t, http.StatusOK, resp.Code)
	var popular []*domain.Tag
	decodeEnvelope(t, resp, &popular)
	require.Len(t, popular, 1)
	assert.Equal(t, urgent.ID, popular[0].ID)

	resp = ts.api.Get("/api/v1/tags/suggest?q=urg")
	require.Equal(t, http.StatusOK, resp.Code)
	var suggestions []search.Suggestion
	decodeEnvelope(t, resp, &suggestions)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, urgent.ID, suggestions[0].ID)

	resp = ts.api.Get("/api/v1/tags?q=up")
	require.Equal(t, http.StatusOK, resp.Code)
	var found []*domain.Tag
	decodeEnvelope(t, resp, &found)
	require.Len(t, found, 1)
	assert.Equal(t, "upcoming", found[0].Slug)
}
