package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/service"
)

func link(t *testing.T, ts *testServer, src, dst, relType string) *domain.ObjectRelationship {
	t.Helper()
	resp := ts.api.Post("/api/v1/relationships", map[string]any{
		"source_id":         src,
		"target_id":         dst,
		"relationship_type": relType,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var rel domain.ObjectRelationship
	decodeEnvelope(t, resp, &rel)
	return &rel
}

func TestCreateObject(t *testing.T) {
	ts := setupTestServer(t, Options{})

	obj := ts.createObject(t, "project", "Website Redesign")
	assert.Equal(t, domain.ObjectStatusActive, obj.Status)
	assert.NotEmpty(t, obj.TypeID)

	resp := ts.api.Post("/api/v1/objects", map[string]any{
		"type_id":  "spaceship",
		"owner_id": "user-1",
		"name":     "Enterprise",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Post("/api/v1/objects", map[string]any{"type_id": "project", "name": "No owner"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decodeEnvelope(t, resp, nil).Kind)
}

func TestRelationshipSymmetry(t *testing.T) {
	ts := setupTestServer(t, Options{})
	p := ts.createObject(t, "project", "Website")
	c := ts.createObject(t, "client", "Acme")
	rel := link(t, ts, p.ID, c.ID, "belongs-to")

	resp := ts.api.Get("/api/v1/objects/" + p.ID + "/relationships?direction=source")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var fromSource []*domain.RelationshipView
	decodeEnvelope(t, resp, &fromSource)
	require.Len(t, fromSource, 1)
	assert.Equal(t, rel.ID, fromSource[0].Relationship.ID)
	assert.Equal(t, c.ID, fromSource[0].Other.ID)

	resp = ts.api.Get("/api/v1/objects/" + c.ID + "/relationships?direction=target")
	require.Equal(t, http.StatusOK, resp.Code)
	var fromTarget []*domain.RelationshipView
	decodeEnvelope(t, resp, &fromTarget)
	require.Len(t, fromTarget, 1)
	assert.Equal(t, rel.ID, fromTarget[0].Relationship.ID)
	assert.Equal(t, p.ID, fromTarget[0].Other.ID)

	resp = ts.api.Get("/api/v1/objects/" + c.ID + "/relationships?direction=sideways")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLinkObjects_Errors(t *testing.T) {
	ts := setupTestServer(t, Options{})
	p := ts.createObject(t, "project", "Website")
	c := ts.createObject(t, "client", "Acme")
	link(t, ts, p.ID, c.ID, "belongs-to")

	tests := []struct {
		name   string
		src    string
		dst    string
		typ    string
		status int
		kind   string
	}{
		{"duplicate", p.ID, c.ID, "belongs-to", http.StatusConflict, "CONFLICT"},
		{"self link", p.ID, p.ID, "references", http.StatusBadRequest, "VALIDATION"},
		{"unknown type", p.ID, c.ID, "married-to", http.StatusBadRequest, "VALIDATION"},
		{"missing target", p.ID, "obj-missing", "references", http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/relationships", map[string]any{
				"source_id":         tt.src,
				"target_id":         tt.dst,
				"relationship_type": tt.typ,
			})
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())
			assert.Equal(t, tt.kind, decodeEnvelope(t, resp, nil).Kind)
		})
	}

	// A second type between the same pair is a different edge.
	link(t, ts, p.ID, c.ID, "references")
}

func TestDeleteObject_CascadesRelationships(t *testing.T) {
	ts := setupTestServer(t, Options{})
	p := ts.createObject(t, "project", "Website")
	c := ts.createObject(t, "client", "Acme")
	link(t, ts, p.ID, c.ID, "belongs-to")

	resp := ts.api.Delete("/api/v1/objects/" + p.ID)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/objects/" + c.ID + "/relationships")
	require.Equal(t, http.StatusOK, resp.Code)
	var views []*domain.RelationshipView
	decodeEnvelope(t, resp, &views)
	assert.Empty(t, views)

	resp = ts.api.Get("/api/v1/objects/" + p.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	var deleted domain.Object
	decodeEnvelope(t, resp, &deleted)
	assert.True(t, deleted.IsDeleted())

	resp = ts.api.Post("/api/v1/relationships", map[string]any{
		"source_id":         c.ID,
		"target_id":         p.ID,
		"relationship_type": "references",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUnlinkObjects(t *testing.T) {
	ts := setupTestServer(t, Options{})
	p := ts.createObject(t, "project", "Website")
	c := ts.createObject(t, "client", "Acme")
	link(t, ts, p.ID, c.ID, "belongs-to")

	path := "/api/v1/relationships?source_id=" + p.ID + "&target_id=" + c.ID + "&type=belongs-to"
	assert.Equal(t, http.StatusNoContent, ts.api.Delete(path).Code)
	assert.Equal(t, http.StatusNoContent, ts.api.Delete(path).Code)

	resp := ts.api.Delete("/api/v1/relationships?source_id=" + p.ID)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRelatedObjectsAndObjectsByType(t *testing.T) {
	ts := setupTestServer(t, Options{})
	p := ts.createObject(t, "project", "Website")
	c := ts.createObject(t, "client", "Acme")
	dep := ts.createObject(t, "project", "Hosting")
	link(t, ts, p.ID, c.ID, "belongs-to")
	link(t, ts, p.ID, dep.ID, "depends-on")

	resp := ts.api.Get("/api/v1/objects/" + p.ID + "/related")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var related service.RelatedObjectsView
	decodeEnvelope(t, resp, &related)
	require.Len(t, related.Related, 2)
	assert.Equal(t, "belongs-to", related.Related[0].RelationshipType)
	assert.Equal(t, c.ID, related.Related[0].Objects[0].ID)

	resp = ts.api.Get("/api/v1/types/project/objects")
	require.Equal(t, http.StatusOK, resp.Code)
	var byType service.ObjectsByTypeView
	decodeEnvelope(t, resp, &byType)
	assert.Equal(t, "project", byType.Type.Slug)
	require.Len(t, byType.Objects, 2)
	assert.Equal(t, p.ID, byType.Objects[0].ID)
	assert.Equal(t, dep.ID, byType.Objects[1].ID)

	resp = ts.api.Get("/api/v1/objects?type=client")
	require.Equal(t, http.StatusOK, resp.Code)
	var clients []*domain.Object
	decodeEnvelope(t, resp, &clients)
	require.Len(t, clients, 1)
	assert.Equal(t, c.ID, clients[0].ID)
}

func TestUpdateObject_Status(t *testing.T) {
	ts := setupTestServer(t, Options{})
	p := ts.createObject(t, "project", "Website")

	resp := ts.api.Patch("/api/v1/objects/"+p.ID, map[string]any{"status": "archived"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var obj domain.Object
	decodeEnvelope(t, resp, &obj)
	assert.Equal(t, domain.ObjectStatusArchived, obj.Status)

	resp = ts.api.Patch("/api/v1/objects/"+p.ID, map[string]any{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTypes(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Post("/api/v1/types", map[string]any{"name": "Support Ticket"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created domain.ObjectType
	decodeEnvelope(t, resp, &created)
	assert.Equal(t, "support-ticket", created.Slug)

	resp = ts.api.Post("/api/v1/types", map[string]any{"name": "Project"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = ts.api.Patch("/api/v1/types/support-ticket", map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/types/support-ticket")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/types")
	var active []*domain.ObjectType
	decodeEnvelope(t, resp, &active)
	assert.Len(t, active, 2)

	resp = ts.api.Get("/api/v1/types?all=true")
	var all []*domain.ObjectType
	decodeEnvelope(t, resp, &all)
	assert.Len(t, all, 3)

	resp = ts.api.Get("/api/v1/item-types")
	var items NameListResponse
	decodeEnvelope(t, resp, &items)
	assert.Contains(t, items.Types, "task")

	resp = ts.api.Get("/api/v1/relationship-types")
	var rels NameListResponse
	decodeEnvelope(t, resp, &rels)
	assert.Contains(t, rels.Types, "depends-on")
}

func TestAdminRecountAndReindex(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.createTag(t, "Alpha")
	ts.createTag(t, "Beta")

	resp := ts.api.Post("/api/v1/admin/recount")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var recount RecountResponse
	decodeEnvelope(t, resp, &recount)
	assert.Zero(t, recount.Corrected)

	resp = ts.api.Post("/api/v1/admin/reindex")
	require.Equal(t, http.StatusOK, resp.Code)
	var reindex ReindexResponse
	decodeEnvelope(t, resp, &reindex)
	assert.Equal(t, 2, reindex.Indexed)
}
