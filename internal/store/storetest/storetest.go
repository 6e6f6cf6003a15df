// Package storetest holds the behavioral suite every store.Store implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/id"
	"github.com/kaziapp/taggraph/internal/store"
	"github.com/kaziapp/taggraph/internal/util"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) store.Store

// Run executes the full suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateTagDuplicateSlug", testCreateTagDuplicateSlug},
		{"GetTag", testGetTag},
		{"UpdateTag", testUpdateTag},
		{"DeleteTagCascades", testDeleteTagCascades},
		{"SearchTags", testSearchTags},
		{"SearchTagsFoldsUnicode", testSearchTagsFoldsUnicode},
		{"PopularTags", testPopularTags},
		{"AssignIdempotent", testAssignIdempotent},
		{"AssignMissingTag", testAssignMissingTag},
		{"UnassignFloorsAtZero", testUnassignFloorsAtZero},
		{"ItemTagsInsertionOrder", testItemTagsInsertionOrder},
		{"ItemsByTag", testItemsByTag},
		{"SetItemTagsDiff", testSetItemTagsDiff},
		{"SetItemTagsUnknownTag", testSetItemTagsUnknownTag},
		{"ClearItemTags", testClearItemTags},
		{"RecountUsage", testRecountUsage},
		{"ConcurrentAssign", testConcurrentAssign},
		{"ObjectTypes", testObjectTypes},
		{"CreateObjectUnknownType", testCreateObjectUnknownType},
		{"ListObjects", testListObjects},
		{"RelationshipSymmetry", testRelationshipSymmetry},
		{"RelationshipsInLinkOrder", testRelationshipsInLinkOrder},
		{"DuplicateRelationship", testDuplicateRelationship},
		{"LinkDeletedObject", testLinkDeletedObject},
		{"DeleteObjectCascades", testDeleteObjectCascades},
		{"DeleteRelationship", testDeleteRelationship},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

// Fixtures

func newTag(t *testing.T, s store.Store, name string) *domain.Tag {
	t.Helper()
	tag := &domain.Tag{
		ID:       id.MustGenerate(id.PrefixTag),
		Name:     name,
		Slug:     util.Slugify(name),
		IsActive: true,
	}
	tag.InitTimestamps()
	require.NoError(t, s.CreateTag(context.Background(), tag))
	return tag
}

func newObjectType(t *testing.T, s store.Store, slug string) *domain.ObjectType {
	t.Helper()
	ot := &domain.ObjectType{
		ID:       id.MustGenerate(id.PrefixObjectType),
		Slug:     slug,
		Name:     slug,
		IsActive: true,
	}
	ot.InitTimestamps()
	require.NoError(t, s.CreateObjectType(context.Background(), ot))
	return ot
}

func newObject(t *testing.T, s store.Store, typeID, name string) *domain.Object {
	t.Helper()
	o := &domain.Object{
		ID:      id.MustGenerate(id.PrefixObject),
		TypeID:  typeID,
		OwnerID: "user-1",
		Name:    name,
		Status:  domain.ObjectStatusActive,
	}
	o.InitTimestamps()
	require.NoError(t, s.CreateObject(context.Background(), o))
	return o
}

func link(t *testing.T, s store.Store, source, target, relType string) *domain.ObjectRelationship {
	t.Helper()
	r := &domain.ObjectRelationship{
		ID:       id.MustGenerate(id.PrefixRelationship),
		SourceID: source,
		TargetID: target,
		Type:     relType,
	}
	require.NoError(t, s.CreateRelationship(context.Background(), r))
	return r
}

func usage(t *testing.T, s store.Store, tagID string) int {
	t.Helper()
	tag, err := s.GetTag(context.Background(), tagID)
	require.NoError(t, err)
	return tag.UsageCount
}

func task(n int) domain.ItemRef {
	return domain.ItemRef{ID: fmt.Sprintf("task-%d", n), Type: "task"}
}

func tagIDs(tags []*domain.Tag) []string {
	ids := make([]string, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}

// Tags

func testCreateTagDuplicateSlug(t *testing.T, s store.Store) {
	newTag(t, s, "Web Development")

	dup := &domain.Tag{
		ID:       id.MustGenerate(id.PrefixTag),
		Name:     "Web   Development",
		Slug:     util.Slugify("Web   Development"),
		IsActive: true,
	}
	dup.InitTimestamps()
	err := s.CreateTag(context.Background(), dup)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func testGetTag(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag(t, s, "Urgent")

	got, err := s.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "Urgent", got.Name)
	assert.Equal(t, "urgent", got.Slug)
	assert.True(t, got.IsActive)

	bySlug, err := s.GetTagBySlug(ctx, "urgent")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, bySlug.ID)

	_, err = s.GetTag(ctx, "tag-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetTagBySlug(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	found, err := s.GetTagsByIDs(ctx, []string{tag.ID, "tag-missing"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func testUpdateTag(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag(t, s, "Design")
	other := newTag(t, s, "Marketing")
	_, _, err := s.AssignTag(ctx, tag.ID, task(1))
	require.NoError(t, err)

	tag.Name = "UX Design"
	tag.Slug = util.Slugify(tag.Name)
	tag.Color = "#ff0000"
	tag.UsageCount = 99
	tag.Touch()
	require.NoError(t, s.UpdateTag(ctx, tag))

	got, err := s.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "ux-design", got.Slug)
	assert.Equal(t, "#ff0000", got.Color)
	assert.Equal(t, 1, got.UsageCount, "usage count is not caller writable")

	_, err = s.GetTagBySlug(ctx, "design")
	assert.ErrorIs(t, err, store.ErrNotFound)

	got.Slug = other.Slug
	assert.ErrorIs(t, s.UpdateTag(ctx, got), store.ErrAlreadyExists)

	missing := &domain.Tag{ID: "tag-missing", Name: "x", Slug: "x"}
	assert.ErrorIs(t, s.UpdateTag(ctx, missing), store.ErrNotFound)
}

func testDeleteTagCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag(t, s, "Client Work")
	keep := newTag(t, s, "Keep")

	for i := range 3 {
		_, _, err := s.AssignTag(ctx, tag.ID, task(i))
		require.NoError(t, err)
	}
	_, _, err := s.AssignTag(ctx, keep.ID, task(0))
	require.NoError(t, err)

	deleted, err := s.DeleteTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	for i := range 3 {
		tags, err := s.ItemTags(ctx, task(i))
		require.NoError(t, err)
		assert.NotContains(t, tagIDs(tags), tag.ID)
	}

	items, err := s.ItemsByTag(ctx, tag.ID, "", 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = s.GetTag(ctx, tag.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The slug is free again.
	newTag(t, s, "Client Work")

	// Deleting again is not an error.
	deleted, err = s.DeleteTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.Equal(t, 1, usage(t, s, keep.ID))
}

func testSearchTags(t *testing.T, s store.Store) {
	ctx := context.Background()
	newTag(t, s, "Web Development")
	newTag(t, s, "Web Design")
	inactive := newTag(t, s, "Webinar")
	newTag(t, s, "Accounting")

	inactive.IsActive = false
	require.NoError(t, s.UpdateTag(ctx, inactive))

	got, err := s.SearchTags(ctx, store.TagQuery{Query: "WEB"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "web-development", got[0].Slug)
	assert.Equal(t, "web-design", got[1].Slug)

	limited, err := s.SearchTags(ctx, store.TagQuery{Query: "web", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.SearchTags(ctx, store.TagQuery{Query: "zzz"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testSearchTagsFoldsUnicode(t *testing.T, s store.Store) {
	ctx := context.Background()
	ecole := newTag(t, s, "École Supérieure")
	newTag(t, s, "Ecole Normale")
	strasse := newTag(t, s, "Hauptstraße")

	for _, query := range []string{"éCOLE", "ÉCOLE", "SUPÉRIEURE"} {
		got, err := s.SearchTags(ctx, store.TagQuery{Query: query})
		require.NoError(t, err)
		require.Len(t, got, 1, query)
		assert.Equal(t, ecole.ID, got[0].ID, query)
	}

	got, err := s.SearchTags(ctx, store.TagQuery{Query: "STRASSE"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, strasse.ID, got[0].ID)
}

func testPopularTags(t *testing.T, s store.Store) {
	ctx := context.Background()
	low := newTag(t, s, "Low")
	high := newTag(t, s, "High")
	mid := newTag(t, s, "Mid")

	assign := func(tagID string, n int) {
		for i := range n {
			_, _, err := s.AssignTag(ctx, tagID, task(i))
			require.NoError(t, err)
		}
	}
	assign(low.ID, 1)
	assign(high.ID, 3)
	assign(mid.ID, 2)

	got, err := s.PopularTags(ctx, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{high.ID, mid.ID, low.ID}, tagIDs(got))

	top, err := s.PopularTags(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{high.ID}, tagIDs(top))
}

// Assignments

func testAssignIdempotent(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag(t, s, "Urgent")

	a, created, err := s.AssignTag(ctx, tag.ID, task(1))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, tag.ID, a.TagID)
	assert.Equal(t, task(1), a.Item)

	again, created, err := s.AssignTag(ctx, tag.ID, task(1))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.Seq, again.Seq)

	assert.Equal(t, 1, usage(t, s, tag.ID))

	items, err := s.ItemsByTag(ctx, tag.ID, "", 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func testAssignMissingTag(t *testing.T, s store.Store) {
	_, _, err := s.AssignTag(context.Background(), "tag-missing", task(1))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUnassignFloorsAtZero(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag(t, s, "Urgent")

	removed, err := s.UnassignTag(ctx, tag.ID, task(1))
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 0, usage(t, s, tag.ID))

	_, _, err = s.AssignTag(ctx, tag.ID, task(1))
	require.NoError(t, err)

	removed, err = s.UnassignTag(ctx, tag.ID, task(1))
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.UnassignTag(ctx, tag.ID, task(1))
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 0, usage(t, s, tag.ID))
}

func testItemTagsInsertionOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newTag(t, s, "Charlie")
	a := newTag(t, s, "Alpha")
	b := newTag(t, s, "Bravo")

	for _, tag := range []*domain.Tag{b, c, a} {
		_, _, err := s.AssignTag(ctx, tag.ID, task(1))
		require.NoError(t, err)
	}

	got, err := s.ItemTags(ctx, task(1))
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, tagIDs(got))

	empty, err := s.ItemTags(ctx, task(2))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testItemsByTag(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag(t, s, "Shared")

	refs := []domain.ItemRef{
		{ID: "p-1", Type: "project"},
		task(1),
		{ID: "p-2", Type: "project"},
		task(2),
	}
	for _, ref := range refs {
		_, _, err := s.AssignTag(ctx, tag.ID, ref)
		require.NoError(t, err)
	}

	all, err := s.ItemsByTag(ctx, tag.ID, "", 0)
	require.NoError(t, err)
	assert.Equal(t, refs, all)

	projects, err := s.ItemsByTag(ctx, tag.ID, "project", 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.ItemRef{refs[0], refs[2]}, projects)

	limited, err := s.ItemsByTag(ctx, tag.ID, "", 3)
	require.NoError(t, err)
	assert.Equal(t, refs[:3], limited)
}

func testSetItemTagsDiff(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newTag(t, s, "A")
	b := newTag(t, s, "B")
	c := newTag(t, s, "C")
	item := task(1)

	_, _, err := s.SetItemTags(ctx, item, []string{a.ID, b.ID})
	require.NoError(t, err)

	added, removed, err := s.SetItemTags(ctx, item, []string{b.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, added)
	assert.Equal(t, []string{a.ID}, removed)

	assert.Equal(t, 0, usage(t, s, a.ID))
	assert.Equal(t, 1, usage(t, s, b.ID))
	assert.Equal(t, 1, usage(t, s, c.ID))

	after, err := s.ItemTags(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID}, tagIDs(after), "B keeps its original position")

	added, removed, err = s.SetItemTags(ctx, item, []string{c.ID, b.ID, b.ID})
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Empty(t, removed)
	assert.Equal(t, 1, usage(t, s, b.ID))
}

func testSetItemTagsUnknownTag(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newTag(t, s, "A")
	item := task(1)

	_, _, err := s.AssignTag(ctx, a.ID, item)
	require.NoError(t, err)

	_, _, err = s.SetItemTags(ctx, item, []string{"tag-missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	tags, err := s.ItemTags(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, tagIDs(tags), "failed set leaves the item untouched")
	assert.Equal(t, 1, usage(t, s, a.ID))
}

func testClearItemTags(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newTag(t, s, "A")
	b := newTag(t, s, "B")

	_, _, err := s.SetItemTags(ctx, task(1), []string{a.ID, b.ID})
	require.NoError(t, err)
	_, _, err = s.AssignTag(ctx, a.ID, task(2))
	require.NoError(t, err)

	n, err := s.ClearItemTags(ctx, task(1))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, 1, usage(t, s, a.ID))
	assert.Equal(t, 0, usage(t, s, b.ID))

	n, err = s.ClearItemTags(ctx, task(1))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testRecountUsage(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newTag(t, s, "A")
	for i := range 2 {
		_, _, err := s.AssignTag(ctx, a.ID, task(i))
		require.NoError(t, err)
	}

	fixed, err := s.RecountUsage(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed, "counts maintained by assignments are already exact")
	assert.Equal(t, 2, usage(t, s, a.ID))
}

func testConcurrentAssign(t *testing.T, s store.Store) {
	ctx := context.Background()
	tag := newTag(t, s, "Hot")
	const n = 40

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			_, _, err := s.AssignTag(ctx, tag.ID, task(i))
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, n, usage(t, s, tag.ID))

	// Racing duplicates of one edge count once.
	var dup errgroup.Group
	for range 10 {
		dup.Go(func() error {
			_, _, err := s.AssignTag(ctx, tag.ID, task(0))
			return err
		})
	}
	require.NoError(t, dup.Wait())
	assert.Equal(t, n, usage(t, s, tag.ID))
}

// Objects

func testObjectTypes(t *testing.T, s store.Store) {
	ctx := context.Background()
	project := newObjectType(t, s, "project")
	newObjectType(t, s, "client")

	dup := &domain.ObjectType{ID: id.MustGenerate(id.PrefixObjectType), Slug: "project", Name: "Project"}
	dup.InitTimestamps()
	assert.ErrorIs(t, s.CreateObjectType(ctx, dup), store.ErrAlreadyExists)

	got, err := s.GetObjectTypeBySlug(ctx, "project")
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID)

	byID, err := s.GetObjectType(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "project", byID.Slug)

	types, err := s.ListObjectTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "client", types[0].Slug)

	updated, err := s.SetObjectTypeActive(ctx, "project", false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = s.SetObjectTypeActive(ctx, "missing", true)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetObjectTypeBySlug(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCreateObjectUnknownType(t *testing.T, s store.Store) {
	o := &domain.Object{
		ID:      id.MustGenerate(id.PrefixObject),
		TypeID:  "otype-missing",
		OwnerID: "user-1",
		Name:    "Orphan",
		Status:  domain.ObjectStatusActive,
	}
	o.InitTimestamps()
	assert.ErrorIs(t, s.CreateObject(context.Background(), o), store.ErrNotFound)
}

func testListObjects(t *testing.T, s store.Store) {
	ctx := context.Background()
	project := newObjectType(t, s, "project")
	client := newObjectType(t, s, "client")

	p1 := newObject(t, s, project.ID, "Website")
	p2 := newObject(t, s, project.ID, "App")
	newObject(t, s, client.ID, "Acme")
	gone := newObject(t, s, project.ID, "Old")

	_, err := s.DeleteObject(ctx, gone.ID)
	require.NoError(t, err)

	got, err := s.ListObjects(ctx, store.ObjectQuery{TypeID: project.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, p1.ID, got[0].ID)
	assert.Equal(t, p2.ID, got[1].ID)

	all, err := s.ListObjects(ctx, store.ObjectQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	deletedObj, err := s.GetObject(ctx, gone.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ObjectStatusDeleted, deletedObj.Status)
}

func testRelationshipSymmetry(t *testing.T, s store.Store) {
	ctx := context.Background()
	ot := newObjectType(t, s, "project")
	x := newObject(t, s, ot.ID, "X")
	y := newObject(t, s, ot.ID, "Y")

	link(t, s, x.ID, y.ID, "parent-of")

	out, err := s.Relationships(ctx, x.ID, domain.DirectionSource, "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, y.ID, out[0].Other.ID)
	assert.Equal(t, domain.DirectionSource, out[0].Direction)

	in, err := s.Relationships(ctx, y.ID, domain.DirectionTarget, "")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, x.ID, in[0].Other.ID)
	assert.Equal(t, "parent-of", in[0].Relationship.Type)

	none, err := s.Relationships(ctx, y.ID, domain.DirectionSource, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	typed, err := s.Relationships(ctx, x.ID, domain.DirectionBoth, "related-to")
	require.NoError(t, err)
	assert.Empty(t, typed)

	_, err = s.Relationships(ctx, "obj-missing", domain.DirectionBoth, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testRelationshipsInLinkOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	ot := newObjectType(t, s, "project")
	parent := newObject(t, s, ot.ID, "Parent")

	var want []string
	for i := range 8 {
		child := newObject(t, s, ot.ID, fmt.Sprintf("Child %d", i))
		r := link(t, s, parent.ID, child.ID, "parent-of")
		assert.False(t, r.CreatedAt.IsZero())
		want = append(want, child.ID)
	}

	got, err := s.Relationships(ctx, parent.ID, domain.DirectionSource, "")
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i, v := range got {
		assert.False(t, v.Relationship.CreatedAt.IsZero())
		assert.Equal(t, want[i], v.Other.ID, "position %d", i)
	}
}

func testDuplicateRelationship(t *testing.T, s store.Store) {
	ctx := context.Background()
	ot := newObjectType(t, s, "project")
	x := newObject(t, s, ot.ID, "X")
	y := newObject(t, s, ot.ID, "Y")

	link(t, s, x.ID, y.ID, "depends-on")

	dup := &domain.ObjectRelationship{
		ID:        id.MustGenerate(id.PrefixRelationship),
		SourceID:  x.ID,
		TargetID:  y.ID,
		Type:      "depends-on",
		CreatedAt: time.Now(),
	}
	assert.ErrorIs(t, s.CreateRelationship(ctx, dup), store.ErrAlreadyExists)

	// A different type between the same pair is allowed.
	link(t, s, x.ID, y.ID, "related-to")

	both, err := s.Relationships(ctx, x.ID, domain.DirectionBoth, "")
	require.NoError(t, err)
	assert.Len(t, both, 2)
}

func testLinkDeletedObject(t *testing.T, s store.Store) {
	ctx := context.Background()
	ot := newObjectType(t, s, "project")
	x := newObject(t, s, ot.ID, "X")
	y := newObject(t, s, ot.ID, "Y")

	_, err := s.DeleteObject(ctx, y.ID)
	require.NoError(t, err)

	r := &domain.ObjectRelationship{
		ID:        id.MustGenerate(id.PrefixRelationship),
		SourceID:  x.ID,
		TargetID:  y.ID,
		Type:      "related-to",
		CreatedAt: time.Now(),
	}
	assert.ErrorIs(t, s.CreateRelationship(ctx, r), store.ErrNotFound)

	r.TargetID = "obj-missing"
	assert.ErrorIs(t, s.CreateRelationship(ctx, r), store.ErrNotFound)
}

func testDeleteObjectCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	ot := newObjectType(t, s, "project")
	x := newObject(t, s, ot.ID, "X")
	y := newObject(t, s, ot.ID, "Y")
	z := newObject(t, s, ot.ID, "Z")

	link(t, s, x.ID, y.ID, "parent-of")
	link(t, s, z.ID, x.ID, "depends-on")
	link(t, s, y.ID, z.ID, "related-to")

	removed, err := s.DeleteObject(ctx, x.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	yRels, err := s.Relationships(ctx, y.ID, domain.DirectionBoth, "")
	require.NoError(t, err)
	require.Len(t, yRels, 1)
	assert.Equal(t, z.ID, yRels[0].Other.ID)

	zRels, err := s.Relationships(ctx, z.ID, domain.DirectionBoth, "")
	require.NoError(t, err)
	assert.Len(t, zRels, 1)

	_, err = s.DeleteObject(ctx, "obj-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDeleteRelationship(t *testing.T, s store.Store) {
	ctx := context.Background()
	ot := newObjectType(t, s, "project")
	x := newObject(t, s, ot.ID, "X")
	y := newObject(t, s, ot.ID, "Y")
	link(t, s, x.ID, y.ID, "blocks")

	deleted, err := s.DeleteRelationship(ctx, x.ID, y.ID, "blocks")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteRelationship(ctx, x.ID, y.ID, "blocks")
	require.NoError(t, err)
	assert.False(t, deleted)

	in, err := s.Relationships(ctx, y.ID, domain.DirectionTarget, "")
	require.NoError(t, err)
	assert.Empty(t, in)
}
