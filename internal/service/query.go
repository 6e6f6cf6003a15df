package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/store"
)

// ItemsByTagView is a tag with the items carrying it.
type ItemsByTagView struct {
	Tag   *domain.Tag      `json:"tag"`
	Items []domain.ItemRef `json:"items"`
}

// RelatedGroup holds the objects reached through one relationship type.
type RelatedGroup struct {
	RelationshipType string           `json:"relationship_type"`
	Objects          []*domain.Object `json:"objects"`
}

// RelatedObjectsView is an object with its outgoing neighbours grouped by
// relationship type. Groups are ordered by first appearance.
type RelatedObjectsView struct {
	Object  *domain.Object `json:"object"`
	Related []RelatedGroup `json:"related"`
}

// ObjectsByTypeView is an object type with its non-deleted objects.
type ObjectsByTypeView struct {
	Type    *domain.ObjectType `json:"type"`
	Objects []*domain.Object   `json:"objects"`
}

// QueryService builds read models over tags, assignments and objects. Every
// call reads fresh from the store.
type QueryService struct {
	tags        *TagService
	assignments *AssignmentService
	objects     *ObjectService
	types       ObjectTypes
}

// NewQueryService creates a query service.
func NewQueryService(tags *TagService, assignments *AssignmentService, objects *ObjectService, types ObjectTypes) *QueryService {
	return &QueryService{tags: tags, assignments: assignments, objects: objects, types: types}
}

// PopularTags returns the most used active tags.
func (q *QueryService) PopularTags(ctx context.Context, tagType string, limit int) ([]*domain.Tag, error) {
	return q.tags.PopularTags(ctx, tagType, limit)
}

// ItemsByTag returns the tag together with the items it is assigned to.
func (q *QueryService) ItemsByTag(ctx context.Context, tagID, itemType string, limit int) (*ItemsByTagView, error) {
	view := &ItemsByTagView{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := q.tags.GetTag(gctx, tagID)
		view.Tag = t
		return err
	})
	g.Go(func() error {
		items, err := q.assignments.ItemsByTag(gctx, tagID, itemType, limit)
		view.Items = items
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

// RelatedObjects returns the object and its one-hop outgoing neighbours.
func (q *QueryService) RelatedObjects(ctx context.Context, objectID, relType string) (*RelatedObjectsView, error) {
	view := &RelatedObjectsView{}
	var rels []*domain.RelationshipView

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := q.objects.GetObject(gctx, objectID)
		view.Object = o
		return err
	})
	g.Go(func() error {
		r, err := q.objects.Relationships(gctx, objectID, domain.DirectionSource, relType)
		rels = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Related = groupByRelationship(rels)
	return view, nil
}

// ObjectsByType returns the type and its objects in creation order, optionally
// narrowed to one organization. typeRef may be a type ID or slug.
func (q *QueryService) ObjectsByType(ctx context.Context, typeRef, organizationID string, limit int) (*ObjectsByTypeView, error) {
	t, err := q.types.ResolveActiveType(ctx, strings.TrimSpace(typeRef))
	if err != nil {
		return nil, err
	}

	objects, err := q.objects.ListObjects(ctx, store.ObjectQuery{
		TypeID:         t.ID,
		OrganizationID: organizationID,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}
	return &ObjectsByTypeView{Type: t, Objects: objects}, nil
}

func groupByRelationship(rels []*domain.RelationshipView) []RelatedGroup {
	groups := []RelatedGroup{}
	index := make(map[string]int)
	for _, r := range rels {
		i, ok := index[r.Relationship.Type]
		if !ok {
			i = len(groups)
			index[r.Relationship.Type] = i
			groups = append(groups, RelatedGroup{RelationshipType: r.Relationship.Type})
		}
		groups[i].Objects = append(groups[i].Objects, r.Other)
	}
	return groups
}
