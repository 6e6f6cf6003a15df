// Package store defines the persistence interface for the tag and object graph.
//
// Implementations must run every mutating call in a single transaction so that an
// edge write and the usage counter change it implies are atomic as a unit.
// Missing records are reported as ErrNotFound and uniqueness violations as
// ErrAlreadyExists.
package store

import (
	"context"

	"github.com/kaziapp/taggraph/internal/domain"
)

// TagStore persists tags.
type TagStore interface {
	// CreateTag inserts t. Returns ErrAlreadyExists when the slug is taken.
	CreateTag(ctx context.Context, t *domain.Tag) error
	GetTag(ctx context.Context, id string) (*domain.Tag, error)
	GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error)
	GetTagsByIDs(ctx context.Context, ids []string) ([]*domain.Tag, error)
	// UpdateTag saves the editable fields of t, including a re-derived slug.
	// UsageCount is never written by this call.
	UpdateTag(ctx context.Context, t *domain.Tag) error
	// DeleteTag removes the tag and every assignment referencing it.
	// Returns false when the tag did not exist.
	DeleteTag(ctx context.Context, id string) (bool, error)
	// SearchTags returns active tags whose name contains the query, in creation order.
	SearchTags(ctx context.Context, q TagQuery) ([]*domain.Tag, error)
	// PopularTags returns active tags ordered by usage count, highest first.
	PopularTags(ctx context.Context, tagType string, limit int) ([]*domain.Tag, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)
}

// AssignmentStore persists tag to item edges and keeps usage counts in step.
type AssignmentStore interface {
	// AssignTag creates the edge if absent and increments the tag's usage count.
	// created is false when the edge already existed; the count is then unchanged.
	AssignTag(ctx context.Context, tagID string, item domain.ItemRef) (a *domain.TagAssignment, created bool, err error)
	// UnassignTag deletes the edge if present and decrements the count, floored at zero.
	UnassignTag(ctx context.Context, tagID string, item domain.ItemRef) (bool, error)
	// SetItemTags makes the item's tag set equal tagIDs by diffing against the current set.
	SetItemTags(ctx context.Context, item domain.ItemRef, tagIDs []string) (added, removed []string, err error)
	// ItemTags returns the item's tags in assignment order.
	ItemTags(ctx context.Context, item domain.ItemRef) ([]*domain.Tag, error)
	// ItemsByTag returns the items carrying the tag in assignment order.
	ItemsByTag(ctx context.Context, tagID, itemType string, limit int) ([]domain.ItemRef, error)
	// ClearItemTags removes every assignment of the item.
	ClearItemTags(ctx context.Context, item domain.ItemRef) (int, error)
	// RecountUsage recomputes every usage count from the edges and returns how many changed.
	RecountUsage(ctx context.Context) (int, error)
}

// ObjectTypeStore persists the object type registry.
type ObjectTypeStore interface {
	CreateObjectType(ctx context.Context, t *domain.ObjectType) error
	GetObjectType(ctx context.Context, id string) (*domain.ObjectType, error)
	GetObjectTypeBySlug(ctx context.Context, slug string) (*domain.ObjectType, error)
	ListObjectTypes(ctx context.Context) ([]*domain.ObjectType, error)
	SetObjectTypeActive(ctx context.Context, slug string, active bool) (*domain.ObjectType, error)
}

// ObjectStore persists objects and the relationships between them.
type ObjectStore interface {
	CreateObject(ctx context.Context, o *domain.Object) error
	GetObject(ctx context.Context, id string) (*domain.Object, error)
	UpdateObject(ctx context.Context, o *domain.Object) error
	// DeleteObject marks the object deleted and removes every relationship
	// referencing it. Returns the number of relationships removed.
	DeleteObject(ctx context.Context, id string) (int, error)
	ListObjects(ctx context.Context, q ObjectQuery) ([]*domain.Object, error)

	// CreateRelationship fails with ErrNotFound when an endpoint is missing or
	// deleted and ErrAlreadyExists on a duplicate triple. A zero CreatedAt is
	// set to the current time.
	CreateRelationship(ctx context.Context, r *domain.ObjectRelationship) error
	DeleteRelationship(ctx context.Context, sourceID, targetID, relType string) (bool, error)
	// Relationships returns edges touching objectID joined with the opposite
	// object: outgoing edges first, each direction oldest link first.
	Relationships(ctx context.Context, objectID string, dir domain.Direction, relType string) ([]*domain.RelationshipView, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	TagStore
	AssignmentStore
	ObjectTypeStore
	ObjectStore

	Ping(ctx context.Context) error
	Close() error
}
