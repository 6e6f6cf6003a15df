package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kaziapp/taggraph/internal/domain"
	domainerrors "github.com/kaziapp/taggraph/internal/errors"
	"github.com/kaziapp/taggraph/internal/id"
	"github.com/kaziapp/taggraph/internal/sse"
	"github.com/kaziapp/taggraph/internal/store"
	"github.com/kaziapp/taggraph/internal/validation"
)

// ObjectTypes resolves object and relationship types. *registry.Registry implements it.
type ObjectTypes interface {
	ResolveActiveType(ctx context.Context, ref string) (*domain.ObjectType, error)
	GetTypeByID(ctx context.Context, typeID string) (*domain.ObjectType, error)
	ValidateRelationshipType(relType string) error
}

// CreateObjectInput holds the fields of a new object. TypeID may be a type ID or slug.
type CreateObjectInput struct {
	TypeID         string `json:"type_id" validate:"required"`
	OwnerID        string `json:"owner_id" validate:"required,max=128"`
	OrganizationID string `json:"organization_id,omitempty" validate:"max=128"`
	Name           string `json:"name" validate:"required,max=200"`
}

type updateObjectInput struct {
	Name   *string `json:"name" validate:"omitnil,min=1,max=200"`
	Status *string `json:"status" validate:"omitnil,oneof=active archived deleted"`
}

// ObjectService manages generic objects and the relationships between them.
type ObjectService struct {
	store     store.Store
	types     ObjectTypes
	validator *validation.Validator
	events    EventEmitter
	logger    *slog.Logger
}

// NewObjectService creates an object service. events may be nil.
func NewObjectService(s store.Store, types ObjectTypes, v *validation.Validator, events EventEmitter, logger *slog.Logger) *ObjectService {
	return &ObjectService{
		store:     s,
		types:     types,
		validator: v,
		events:    emitterOrNoop(events),
		logger:    loggerOrDiscard(logger),
	}
}

// CreateObject creates an active object of an active type.
func (s *ObjectService) CreateObject(ctx context.Context, in CreateObjectInput) (*domain.Object, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.OrganizationID = strings.TrimSpace(in.OrganizationID)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	objType, err := s.types.ResolveActiveType(ctx, strings.TrimSpace(in.TypeID))
	if err != nil {
		return nil, err
	}

	o := &domain.Object{
		ID:             id.MustGenerate(id.PrefixObject),
		TypeID:         objType.ID,
		OwnerID:        in.OwnerID,
		OrganizationID: in.OrganizationID,
		Name:           in.Name,
		Status:         domain.ObjectStatusActive,
	}
	o.InitTimestamps()

	if err := s.store.CreateObject(ctx, o); err != nil {
		return nil, mapStoreError(err, "object type not found", "failed to create object")
	}

	s.events.Emit(sse.NewObjectCreatedEvent(o))
	s.logger.Info("object created", "object_id", o.ID, "type", objType.Slug, "owner_id", o.OwnerID)
	return o, nil
}

// GetObject returns an object by ID, including deleted ones.
func (s *ObjectService) GetObject(ctx context.Context, objectID string) (*domain.Object, error) {
	o, err := s.store.GetObject(ctx, objectID)
	if err != nil {
		return nil, mapStoreError(err, "object not found", "failed to load object")
	}
	return o, nil
}

// UpdateObject renames or archives an object. Setting the deleted status
// deletes the object the same way DeleteObject does.
func (s *ObjectService) UpdateObject(ctx context.Context, objectID string, upd domain.ObjectUpdate) (*domain.Object, error) {
	in := updateObjectInput{}
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		upd.Name = &trimmed
		in.Name = &trimmed
	}
	if upd.Status != nil {
		status := string(*upd.Status)
		in.Status = &status
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	o, err := s.GetObject(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if o.IsDeleted() {
		return nil, domainerrors.NotFound("object not found")
	}

	if upd.Status != nil && *upd.Status == domain.ObjectStatusDeleted {
		if err := s.DeleteObject(ctx, objectID); err != nil {
			return nil, err
		}
		return s.GetObject(ctx, objectID)
	}

	changed := false
	if upd.Name != nil && *upd.Name != o.Name {
		o.Name = *upd.Name
		changed = true
	}
	if upd.Status != nil && *upd.Status != o.Status {
		o.Status = *upd.Status
		changed = true
	}
	if !changed {
		return o, nil
	}
	o.Touch()

	if err := s.store.UpdateObject(ctx, o); err != nil {
		return nil, mapStoreError(err, "object not found", "failed to update object")
	}

	s.events.Emit(sse.NewObjectUpdatedEvent(o))
	s.logger.Info("object updated", "object_id", o.ID, "status", o.Status)
	return o, nil
}

// DeleteObject marks the object deleted and removes every relationship that
// references it. Deleting an already deleted object succeeds.
func (s *ObjectService) DeleteObject(ctx context.Context, objectID string) error {
	o, err := s.GetObject(ctx, objectID)
	if err != nil {
		return err
	}
	if o.IsDeleted() {
		return nil
	}

	removed, err := s.store.DeleteObject(ctx, objectID)
	if err != nil {
		return mapStoreError(err, "object not found", "failed to delete object")
	}
	o.Status = domain.ObjectStatusDeleted

	s.events.Emit(sse.NewObjectDeletedEvent(o, removed))
	s.logger.Info("object deleted", "object_id", o.ID, "relationships_removed", removed)
	return nil
}

// ListObjects returns non-deleted objects in creation order.
func (s *ObjectService) ListObjects(ctx context.Context, q store.ObjectQuery) ([]*domain.Object, error) {
	if q.Status != "" {
		status := domain.ObjectStatus(q.Status)
		if !status.Valid() || status == domain.ObjectStatusDeleted {
			return nil, domainerrors.Validationf("invalid status filter %q", q.Status)
		}
	}
	q.Normalize()

	objects, err := s.store.ListObjects(ctx, q)
	if err != nil {
		return nil, mapStoreError(err, "object not found", "failed to list objects")
	}
	return objects, nil
}

// LinkObjects creates a typed edge from source to target. Both objects must
// exist and not be deleted.
func (s *ObjectService) LinkObjects(ctx context.Context, sourceID, targetID, relType string) (*domain.ObjectRelationship, error) {
	relType = strings.TrimSpace(relType)
	if err := s.types.ValidateRelationshipType(relType); err != nil {
		return nil, err
	}
	if sourceID == "" || targetID == "" {
		return nil, domainerrors.Validation("source and target are required")
	}
	if sourceID == targetID {
		return nil, domainerrors.Validation("an object cannot be linked to itself")
	}

	r := &domain.ObjectRelationship{
		ID:        id.MustGenerate(id.PrefixRelationship),
		SourceID:  sourceID,
		TargetID:  targetID,
		Type:      relType,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateRelationship(ctx, r); err != nil {
		if domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflictf("%s relationship already exists", relType)
		}
		return nil, mapStoreError(err, "object not found", "failed to link objects")
	}

	s.events.Emit(sse.NewObjectLinkedEvent(r, s.organizationOf(ctx, sourceID)))
	s.logger.Info("objects linked",
		"relationship_id", r.ID,
		"source_id", sourceID,
		"target_id", targetID,
		"relationship_type", relType,
	)
	return r, nil
}

// UnlinkObjects removes the edge if present.
func (s *ObjectService) UnlinkObjects(ctx context.Context, sourceID, targetID, relType string) error {
	relType = strings.TrimSpace(relType)
	if err := s.types.ValidateRelationshipType(relType); err != nil {
		return err
	}

	removed, err := s.store.DeleteRelationship(ctx, sourceID, targetID, relType)
	if err != nil {
		return mapStoreError(err, "relationship not found", "failed to unlink objects")
	}
	if !removed {
		return nil
	}

	s.events.Emit(sse.NewObjectUnlinkedEvent(sourceID, targetID, relType, s.organizationOf(ctx, sourceID)))
	s.logger.Info("objects unlinked", "source_id", sourceID, "target_id", targetID, "relationship_type", relType)
	return nil
}

// Relationships returns the edges touching the object in the given direction,
// each joined with the object at the other end.
func (s *ObjectService) Relationships(ctx context.Context, objectID string, dir domain.Direction, relType string) ([]*domain.RelationshipView, error) {
	if dir == "" {
		dir = domain.DirectionBoth
	}
	if !dir.Valid() {
		return nil, domainerrors.Validationf("invalid direction %q", dir)
	}
	if relType != "" {
		if err := s.types.ValidateRelationshipType(relType); err != nil {
			return nil, err
		}
	}

	views, err := s.store.Relationships(ctx, objectID, dir, relType)
	if err != nil {
		return nil, mapStoreError(err, "object not found", "failed to load relationships")
	}
	return views, nil
}

// RelatedObjects returns the targets of the object's outgoing edges.
func (s *ObjectService) RelatedObjects(ctx context.Context, objectID, relType string) ([]*domain.Object, error) {
	views, err := s.Relationships(ctx, objectID, domain.DirectionSource, relType)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Object, 0, len(views))
	seen := make(map[string]struct{}, len(views))
	for _, v := range views {
		if _, ok := seen[v.Other.ID]; ok {
			continue
		}
		seen[v.Other.ID] = struct{}{}
		out = append(out, v.Other)
	}
	return out, nil
}

// organizationOf returns the object's organization for event routing.
func (s *ObjectService) organizationOf(ctx context.Context, objectID string) string {
	o, err := s.store.GetObject(ctx, objectID)
	if err != nil {
		return ""
	}
	return o.OrganizationID
}
