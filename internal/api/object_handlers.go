package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/service"
	"github.com/kaziapp/taggraph/internal/store"
)

func (s *Server) registerObjectRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createObject",
		Method:        http.MethodPost,
		Path:          "/api/v1/objects",
		Summary:       "Create object",
		Description:   "Creates an active object of an active type",
		Tags:          []string{"Objects"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateObject)

	huma.Register(s.api, huma.Operation{
		OperationID: "listObjects",
		Method:      http.MethodGet,
		Path:        "/api/v1/objects",
		Summary:     "List objects",
		Description: "Returns non-deleted objects in creation order",
		Tags:        []string{"Objects"},
	}, s.handleListObjects)

	huma.Register(s.api, huma.Operation{
		OperationID: "getObject",
		Method:      http.MethodGet,
		Path:        "/api/v1/objects/{id}",
		Summary:     "Get object",
		Tags:        []string{"Objects"},
	}, s.handleGetObject)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateObject",
		Method:      http.MethodPatch,
		Path:        "/api/v1/objects/{id}",
		Summary:     "Update object",
		Description: "Renames an object or changes its status; status deleted deletes it",
		Tags:        []string{"Objects"},
	}, s.handleUpdateObject)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteObject",
		Method:        http.MethodDelete,
		Path:          "/api/v1/objects/{id}",
		Summary:       "Delete object",
		Description:   "Marks the object deleted and removes every relationship touching it",
		Tags:          []string{"Objects"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteObject)

	huma.Register(s.api, huma.Operation{
		OperationID: "getObjectRelationships",
		Method:      http.MethodGet,
		Path:        "/api/v1/objects/{id}/relationships",
		Summary:     "Get relationships",
		Description: "Returns relationships joined with the object at the other end",
		Tags:        []string{"Objects"},
	}, s.handleGetRelationships)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRelatedObjects",
		Method:      http.MethodGet,
		Path:        "/api/v1/objects/{id}/related",
		Summary:     "Get related objects",
		Description: "Returns the object and its outgoing neighbours grouped by relationship type",
		Tags:        []string{"Objects"},
	}, s.handleGetRelatedObjects)
}

func (s *Server) registerRelationshipRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "linkObjects",
		Method:        http.MethodPost,
		Path:          "/api/v1/relationships",
		Summary:       "Link objects",
		Description:   "Creates a typed relationship from source to target",
		Tags:          []string{"Relationships"},
		DefaultStatus: http.StatusCreated,
	}, s.handleLinkObjects)

	huma.Register(s.api, huma.Operation{
		OperationID:   "unlinkObjects",
		Method:        http.MethodDelete,
		Path:          "/api/v1/relationships",
		Summary:       "Unlink objects",
		Description:   "Removes a typed relationship; removing a missing one changes nothing",
		Tags:          []string{"Relationships"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleUnlinkObjects)
}

// === DTOs ===

// CreateObjectRequest is the request body for creating an object.
type CreateObjectRequest struct {
	TypeID         string `json:"type_id" minLength:"1" doc:"Object type ID or slug"`
	OwnerID        string `json:"owner_id" minLength:"1" maxLength:"128" doc:"Owning user"`
	OrganizationID string `json:"organization_id,omitempty" maxLength:"128" doc:"Optional tenant scope"`
	Name           string `json:"name" minLength:"1" maxLength:"200"`
}

// CreateObjectInput wraps the create request for Huma.
type CreateObjectInput struct {
	Body CreateObjectRequest
}

// ObjectOutput wraps an object for Huma.
type ObjectOutput struct {
	Body *domain.Object
}

// ListObjectsInput contains parameters for listing objects.
type ListObjectsInput struct {
	Type           string `query:"type" doc:"Object type slug or ID"`
	OrganizationID string `query:"organization_id" doc:"Only objects of this organization"`
	Status         string `query:"status" doc:"Only objects with this status"`
	Limit          int    `query:"limit" minimum:"0" doc:"Maximum results"`
}

// ObjectListOutput wraps a list of objects for Huma.
type ObjectListOutput struct {
	Body []*domain.Object
}

// ObjectIDInput identifies an object by path.
type ObjectIDInput struct {
	ID string `path:"id" doc:"Object ID"`
}

// UpdateObjectRequest is the request body for updating an object.
type UpdateObjectRequest struct {
	Name   *string `json:"name,omitempty"`
	Status *string `json:"status,omitempty" doc:"active, archived or deleted"`
}

// UpdateObjectInput wraps the update request for Huma.
type UpdateObjectInput struct {
	ID   string `path:"id" doc:"Object ID"`
	Body UpdateObjectRequest
}

// RelationshipsInput contains parameters for a relationship listing.
type RelationshipsInput struct {
	ID        string `path:"id" doc:"Object ID"`
	Direction string `query:"direction" doc:"Which end the object occupies (default both)"`
	Type      string `query:"type" doc:"Only this relationship type"`
}

// RelationshipsOutput wraps relationship views for Huma.
type RelationshipsOutput struct {
	Body []*domain.RelationshipView
}

// RelatedObjectsInput contains parameters for the related-objects view.
type RelatedObjectsInput struct {
	ID   string `path:"id" doc:"Object ID"`
	Type string `query:"type" doc:"Only this relationship type"`
}

// RelatedObjectsOutput wraps the view for Huma.
type RelatedObjectsOutput struct {
	Body *service.RelatedObjectsView
}

// LinkObjectsRequest is the request body for linking objects.
type LinkObjectsRequest struct {
	SourceID         string `json:"source_id" minLength:"1"`
	TargetID         string `json:"target_id" minLength:"1"`
	RelationshipType string `json:"relationship_type" minLength:"1"`
}

// LinkObjectsInput wraps the link request for Huma.
type LinkObjectsInput struct {
	Body LinkObjectsRequest
}

// RelationshipOutput wraps a relationship for Huma.
type RelationshipOutput struct {
	Body *domain.ObjectRelationship
}

// UnlinkObjectsInput identifies the relationship to remove.
type UnlinkObjectsInput struct {
	SourceID         string `query:"source_id" required:"true"`
	TargetID         string `query:"target_id" required:"true"`
	RelationshipType string `query:"type" required:"true"`
}

// === Handlers ===

func (s *Server) handleCreateObject(ctx context.Context, input *CreateObjectInput) (*ObjectOutput, error) {
	obj, err := s.services.Objects.CreateObject(ctx, service.CreateObjectInput{
		TypeID:         input.Body.TypeID,
		OwnerID:        input.Body.OwnerID,
		OrganizationID: input.Body.OrganizationID,
		Name:           input.Body.Name,
	})
	if err != nil {
		return nil, err
	}
	return &ObjectOutput{Body: obj}, nil
}

func (s *Server) handleListObjects(ctx context.Context, input *ListObjectsInput) (*ObjectListOutput, error) {
	q := store.ObjectQuery{
		OrganizationID: input.OrganizationID,
		Status:         input.Status,
		Limit:          input.Limit,
	}
	if input.Type != "" {
		t, err := s.services.Types.GetType(ctx, input.Type)
		if err != nil {
			return nil, err
		}
		q.TypeID = t.ID
	}

	objects, err := s.services.Objects.ListObjects(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ObjectListOutput{Body: objects}, nil
}

func (s *Server) handleGetObject(ctx context.Context, input *ObjectIDInput) (*ObjectOutput, error) {
	obj, err := s.services.Objects.GetObject(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ObjectOutput{Body: obj}, nil
}

func (s *Server) handleUpdateObject(ctx context.Context, input *UpdateObjectInput) (*ObjectOutput, error) {
	upd := domain.ObjectUpdate{Name: input.Body.Name}
	if input.Body.Status != nil {
		status := domain.ObjectStatus(*input.Body.Status)
		upd.Status = &status
	}

	obj, err := s.services.Objects.UpdateObject(ctx, input.ID, upd)
	if err != nil {
		return nil, err
	}
	return &ObjectOutput{Body: obj}, nil
}

func (s *Server) handleDeleteObject(ctx context.Context, input *ObjectIDInput) (*struct{}, error) {
	if err := s.services.Objects.DeleteObject(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleGetRelationships(ctx context.Context, input *RelationshipsInput) (*RelationshipsOutput, error) {
	views, err := s.services.Objects.Relationships(ctx, input.ID, domain.Direction(input.Direction), input.Type)
	if err != nil {
		return nil, err
	}
	return &RelationshipsOutput{Body: views}, nil
}

func (s *Server) handleGetRelatedObjects(ctx context.Context, input *RelatedObjectsInput) (*RelatedObjectsOutput, error) {
	view, err := s.services.Queries.RelatedObjects(ctx, input.ID, input.Type)
	if err != nil {
		return nil, err
	}
	return &RelatedObjectsOutput{Body: view}, nil
}

func (s *Server) handleLinkObjects(ctx context.Context, input *LinkObjectsInput) (*RelationshipOutput, error) {
	rel, err := s.services.Objects.LinkObjects(ctx, input.Body.SourceID, input.Body.TargetID, input.Body.RelationshipType)
	if err != nil {
		return nil, err
	}
	return &RelationshipOutput{Body: rel}, nil
}

func (s *Server) handleUnlinkObjects(ctx context.Context, input *UnlinkObjectsInput) (*struct{}, error) {
	if err := s.services.Objects.UnlinkObjects(ctx, input.SourceID, input.TargetID, input.RelationshipType); err != nil {
		return nil, err
	}
	return nil, nil
}
