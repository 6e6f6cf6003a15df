package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/service"
)

func (s *Server) registerTypeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listObjectTypes",
		Method:      http.MethodGet,
		Path:        "/api/v1/types",
		Summary:     "List object types",
		Description: "Returns active object types, or all of them with ?all=true",
		Tags:        []string{"Types"},
	}, s.handleListTypes)

	huma.Register(s.api, huma.Operation{
		OperationID:   "registerObjectType",
		Method:        http.MethodPost,
		Path:          "/api/v1/types",
		Summary:       "Register object type",
		Tags:          []string{"Types"},
		DefaultStatus: http.StatusCreated,
	}, s.handleRegisterType)

	huma.Register(s.api, huma.Operation{
		OperationID: "getObjectType",
		Method:      http.MethodGet,
		Path:        "/api/v1/types/{slug}",
		Summary:     "Get object type",
		Description: "Returns an active object type by slug or ID",
		Tags:        []string{"Types"},
	}, s.handleGetType)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateObjectType",
		Method:      http.MethodPatch,
		Path:        "/api/v1/types/{slug}",
		Summary:     "Activate or deactivate object type",
		Description: "Inactive types reject new objects; existing objects are kept",
		Tags:        []string{"Types"},
	}, s.handleSetTypeActive)

	huma.Register(s.api, huma.Operation{
		OperationID: "getObjectsByType",
		Method:      http.MethodGet,
		Path:        "/api/v1/types/{slug}/objects",
		Summary:     "Objects by type",
		Description: "Returns the type and its non-deleted objects in creation order",
		Tags:        []string{"Types"},
	}, s.handleObjectsByType)

	huma.Register(s.api, huma.Operation{
		OperationID: "listItemTypes",
		Method:      http.MethodGet,
		Path:        "/api/v1/item-types",
		Summary:     "List item types",
		Description: "Returns the item types tags may be assigned to",
		Tags:        []string{"Types"},
	}, s.handleItemTypes)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRelationshipTypes",
		Method:      http.MethodGet,
		Path:        "/api/v1/relationship-types",
		Summary:     "List relationship types",
		Tags:        []string{"Types"},
	}, s.handleRelationshipTypes)
}

// ListTypesInput contains parameters for listing object types.
type ListTypesInput struct {
	All bool `query:"all" doc:"Include inactive types"`
}

// TypeListOutput wraps a list of object types for Huma.
type TypeListOutput struct {
	Body []*domain.ObjectType
}

// RegisterTypeRequest is the request body for registering a type.
type RegisterTypeRequest struct {
	Name        string `json:"name" minLength:"1" maxLength:"100" doc:"Display name"`
	Slug        string `json:"slug,omitempty" maxLength:"50" doc:"Identifier such as project; derived from the name when empty"`
	Description string `json:"description,omitempty" maxLength:"500"`
}

// RegisterTypeInput wraps the register request for Huma.
type RegisterTypeInput struct {
	Body RegisterTypeRequest
}

// TypeOutput wraps an object type for Huma.
type TypeOutput struct {
	Body *domain.ObjectType
}

// GetTypeInput identifies a type by slug or ID.
type GetTypeInput struct {
	Slug string `path:"slug" doc:"Type slug or ID"`
}

// SetTypeActiveRequest toggles a type.
type SetTypeActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetTypeActiveInput wraps the toggle request for Huma.
type SetTypeActiveInput struct {
	Slug string `path:"slug" doc:"Type slug"`
	Body SetTypeActiveRequest
}

// ObjectsByTypeInput contains parameters for the objects-by-type view.
type ObjectsByTypeInput struct {
	Slug           string `path:"slug" doc:"Type slug or ID"`
	OrganizationID string `query:"organization_id" doc:"Only objects of this organization"`
	Limit          int    `query:"limit" minimum:"0" doc:"Maximum results"`
}

// ObjectsByTypeOutput wraps the view for Huma.
type ObjectsByTypeOutput struct {
	Body *service.ObjectsByTypeView
}

// NameListResponse is a sorted list of type names.
type NameListResponse struct {
	Types []string `json:"types"`
}

// NameListOutput wraps a name list for Huma.
type NameListOutput struct {
	Body NameListResponse
}

func (s *Server) handleListTypes(ctx context.Context, input *ListTypesInput) (*TypeListOutput, error) {
	list := s.services.Types.ListActiveTypes
	if input.All {
		list = s.services.Types.ListTypes
	}
	types, err := list(ctx)
	if err != nil {
		return nil, err
	}
	return &TypeListOutput{Body: types}, nil
}

func (s *Server) handleRegisterType(ctx context.Context, input *RegisterTypeInput) (*TypeOutput, error) {
	t, err := s.services.Types.RegisterType(ctx, input.Body.Slug, input.Body.Name, input.Body.Description)
	if err != nil {
		return nil, err
	}
	return &TypeOutput{Body: t}, nil
}

func (s *Server) handleGetType(ctx context.Context, input *GetTypeInput) (*TypeOutput, error) {
	t, err := s.services.Types.GetType(ctx, input.Slug)
	if err != nil {
		return nil, err
	}
	return &TypeOutput{Body: t}, nil
}

func (s *Server) handleSetTypeActive(ctx context.Context, input *SetTypeActiveInput) (*TypeOutput, error) {
	t, err := s.services.Types.SetTypeActive(ctx, input.Slug, input.Body.IsActive)
	if err != nil {
		return nil, err
	}
	return &TypeOutput{Body: t}, nil
}

func (s *Server) handleObjectsByType(ctx context.Context, input *ObjectsByTypeInput) (*ObjectsByTypeOutput, error) {
	view, err := s.services.Queries.ObjectsByType(ctx, input.Slug, input.OrganizationID, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ObjectsByTypeOutput{Body: view}, nil
}

func (s *Server) handleItemTypes(_ context.Context, _ *struct{}) (*NameListOutput, error) {
	return &NameListOutput{Body: NameListResponse{Types: s.services.Types.ItemTypes()}}, nil
}

func (s *Server) handleRelationshipTypes(_ context.Context, _ *struct{}) (*NameListOutput, error) {
	return &NameListOutput{Body: NameListResponse{Types: s.services.Types.RelationshipTypes()}}, nil
}
