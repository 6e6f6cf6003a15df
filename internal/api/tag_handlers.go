package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/search"
	"github.com/kaziapp/taggraph/internal/service"
	"github.com/kaziapp/taggraph/internal/store"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns every tag, or active tags matching a name substring and type",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags",
		Summary:       "Create tag",
		Description:   "Creates a tag; the slug is derived from the name and must be unique",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/resolve",
		Summary:     "Get or create tag",
		Description: "Returns the tag whose slug matches the name, creating it if needed",
		Tags:        []string{"Tags"},
	}, s.handleResolveTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "popularTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/popular",
		Summary:     "Popular tags",
		Description: "Returns active tags ordered by usage count",
		Tags:        []string{"Tags"},
	}, s.handlePopularTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/suggest",
		Summary:     "Suggest tags",
		Description: "Ranks tags for typeahead, tolerating prefixes and small typos",
		Tags:        []string{"Tags"},
	}, s.handleSuggestTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagBySlug",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/slug/{slug}",
		Summary:     "Get tag by slug",
		Tags:        []string{"Tags"},
	}, s.handleGetTagBySlug)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a tag by ID",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Update tag",
		Description: "Updates a tag; renaming re-derives the slug",
		Tags:        []string{"Tags"},
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTag",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tags/{id}",
		Summary:       "Delete tag",
		Description:   "Deletes a tag and all of its assignments",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}/items",
		Summary:     "Get tagged items",
		Description: "Returns the tag and the items it is assigned to",
		Tags:        []string{"Tags"},
	}, s.handleGetTagItems)

	huma.Register(s.api, huma.Operation{
		OperationID: "assignTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/{id}/items",
		Summary:     "Assign tag",
		Description: "Assigns the tag to an item; assigning twice changes nothing",
		Tags:        []string{"Tags"},
	}, s.handleAssignTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "unassignTag",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tags/{id}/items/{itemType}/{itemID}",
		Summary:       "Unassign tag",
		Description:   "Removes the tag from an item; removing a missing assignment changes nothing",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleUnassignTag)
}

// === DTOs ===

// ListTagsInput contains parameters for listing tags.
type ListTagsInput struct {
	Query   string `query:"q" doc:"Case-insensitive name substring"`
	TagType string `query:"tag_type" doc:"Only tags of this type"`
	Limit   int    `query:"limit" minimum:"0" doc:"Maximum results when filtering"`
}

// TagListOutput wraps a list of tags for Huma.
type TagListOutput struct {
	Body []*domain.Tag
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name        string `json:"name" minLength:"1" maxLength:"100" doc:"Display name"`
	TagType     string `json:"tag_type,omitempty" maxLength:"50" doc:"Optional category slug"`
	Color       string `json:"color,omitempty" doc:"Hex color such as #ff8800"`
	Description string `json:"description,omitempty" maxLength:"500" doc:"Free text"`
}

// CreateTagInput wraps the create tag request for Huma.
type CreateTagInput struct {
	Body CreateTagRequest
}

// TagOutput wraps the tag response for Huma.
type TagOutput struct {
	Body *domain.Tag
}

// ResolveTagRequest is the request body for get-or-create.
type ResolveTagRequest struct {
	Name    string `json:"name" minLength:"1" maxLength:"100" doc:"Display name"`
	TagType string `json:"tag_type,omitempty" maxLength:"50" doc:"Category used when the tag is created"`
}

// ResolveTagInput wraps the resolve request for Huma.
type ResolveTagInput struct {
	Body ResolveTagRequest
}

// ResolveTagResponse reports the tag and whether it was created.
type ResolveTagResponse struct {
	Tag     *domain.Tag `json:"tag"`
	Created bool        `json:"created" doc:"True when the tag did not exist"`
}

// ResolveTagOutput wraps the resolve response for Huma.
type ResolveTagOutput struct {
	Body ResolveTagResponse
}

// PopularTagsInput contains parameters for popular tags.
type PopularTagsInput struct {
	TagType string `query:"tag_type" doc:"Only tags of this type"`
	Limit   int    `query:"limit" minimum:"0" doc:"Maximum results"`
}

// SuggestTagsInput contains parameters for tag suggestions.
type SuggestTagsInput struct {
	Query   string `query:"q" required:"true" doc:"Text typed so far"`
	TagType string `query:"tag_type" doc:"Only tags of this type"`
	Limit   int    `query:"limit" minimum:"0" doc:"Maximum results"`
}

// SuggestTagsOutput wraps suggestions for Huma.
type SuggestTagsOutput struct {
	Body []search.Suggestion
}

// GetTagBySlugInput contains parameters for a slug lookup.
type GetTagBySlugInput struct {
	Slug string `path:"slug" doc:"Tag slug"`
}

// GetTagInput contains parameters for getting a tag.
type GetTagInput struct {
	ID string `path:"id" doc:"Tag ID"`
}

// UpdateTagRequest is the request body for updating a tag.
type UpdateTagRequest struct {
	Name        *string `json:"name,omitempty" doc:"Display name"`
	TagType     *string `json:"tag_type,omitempty" doc:"Category slug; empty clears it"`
	Color       *string `json:"color,omitempty" doc:"Hex color; empty clears it"`
	Description *string `json:"description,omitempty" doc:"Free text"`
	IsActive    *bool   `json:"is_active,omitempty" doc:"Inactive tags are hidden from search and suggestions"`
}

// UpdateTagInput wraps the update tag request for Huma.
type UpdateTagInput struct {
	ID   string `path:"id" doc:"Tag ID"`
	Body UpdateTagRequest
}

// DeleteTagInput contains parameters for deleting a tag.
type DeleteTagInput struct {
	ID string `path:"id" doc:"Tag ID"`
}

// GetTagItemsInput contains parameters for listing tagged items.
type GetTagItemsInput struct {
	ID       string `path:"id" doc:"Tag ID"`
	ItemType string `query:"item_type" doc:"Only items of this type"`
	Limit    int    `query:"limit" minimum:"0" doc:"Maximum results"`
}

// TagItemsOutput wraps the tag items view for Huma.
type TagItemsOutput struct {
	Body *service.ItemsByTagView
}

// AssignTagInput wraps an assignment request for Huma.
type AssignTagInput struct {
	ID   string `path:"id" doc:"Tag ID"`
	Body domain.ItemRef
}

// AssignmentOutput wraps an assignment for Huma.
type AssignmentOutput struct {
	Body *domain.TagAssignment
}

// UnassignTagInput contains parameters for removing an assignment.
type UnassignTagInput struct {
	ID       string `path:"id" doc:"Tag ID"`
	ItemType string `path:"itemType" doc:"Item type"`
	ItemID   string `path:"itemID" doc:"Item ID"`
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*TagListOutput, error) {
	var (
		tags []*domain.Tag
		err  error
	)
	if input.Query == "" && input.TagType == "" && input.Limit == 0 {
		tags, err = s.services.Tags.ListTags(ctx)
	} else {
		tags, err = s.services.Tags.SearchTags(ctx, store.TagQuery{
			Query:   input.Query,
			TagType: input.TagType,
			Limit:   input.Limit,
		})
	}
	if err != nil {
		return nil, err
	}
	return &TagListOutput{Body: tags}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	tag, err := s.services.Tags.CreateTag(ctx, service.CreateTagInput{
		Name:        input.Body.Name,
		TagType:     input.Body.TagType,
		Color:       input.Body.Color,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: tag}, nil
}

func (s *Server) handleResolveTag(ctx context.Context, input *ResolveTagInput) (*ResolveTagOutput, error) {
	tag, created, err := s.services.Tags.GetOrCreateTag(ctx, input.Body.Name, input.Body.TagType)
	if err != nil {
		return nil, err
	}
	return &ResolveTagOutput{Body: ResolveTagResponse{Tag: tag, Created: created}}, nil
}

func (s *Server) handlePopularTags(ctx context.Context, input *PopularTagsInput) (*TagListOutput, error) {
	tags, err := s.services.Queries.PopularTags(ctx, input.TagType, input.Limit)
	if err != nil {
		return nil, err
	}
	return &TagListOutput{Body: tags}, nil
}

func (s *Server) handleSuggestTags(ctx context.Context, input *SuggestTagsInput) (*SuggestTagsOutput, error) {
	suggestions, err := s.services.Tags.SuggestTags(ctx, input.Query, input.TagType, input.Limit)
	if err != nil {
		return nil, err
	}
	return &SuggestTagsOutput{Body: suggestions}, nil
}

func (s *Server) handleGetTagBySlug(ctx context.Context, input *GetTagBySlugInput) (*TagOutput, error) {
	tag, err := s.services.Tags.GetTagBySlug(ctx, input.Slug)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: tag}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *GetTagInput) (*TagOutput, error) {
	tag, err := s.services.Tags.GetTag(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: tag}, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	tag, err := s.services.Tags.UpdateTag(ctx, input.ID, domain.TagUpdate{
		Name:        input.Body.Name,
		TagType:     input.Body.TagType,
		Color:       input.Body.Color,
		Description: input.Body.Description,
		IsActive:    input.Body.IsActive,
	})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: tag}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *DeleteTagInput) (*struct{}, error) {
	if err := s.services.Tags.DeleteTag(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleGetTagItems(ctx context.Context, input *GetTagItemsInput) (*TagItemsOutput, error) {
	view, err := s.services.Queries.ItemsByTag(ctx, input.ID, input.ItemType, input.Limit)
	if err != nil {
		return nil, err
	}
	return &TagItemsOutput{Body: view}, nil
}

func (s *Server) handleAssignTag(ctx context.Context, input *AssignTagInput) (*AssignmentOutput, error) {
	a, err := s.services.Assignments.AssignTag(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &AssignmentOutput{Body: a}, nil
}

func (s *Server) handleUnassignTag(ctx context.Context, input *UnassignTagInput) (*struct{}, error) {
	item := domain.ItemRef{ID: input.ItemID, Type: input.ItemType}
	if err := s.services.Assignments.UnassignTag(ctx, input.ID, item); err != nil {
		return nil, err
	}
	return nil, nil
}
