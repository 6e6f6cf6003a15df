package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/service"
)

const itemTagsPath = "/api/v1/items/{itemType}/{itemID}/tags"

func (s *Server) registerItemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getItemTags",
		Method:      http.MethodGet,
		Path:        itemTagsPath,
		Summary:     "Get item tags",
		Description: "Returns the item's tags in assignment order",
		Tags:        []string{"Items"},
	}, s.handleGetItemTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "setItemTags",
		Method:      http.MethodPut,
		Path:        itemTagsPath,
		Summary:     "Set item tags",
		Description: "Makes the item's tags exactly the given set; only the difference is written",
		Tags:        []string{"Items"},
	}, s.handleSetItemTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "clearItemTags",
		Method:      http.MethodDelete,
		Path:        itemTagsPath,
		Summary:     "Clear item tags",
		Description: "Removes every tag from the item, typically when the item itself is deleted",
		Tags:        []string{"Items"},
	}, s.handleClearItemTags)
}

// ItemPathInput identifies an item by path.
type ItemPathInput struct {
	ItemType string `path:"itemType" doc:"Item type"`
	ItemID   string `path:"itemID" doc:"Item ID"`
}

func (in ItemPathInput) item() domain.ItemRef {
	return domain.ItemRef{ID: in.ItemID, Type: in.ItemType}
}

// SetItemTagsRequest is the desired tag set.
type SetItemTagsRequest struct {
	TagIDs []string `json:"tag_ids" doc:"Tag IDs; duplicates are ignored, empty removes every tag"`
}

// SetItemTagsInput wraps the set request for Huma.
type SetItemTagsInput struct {
	ItemPathInput
	Body SetItemTagsRequest
}

// SetItemTagsOutput wraps the set result for Huma.
type SetItemTagsOutput struct {
	Body *service.SetItemTagsResult
}

// ClearItemTagsResponse reports how many assignments were removed.
type ClearItemTagsResponse struct {
	Removed int `json:"removed"`
}

// ClearItemTagsOutput wraps the clear result for Huma.
type ClearItemTagsOutput struct {
	Body ClearItemTagsResponse
}

func (s *Server) handleGetItemTags(ctx context.Context, input *ItemPathInput) (*TagListOutput, error) {
	tags, err := s.services.Assignments.ItemTags(ctx, input.item())
	if err != nil {
		return nil, err
	}
	return &TagListOutput{Body: tags}, nil
}

func (s *Server) handleSetItemTags(ctx context.Context, input *SetItemTagsInput) (*SetItemTagsOutput, error) {
	result, err := s.services.Assignments.SetItemTags(ctx, input.item(), input.Body.TagIDs)
	if err != nil {
		return nil, err
	}
	return &SetItemTagsOutput{Body: result}, nil
}

func (s *Server) handleClearItemTags(ctx context.Context, input *ItemPathInput) (*ClearItemTagsOutput, error) {
	n, err := s.services.Assignments.ClearItemTags(ctx, input.item())
	if err != nil {
		return nil, err
	}
	return &ClearItemTagsOutput{Body: ClearItemTagsResponse{Removed: n}}, nil
}
