package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "recountUsage",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/recount",
		Summary:     "Recount tag usage",
		Description: "Recomputes every usage count from the assignment edges",
		Tags:        []string{"Admin"},
	}, s.handleRecount)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/reindex",
		Summary:     "Rebuild tag index",
		Description: "Rebuilds the suggestion index from the store",
		Tags:        []string{"Admin"},
	}, s.handleReindex)
}

// RecountResponse reports how many counters were corrected.
type RecountResponse struct {
	Corrected int `json:"corrected"`
}

// RecountOutput wraps the recount result for Huma.
type RecountOutput struct {
	Body RecountResponse
}

// ReindexResponse reports how many tags were indexed.
type ReindexResponse struct {
	Indexed int `json:"indexed"`
}

// ReindexOutput wraps the reindex result for Huma.
type ReindexOutput struct {
	Body ReindexResponse
}

func (s *Server) handleRecount(ctx context.Context, _ *struct{}) (*RecountOutput, error) {
	recount := s.services.Assignments.RecountUsage
	if s.services.Reconciler != nil {
		recount = s.services.Reconciler.RunOnce
	}

	n, err := recount(ctx)
	if err != nil {
		return nil, err
	}
	return &RecountOutput{Body: RecountResponse{Corrected: n}}, nil
}

func (s *Server) handleReindex(ctx context.Context, _ *struct{}) (*ReindexOutput, error) {
	n, err := s.services.Tags.ReindexTags(ctx)
	if err != nil {
		return nil, err
	}
	return &ReindexOutput{Body: ReindexResponse{Indexed: n}}, nil
}
