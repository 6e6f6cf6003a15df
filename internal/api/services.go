package api

import (
	"github.com/kaziapp/taggraph/internal/search"
	"github.com/kaziapp/taggraph/internal/service"
	"github.com/kaziapp/taggraph/internal/worker"
)

// Services groups the graph services used by the API server.
type Services struct {
	Tags        *service.TagService
	Assignments *service.AssignmentService
	Objects     *service.ObjectService
	Types       *service.TypeService
	Queries     *service.QueryService
	Search      *search.TagIndex   // nil when search is disabled
	Reconciler  *worker.Reconciler // nil when scheduled recounts are disabled
}
