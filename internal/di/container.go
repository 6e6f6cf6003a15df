// Package di provides dependency injection configuration for the tag graph server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/kaziapp/taggraph/internal/config"
	"github.com/kaziapp/taggraph/internal/di/providers"
	"github.com/kaziapp/taggraph/internal/logger"
	"github.com/kaziapp/taggraph/internal/metrics"
	"github.com/kaziapp/taggraph/internal/service"
	"github.com/kaziapp/taggraph/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideRegistry)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Business services
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideAssignmentService)
	do.Provide(injector, providers.ProvideObjectService)
	do.Provide(injector, providers.ProvideTypeService)
	do.Provide(injector, providers.ProvideQueryService)

	// Workers
	do.Provide(injector, providers.ProvideReconciler)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.RegistryHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.AssignmentService](injector)
	_ = do.MustInvoke[*service.ObjectService](injector)
	_ = do.MustInvoke[*service.TypeService](injector)
	_ = do.MustInvoke[*service.QueryService](injector)

	// Workers
	_ = do.MustInvoke[*providers.ReconcilerHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
