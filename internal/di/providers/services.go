package providers

import (
	"github.com/samber/do/v2"

	"github.com/kaziapp/taggraph/internal/logger"
	"github.com/kaziapp/taggraph/internal/service"
	"github.com/kaziapp/taggraph/internal/validation"
)

// ProvideTagService provides the tag catalog service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	var index service.TagIndex
	if indexHandle.TagIndex != nil {
		index = indexHandle.TagIndex
	}

	return service.NewTagService(storeHandle.Store, v, sseHandle.Manager, index, log.WithComponent("tags")), nil
}

// ProvideAssignmentService provides the tag assignment service.
func ProvideAssignmentService(i do.Injector) (*service.AssignmentService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	registryHandle := do.MustInvoke[*RegistryHandle](i)
	tags := do.MustInvoke[*service.TagService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAssignmentService(storeHandle.Store, registryHandle.Registry, tags, sseHandle.Manager, log.WithComponent("assignments")), nil
}

// ProvideObjectService provides the object graph service.
func ProvideObjectService(i do.Injector) (*service.ObjectService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	registryHandle := do.MustInvoke[*RegistryHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewObjectService(storeHandle.Store, registryHandle.Registry, v, sseHandle.Manager, log.WithComponent("objects")), nil
}

// ProvideTypeService provides the type registry service.
func ProvideTypeService(i do.Injector) (*service.TypeService, error) {
	registryHandle := do.MustInvoke[*RegistryHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTypeService(registryHandle.Registry, sseHandle.Manager, log.WithComponent("types")), nil
}

// ProvideQueryService provides the read-model service.
func ProvideQueryService(i do.Injector) (*service.QueryService, error) {
	return service.NewQueryService(
		do.MustInvoke[*service.TagService](i),
		do.MustInvoke[*service.AssignmentService](i),
		do.MustInvoke[*service.ObjectService](i),
		do.MustInvoke[*RegistryHandle](i).Registry,
	), nil
}
