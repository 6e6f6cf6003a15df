package service

import (
	"context"
	"log/slog"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/registry"
	"github.com/kaziapp/taggraph/internal/sse"
)

// TypeService exposes the type registry and announces changes to it.
type TypeService struct {
	registry *registry.Registry
	events   EventEmitter
	logger   *slog.Logger
}

// NewTypeService creates a type service. events may be nil.
func NewTypeService(r *registry.Registry, events EventEmitter, logger *slog.Logger) *TypeService {
	return &TypeService{
		registry: r,
		events:   emitterOrNoop(events),
		logger:   loggerOrDiscard(logger),
	}
}

// GetType returns an active object type by slug.
func (s *TypeService) GetType(ctx context.Context, slug string) (*domain.ObjectType, error) {
	return s.registry.ResolveActiveType(ctx, slug)
}

// ListActiveTypes returns active object types ordered by name.
func (s *TypeService) ListActiveTypes(ctx context.Context) ([]*domain.ObjectType, error) {
	return s.registry.ListActiveTypes(ctx)
}

// ListTypes returns every object type, including disabled ones.
func (s *TypeService) ListTypes(ctx context.Context) ([]*domain.ObjectType, error) {
	return s.registry.ListTypes(ctx)
}

// RegisterType adds an object type.
func (s *TypeService) RegisterType(ctx context.Context, slug, name, description string) (*domain.ObjectType, error) {
	t, err := s.registry.RegisterType(ctx, slug, name, description)
	if err != nil {
		return nil, err
	}
	s.events.Emit(sse.NewTypeRegisteredEvent(t))
	return t, nil
}

// SetTypeActive enables or disables an object type. Existing objects of a
// disabled type are untouched; new ones cannot be created.
func (s *TypeService) SetTypeActive(ctx context.Context, slug string, active bool) (*domain.ObjectType, error) {
	t, err := s.registry.SetTypeActive(ctx, slug, active)
	if err != nil {
		return nil, err
	}
	s.events.Emit(sse.NewTypeUpdatedEvent(t))
	return t, nil
}

// ItemTypes returns the registered item types.
func (s *TypeService) ItemTypes() []string {
	return s.registry.ItemTypes()
}

// RelationshipTypes returns the registered relationship types.
func (s *TypeService) RelationshipTypes() []string {
	return s.registry.RelationshipTypes()
}
