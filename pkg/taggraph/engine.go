package taggraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/metrics"
	"github.com/kaziapp/taggraph/internal/registry"
	"github.com/kaziapp/taggraph/internal/search"
	"github.com/kaziapp/taggraph/internal/service"
	"github.com/kaziapp/taggraph/internal/store"
	"github.com/kaziapp/taggraph/internal/store/badgerdb"
	"github.com/kaziapp/taggraph/internal/store/sqlite"
	"github.com/kaziapp/taggraph/internal/validation"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Options configures an Engine.
type Options struct {
	// Backend selects the store. Defaults to BackendBadger.
	Backend string
	// DataPath is the directory holding the database. Empty opens an
	// in-memory badger store and an in-memory search index.
	DataPath string

	ExtraItemTypes         []string
	ExtraRelationshipTypes []string
	// SeedObjectTypes are registered on open when missing.
	SeedObjectTypes []string

	// Search enables the tag suggestion index.
	Search bool

	Logger *slog.Logger
	// Metrics records per-operation counters when set.
	Metrics *metrics.Metrics
	// Events receives change notifications when set.
	Events service.EventEmitter
}

// Engine owns a store, the type registry and the graph services.
type Engine struct {
	store    store.Store
	registry *registry.Registry
	index    *search.TagIndex
	metrics  *metrics.Metrics
	logger   *slog.Logger

	tags        *service.TagService
	assignments *service.AssignmentService
	objects     *service.ObjectService
	types       *service.TypeService
	queries     *service.QueryService
}

// Open opens the store described by opts and wires the services on top of it.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s, err := openStore(opts, logger)
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(s, registry.Options{
		ExtraItemTypes:         opts.ExtraItemTypes,
		ExtraRelationshipTypes: opts.ExtraRelationshipTypes,
	}, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := reg.EnsureTypes(ctx, opts.SeedObjectTypes); err != nil {
		reg.Close()
		s.Close()
		return nil, fmt.Errorf("seed object types: %w", err)
	}

	e := &Engine{
		store:    s,
		registry: reg,
		metrics:  opts.Metrics,
		logger:   logger,
	}

	var index service.TagIndex
	if opts.Search {
		dataPath := ""
		if opts.DataPath != "" {
			dataPath = opts.DataPath + "/search"
		}
		e.index, err = search.NewTagIndex(search.Options{DataPath: dataPath, Logger: logger})
		if err != nil {
			e.Close()
			return nil, err
		}
		index = e.index
	}

	v := validation.New()
	e.tags = service.NewTagService(s, v, opts.Events, index, logger)
	e.assignments = service.NewAssignmentService(s, reg, e.tags, opts.Events, logger)
	e.objects = service.NewObjectService(s, reg, v, opts.Events, logger)
	e.types = service.NewTypeService(reg, opts.Events, logger)
	e.queries = service.NewQueryService(e.tags, e.assignments, e.objects, reg)

	return e, nil
}

func openStore(opts Options, logger *slog.Logger) (store.Store, error) {
	if opts.Backend == BackendSQLite {
		if opts.DataPath == "" {
			return nil, fmt.Errorf("sqlite backend requires a data path")
		}
		if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		s, err := sqlite.Open(opts.DataPath+"/taggraph.db", logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	path := ""
	if opts.DataPath != "" {
		path = opts.DataPath + "/badger"
	}
	s, err := badgerdb.Open(badgerdb.Options{Path: path, Logger: logger})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the search index, the registry cache and the store.
func (e *Engine) Close() error {
	var indexErr error
	if e.index != nil {
		indexErr = e.index.Close()
	}
	e.registry.Close()
	if err := e.store.Close(); err != nil {
		return err
	}
	return indexErr
}

// call runs fn and converts its outcome, including a panic, into a Result.
func call[T any](e *Engine, op string, fn func() (T, error)) (res Result[T]) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine operation panicked",
				"op", op,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res = Result[T]{Error: "internal error", Kind: KindInternal}
		}
		if e.metrics != nil {
			e.metrics.ObserveOperation(op, string(res.Kind), time.Since(start))
		}
	}()

	data, err := fn()
	if err != nil {
		return fail[T](err)
	}
	return ok(data)
}

func done(err error) (Empty, error) {
	return Empty{}, err
}

// Type registry.

// GetType returns the active object type with the given slug.
func (e *Engine) GetType(ctx context.Context, slug string) Result[*domain.ObjectType] {
	return call(e, "get_type", func() (*domain.ObjectType, error) {
		return e.types.GetType(ctx, slug)
	})
}

// ListActiveTypes returns active object types ordered by name.
func (e *Engine) ListActiveTypes(ctx context.Context) Result[[]*domain.ObjectType] {
	return call(e, "list_active_types", func() ([]*domain.ObjectType, error) {
		return e.types.ListActiveTypes(ctx)
	})
}

// ListTypes returns every object type, inactive ones included.
func (e *Engine) ListTypes(ctx context.Context) Result[[]*domain.ObjectType] {
	return call(e, "list_types", func() ([]*domain.ObjectType, error) {
		return e.types.ListTypes(ctx)
	})
}

// RegisterType adds an object type. slug is derived from name when empty.
func (e *Engine) RegisterType(ctx context.Context, slug, name, description string) Result[*domain.ObjectType] {
	return call(e, "register_type", func() (*domain.ObjectType, error) {
		return e.types.RegisterType(ctx, slug, name, description)
	})
}

// SetTypeActive enables or disables an object type.
func (e *Engine) SetTypeActive(ctx context.Context, slug string, active bool) Result[*domain.ObjectType] {
	return call(e, "set_type_active", func() (*domain.ObjectType, error) {
		return e.types.SetTypeActive(ctx, slug, active)
	})
}

// ItemTypes returns the registered item types.
func (e *Engine) ItemTypes() []string {
	return e.types.ItemTypes()
}

// RelationshipTypes returns the registered relationship types.
func (e *Engine) RelationshipTypes() []string {
	return e.types.RelationshipTypes()
}

// Tags.

// CreateTag creates a tag. tagType and color may be empty.
func (e *Engine) CreateTag(ctx context.Context, name, tagType, color string) Result[*domain.Tag] {
	return call(e, "create_tag", func() (*domain.Tag, error) {
		return e.tags.CreateTag(ctx, service.CreateTagInput{Name: name, TagType: tagType, Color: color})
	})
}

// ResolvedTag is the outcome of GetOrCreateTag.
type ResolvedTag struct {
	Tag     *domain.Tag `json:"tag"`
	Created bool        `json:"created"`
}

// GetOrCreateTag returns the tag whose slug matches name, creating it when absent.
func (e *Engine) GetOrCreateTag(ctx context.Context, name, tagType string) Result[ResolvedTag] {
	return call(e, "get_or_create_tag", func() (ResolvedTag, error) {
		t, created, err := e.tags.GetOrCreateTag(ctx, name, tagType)
		return ResolvedTag{Tag: t, Created: created}, err
	})
}

func (e *Engine) GetTag(ctx context.Context, tagID string) Result[*domain.Tag] {
	return call(e, "get_tag", func() (*domain.Tag, error) {
		return e.tags.GetTag(ctx, tagID)
	})
}

func (e *Engine) GetTagBySlug(ctx context.Context, slug string) Result[*domain.Tag] {
	return call(e, "get_tag_by_slug", func() (*domain.Tag, error) {
		return e.tags.GetTagBySlug(ctx, slug)
	})
}

// UpdateTag applies upd. A new name re-derives the slug.
func (e *Engine) UpdateTag(ctx context.Context, tagID string, upd domain.TagUpdate) Result[*domain.Tag] {
	return call(e, "update_tag", func() (*domain.Tag, error) {
		return e.tags.UpdateTag(ctx, tagID, upd)
	})
}

// DeleteTag removes the tag and all of its assignments. Deleting a missing tag succeeds.
func (e *Engine) DeleteTag(ctx context.Context, tagID string) Result[Empty] {
	return call(e, "delete_tag", func() (Empty, error) {
		return done(e.tags.DeleteTag(ctx, tagID))
	})
}

// SearchTags matches active tag names by case-insensitive substring.
func (e *Engine) SearchTags(ctx context.Context, query, tagType string, limit int) Result[[]*domain.Tag] {
	return call(e, "search_tags", func() ([]*domain.Tag, error) {
		return e.tags.SearchTags(ctx, store.TagQuery{Query: query, TagType: tagType, Limit: limit})
	})
}

// SuggestTags returns ranked suggestions, falling back to substring search when
// the index is disabled.
func (e *Engine) SuggestTags(ctx context.Context, query, tagType string, limit int) Result[[]search.Suggestion] {
	return call(e, "suggest_tags", func() ([]search.Suggestion, error) {
		return e.tags.SuggestTags(ctx, query, tagType, limit)
	})
}

// ReindexTags rebuilds the suggestion index from the store.
func (e *Engine) ReindexTags(ctx context.Context) Result[int] {
	return call(e, "reindex_tags", func() (int, error) {
		return e.tags.ReindexTags(ctx)
	})
}

// Assignments.

// AssignTag attaches the tag to the item. Assigning twice is a no-op.
func (e *Engine) AssignTag(ctx context.Context, tagID, itemID, itemType string) Result[*domain.TagAssignment] {
	return call(e, "assign_tag", func() (*domain.TagAssignment, error) {
		return e.assignments.AssignTag(ctx, tagID, domain.ItemRef{ID: itemID, Type: itemType})
	})
}

// UnassignTag detaches the tag from the item. A missing edge is a no-op.
func (e *Engine) UnassignTag(ctx context.Context, tagID, itemID, itemType string) Result[Empty] {
	return call(e, "unassign_tag", func() (Empty, error) {
		return done(e.assignments.UnassignTag(ctx, tagID, domain.ItemRef{ID: itemID, Type: itemType}))
	})
}

// SetItemTags makes the item's tags equal tagIDs.
func (e *Engine) SetItemTags(ctx context.Context, itemID, itemType string, tagIDs []string) Result[*service.SetItemTagsResult] {
	return call(e, "set_item_tags", func() (*service.SetItemTagsResult, error) {
		return e.assignments.SetItemTags(ctx, domain.ItemRef{ID: itemID, Type: itemType}, tagIDs)
	})
}

// GetItemTags returns the item's tags in assignment order.
func (e *Engine) GetItemTags(ctx context.Context, itemID, itemType string) Result[[]*domain.Tag] {
	return call(e, "get_item_tags", func() ([]*domain.Tag, error) {
		return e.assignments.ItemTags(ctx, domain.ItemRef{ID: itemID, Type: itemType})
	})
}

// GetItemsByTag returns items carrying the tag. itemType may be empty.
func (e *Engine) GetItemsByTag(ctx context.Context, tagID, itemType string, limit int) Result[[]domain.ItemRef] {
	return call(e, "get_items_by_tag", func() ([]domain.ItemRef, error) {
		return e.assignments.ItemsByTag(ctx, tagID, itemType, limit)
	})
}

// ClearItemTags removes every tag from a deleted item.
func (e *Engine) ClearItemTags(ctx context.Context, itemID, itemType string) Result[int] {
	return call(e, "clear_item_tags", func() (int, error) {
		return e.assignments.ClearItemTags(ctx, domain.ItemRef{ID: itemID, Type: itemType})
	})
}

// RecountUsage recomputes usage counts and returns how many were corrected.
func (e *Engine) RecountUsage(ctx context.Context) Result[int] {
	return call(e, "recount_usage", func() (int, error) {
		return e.assignments.RecountUsage(ctx)
	})
}

// Objects.

// CreateObject creates an active object. typeRef is a type slug or ID.
func (e *Engine) CreateObject(ctx context.Context, typeRef, ownerID, name, organizationID string) Result[*domain.Object] {
	return call(e, "create_object", func() (*domain.Object, error) {
		return e.objects.CreateObject(ctx, service.CreateObjectInput{
			TypeID:         typeRef,
			OwnerID:        ownerID,
			OrganizationID: organizationID,
			Name:           name,
		})
	})
}

func (e *Engine) GetObject(ctx context.Context, objectID string) Result[*domain.Object] {
	return call(e, "get_object", func() (*domain.Object, error) {
		return e.objects.GetObject(ctx, objectID)
	})
}

func (e *Engine) UpdateObject(ctx context.Context, objectID string, upd domain.ObjectUpdate) Result[*domain.Object] {
	return call(e, "update_object", func() (*domain.Object, error) {
		return e.objects.UpdateObject(ctx, objectID, upd)
	})
}

// DeleteObject marks the object deleted and removes its relationships.
func (e *Engine) DeleteObject(ctx context.Context, objectID string) Result[Empty] {
	return call(e, "delete_object", func() (Empty, error) {
		return done(e.objects.DeleteObject(ctx, objectID))
	})
}

// LinkObjects creates a typed edge from source to target.
func (e *Engine) LinkObjects(ctx context.Context, sourceID, targetID, relType string) Result[*domain.ObjectRelationship] {
	return call(e, "link_objects", func() (*domain.ObjectRelationship, error) {
		return e.objects.LinkObjects(ctx, sourceID, targetID, relType)
	})
}

// UnlinkObjects removes the edge if present.
func (e *Engine) UnlinkObjects(ctx context.Context, sourceID, targetID, relType string) Result[Empty] {
	return call(e, "unlink_objects", func() (Empty, error) {
		return done(e.objects.UnlinkObjects(ctx, sourceID, targetID, relType))
	})
}

// GetRelationships returns edges touching the object joined with the other end.
func (e *Engine) GetRelationships(ctx context.Context, objectID string, dir domain.Direction, relType string) Result[[]*domain.RelationshipView] {
	return call(e, "get_relationships", func() ([]*domain.RelationshipView, error) {
		return e.objects.Relationships(ctx, objectID, dir, relType)
	})
}

// GetRelatedObjects returns the targets of the object's outgoing edges.
func (e *Engine) GetRelatedObjects(ctx context.Context, objectID, relType string) Result[[]*domain.Object] {
	return call(e, "get_related_objects", func() ([]*domain.Object, error) {
		return e.objects.RelatedObjects(ctx, objectID, relType)
	})
}

// Projections.

func (e *Engine) PopularTags(ctx context.Context, tagType string, limit int) Result[[]*domain.Tag] {
	return call(e, "popular_tags", func() ([]*domain.Tag, error) {
		return e.queries.PopularTags(ctx, tagType, limit)
	})
}

func (e *Engine) ItemsByTag(ctx context.Context, tagID, itemType string, limit int) Result[*service.ItemsByTagView] {
	return call(e, "items_by_tag", func() (*service.ItemsByTagView, error) {
		return e.queries.ItemsByTag(ctx, tagID, itemType, limit)
	})
}

func (e *Engine) RelatedObjects(ctx context.Context, objectID, relType string) Result[*service.RelatedObjectsView] {
	return call(e, "related_objects", func() (*service.RelatedObjectsView, error) {
		return e.queries.RelatedObjects(ctx, objectID, relType)
	})
}

func (e *Engine) ObjectsByType(ctx context.Context, typeRef, organizationID string, limit int) Result[*service.ObjectsByTypeView] {
	return call(e, "objects_by_type", func() (*service.ObjectsByTypeView, error) {
		return e.queries.ObjectsByType(ctx, typeRef, organizationID, limit)
	})
}
