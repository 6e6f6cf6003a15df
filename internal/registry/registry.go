// Package registry resolves object types and validates the item and relationship
// types that tag assignments and relationships may carry.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/kaziapp/taggraph/internal/domain"
	domainerrors "github.com/kaziapp/taggraph/internal/errors"
	"github.com/kaziapp/taggraph/internal/id"
	"github.com/kaziapp/taggraph/internal/store"
	"github.com/kaziapp/taggraph/internal/util"
)

// DefaultItemTypes are the record kinds other modules tag.
var DefaultItemTypes = []string{
	"budget", "client", "contact", "event", "file", "invoice", "license",
	"location", "note", "plugin", "project", "seo_tool", "task", "template", "tutorial",
}

// DefaultRelationshipTypes are the edge kinds allowed between objects.
var DefaultRelationshipTypes = []string{
	"attached-to", "belongs-to", "blocks", "child-of", "depends-on",
	"duplicates", "parent-of", "references", "related-to",
}

var itemTypeRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

const defaultCacheTTL = 5 * time.Minute

// Options configures a Registry.
type Options struct {
	// ExtraItemTypes extend DefaultItemTypes.
	ExtraItemTypes []string
	// ExtraRelationshipTypes extend DefaultRelationshipTypes.
	ExtraRelationshipTypes []string
	CacheTTL               time.Duration
}

// Registry is the read-mostly catalog of object, item and relationship types.
type Registry struct {
	store  store.ObjectTypeStore
	logger *slog.Logger

	cache    *ristretto.Cache[string, *domain.ObjectType]
	cacheTTL time.Duration
	group    singleflight.Group

	// gen advances on every invalidation. Loads that started under an older
	// generation are returned to their callers but never cached.
	genMu sync.RWMutex
	gen   uint64

	mu        sync.RWMutex
	itemTypes map[string]struct{}
	relTypes  map[string]struct{}
}

// New creates a Registry backed by s.
func New(s store.ObjectTypeStore, opts Options, logger *slog.Logger) (*Registry, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *domain.ObjectType]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create type cache: %w", err)
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	r := &Registry{
		store:     s,
		logger:    logger,
		cache:     cache,
		cacheTTL:  ttl,
		itemTypes: make(map[string]struct{}),
		relTypes:  make(map[string]struct{}),
	}

	for _, t := range slices.Concat(DefaultItemTypes, opts.ExtraItemTypes) {
		if err := r.AddItemType(t); err != nil {
			cache.Close()
			return nil, err
		}
	}
	for _, t := range slices.Concat(DefaultRelationshipTypes, opts.ExtraRelationshipTypes) {
		if err := r.AddRelationshipType(t); err != nil {
			cache.Close()
			return nil, err
		}
	}

	return r, nil
}

// Close releases the cache.
func (r *Registry) Close() {
	r.cache.Close()
}

// GetType returns the object type registered under slug, active or not.
func (r *Registry) GetType(ctx context.Context, slug string) (*domain.ObjectType, error) {
	return r.lookup(ctx, "slug:"+slug, func() (*domain.ObjectType, error) {
		return r.store.GetObjectTypeBySlug(ctx, slug)
	})
}

// GetTypeByID returns the object type with the given ID, active or not.
func (r *Registry) GetTypeByID(ctx context.Context, typeID string) (*domain.ObjectType, error) {
	return r.lookup(ctx, "id:"+typeID, func() (*domain.ObjectType, error) {
		return r.store.GetObjectType(ctx, typeID)
	})
}

// ResolveActiveType accepts a type ID or slug and fails with NotFound unless
// the type exists and is active.
func (r *Registry) ResolveActiveType(ctx context.Context, ref string) (*domain.ObjectType, error) {
	t, err := r.GetTypeByID(ctx, ref)
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		t, err = r.GetType(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, domainerrors.NotFound("object type not found")
	}
	return t, nil
}

// lookup serves from cache, coalescing concurrent misses for the same key.
func (r *Registry) lookup(ctx context.Context, cacheKey string, load func() (*domain.ObjectType, error)) (*domain.ObjectType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t, ok := r.cache.Get(cacheKey); ok {
		return copyType(t), nil
	}

	r.genMu.RLock()
	gen := r.gen
	r.genMu.RUnlock()

	v, err, _ := r.group.Do(fmt.Sprintf("%d/%s", gen, cacheKey), func() (any, error) {
		if t, ok := r.cache.Get(cacheKey); ok {
			return t, nil
		}
		t, err := load()
		if err != nil {
			return nil, err
		}

		r.genMu.RLock()
		if r.gen == gen {
			r.cache.SetWithTTL(cacheKey, t, 1, r.cacheTTL)
		}
		r.genMu.RUnlock()
		return t, nil
	})
	if err != nil {
		return nil, mapStoreError(err, "failed to load object type")
	}

	t, ok := v.(*domain.ObjectType)
	if !ok {
		return nil, domainerrors.Internal("unexpected cache value")
	}
	return copyType(t), nil
}

// invalidate drops every cached type and fences off loads still in flight.
func (r *Registry) invalidate() {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	r.gen++
	r.cache.Clear()
}

// ListActiveTypes returns active types ordered alphabetically by name.
func (r *Registry) ListActiveTypes(ctx context.Context) ([]*domain.ObjectType, error) {
	all, err := r.ListTypes(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]*domain.ObjectType, 0, len(all))
	for _, t := range all {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

// ListTypes returns every registered type ordered by name.
func (r *Registry) ListTypes(ctx context.Context) ([]*domain.ObjectType, error) {
	types, err := r.store.ListObjectTypes(ctx)
	if err != nil {
		return nil, mapStoreError(err, "failed to list object types")
	}
	slices.SortStableFunc(types, func(a, b *domain.ObjectType) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Slug, b.Slug)
	})
	return types, nil
}

// RegisterType adds a new active object type. The slug is derived from slug
// (or name when slug is empty).
func (r *Registry) RegisterType(ctx context.Context, slug, name, description string) (*domain.ObjectType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainerrors.Validation("type name is required")
	}
	if slug == "" {
		slug = name
	}
	slug = util.Slugify(slug)
	if slug == "" {
		return nil, domainerrors.Validation("type slug is empty")
	}

	t := &domain.ObjectType{
		ID:          id.MustGenerate(id.PrefixObjectType),
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
	}
	t.InitTimestamps()

	if err := r.store.CreateObjectType(ctx, t); err != nil {
		return nil, mapStoreError(err, "failed to register object type")
	}

	if r.logger != nil {
		r.logger.Info("object type registered", "type_id", t.ID, "slug", t.Slug)
	}
	return t, nil
}

// EnsureTypes registers every slug in slugs that is not yet known.
// The display name is the slug with dashes turned into spaces and title-cased.
func (r *Registry) EnsureTypes(ctx context.Context, slugs []string) error {
	for _, slug := range slugs {
		slug = util.Slugify(slug)
		if slug == "" {
			continue
		}
		_, err := r.GetType(ctx, slug)
		if err == nil {
			continue
		}
		if !domainerrors.Is(err, domainerrors.ErrNotFound) {
			return err
		}
		_, err = r.RegisterType(ctx, slug, displayName(slug), "")
		if err != nil && !domainerrors.Is(err, domainerrors.ErrConflict) {
			return err
		}
	}
	r.invalidate()
	return nil
}

// SetTypeActive enables or disables a type for new objects.
func (r *Registry) SetTypeActive(ctx context.Context, slug string, active bool) (*domain.ObjectType, error) {
	t, err := r.store.SetObjectTypeActive(ctx, slug, active)
	if err != nil {
		return nil, mapStoreError(err, "failed to update object type")
	}
	r.invalidate()

	if r.logger != nil {
		r.logger.Info("object type updated", "slug", slug, "is_active", active)
	}
	return t, nil
}

// AddItemType registers an additional item type.
func (r *Registry) AddItemType(itemType string) error {
	if !itemTypeRe.MatchString(itemType) {
		return domainerrors.Validationf("invalid item type %q", itemType)
	}
	r.mu.Lock()
	r.itemTypes[itemType] = struct{}{}
	r.mu.Unlock()
	return nil
}

// AddRelationshipType registers an additional relationship type.
func (r *Registry) AddRelationshipType(relType string) error {
	if !util.IsSlug(relType) {
		return domainerrors.Validationf("invalid relationship type %q", relType)
	}
	r.mu.Lock()
	r.relTypes[relType] = struct{}{}
	r.mu.Unlock()
	return nil
}

// ValidateItemType fails with a validation error unless itemType is registered.
func (r *Registry) ValidateItemType(itemType string) error {
	r.mu.RLock()
	_, ok := r.itemTypes[itemType]
	r.mu.RUnlock()
	if !ok {
		return domainerrors.Validationf("invalid item type %q", itemType)
	}
	return nil
}

// ValidateRelationshipType fails with a validation error unless relType is registered.
func (r *Registry) ValidateRelationshipType(relType string) error {
	r.mu.RLock()
	_, ok := r.relTypes[relType]
	r.mu.RUnlock()
	if !ok {
		return domainerrors.Validationf("invalid relationship type %q", relType)
	}
	return nil
}

// ItemTypes returns the registered item types, sorted.
func (r *Registry) ItemTypes() []string {
	return r.sortedKeys(r.itemTypes)
}

// RelationshipTypes returns the registered relationship types, sorted.
func (r *Registry) RelationshipTypes() []string {
	return r.sortedKeys(r.relTypes)
}

func (r *Registry) sortedKeys(m map[string]struct{}) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func copyType(t *domain.ObjectType) *domain.ObjectType {
	c := *t
	return &c
}

func displayName(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// mapStoreError converts store sentinels into domain errors. msg describes a
// storage failure.
func mapStoreError(err error, msg string) error {
	switch {
	case domainerrors.As(err, new(*domainerrors.Error)):
		return err
	case domainerrors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound("object type not found")
	case domainerrors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Conflict("object type already exists")
	default:
		return domainerrors.Persistence(err, msg)
	}
}
