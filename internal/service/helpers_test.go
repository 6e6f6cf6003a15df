package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/registry"
	"github.com/kaziapp/taggraph/internal/search"
	"github.com/kaziapp/taggraph/internal/sse"
	"github.com/kaziapp/taggraph/internal/store"
	"github.com/kaziapp/taggraph/internal/store/badgerdb"
	"github.com/kaziapp/taggraph/internal/store/sqlite"
	"github.com/kaziapp/taggraph/internal/validation"
)

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recorder) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type testEnv struct {
	store       store.Store
	registry    *registry.Registry
	events      *recorder
	tags        *TagService
	assignments *AssignmentService
	objects     *ObjectService
	types       *TypeService
	queries     *QueryService
}

type opener func(t *testing.T) store.Store

var backends = map[string]opener{
	"sqlite": func(t *testing.T) store.Store {
		s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		return s
	},
	"badger": func(t *testing.T) store.Store {
		s, err := badgerdb.Open(badgerdb.Options{})
		require.NoError(t, err)
		return s
	},
}

// forEachBackend runs fn against a fresh environment for every store backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	t.Helper()
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, newTestEnv(t, open(t), nil))
		})
	}
}

func newTestEnv(t *testing.T, s store.Store, index TagIndex) *testEnv {
	t.Helper()
	t.Cleanup(func() { _ = s.Close() })

	reg, err := registry.New(s, registry.Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	require.NoError(t, reg.EnsureTypes(context.Background(), []string{"project", "client"}))

	events := &recorder{}
	v := validation.New()
	tags := NewTagService(s, v, events, index, nil)
	assignments := NewAssignmentService(s, reg, tags, events, nil)
	objects := NewObjectService(s, reg, v, events, nil)

	return &testEnv{
		store:       s,
		registry:    reg,
		events:      events,
		tags:        tags,
		assignments: assignments,
		objects:     objects,
		types:       NewTypeService(reg, events, nil),
		queries:     NewQueryService(tags, assignments, objects, reg),
	}
}

func newMemIndex(t *testing.T) *search.TagIndex {
	t.Helper()
	idx, err := search.NewTagIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func (env *testEnv) tag(t *testing.T, name string) *domain.Tag {
	t.Helper()
	tag, err := env.tags.CreateTag(context.Background(), CreateTagInput{Name: name})
	require.NoError(t, err)
	return tag
}

func (env *testEnv) object(t *testing.T, typeSlug, name, org string) *domain.Object {
	t.Helper()
	o, err := env.objects.CreateObject(context.Background(), CreateObjectInput{
		TypeID:         typeSlug,
		OwnerID:        "user-1",
		OrganizationID: org,
		Name:           name,
	})
	require.NoError(t, err)
	return o
}

func (env *testEnv) usage(t *testing.T, tagID string) int {
	t.Helper()
	tag, err := env.tags.GetTag(context.Background(), tagID)
	require.NoError(t, err)
	return tag.UsageCount
}

func task(id string) domain.ItemRef {
	return domain.ItemRef{ID: id, Type: "task"}
}

func tagIDs(tags []*domain.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.ID
	}
	return out
}
