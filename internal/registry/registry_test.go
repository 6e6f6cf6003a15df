package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaziapp/taggraph/internal/domain"
	domainerrors "github.com/kaziapp/taggraph/internal/errors"
	"github.com/kaziapp/taggraph/internal/store"
	"github.com/kaziapp/taggraph/internal/store/badgerdb"
)

func newTestRegistry(t *testing.T, opts Options) *Registry {
	t.Helper()
	s, err := badgerdb.Open(badgerdb.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	r, err := New(s, opts, nil)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestGetType(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Options{})

	created, err := r.RegisterType(ctx, "", "Project", "Client projects")
	require.NoError(t, err)
	assert.Equal(t, "project", created.Slug)
	assert.True(t, created.IsActive)

	got, err := r.GetType(ctx, "project")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = r.GetType(ctx, "spaceship")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestRegisterType_Duplicate(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Options{})

	_, err := r.RegisterType(ctx, "client", "Client", "")
	require.NoError(t, err)

	_, err = r.RegisterType(ctx, "client", "Customer", "")
	assert.Equal(t, domainerrors.CodeConflict, domainerrors.CodeOf(err))

	_, err = r.RegisterType(ctx, "", "  ", "")
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestListActiveTypes_SortedAndFiltered(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Options{})

	for _, name := range []string{"Task", "budget", "Client", "Location"} {
		_, err := r.RegisterType(ctx, "", name, "")
		require.NoError(t, err)
	}
	_, err := r.SetTypeActive(ctx, "location", false)
	require.NoError(t, err)

	types, err := r.ListActiveTypes(ctx)
	require.NoError(t, err)

	var names []string
	for _, ot := range types {
		names = append(names, ot.Name)
	}
	assert.Equal(t, []string{"budget", "Client", "Task"}, names)
}

func TestResolveActiveType(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Options{})

	ot, err := r.RegisterType(ctx, "project", "Project", "")
	require.NoError(t, err)

	byID, err := r.ResolveActiveType(ctx, ot.ID)
	require.NoError(t, err)
	assert.Equal(t, "project", byID.Slug)

	bySlug, err := r.ResolveActiveType(ctx, "project")
	require.NoError(t, err)
	assert.Equal(t, ot.ID, bySlug.ID)

	_, err = r.SetTypeActive(ctx, "project", false)
	require.NoError(t, err)

	_, err = r.ResolveActiveType(ctx, ot.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

// pausingTypes holds the first slug lookup open until release is closed.
type pausingTypes struct {
	store.ObjectTypeStore
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (p *pausingTypes) GetObjectTypeBySlug(ctx context.Context, slug string) (*domain.ObjectType, error) {
	t, err := p.ObjectTypeStore.GetObjectTypeBySlug(ctx, slug)
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.loaded)
		<-p.release
	}
	return t, err
}

func TestSetTypeActive_InFlightLookupNotCached(t *testing.T) {
	ctx := context.Background()
	s, err := badgerdb.Open(badgerdb.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	types := &pausingTypes{ObjectTypeStore: s, loaded: make(chan struct{}), release: make(chan struct{})}
	r, err := New(types, Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(r.Close)

	_, err = r.RegisterType(ctx, "project", "Project", "")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		got, err := r.GetType(ctx, "project")
		assert.NoError(t, err)
		assert.True(t, got.IsActive)
	}()

	<-types.loaded
	_, err = r.SetTypeActive(ctx, "project", false)
	require.NoError(t, err)
	close(types.release)
	<-done
	r.cache.Wait()

	got, err := r.GetType(ctx, "project")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = r.ResolveActiveType(ctx, "project")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestEnsureTypes(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Options{})

	require.NoError(t, r.EnsureTypes(ctx, []string{"project", "seo-tool", "project"}))
	require.NoError(t, r.EnsureTypes(ctx, []string{"project"}))

	types, err := r.ListTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Project", types[0].Name)
	assert.Equal(t, "Seo Tool", types[1].Name)
}

func TestGetType_ConcurrentLookups(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Options{})

	ot, err := r.RegisterType(ctx, "project", "Project", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.GetType(ctx, "project")
			assert.NoError(t, err)
			assert.Equal(t, ot.ID, got.ID)
		}()
	}
	wg.Wait()
}

func TestGetType_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, Options{})
	_, err := r.RegisterType(ctx, "project", "Project", "")
	require.NoError(t, err)

	first, err := r.GetType(ctx, "project")
	require.NoError(t, err)
	first.Name = "mutated"

	second, err := r.GetType(ctx, "project")
	require.NoError(t, err)
	assert.Equal(t, "Project", second.Name)
}

func TestValidateItemType(t *testing.T) {
	r := newTestRegistry(t, Options{ExtraItemTypes: []string{"proposal"}})

	assert.NoError(t, r.ValidateItemType("task"))
	assert.NoError(t, r.ValidateItemType("seo_tool"))
	assert.NoError(t, r.ValidateItemType("proposal"))

	err := r.ValidateItemType("spaceship")
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
	assert.Error(t, r.ValidateItemType(""))
	assert.Error(t, r.ValidateItemType("Task"))
}

func TestValidateRelationshipType(t *testing.T) {
	r := newTestRegistry(t, Options{ExtraRelationshipTypes: []string{"invoiced-by"}})

	assert.NoError(t, r.ValidateRelationshipType("parent-of"))
	assert.NoError(t, r.ValidateRelationshipType("invoiced-by"))
	assert.Error(t, r.ValidateRelationshipType("loves"))
	assert.Contains(t, r.RelationshipTypes(), "invoiced-by")
}

func TestNew_RejectsMalformedExtras(t *testing.T) {
	s, err := badgerdb.Open(badgerdb.Options{})
	require.NoError(t, err)
	defer s.Close()

	_, err = New(s, Options{ExtraRelationshipTypes: []string{"Not Valid"}}, nil)
	assert.Error(t, err)

	_, err = New(s, Options{ExtraItemTypes: []string{"has-dash"}}, nil)
	assert.Error(t, err)
}
