package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaziapp/taggraph/internal/color"
	"github.com/kaziapp/taggraph/internal/domain"
	domainerrors "github.com/kaziapp/taggraph/internal/errors"
	"github.com/kaziapp/taggraph/internal/sse"
	"github.com/kaziapp/taggraph/internal/store"
)

func TestTagService_CreateTag_SlugConflict(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()

		first, err := env.tags.CreateTag(ctx, CreateTagInput{Name: "Web Development", TagType: "skill", Color: "#FF8800"})
		require.NoError(t, err)
		assert.Equal(t, "web-development", first.Slug)
		assert.Equal(t, "#ff8800", first.Color)
		assert.Equal(t, 0, first.UsageCount)
		assert.True(t, first.IsActive)

		_, err = env.tags.CreateTag(ctx, CreateTagInput{Name: "Web   Development"})
		require.Error(t, err)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))

		all, err := env.tags.ListTags(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.Equal(t, []sse.EventType{sse.EventTagCreated}, env.events.types())
	})
}

func TestTagService_CreateTag_DefaultColor(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		tag, err := env.tags.CreateTag(context.Background(), CreateTagInput{Name: "Urgent"})
		require.NoError(t, err)
		assert.Equal(t, color.ForSlug("urgent"), tag.Color)
	})
}

func TestTagService_CreateTag_Validation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()

		cases := map[string]CreateTagInput{
			"empty name":    {Name: "   "},
			"no slug":       {Name: "!!!"},
			"bad color":     {Name: "Color", Color: "orange"},
			"bad tag type":  {Name: "Typed", TagType: "Not A Slug"},
			"name too long": {Name: strings.Repeat("a", 101)},
		}
		for name, in := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := env.tags.CreateTag(ctx, in)
				require.Error(t, err)
				assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
			})
		}
	})
}

func TestTagService_GetOrCreateTag(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()

		tag, created, err := env.tags.GetOrCreateTag(ctx, "Client Work", "")
		require.NoError(t, err)
		assert.True(t, created)

		again, created, err := env.tags.GetOrCreateTag(ctx, "client_work", "")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, tag.ID, again.ID)
	})
}

func TestTagService_GetOrCreateTag_Race(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		const n = 10

		var wg sync.WaitGroup
		got := make([]string, n)
		errs := make([]error, n)
		for i := range n {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tag, _, err := env.tags.GetOrCreateTag(ctx, "Urgent", "")
				errs[i] = err
				if tag != nil {
					got[i] = tag.ID
				}
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
		for _, id := range got {
			assert.Equal(t, got[0], id)
		}

		all, err := env.tags.ListTags(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestTagService_GetTag(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		tag := env.tag(t, "Backlog")

		bySlug, err := env.tags.GetTagBySlug(ctx, "  BACKLOG ")
		require.NoError(t, err)
		assert.Equal(t, tag.ID, bySlug.ID)

		_, err = env.tags.GetTag(ctx, "tag-missing")
		assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

		_, err = env.tags.GetTagBySlug(ctx, "???")
		assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
	})
}

func TestTagService_UpdateTag(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		tag := env.tag(t, "Design")
		other := env.tag(t, "Research")
		_, err := env.assignments.AssignTag(ctx, tag.ID, task("t1"))
		require.NoError(t, err)

		name := "Visual Design"
		inactive := false
		updated, err := env.tags.UpdateTag(ctx, tag.ID, domain.TagUpdate{Name: &name, IsActive: &inactive})
		require.NoError(t, err)
		assert.Equal(t, "visual-design", updated.Slug)
		assert.False(t, updated.IsActive)
		assert.Equal(t, 1, updated.UsageCount)

		taken := "research"
		_, err = env.tags.UpdateTag(ctx, tag.ID, domain.TagUpdate{Name: &taken})
		assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))

		same, err := env.tags.UpdateTag(ctx, other.ID, domain.TagUpdate{})
		require.NoError(t, err)
		assert.Equal(t, other.Slug, same.Slug)

		_, err = env.tags.UpdateTag(ctx, "tag-missing", domain.TagUpdate{Name: &name})
		assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

		empty := ""
		_, err = env.tags.UpdateTag(ctx, tag.ID, domain.TagUpdate{Name: &empty})
		assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
	})
}

func TestTagService_DeleteTag_Cascades(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		tag := env.tag(t, "Legacy")
		keep := env.tag(t, "Keep")

		items := []domain.ItemRef{task("t1"), task("t2"), {ID: "p1", Type: "project"}}
		for _, item := range items {
			_, err := env.assignments.AssignTag(ctx, tag.ID, item)
			require.NoError(t, err)
		}
		_, err := env.assignments.AssignTag(ctx, keep.ID, task("t1"))
		require.NoError(t, err)
		assert.Equal(t, 3, env.usage(t, tag.ID))

		require.NoError(t, env.tags.DeleteTag(ctx, tag.ID))

		_, err = env.tags.GetTag(ctx, tag.ID)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
		for _, item := range items {
			got, err := env.assignments.ItemTags(ctx, item)
			require.NoError(t, err)
			assert.NotContains(t, tagIDs(got), tag.ID)
		}
		assert.Equal(t, 1, env.usage(t, keep.ID))

		// Deleting again is a no-op.
		require.NoError(t, env.tags.DeleteTag(ctx, tag.ID))
	})
}

func TestTagService_SearchAndPopular(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		a := env.tag(t, "Alpha Web")
		b := env.tag(t, "Beta Web")
		c := env.tag(t, "Gamma")

		for i, item := range []string{"t1", "t2", "t3"} {
			_, err := env.assignments.AssignTag(ctx, b.ID, task(item))
			require.NoError(t, err)
			if i == 0 {
				_, err = env.assignments.AssignTag(ctx, c.ID, task(item))
				require.NoError(t, err)
			}
		}

		found, err := env.tags.SearchTags(ctx, store.TagQuery{Query: "WEB"})
		require.NoError(t, err)
		assert.Equal(t, []string{a.ID, b.ID}, tagIDs(found))

		popular, err := env.tags.PopularTags(ctx, "", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID, c.ID}, tagIDs(popular))
	})
}

func TestTagService_SuggestTags(t *testing.T) {
	ctx := context.Background()

	t.Run("with index", func(t *testing.T) {
		env := newTestEnv(t, backends["badger"](t), newMemIndex(t))

		urgent := env.tag(t, "Urgent")
		env.tag(t, "Backlog")

		got, err := env.tags.SuggestTags(ctx, "urg", "", 5)
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Equal(t, urgent.ID, got[0].ID)

		_, err = env.assignments.AssignTag(ctx, urgent.ID, task("t1"))
		require.NoError(t, err)
		got, err = env.tags.SuggestTags(ctx, "urg", "", 5)
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Equal(t, 1, got[0].UsageCount)

		require.NoError(t, env.tags.DeleteTag(ctx, urgent.ID))
		got, err = env.tags.SuggestTags(ctx, "urg", "", 5)
		require.NoError(t, err)
		assert.Empty(t, got)

		n, err := env.tags.ReindexTags(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("without index", func(t *testing.T) {
		env := newTestEnv(t, backends["badger"](t), nil)
		urgent := env.tag(t, "Urgent")

		got, err := env.tags.SuggestTags(ctx, "urg", "", 5)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, urgent.ID, got[0].ID)

		n, err := env.tags.ReindexTags(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
