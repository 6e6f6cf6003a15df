package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/kaziapp/taggraph/internal/domain"
	domainerrors "github.com/kaziapp/taggraph/internal/errors"
	"github.com/kaziapp/taggraph/internal/sse"
	"github.com/kaziapp/taggraph/internal/store"
)

func TestAssignmentService_AssignTag_Idempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		tag := env.tag(t, "Urgent")
		env.events.reset()

		first, err := env.assignments.AssignTag(ctx, tag.ID, task("t1"))
		require.NoError(t, err)
		second, err := env.assignments.AssignTag(ctx, tag.ID, task("t1"))
		require.NoError(t, err)

		assert.Equal(t, first.TagID, second.TagID)
		assert.Equal(t, 1, env.usage(t, tag.ID))
		assert.Equal(t, []sse.EventType{sse.EventTagAssigned}, env.events.types())
	})
}

func TestAssignmentService_AssignTag_Errors(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		tag := env.tag(t, "Urgent")

		_, err := env.assignments.AssignTag(ctx, "tag-missing", task("t1"))
		assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

		_, err = env.assignments.AssignTag(ctx, tag.ID, domain.ItemRef{ID: "t1", Type: "spaceship"})
		assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

		_, err = env.assignments.AssignTag(ctx, tag.ID, domain.ItemRef{ID: "", Type: "task"})
		assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

		_, err = env.assignments.AssignTag(ctx, tag.ID, domain.ItemRef{ID: "has space", Type: "task"})
		assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

		assert.Equal(t, 0, env.usage(t, tag.ID))
	})
}

func TestAssignmentService_UnassignTag_FloorsAtZero(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		tag := env.tag(t, "Urgent")

		require.NoError(t, env.assignments.UnassignTag(ctx, tag.ID, task("t1")))
		assert.Equal(t, 0, env.usage(t, tag.ID))

		_, err := env.assignments.AssignTag(ctx, tag.ID, task("t1"))
		require.NoError(t, err)
		env.events.reset()

		require.NoError(t, env.assignments.UnassignTag(ctx, tag.ID, task("t1")))
		require.NoError(t, env.assignments.UnassignTag(ctx, tag.ID, task("t1")))
		assert.Equal(t, 0, env.usage(t, tag.ID))
		assert.Equal(t, []sse.EventType{sse.EventTagUnassigned}, env.events.types())
	})
}

func TestAssignmentService_SetItemTags_Diff(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		a := env.tag(t, "A")
		b := env.tag(t, "B")
		c := env.tag(t, "C")
		item := task("t1")

		_, err := env.assignments.SetItemTags(ctx, item, []string{a.ID, b.ID})
		require.NoError(t, err)

		res, err := env.assignments.SetItemTags(ctx, item, []string{b.ID, c.ID, c.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID}, res.Added)
		assert.Equal(t, []string{a.ID}, res.Removed)
		assert.ElementsMatch(t, []string{b.ID, c.ID}, tagIDs(res.Tags))

		assert.Equal(t, 0, env.usage(t, a.ID))
		assert.Equal(t, 1, env.usage(t, b.ID))
		assert.Equal(t, 1, env.usage(t, c.ID))

		env.events.reset()
		res, err = env.assignments.SetItemTags(ctx, item, []string{c.ID, b.ID})
		require.NoError(t, err)
		assert.Empty(t, res.Added)
		assert.Empty(t, res.Removed)
		assert.Empty(t, env.events.types())
	})
}

func TestAssignmentService_SetItemTags_UnknownTagChangesNothing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		a := env.tag(t, "A")
		b := env.tag(t, "B")
		item := task("t1")

		_, err := env.assignments.AssignTag(ctx, a.ID, item)
		require.NoError(t, err)

		_, err = env.assignments.SetItemTags(ctx, item, []string{b.ID, "tag-missing"})
		assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

		got, err := env.assignments.ItemTags(ctx, item)
		require.NoError(t, err)
		assert.Equal(t, []string{a.ID}, tagIDs(got))
		assert.Equal(t, 1, env.usage(t, a.ID))
		assert.Equal(t, 0, env.usage(t, b.ID))
	})
}

func TestAssignmentService_SetItemTags_RejectsOversizedSet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		a := env.tag(t, "A")
		item := task("t1")

		ids := make([]string, 0, store.MaxItemTags+1)
		for i := range store.MaxItemTags + 1 {
			ids = append(ids, fmt.Sprintf("tag-%d", i))
		}

		_, err := env.assignments.SetItemTags(ctx, item, append(ids, a.ID))
		assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
		assert.Equal(t, 0, env.usage(t, a.ID))
	})
}

func TestAssignmentService_ItemTagsInAssignmentOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		z := env.tag(t, "Zeta")
		a := env.tag(t, "Alpha")
		m := env.tag(t, "Mu")

		for _, tag := range []*domain.Tag{m, z, a} {
			_, err := env.assignments.AssignTag(ctx, tag.ID, task("t1"))
			require.NoError(t, err)
		}

		got, err := env.assignments.ItemTags(ctx, task("t1"))
		require.NoError(t, err)
		assert.Equal(t, []string{m.ID, z.ID, a.ID}, tagIDs(got))

		none, err := env.assignments.ItemTags(ctx, task("untagged"))
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestAssignmentService_ItemsByTag(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		tag := env.tag(t, "Urgent")

		items := []domain.ItemRef{task("t1"), {ID: "p1", Type: "project"}, task("t2")}
		for _, item := range items {
			_, err := env.assignments.AssignTag(ctx, tag.ID, item)
			require.NoError(t, err)
		}

		got, err := env.assignments.ItemsByTag(ctx, tag.ID, "", 0)
		require.NoError(t, err)
		assert.Equal(t, items, got)

		tasks, err := env.assignments.ItemsByTag(ctx, tag.ID, "task", 1)
		require.NoError(t, err)
		assert.Equal(t, []domain.ItemRef{task("t1")}, tasks)

		_, err = env.assignments.ItemsByTag(ctx, "tag-missing", "", 0)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

		_, err = env.assignments.ItemsByTag(ctx, tag.ID, "spaceship", 0)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
	})
}

func TestAssignmentService_ClearItemTags(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		a := env.tag(t, "A")
		b := env.tag(t, "B")

		_, err := env.assignments.SetItemTags(ctx, task("t1"), []string{a.ID, b.ID})
		require.NoError(t, err)
		_, err = env.assignments.AssignTag(ctx, a.ID, task("t2"))
		require.NoError(t, err)

		n, err := env.assignments.ClearItemTags(ctx, task("t1"))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 1, env.usage(t, a.ID))
		assert.Equal(t, 0, env.usage(t, b.ID))

		n, err = env.assignments.ClearItemTags(ctx, task("t1"))
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestAssignmentService_ConcurrentAssign(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		tag := env.tag(t, "Busy")
		const n = 50

		var g errgroup.Group
		for i := range n {
			g.Go(func() error {
				_, err := env.assignments.AssignTag(ctx, tag.ID, task(fmt.Sprintf("t%d", i)))
				return err
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, n, env.usage(t, tag.ID))
		items, err := env.assignments.ItemsByTag(ctx, tag.ID, "task", 0)
		require.NoError(t, err)
		assert.Len(t, items, n)
	})
}

func TestAssignmentService_RecountUsage(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		tag := env.tag(t, "Counted")
		_, err := env.assignments.AssignTag(ctx, tag.ID, task("t1"))
		require.NoError(t, err)

		fixed, err := env.assignments.RecountUsage(ctx)
		require.NoError(t, err)
		assert.Zero(t, fixed)
		assert.Equal(t, 1, env.usage(t, tag.ID))
	})
}
