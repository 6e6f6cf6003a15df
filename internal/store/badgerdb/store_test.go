package badgerdb

import (
	"context"
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/store"
	"github.com/kaziapp/taggraph/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Path: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestStoreConformance_InMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(Options{})
		require.NoError(t, err)
		return s
	})
}

func TestPingAfterClose(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}

func TestNextSeq_Monotonic(t *testing.T) {
	s := newTestStore(t)
	t.Cleanup(func() { s.Close() })

	prev, err := s.nextSeq()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), prev)

	for range 500 {
		n, err := s.nextSeq()
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "asg:tag-1:task:item-9", string(key(assignmentPrefix, "tag-1", "task", "item-9")))
	assert.Equal(t, "asg:tag-1:", string(scope(assignmentPrefix, "tag-1")))
	assert.Equal(t, "item-9", lastSegment([]byte("idx:items:tags:task:item-9")))
	assert.Equal(t, uint64(42), decodeSeq(encodeSeq(42)))
}

func TestDeleteTag_Batched(t *testing.T) {
	ctx := context.Background()
	s, err := Open(Options{DeleteBatchSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tag := &domain.Tag{ID: "tag-batched", Name: "Batched", Slug: "batched", IsActive: true}
	tag.InitTimestamps()
	require.NoError(t, s.CreateTag(ctx, tag))

	items := make([]domain.ItemRef, 5)
	for i := range items {
		items[i] = domain.ItemRef{ID: fmt.Sprintf("task-%d", i), Type: "task"}
		_, _, err := s.AssignTag(ctx, tag.ID, items[i])
		require.NoError(t, err)
	}

	deleted, err := s.DeleteTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.GetTag(ctx, tag.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetTagBySlug(ctx, "batched")
	assert.ErrorIs(t, err, store.ErrNotFound)
	for _, item := range items {
		tags, err := s.ItemTags(ctx, item)
		require.NoError(t, err)
		assert.Empty(t, tags)
	}

	deleted, err = s.DeleteTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTagEdges_Limit(t *testing.T) {
	ctx := context.Background()
	s, err := Open(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tag := &domain.Tag{ID: "tag-edges", Name: "Edges", Slug: "edges", IsActive: true}
	tag.InitTimestamps()
	require.NoError(t, s.CreateTag(ctx, tag))
	for i := range 3 {
		_, _, err := s.AssignTag(ctx, tag.ID, domain.ItemRef{ID: fmt.Sprintf("task-%d", i), Type: "task"})
		require.NoError(t, err)
	}

	err = s.db.View(func(txn *badger.Txn) error {
		edges, more, err := tagEdges(txn, tag.ID, 2)
		require.NoError(t, err)
		assert.Len(t, edges, 2)
		assert.True(t, more)

		edges, more, err = tagEdges(txn, tag.ID, 3)
		require.NoError(t, err)
		assert.Len(t, edges, 3)
		assert.False(t, more)
		return nil
	})
	require.NoError(t, err)
}
