package badgerdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/store"
)

// adjustUsage applies delta to the tag's usage count inside txn, floored at zero.
// Badger tracks the read, so a concurrent writer of the same tag forces a replay.
func adjustUsage(txn *badger.Txn, tagID string, delta int) error {
	t, err := loadTag(txn, tagID)
	if err != nil {
		return err
	}
	t.UsageCount += delta
	if t.UsageCount < 0 {
		t.UsageCount = 0
	}
	return setJSON(txn, key(tagPrefix, tagID), t)
}

// addEdge writes both edge keys and increments the tag. Returns false when the
// edge already existed.
func (s *Store) addEdge(txn *badger.Txn, tagID string, item domain.ItemRef, now time.Time) (*domain.TagAssignment, bool, error) {
	edgeKey := key(assignmentPrefix, tagID, item.Type, item.ID)

	var existing domain.TagAssignment
	err := getJSON(txn, edgeKey, &existing)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, err
	}

	seq, err := s.nextSeq()
	if err != nil {
		return nil, false, err
	}

	a := &domain.TagAssignment{TagID: tagID, Item: item, CreatedAt: now, Seq: seq}
	if err := setJSON(txn, edgeKey, a); err != nil {
		return nil, false, err
	}
	if err := txn.Set(key(itemTagsPrefix, item.Type, item.ID, tagID), encodeSeq(seq)); err != nil {
		return nil, false, err
	}
	if err := adjustUsage(txn, tagID, 1); err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// removeEdge deletes both edge keys and decrements the tag. Returns false when
// there was no edge.
func removeEdge(txn *badger.Txn, tagID string, item domain.ItemRef) (bool, error) {
	edgeKey := key(assignmentPrefix, tagID, item.Type, item.ID)
	present, err := exists(txn, edgeKey)
	if err != nil || !present {
		return false, err
	}

	if err := txn.Delete(edgeKey); err != nil {
		return false, err
	}
	if err := txn.Delete(key(itemTagsPrefix, item.Type, item.ID, tagID)); err != nil {
		return false, err
	}

	err = adjustUsage(txn, tagID, -1)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	return err == nil, err
}

// AssignTag attaches the tag to the item. Repeated calls are no-ops.
func (s *Store) AssignTag(ctx context.Context, tagID string, item domain.ItemRef) (*domain.TagAssignment, bool, error) {
	var (
		a       *domain.TagAssignment
		created bool
	)
	err := s.update(ctx, func(txn *badger.Txn) error {
		if _, err := loadTag(txn, tagID); err != nil {
			return err
		}
		var err error
		a, created, err = s.addEdge(txn, tagID, item, time.Now())
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return a, created, nil
}

// UnassignTag detaches the tag from the item. A missing edge is not an error.
func (s *Store) UnassignTag(ctx context.Context, tagID string, item domain.ItemRef) (bool, error) {
	var removed bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		removed, err = removeEdge(txn, tagID, item)
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

type seqTag struct {
	tagID string
	seq   uint64
}

// itemTagIDs returns the item's tag IDs in assignment order.
func itemTagIDs(txn *badger.Txn, item domain.ItemRef) ([]string, error) {
	var entries []seqTag
	err := scanPrefix(txn, scope(itemTagsPrefix, item.Type, item.ID), func(k, val []byte) error {
		entries = append(entries, seqTag{tagID: lastSegment(k), seq: decodeSeq(val)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.tagID
	}
	return ids, nil
}

// SetItemTags replaces the item's tag set by diff in a single transaction.
func (s *Store) SetItemTags(ctx context.Context, item domain.ItemRef, tagIDs []string) ([]string, []string, error) {
	wanted := store.DedupeIDs(tagIDs)

	var added, removed []string
	err := s.update(ctx, func(txn *badger.Txn) error {
		for _, tagID := range wanted {
			if _, err := loadTag(txn, tagID); err != nil {
				return err
			}
		}

		current, err := itemTagIDs(txn, item)
		if err != nil {
			return err
		}

		added, removed = store.DiffIDs(current, wanted)

		for _, tagID := range removed {
			if _, err := removeEdge(txn, tagID, item); err != nil {
				return err
			}
		}
		now := time.Now()
		for _, tagID := range added {
			if _, _, err := s.addEdge(txn, tagID, item, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return added, removed, nil
}

// ItemTags returns the item's tags in assignment order.
func (s *Store) ItemTags(ctx context.Context, item domain.ItemRef) ([]*domain.Tag, error) {
	tags := []*domain.Tag{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		ids, err := itemTagIDs(txn, item)
		if err != nil {
			return err
		}
		for _, tagID := range ids {
			t, err := loadTag(txn, tagID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			tags = append(tags, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// ItemsByTag returns the items carrying the tag in assignment order.
func (s *Store) ItemsByTag(ctx context.Context, tagID, itemType string, limit int) ([]domain.ItemRef, error) {
	limit = store.ClampLimit(limit, store.DefaultItemsLimit, store.MaxItemsLimit)

	prefix := scope(assignmentPrefix, tagID)
	if itemType != "" {
		prefix = scope(assignmentPrefix, tagID, itemType)
	}

	var edges []domain.TagAssignment
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, func(_, val []byte) error {
			var a domain.TagAssignment
			if err := json.Unmarshal(val, &a); err != nil {
				return err
			}
			edges = append(edges, a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].Seq < edges[j].Seq })

	items := make([]domain.ItemRef, 0, min(len(edges), limit))
	for _, a := range edges {
		if len(items) == limit {
			break
		}
		items = append(items, a.Item)
	}
	return items, nil
}

// ClearItemTags removes every assignment of the item.
func (s *Store) ClearItemTags(ctx context.Context, item domain.ItemRef) (int, error) {
	var removed int
	err := s.update(ctx, func(txn *badger.Txn) error {
		removed = 0
		ids, err := itemTagIDs(txn, item)
		if err != nil {
			return err
		}
		for _, tagID := range ids {
			ok, err := removeEdge(txn, tagID, item)
			if err != nil {
				return err
			}
			if ok {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// RecountUsage recomputes every usage count from the edge keys.
func (s *Store) RecountUsage(ctx context.Context) (int, error) {
	var fixed int
	err := s.update(ctx, func(txn *badger.Txn) error {
		fixed = 0

		counts := make(map[string]int)
		err := scanKeys(txn, []byte(assignmentPrefix), func(k []byte) error {
			rest := k[len(assignmentPrefix):]
			if i := bytes.IndexByte(rest, ':'); i > 0 {
				counts[string(rest[:i])]++
			}
			return nil
		})
		if err != nil {
			return err
		}

		tags, err := allTags(txn)
		if err != nil {
			return err
		}
		for _, t := range tags {
			want := counts[t.ID]
			if t.UsageCount == want {
				continue
			}
			t.UsageCount = want
			if err := setJSON(txn, key(tagPrefix, t.ID), t); err != nil {
				return err
			}
			fixed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fixed, nil
}
