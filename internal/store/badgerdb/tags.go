package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/store"
	"github.com/kaziapp/taggraph/internal/util"
)

func loadTag(txn *badger.Txn, tagID string) (*domain.Tag, error) {
	var t domain.Tag
	if err := getJSON(txn, key(tagPrefix, tagID), &t); err != nil {
		return nil, notFound(err, "tag not found")
	}
	return &t, nil
}

// CreateTag creates a new tag. Returns store.ErrAlreadyExists on duplicate slug.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	t.UsageCount = 0
	return s.update(ctx, func(txn *badger.Txn) error {
		slugKey := key(tagBySlugPrefix, t.Slug)
		taken, err := exists(txn, slugKey)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrAlreadyExists.WithMessage("tag already exists")
		}

		if err := setJSON(txn, key(tagPrefix, t.ID), t); err != nil {
			return err
		}
		return txn.Set(slugKey, []byte(t.ID))
	})
}

// GetTag retrieves a tag by ID.
func (s *Store) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	var t *domain.Tag
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		t, err = loadTag(txn, tagID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagBySlug retrieves a tag by its slug.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	var t *domain.Tag
	err := s.view(ctx, func(txn *badger.Txn) error {
		tagID, err := getString(txn, key(tagBySlugPrefix, slug))
		if err != nil {
			return notFound(err, "tag not found")
		}
		t, err = loadTag(txn, tagID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagsByIDs returns the tags that exist among ids.
func (s *Store) GetTagsByIDs(ctx context.Context, ids []string) ([]*domain.Tag, error) {
	tags := make([]*domain.Tag, 0, len(ids))
	err := s.view(ctx, func(txn *badger.Txn) error {
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

// UpdateTag saves the editable fields of t and moves the slug index if needed.
// The stored usage count wins over whatever t carries.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		existing, err := loadTag(txn, t.ID)
		if err != nil {
			return err
		}

		if existing.Slug != t.Slug {
			newSlugKey := key(tagBySlugPrefix, t.Slug)
			owner, err := getString(txn, newSlugKey)
			if err == nil && owner != t.ID {
				return store.ErrAlreadyExists.WithMessage("tag already exists")
			}
			if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Delete(key(tagBySlugPrefix, existing.Slug)); err != nil {
				return err
			}
			if err := txn.Set(newSlugKey, []byte(t.ID)); err != nil {
				return err
			}
		}

		updated := *t
		updated.UsageCount = existing.UsageCount
		updated.CreatedAt = existing.CreatedAt
		if err := setJSON(txn, key(tagPrefix, t.ID), &updated); err != nil {
			return err
		}
		t.UsageCount = existing.UsageCount
		return nil
	})
}

// DeleteTag removes the tag and every assignment referencing it. Reports
// false when the tag was already absent.
//
// Assignments are removed at most deleteBatch per transaction so a heavily
// used tag stays under Badger's transaction size limit. Every intermediate
// batch lowers usage_count by the edges it removed, and the last batch removes
// the tag itself. If a batch fails, the tag survives with its remaining
// assignments and a matching count.
func (s *Store) DeleteTag(ctx context.Context, tagID string) (bool, error) {
	for {
		var deleted, done bool
		err := s.update(ctx, func(txn *badger.Txn) error {
			deleted, done = false, false

			t, err := loadTag(txn, tagID)
			if errors.Is(err, store.ErrNotFound) {
				done = true
				return nil
			}
			if err != nil {
				return err
			}

			edges, more, err := tagEdges(txn, tagID, s.deleteBatch)
			if err != nil {
				return err
			}
			for _, a := range edges {
				if err := txn.Delete(key(assignmentPrefix, tagID, a.Item.Type, a.Item.ID)); err != nil {
					return err
				}
				if err := txn.Delete(key(itemTagsPrefix, a.Item.Type, a.Item.ID, tagID)); err != nil {
					return err
				}
			}

			if more {
				t.UsageCount = max(t.UsageCount-len(edges), 0)
				return setJSON(txn, key(tagPrefix, tagID), t)
			}

			if err := txn.Delete(key(tagBySlugPrefix, t.Slug)); err != nil {
				return err
			}
			if err := txn.Delete(key(tagPrefix, tagID)); err != nil {
				return err
			}
			deleted, done = true, true
			return nil
		})
		if err != nil {
			return false, err
		}
		if done {
			return deleted, nil
		}
	}
}

// tagEdges returns up to limit assignments of tagID and whether more remain.
func tagEdges(txn *badger.Txn, tagID string, limit int) ([]domain.TagAssignment, bool, error) {
	var edges []domain.TagAssignment
	more := false
	err := scanPrefix(txn, scope(assignmentPrefix, tagID), func(_, val []byte) error {
		if len(edges) == limit {
			more = true
			return errStopScan
		}
		var a domain.TagAssignment
		if err := json.Unmarshal(val, &a); err != nil {
			return err
		}
		edges = append(edges, a)
		return nil
	})
	if errors.Is(err, errStopScan) {
		err = nil
	}
	return edges, more, err
}

// allTags loads every tag record.
func allTags(txn *badger.Txn) ([]*domain.Tag, error) {
	var tags []*domain.Tag
	err := scanPrefix(txn, []byte(tagPrefix), func(_, val []byte) error {
		var t domain.Tag
		if err := json.Unmarshal(val, &t); err != nil {
			return fmt.Errorf("unmarshal tag: %w", err)
		}
		tags = append(tags, &t)
		return nil
	})
	return tags, err
}

// SearchTags returns active tags whose name contains q.Query, oldest first.
func (s *Store) SearchTags(ctx context.Context, q store.TagQuery) ([]*domain.Tag, error) {
	q.Normalize()
	needle := util.FoldCase(q.Query)

	var matches []*domain.Tag
	err := s.view(ctx, func(txn *badger.Txn) error {
		tags, err := allTags(txn)
		if err != nil {
			return err
		}
		for _, t := range tags {
			if !t.IsActive {
				continue
			}
			if q.TagType != "" && t.TagType != q.TagType {
				continue
			}
			if !strings.Contains(util.FoldCase(t.Name), needle) {
				continue
			}
			matches = append(matches, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	return truncate(matches, q.Limit), nil
}

// PopularTags returns active tags ordered by usage count descending, ties by slug.
func (s *Store) PopularTags(ctx context.Context, tagType string, limit int) ([]*domain.Tag, error) {
	limit = store.ClampLimit(limit, store.DefaultPopularLimit, store.MaxPopularLimit)

	var active []*domain.Tag
	err := s.view(ctx, func(txn *badger.Txn) error {
		tags, err := allTags(txn)
		if err != nil {
			return err
		}
		for _, t := range tags {
			if t.IsActive && (tagType == "" || t.TagType == tagType) {
				active = append(active, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].UsageCount != active[j].UsageCount {
			return active[i].UsageCount > active[j].UsageCount
		}
		return active[i].Slug < active[j].Slug
	})

	return truncate(active, limit), nil
}

// ListTags returns all tags ordered by slug.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	var tags []*domain.Tag
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		tags, err = allTags(txn)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Slug < tags[j].Slug })
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return tags, nil
}

// truncate caps s at limit and never returns nil.
func truncate[T any](s []T, limit int) []T {
	if s == nil {
		return []T{}
	}
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
