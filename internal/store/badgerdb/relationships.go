package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/store"
)

func outKey(r *domain.ObjectRelationship) []byte {
	return key(relOutPrefix, r.SourceID, r.Type, r.TargetID)
}

func inKey(r *domain.ObjectRelationship) []byte {
	return key(relInPrefix, r.TargetID, r.Type, r.SourceID)
}

func deleteRelationshipKeys(txn *badger.Txn, r *domain.ObjectRelationship) error {
	if err := txn.Delete(outKey(r)); err != nil {
		return err
	}
	return txn.Delete(inKey(r))
}

func collectRelationships(txn *badger.Txn, prefix []byte) ([]*domain.ObjectRelationship, error) {
	var rels []*domain.ObjectRelationship
	err := scanPrefix(txn, prefix, func(_, val []byte) error {
		var r domain.ObjectRelationship
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		rels = append(rels, &r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rels, func(i, j int) bool {
		if !rels[i].CreatedAt.Equal(rels[j].CreatedAt) {
			return rels[i].CreatedAt.Before(rels[j].CreatedAt)
		}
		return rels[i].ID < rels[j].ID
	})
	return rels, nil
}

func requireLiveObject(txn *badger.Txn, objectID, msg string) error {
	o, err := loadObject(txn, objectID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && o.IsDeleted()) {
		return store.ErrNotFound.WithMessage(msg)
	}
	return err
}

// CreateRelationship inserts a typed edge between two live objects.
func (s *Store) CreateRelationship(ctx context.Context, r *domain.ObjectRelationship) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		if err := requireLiveObject(txn, r.SourceID, "source object not found"); err != nil {
			return err
		}
		if err := requireLiveObject(txn, r.TargetID, "target object not found"); err != nil {
			return err
		}

		taken, err := exists(txn, outKey(r))
		if err != nil {
			return err
		}
		if taken {
			return store.ErrAlreadyExists.WithMessage("relationship already exists")
		}

		if err := setJSON(txn, outKey(r), r); err != nil {
			return err
		}
		return setJSON(txn, inKey(r), r)
	})
}

// DeleteRelationship removes the edge if present.
func (s *Store) DeleteRelationship(ctx context.Context, sourceID, targetID, relType string) (bool, error) {
	var deleted bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		r := &domain.ObjectRelationship{SourceID: sourceID, TargetID: targetID, Type: relType}
		present, err := exists(txn, outKey(r))
		if err != nil {
			return err
		}
		deleted = present
		if !present {
			return nil
		}
		return deleteRelationshipKeys(txn, r)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// Relationships returns the edges touching objectID, outgoing first, each joined
// with the object at the other end.
func (s *Store) Relationships(ctx context.Context, objectID string, dir domain.Direction, relType string) ([]*domain.RelationshipView, error) {
	views := []*domain.RelationshipView{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		if _, err := loadObject(txn, objectID); err != nil {
			return err
		}

		collect := func(prefix string, d domain.Direction, other func(*domain.ObjectRelationship) string) error {
			scan := scope(prefix, objectID)
			if relType != "" {
				scan = scope(prefix, objectID, relType)
			}
			rels, err := collectRelationships(txn, scan)
			if err != nil {
				return err
			}
			for _, r := range rels {
				o, err := loadObject(txn, other(r))
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				views = append(views, &domain.RelationshipView{Relationship: r, Direction: d, Other: o})
			}
			return nil
		}

		if dir == domain.DirectionSource || dir == domain.DirectionBoth {
			if err := collect(relOutPrefix, domain.DirectionSource, func(r *domain.ObjectRelationship) string { return r.TargetID }); err != nil {
				return err
			}
		}
		if dir == domain.DirectionTarget || dir == domain.DirectionBoth {
			if err := collect(relInPrefix, domain.DirectionTarget, func(r *domain.ObjectRelationship) string { return r.SourceID }); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}
