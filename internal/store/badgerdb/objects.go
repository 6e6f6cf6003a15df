package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/store"
)

// Object types

func loadObjectType(txn *badger.Txn, typeID string) (*domain.ObjectType, error) {
	var t domain.ObjectType
	if err := getJSON(txn, key(objectTypePrefix, typeID), &t); err != nil {
		return nil, notFound(err, "object type not found")
	}
	return &t, nil
}

func loadObjectTypeBySlug(txn *badger.Txn, slug string) (*domain.ObjectType, error) {
	typeID, err := getString(txn, key(typeBySlugPrefix, slug))
	if err != nil {
		return nil, notFound(err, "object type not found")
	}
	return loadObjectType(txn, typeID)
}

// CreateObjectType inserts a registry entry.
func (s *Store) CreateObjectType(ctx context.Context, t *domain.ObjectType) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		slugKey := key(typeBySlugPrefix, t.Slug)
		taken, err := exists(txn, slugKey)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrAlreadyExists.WithMessage("object type already exists")
		}
		if err := setJSON(txn, key(objectTypePrefix, t.ID), t); err != nil {
			return err
		}
		return txn.Set(slugKey, []byte(t.ID))
	})
}

// GetObjectType retrieves a type by ID.
func (s *Store) GetObjectType(ctx context.Context, typeID string) (*domain.ObjectType, error) {
	var t *domain.ObjectType
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		t, err = loadObjectType(txn, typeID)
		return err
	})
	return t, err
}

// GetObjectTypeBySlug retrieves a type by slug.
func (s *Store) GetObjectTypeBySlug(ctx context.Context, slug string) (*domain.ObjectType, error) {
	var t *domain.ObjectType
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		t, err = loadObjectTypeBySlug(txn, slug)
		return err
	})
	return t, err
}

// ListObjectTypes returns every registered type ordered by name.
func (s *Store) ListObjectTypes(ctx context.Context) ([]*domain.ObjectType, error) {
	types := []*domain.ObjectType{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(objectTypePrefix), func(_, val []byte) error {
			var t domain.ObjectType
			if err := json.Unmarshal(val, &t); err != nil {
				return fmt.Errorf("unmarshal object type: %w", err)
			}
			types = append(types, &t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(types, func(i, j int) bool {
		if types[i].Name != types[j].Name {
			return types[i].Name < types[j].Name
		}
		return types[i].Slug < types[j].Slug
	})
	return types, nil
}

// SetObjectTypeActive toggles whether new objects may use the type.
func (s *Store) SetObjectTypeActive(ctx context.Context, slug string, active bool) (*domain.ObjectType, error) {
	var t *domain.ObjectType
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		t, err = loadObjectTypeBySlug(txn, slug)
		if err != nil {
			return err
		}
		t.IsActive = active
		t.Touch()
		return setJSON(txn, key(objectTypePrefix, t.ID), t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Objects

func loadObject(txn *badger.Txn, objectID string) (*domain.Object, error) {
	var o domain.Object
	if err := getJSON(txn, key(objectPrefix, objectID), &o); err != nil {
		return nil, notFound(err, "object not found")
	}
	return &o, nil
}

// CreateObject inserts a new object. The type must exist.
func (s *Store) CreateObject(ctx context.Context, o *domain.Object) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if _, err := loadObjectType(txn, o.TypeID); err != nil {
			return err
		}
		objKey := key(objectPrefix, o.ID)
		taken, err := exists(txn, objKey)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrAlreadyExists.WithMessage("object already exists")
		}
		if err := setJSON(txn, objKey, o); err != nil {
			return err
		}
		return txn.Set(key(objectsByTypePref, o.TypeID, o.ID), nil)
	})
}

// GetObject retrieves an object by ID, including deleted ones.
func (s *Store) GetObject(ctx context.Context, objectID string) (*domain.Object, error) {
	var o *domain.Object
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		o, err = loadObject(txn, objectID)
		return err
	})
	return o, err
}

// UpdateObject writes the name and status of o.
func (s *Store) UpdateObject(ctx context.Context, o *domain.Object) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		existing, err := loadObject(txn, o.ID)
		if err != nil {
			return err
		}
		existing.Name = o.Name
		existing.Status = o.Status
		existing.UpdatedAt = o.UpdatedAt
		return setJSON(txn, key(objectPrefix, o.ID), existing)
	})
}

// DeleteObject marks the object deleted and removes every relationship touching it.
func (s *Store) DeleteObject(ctx context.Context, objectID string) (int, error) {
	var removed int
	err := s.update(ctx, func(txn *badger.Txn) error {
		removed = 0

		o, err := loadObject(txn, objectID)
		if err != nil {
			return err
		}
		o.Status = domain.ObjectStatusDeleted
		o.UpdatedAt = time.Now()
		if err := setJSON(txn, key(objectPrefix, objectID), o); err != nil {
			return err
		}

		edges, err := collectRelationships(txn, scope(relOutPrefix, objectID))
		if err != nil {
			return err
		}
		incoming, err := collectRelationships(txn, scope(relInPrefix, objectID))
		if err != nil {
			return err
		}
		edges = append(edges, incoming...)

		for _, r := range edges {
			if err := deleteRelationshipKeys(txn, r); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ListObjects returns non-deleted objects matching q in creation order.
func (s *Store) ListObjects(ctx context.Context, q store.ObjectQuery) ([]*domain.Object, error) {
	q.Normalize()

	var objects []*domain.Object
	err := s.view(ctx, func(txn *badger.Txn) error {
		keep := func(o *domain.Object) {
			if o.IsDeleted() {
				return
			}
			if q.OrganizationID != "" && o.OrganizationID != q.OrganizationID {
				return
			}
			if q.Status != "" && string(o.Status) != q.Status {
				return
			}
			objects = append(objects, o)
		}

		if q.TypeID == "" {
			return scanPrefix(txn, []byte(objectPrefix), func(_, val []byte) error {
				var o domain.Object
				if err := json.Unmarshal(val, &o); err != nil {
					return fmt.Errorf("unmarshal object: %w", err)
				}
				keep(&o)
				return nil
			})
		}

		return scanKeys(txn, scope(objectsByTypePref, q.TypeID), func(k []byte) error {
			o, err := loadObject(txn, lastSegment(k))
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			keep(o)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(objects, func(i, j int) bool {
		if !objects[i].CreatedAt.Equal(objects[j].CreatedAt) {
			return objects[i].CreatedAt.Before(objects[j].CreatedAt)
		}
		return objects[i].ID < objects[j].ID
	})
	return truncate(objects, q.Limit), nil
}
