package service

import (
	"context"
	"log/slog"

	"github.com/kaziapp/taggraph/internal/domain"
	domainerrors "github.com/kaziapp/taggraph/internal/errors"
	"github.com/kaziapp/taggraph/internal/sse"
	"github.com/kaziapp/taggraph/internal/store"
)

// SetItemTagsResult reports what a SetItemTags call changed.
type SetItemTagsResult struct {
	Tags    []*domain.Tag `json:"tags"`
	Added   []string      `json:"added"`
	Removed []string      `json:"removed"`
}

// AssignmentService manages tag to item edges.
type AssignmentService struct {
	store  store.Store
	types  itemTypeValidator
	tags   *TagService
	events EventEmitter
	logger *slog.Logger
}

// NewAssignmentService creates an assignment service. tags is used to keep the
// suggestion index's usage counts fresh and may be nil.
func NewAssignmentService(s store.Store, types itemTypeValidator, tags *TagService, events EventEmitter, logger *slog.Logger) *AssignmentService {
	return &AssignmentService{
		store:  s,
		types:  types,
		tags:   tags,
		events: emitterOrNoop(events),
		logger: loggerOrDiscard(logger),
	}
}

// AssignTag attaches the tag to the item. Assigning twice is a no-op that
// returns the existing edge.
func (s *AssignmentService) AssignTag(ctx context.Context, tagID string, item domain.ItemRef) (*domain.TagAssignment, error) {
	if err := validateItem(s.types, item); err != nil {
		return nil, err
	}

	a, created, err := s.store.AssignTag(ctx, tagID, item)
	if err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to assign tag")
	}
	if !created {
		return a, nil
	}

	if t, err := s.store.GetTag(ctx, tagID); err == nil {
		s.events.Emit(sse.NewTagAssignedEvent(t, item))
	}
	s.refresh(ctx, tagID)

	s.logger.Info("tag assigned",
		"tag_id", tagID,
		"item_id", item.ID,
		"item_type", item.Type,
	)
	return a, nil
}

// UnassignTag detaches the tag from the item. A missing edge is a no-op.
func (s *AssignmentService) UnassignTag(ctx context.Context, tagID string, item domain.ItemRef) error {
	if err := validateItem(s.types, item); err != nil {
		return err
	}

	removed, err := s.store.UnassignTag(ctx, tagID, item)
	if err != nil {
		return mapStoreError(err, "tag not found", "failed to unassign tag")
	}
	if !removed {
		return nil
	}

	if t, err := s.store.GetTag(ctx, tagID); err == nil {
		s.events.Emit(sse.NewTagUnassignedEvent(t, item))
	}
	s.refresh(ctx, tagID)

	s.logger.Info("tag unassigned",
		"tag_id", tagID,
		"item_id", item.ID,
		"item_type", item.Type,
	)
	return nil
}

// SetItemTags makes the item's tags exactly tagIDs. Only the difference is
// written; if any tag is unknown nothing changes.
func (s *AssignmentService) SetItemTags(ctx context.Context, item domain.ItemRef, tagIDs []string) (*SetItemTagsResult, error) {
	if err := validateItem(s.types, item); err != nil {
		return nil, err
	}
	wanted := store.DedupeIDs(tagIDs)
	if len(wanted) > store.MaxItemTags {
		return nil, domainerrors.Validationf("an item can carry at most %d tags", store.MaxItemTags)
	}

	added, removed, err := s.store.SetItemTags(ctx, item, wanted)
	if err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to set item tags")
	}

	tags, err := s.store.ItemTags(ctx, item)
	if err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to load item tags")
	}

	if len(added) > 0 || len(removed) > 0 {
		s.events.Emit(sse.NewItemTagsSetEvent(item, added, removed))
		s.refresh(ctx, append(append([]string{}, added...), removed...)...)
		s.logger.Info("item tags set",
			"item_id", item.ID,
			"item_type", item.Type,
			"added", len(added),
			"removed", len(removed),
		)
	}

	return &SetItemTagsResult{Tags: tags, Added: added, Removed: removed}, nil
}

// ItemTags returns the item's tags in assignment order.
func (s *AssignmentService) ItemTags(ctx context.Context, item domain.ItemRef) ([]*domain.Tag, error) {
	if err := validateItem(s.types, item); err != nil {
		return nil, err
	}
	tags, err := s.store.ItemTags(ctx, item)
	if err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to load item tags")
	}
	return tags, nil
}

// ItemsByTag returns the items carrying the tag, optionally filtered by item type.
func (s *AssignmentService) ItemsByTag(ctx context.Context, tagID, itemType string, limit int) ([]domain.ItemRef, error) {
	if itemType != "" {
		if err := s.types.ValidateItemType(itemType); err != nil {
			return nil, err
		}
	}
	if _, err := s.store.GetTag(ctx, tagID); err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to load tag")
	}

	items, err := s.store.ItemsByTag(ctx, tagID, itemType, store.ClampLimit(limit, store.DefaultItemsLimit, store.MaxItemsLimit))
	if err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to load items")
	}
	return items, nil
}

// ClearItemTags removes every tag from the item, for use when the item itself is deleted.
func (s *AssignmentService) ClearItemTags(ctx context.Context, item domain.ItemRef) (int, error) {
	if err := validateItem(s.types, item); err != nil {
		return 0, err
	}

	before, err := s.store.ItemTags(ctx, item)
	if err != nil {
		return 0, mapStoreError(err, "tag not found", "failed to load item tags")
	}

	n, err := s.store.ClearItemTags(ctx, item)
	if err != nil {
		return 0, mapStoreError(err, "tag not found", "failed to clear item tags")
	}
	if n == 0 {
		return 0, nil
	}

	ids := make([]string, len(before))
	for i, t := range before {
		ids[i] = t.ID
	}
	s.events.Emit(sse.NewItemTagsClearedEvent(item, ids))
	s.refresh(ctx, ids...)

	s.logger.Info("item tags cleared", "item_id", item.ID, "item_type", item.Type, "removed", n)
	return n, nil
}

// RecountUsage recomputes every tag's usage count from its assignments and
// returns how many were wrong.
func (s *AssignmentService) RecountUsage(ctx context.Context) (int, error) {
	fixed, err := s.store.RecountUsage(ctx)
	if err != nil {
		return 0, mapStoreError(err, "tag not found", "failed to recount usage")
	}
	if fixed > 0 {
		s.events.Emit(sse.NewTagsRecountedEvent(fixed))
		s.logger.Warn("usage counts corrected", "tags", fixed)
		if s.tags != nil {
			if _, err := s.tags.ReindexTags(ctx); err != nil {
				s.logger.Warn("failed to reindex tags after recount", "error", err)
			}
		}
	}
	return fixed, nil
}

func (s *AssignmentService) refresh(ctx context.Context, tagIDs ...string) {
	if s.tags != nil {
		s.tags.refreshIndex(ctx, tagIDs)
	}
}
