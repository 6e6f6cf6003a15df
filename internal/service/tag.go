package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kaziapp/taggraph/internal/color"
	"github.com/kaziapp/taggraph/internal/domain"
	domainerrors "github.com/kaziapp/taggraph/internal/errors"
	"github.com/kaziapp/taggraph/internal/id"
	"github.com/kaziapp/taggraph/internal/search"
	"github.com/kaziapp/taggraph/internal/sse"
	"github.com/kaziapp/taggraph/internal/store"
	"github.com/kaziapp/taggraph/internal/util"
	"github.com/kaziapp/taggraph/internal/validation"
)

// CreateTagInput holds the caller-supplied fields of a new tag.
type CreateTagInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	TagType     string `json:"tag_type,omitempty" validate:"omitempty,max=50,slug"`
	Color       string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// updateTagInput mirrors domain.TagUpdate for validation.
type updateTagInput struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=100"`
	TagType     *string `json:"tag_type" validate:"omitnil,omitempty,max=50,slug"`
	Color       *string `json:"color" validate:"omitnil,omitempty,hexcolor"`
	Description *string `json:"description" validate:"omitnil,max=500"`
}

// TagService manages the global tag catalog.
type TagService struct {
	store     store.Store
	validator *validation.Validator
	events    EventEmitter
	index     TagIndex
	logger    *slog.Logger
}

// NewTagService creates a tag service. events and index may be nil.
func NewTagService(s store.Store, v *validation.Validator, events EventEmitter, index TagIndex, logger *slog.Logger) *TagService {
	return &TagService{
		store:     s,
		validator: v,
		events:    emitterOrNoop(events),
		index:     index,
		logger:    loggerOrDiscard(logger),
	}
}

// CreateTag creates a tag whose slug is derived from the name.
func (s *TagService) CreateTag(ctx context.Context, in CreateTagInput) (*domain.Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.TagType = strings.TrimSpace(in.TagType)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	slug := util.Slugify(in.Name)
	if slug == "" {
		return nil, domainerrors.Validation("tag name has no usable characters")
	}

	tagColor := strings.ToLower(in.Color)
	if tagColor == "" {
		tagColor = color.ForSlug(slug)
	}

	t := &domain.Tag{
		ID:          id.MustGenerate(id.PrefixTag),
		Name:        in.Name,
		Slug:        slug,
		TagType:     in.TagType,
		Color:       tagColor,
		Description: strings.TrimSpace(in.Description),
		IsActive:    true,
	}
	t.InitTimestamps()

	if err := s.store.CreateTag(ctx, t); err != nil {
		if domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflictf("tag with slug %q already exists", slug)
		}
		return nil, mapStoreError(err, "tag not found", "failed to create tag")
	}

	s.afterWrite(t)
	s.events.Emit(sse.NewTagCreatedEvent(t))
	s.logger.Info("tag created", "tag_id", t.ID, "tag_slug", t.Slug, "tag_type", t.TagType)
	return t, nil
}

// GetOrCreateTag returns the tag whose slug matches name, creating it when
// missing. A concurrent creator of the same slug wins and its tag is returned.
func (s *TagService) GetOrCreateTag(ctx context.Context, name, tagType string) (*domain.Tag, bool, error) {
	slug := util.Slugify(name)
	if slug == "" {
		return nil, false, domainerrors.Validation("tag name has no usable characters")
	}

	existing, err := s.store.GetTagBySlug(ctx, slug)
	if err == nil {
		return existing, false, nil
	}
	if !domainerrors.Is(err, store.ErrNotFound) {
		return nil, false, mapStoreError(err, "tag not found", "failed to load tag")
	}

	t, err := s.CreateTag(ctx, CreateTagInput{Name: name, TagType: tagType})
	if err == nil {
		return t, true, nil
	}
	if !domainerrors.Is(err, domainerrors.ErrConflict) {
		return nil, false, err
	}

	winner, err := s.store.GetTagBySlug(ctx, slug)
	if err != nil {
		return nil, false, mapStoreError(err, "tag not found", "failed to load tag")
	}
	s.logger.Debug("lost tag create race", "tag_slug", slug, "tag_id", winner.ID)
	return winner, false, nil
}

// GetTag returns a tag by ID.
func (s *TagService) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	t, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to load tag")
	}
	return t, nil
}

// GetTagBySlug returns a tag by slug. The input is normalized first.
func (s *TagService) GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	normalized := util.Slugify(slug)
	if normalized == "" {
		return nil, domainerrors.NotFound("tag not found")
	}
	t, err := s.store.GetTagBySlug(ctx, normalized)
	if err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to load tag")
	}
	return t, nil
}

// UpdateTag applies upd. A new name re-derives the slug.
func (s *TagService) UpdateTag(ctx context.Context, tagID string, upd domain.TagUpdate) (*domain.Tag, error) {
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		upd.Name = &trimmed
	}
	if err := s.validator.Validate(updateTagInput{
		Name:        upd.Name,
		TagType:     upd.TagType,
		Color:       upd.Color,
		Description: upd.Description,
	}); err != nil {
		return nil, err
	}

	t, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to load tag")
	}
	if upd.Empty() {
		return t, nil
	}

	upd.Apply(t)
	if upd.Name != nil {
		t.Slug = util.Slugify(t.Name)
		if t.Slug == "" {
			return nil, domainerrors.Validation("tag name has no usable characters")
		}
	}
	if upd.Color != nil {
		t.Color = strings.ToLower(t.Color)
	}
	t.Touch()

	if err := s.store.UpdateTag(ctx, t); err != nil {
		if domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflictf("tag with slug %q already exists", t.Slug)
		}
		return nil, mapStoreError(err, "tag not found", "failed to update tag")
	}

	// Re-read so the returned usage count is current.
	if fresh, err := s.store.GetTag(ctx, tagID); err == nil {
		t = fresh
	}

	s.afterWrite(t)
	s.events.Emit(sse.NewTagUpdatedEvent(t))
	s.logger.Info("tag updated", "tag_id", t.ID, "tag_slug", t.Slug)
	return t, nil
}

// DeleteTag removes the tag and all of its assignments. Deleting a missing
// tag succeeds.
func (s *TagService) DeleteTag(ctx context.Context, tagID string) error {
	t, err := s.store.GetTag(ctx, tagID)
	if domainerrors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return mapStoreError(err, "tag not found", "failed to load tag")
	}

	deleted, err := s.store.DeleteTag(ctx, tagID)
	if err != nil {
		return mapStoreError(err, "tag not found", "failed to delete tag")
	}
	if !deleted {
		return nil
	}

	if s.index != nil {
		if err := s.index.DeleteTag(tagID); err != nil {
			s.logger.Warn("failed to remove tag from index", "tag_id", tagID, "error", err)
		}
	}
	s.events.Emit(sse.NewTagDeletedEvent(t))
	s.logger.Info("tag deleted", "tag_id", t.ID, "tag_slug", t.Slug, "assignments_removed", t.UsageCount)
	return nil
}

// SearchTags returns active tags whose name contains q.Query.
func (s *TagService) SearchTags(ctx context.Context, q store.TagQuery) ([]*domain.Tag, error) {
	q.Query = strings.TrimSpace(q.Query)
	q.Normalize()
	tags, err := s.store.SearchTags(ctx, q)
	if err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to search tags")
	}
	return tags, nil
}

// PopularTags returns active tags by usage, highest first.
func (s *TagService) PopularTags(ctx context.Context, tagType string, limit int) ([]*domain.Tag, error) {
	limit = store.ClampLimit(limit, store.DefaultPopularLimit, store.MaxPopularLimit)
	tags, err := s.store.PopularTags(ctx, strings.TrimSpace(tagType), limit)
	if err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to load popular tags")
	}
	return tags, nil
}

// ListTags returns every tag.
func (s *TagService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, mapStoreError(err, "tag not found", "failed to list tags")
	}
	return tags, nil
}

// SuggestTags ranks tags for typeahead. Without an index it falls back to
// substring search.
func (s *TagService) SuggestTags(ctx context.Context, query, tagType string, limit int) ([]search.Suggestion, error) {
	if s.index == nil {
		tags, err := s.SearchTags(ctx, store.TagQuery{Query: query, TagType: tagType, Limit: limit})
		if err != nil {
			return nil, err
		}
		out := make([]search.Suggestion, 0, len(tags))
		for _, t := range tags {
			out = append(out, search.Suggestion{ID: t.ID, Name: t.Name, Slug: t.Slug, TagType: t.TagType, UsageCount: t.UsageCount})
		}
		return out, nil
	}

	out, err := s.index.Suggest(ctx, search.SuggestParams{Query: query, TagType: tagType, Limit: limit})
	if err != nil {
		return nil, domainerrors.Persistence(err, "failed to query tag index")
	}
	return out, nil
}

// ReindexTags rebuilds the suggestion index from the store.
func (s *TagService) ReindexTags(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return 0, mapStoreError(err, "tag not found", "failed to list tags")
	}
	docs := make([]*search.TagDocument, len(tags))
	for i, t := range tags {
		docs[i] = search.NewTagDocument(t)
	}
	if err := s.index.Rebuild(docs); err != nil {
		return 0, domainerrors.Persistence(err, "failed to rebuild tag index")
	}
	s.logger.Info("tag index rebuilt", "tags", len(docs))
	return len(docs), nil
}

// refreshIndex re-indexes tags whose usage changed.
func (s *TagService) refreshIndex(ctx context.Context, tagIDs []string) {
	if s.index == nil || len(tagIDs) == 0 {
		return
	}
	tags, err := s.store.GetTagsByIDs(ctx, tagIDs)
	if err != nil {
		s.logger.Warn("failed to load tags for reindex", "count", len(tagIDs), "error", err)
		return
	}
	for _, t := range tags {
		s.afterWrite(t)
	}
}

func (s *TagService) afterWrite(t *domain.Tag) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexTag(search.NewTagDocument(t)); err != nil {
		s.logger.Warn("failed to index tag", "tag_id", t.ID, "error", err)
	}
}
