package domain

import (
	"regexp"
	"time"
)

// Tag is a reusable label that can be attached to any item in the system.
// Tags are global; the slug is the source of truth for identity.
type Tag struct {
	Timestamps
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	TagType     string `json:"tag_type,omitempty"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
	// UsageCount is the number of assignments referencing this tag.
	// Only the assignment operations of a store change it.
	UsageCount int  `json:"usage_count"`
	IsActive   bool `json:"is_active"`
}

// TagUpdate holds the caller-editable fields of a tag. Nil fields are left unchanged.
type TagUpdate struct {
	Name        *string
	TagType     *string
	Color       *string
	Description *string
	IsActive    *bool
}

// Empty reports whether the update changes nothing.
func (u TagUpdate) Empty() bool {
	return u.Name == nil && u.TagType == nil && u.Color == nil && u.Description == nil && u.IsActive == nil
}

// Apply copies the set fields onto t. The caller derives the slug for a new name.
func (u TagUpdate) Apply(t *Tag) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.TagType != nil {
		t.TagType = *u.TagType
	}
	if u.Color != nil {
		t.Color = *u.Color
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.IsActive != nil {
		t.IsActive = *u.IsActive
	}
}

// itemIDRe limits item IDs to characters that are safe inside storage keys.
var itemIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// ItemRef is a weak polymorphic reference to a record owned by another module.
// The engine never dereferences it.
type ItemRef struct {
	ID   string `json:"item_id"`
	Type string `json:"item_type"`
}

// ValidItemID reports whether id is a well formed item ID.
func ValidItemID(id string) bool {
	return itemIDRe.MatchString(id)
}

// ValidID reports whether the item ID is well formed.
func (r ItemRef) ValidID() bool {
	return ValidItemID(r.ID)
}

// String returns "type/id".
func (r ItemRef) String() string {
	return r.Type + "/" + r.ID
}

// TagAssignment is an edge from a tag to an item.
// The (TagID, Item) pair is unique.
type TagAssignment struct {
	TagID     string    `json:"tag_id"`
	Item      ItemRef   `json:"item"`
	CreatedAt time.Time `json:"created_at"`
	// Seq orders assignments by insertion.
	Seq uint64 `json:"seq"`
}
