// Package sse streams graph change notifications to connected clients as
// Server-Sent Events.
package sse

import (
	"time"

	"github.com/kaziapp/taggraph/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	EventTagCreated EventType = "tag.created"
	EventTagUpdated EventType = "tag.updated"
	EventTagDeleted EventType = "tag.deleted"

	// EventTagAssigned fires once per newly created assignment.
	EventTagAssigned   EventType = "tag.assigned"
	EventTagUnassigned EventType = "tag.unassigned"
	// EventItemTagsSet summarizes a SetItemTags diff.
	EventItemTagsSet     EventType = "item.tags_set"
	EventItemTagsCleared EventType = "item.tags_cleared"
	EventTagsRecounted   EventType = "tags.recounted"

	EventObjectCreated EventType = "object.created"
	EventObjectUpdated EventType = "object.updated"
	EventObjectDeleted EventType = "object.deleted"
	EventObjectLinked  EventType = "object.linked"
	// EventObjectUnlinked is only sent when an edge was actually removed.
	EventObjectUnlinked EventType = "object.unlinked"

	EventTypeRegistered EventType = "type.registered"
	EventTypeUpdated    EventType = "type.updated"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// OrganizationID scopes object events. Empty means every client receives it.
	OrganizationID string `json:"-"`
}

func newEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now()}
}

// TagEventData is the payload for tag lifecycle events.
type TagEventData struct {
	Tag *domain.Tag `json:"tag"`
}

// TagDeletedEventData is the payload for tag.deleted.
type TagDeletedEventData struct {
	TagID              string `json:"tag_id"`
	Slug               string `json:"slug"`
	AssignmentsRemoved int    `json:"assignments_removed"`
}

// AssignmentEventData is the payload for tag.assigned and tag.unassigned.
type AssignmentEventData struct {
	TagID      string         `json:"tag_id"`
	Item       domain.ItemRef `json:"item"`
	UsageCount int            `json:"usage_count"`
}

// ItemTagsEventData is the payload for item.tags_set and item.tags_cleared.
type ItemTagsEventData struct {
	Item    domain.ItemRef `json:"item"`
	Added   []string       `json:"added"`
	Removed []string       `json:"removed"`
}

// RecountEventData is the payload for tags.recounted.
type RecountEventData struct {
	Corrected int `json:"corrected"`
}

// ObjectEventData is the payload for object lifecycle events.
type ObjectEventData struct {
	Object *domain.Object `json:"object"`
}

// ObjectDeletedEventData is the payload for object.deleted.
type ObjectDeletedEventData struct {
	ObjectID             string `json:"object_id"`
	RelationshipsRemoved int    `json:"relationships_removed"`
}

// RelationshipEventData is the payload for object.linked and object.unlinked.
type RelationshipEventData struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Type     string `json:"relationship_type"`
}

// ObjectTypeEventData is the payload for type events.
type ObjectTypeEventData struct {
	Type *domain.ObjectType `json:"type"`
}

// HeartbeatEventData is the payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewTagCreatedEvent creates a tag.created event.
func NewTagCreatedEvent(t *domain.Tag) Event {
	return newEvent(EventTagCreated, TagEventData{Tag: t})
}

// NewTagUpdatedEvent creates a tag.updated event.
func NewTagUpdatedEvent(t *domain.Tag) Event {
	return newEvent(EventTagUpdated, TagEventData{Tag: t})
}

// NewTagDeletedEvent creates a tag.deleted event.
func NewTagDeletedEvent(t *domain.Tag) Event {
	return newEvent(EventTagDeleted, TagDeletedEventData{
		TagID:              t.ID,
		Slug:               t.Slug,
		AssignmentsRemoved: t.UsageCount,
	})
}

// NewTagAssignedEvent creates a tag.assigned event.
func NewTagAssignedEvent(t *domain.Tag, item domain.ItemRef) Event {
	return newEvent(EventTagAssigned, AssignmentEventData{TagID: t.ID, Item: item, UsageCount: t.UsageCount})
}

// NewTagUnassignedEvent creates a tag.unassigned event.
func NewTagUnassignedEvent(t *domain.Tag, item domain.ItemRef) Event {
	return newEvent(EventTagUnassigned, AssignmentEventData{TagID: t.ID, Item: item, UsageCount: t.UsageCount})
}

// NewItemTagsSetEvent creates an item.tags_set event.
func NewItemTagsSetEvent(item domain.ItemRef, added, removed []string) Event {
	return newEvent(EventItemTagsSet, ItemTagsEventData{Item: item, Added: added, Removed: removed})
}

// NewItemTagsClearedEvent creates an item.tags_cleared event.
func NewItemTagsClearedEvent(item domain.ItemRef, removed []string) Event {
	return newEvent(EventItemTagsCleared, ItemTagsEventData{Item: item, Added: []string{}, Removed: removed})
}

// NewTagsRecountedEvent creates a tags.recounted event.
func NewTagsRecountedEvent(corrected int) Event {
	return newEvent(EventTagsRecounted, RecountEventData{Corrected: corrected})
}

// NewObjectCreatedEvent creates an object.created event scoped to the object's organization.
func NewObjectCreatedEvent(o *domain.Object) Event {
	e := newEvent(EventObjectCreated, ObjectEventData{Object: o})
	e.OrganizationID = o.OrganizationID
	return e
}

// NewObjectUpdatedEvent creates an object.updated event.
func NewObjectUpdatedEvent(o *domain.Object) Event {
	e := newEvent(EventObjectUpdated, ObjectEventData{Object: o})
	e.OrganizationID = o.OrganizationID
	return e
}

// NewObjectDeletedEvent creates an object.deleted event.
func NewObjectDeletedEvent(o *domain.Object, relationshipsRemoved int) Event {
	e := newEvent(EventObjectDeleted, ObjectDeletedEventData{ObjectID: o.ID, RelationshipsRemoved: relationshipsRemoved})
	e.OrganizationID = o.OrganizationID
	return e
}

// NewObjectLinkedEvent creates an object.linked event.
func NewObjectLinkedEvent(r *domain.ObjectRelationship, orgID string) Event {
	e := newEvent(EventObjectLinked, RelationshipEventData{SourceID: r.SourceID, TargetID: r.TargetID, Type: r.Type})
	e.OrganizationID = orgID
	return e
}

// NewObjectUnlinkedEvent creates an object.unlinked event.
func NewObjectUnlinkedEvent(sourceID, targetID, relType, orgID string) Event {
	e := newEvent(EventObjectUnlinked, RelationshipEventData{SourceID: sourceID, TargetID: targetID, Type: relType})
	e.OrganizationID = orgID
	return e
}

// NewTypeRegisteredEvent creates a type.registered event.
func NewTypeRegisteredEvent(t *domain.ObjectType) Event {
	return newEvent(EventTypeRegistered, ObjectTypeEventData{Type: t})
}

// NewTypeUpdatedEvent creates a type.updated event.
func NewTypeUpdatedEvent(t *domain.ObjectType) Event {
	return newEvent(EventTypeUpdated, ObjectTypeEventData{Type: t})
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{Type: EventHeartbeat, Data: HeartbeatEventData{ServerTime: now}, Timestamp: now}
}
