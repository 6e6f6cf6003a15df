package domain

import "time"

// ObjectStatus is the lifecycle state of an object.
type ObjectStatus string

// Object statuses.
const (
	ObjectStatusActive   ObjectStatus = "active"
	ObjectStatusArchived ObjectStatus = "archived"
	ObjectStatusDeleted  ObjectStatus = "deleted"
)

// Valid reports whether s is a known status.
func (s ObjectStatus) Valid() bool {
	switch s {
	case ObjectStatusActive, ObjectStatusArchived, ObjectStatusDeleted:
		return true
	}
	return false
}

// ObjectType is a registered kind of generic object (project, client, ...).
type ObjectType struct {
	Timestamps
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// Object is a generic record that participates in the relationship graph.
type Object struct {
	Timestamps
	ID             string       `json:"id"`
	TypeID         string       `json:"type_id"`
	OwnerID        string       `json:"owner_id"`
	OrganizationID string       `json:"organization_id,omitempty"`
	Name           string       `json:"name"`
	Status         ObjectStatus `json:"status"`
}

// IsDeleted returns true if the object has been deleted.
func (o *Object) IsDeleted() bool {
	return o.Status == ObjectStatusDeleted
}

// ObjectUpdate holds the caller-editable fields of an object. Nil fields are left unchanged.
type ObjectUpdate struct {
	Name   *string
	Status *ObjectStatus
}

// ObjectRelationship is a typed directed edge between two objects.
// The (SourceID, TargetID, Type) triple is unique.
type ObjectRelationship struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	Type      string    `json:"relationship_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Direction selects which end of a relationship an object must occupy.
type Direction string

// Traversal directions.
const (
	DirectionSource Direction = "source"
	DirectionTarget Direction = "target"
	DirectionBoth   Direction = "both"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionSource || d == DirectionTarget || d == DirectionBoth
}

// RelationshipView is a relationship joined with the object at its other end.
type RelationshipView struct {
	Relationship *ObjectRelationship `json:"relationship"`
	// Direction is DirectionSource when the queried object is the source.
	Direction Direction `json:"direction"`
	Other     *Object   `json:"other"`
}
