package store

// Result size limits for list operations.
const (
	DefaultSearchLimit  = 20
	MaxSearchLimit      = 100
	DefaultPopularLimit = 20
	MaxPopularLimit     = 100
	DefaultItemsLimit   = 50
	MaxItemsLimit       = 500
	DefaultObjectsLimit = 100
	MaxObjectsLimit     = 1000
)

// MaxItemTags caps the tag set one SetItemTags call may apply.
const MaxItemTags = 1000

// ClampLimit returns def for non-positive limits and caps the rest at max.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// TagQuery filters tag searches.
type TagQuery struct {
	// Query is matched as a substring of the tag name after Unicode case folding.
	Query   string
	TagType string
	Limit   int
}

// Normalize applies search limit defaults.
func (q *TagQuery) Normalize() {
	q.Limit = ClampLimit(q.Limit, DefaultSearchLimit, MaxSearchLimit)
}

// ObjectQuery filters object listings. Deleted objects are never returned.
type ObjectQuery struct {
	TypeID         string
	OrganizationID string
	Status         string
	Limit          int
}

// Normalize applies listing limit defaults.
func (q *ObjectQuery) Normalize() {
	q.Limit = ClampLimit(q.Limit, DefaultObjectsLimit, MaxObjectsLimit)
}
