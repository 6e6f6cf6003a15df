package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/store"
)

// objectTypeColumns must match the scan order in scanObjectType.
const objectTypeColumns = `id, slug, name, description, is_active, created_at, updated_at`

func scanObjectType(scanner interface{ Scan(dest ...any) error }) (*domain.ObjectType, error) {
	var t domain.ObjectType

	var (
		description sql.NullString
		isActive    int
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&t.ID,
		&t.Slug,
		&t.Name,
		&description,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.IsActive = isActive != 0

	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateObjectType inserts a registry entry.
// Returns store.ErrAlreadyExists on duplicate slug.
func (s *Store) CreateObjectType(ctx context.Context, t *domain.ObjectType) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO object_types (id, slug, name, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Slug,
		t.Name,
		nullString(t.Description),
		boolInt(t.IsActive),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("object type already exists")
		}
		return fmt.Errorf("insert object_type: %w", err)
	}
	return nil
}

// GetObjectType retrieves a type by ID.
func (s *Store) GetObjectType(ctx context.Context, typeID string) (*domain.ObjectType, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+objectTypeColumns+` FROM object_types WHERE id = ?`, typeID)

	t, err := scanObjectType(row)
	if err != nil {
		return nil, notFound(err, "object type not found")
	}
	return t, nil
}

// GetObjectTypeBySlug retrieves a type by slug.
func (s *Store) GetObjectTypeBySlug(ctx context.Context, slug string) (*domain.ObjectType, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+objectTypeColumns+` FROM object_types WHERE slug = ?`, slug)

	t, err := scanObjectType(row)
	if err != nil {
		return nil, notFound(err, "object type not found")
	}
	return t, nil
}

// ListObjectTypes returns every registered type, active or not, ordered by name.
func (s *Store) ListObjectTypes(ctx context.Context) ([]*domain.ObjectType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+objectTypeColumns+` FROM object_types ORDER BY name ASC, slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("list object_types: %w", err)
	}
	defer rows.Close()

	types := []*domain.ObjectType{}
	for rows.Next() {
		t, err := scanObjectType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan object_type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return types, nil
}

// SetObjectTypeActive toggles whether new objects may use the type.
func (s *Store) SetObjectTypeActive(ctx context.Context, slug string, active bool) (*domain.ObjectType, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE object_types SET is_active = ?, updated_at = ? WHERE slug = ?`,
		boolInt(active), formatTime(time.Now()), slug)
	if err != nil {
		return nil, fmt.Errorf("update object_type: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound.WithMessage("object type not found")
	}
	return s.GetObjectTypeBySlug(ctx, slug)
}
