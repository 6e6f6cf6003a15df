package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/store"
)

// objectColumns must match the scan order in scanObject.
const objectColumns = `id, type_id, owner_id, organization_id, name, status, created_at, updated_at`

func scanObject(scanner interface{ Scan(dest ...any) error }) (*domain.Object, error) {
	var o domain.Object

	var (
		orgID     sql.NullString
		status    string
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&o.ID,
		&o.TypeID,
		&o.OwnerID,
		&orgID,
		&o.Name,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.OrganizationID = orgID.String
	o.Status = domain.ObjectStatus(status)

	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateObject inserts a new object. The type must exist.
func (s *Store) CreateObject(ctx context.Context, o *domain.Object) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO objects (id, type_id, owner_id, organization_id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID,
		o.TypeID,
		o.OwnerID,
		nullString(o.OrganizationID),
		o.Name,
		string(o.Status),
		formatTime(o.CreatedAt),
		formatTime(o.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("object already exists")
		}
		if isForeignKeyViolation(err) {
			return store.ErrNotFound.WithMessage("object type not found")
		}
		return fmt.Errorf("insert object: %w", err)
	}
	return nil
}

// GetObject retrieves an object by ID, including deleted ones.
func (s *Store) GetObject(ctx context.Context, objectID string) (*domain.Object, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+objectColumns+` FROM objects WHERE id = ?`, objectID)

	o, err := scanObject(row)
	if err != nil {
		return nil, notFound(err, "object not found")
	}
	return o, nil
}

// UpdateObject writes the name and status of o.
func (s *Store) UpdateObject(ctx context.Context, o *domain.Object) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE objects SET name = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		o.Name,
		string(o.Status),
		formatTime(o.UpdatedAt),
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update object: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage("object not found")
	}
	return nil
}

// DeleteObject marks the object deleted and removes its relationships in one transaction.
func (s *Store) DeleteObject(ctx context.Context, objectID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE objects SET status = ?, updated_at = ? WHERE id = ?`,
		string(domain.ObjectStatusDeleted), formatTime(time.Now()), objectID)
	if err != nil {
		return 0, fmt.Errorf("mark object deleted: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, store.ErrNotFound.WithMessage("object not found")
	}

	result, err = tx.ExecContext(ctx,
		`DELETE FROM object_relationships WHERE source_id = ? OR target_id = ?`,
		objectID, objectID)
	if err != nil {
		return 0, fmt.Errorf("delete object_relationships: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(removed), nil
}

// ListObjects returns non-deleted objects matching q in creation order.
func (s *Store) ListObjects(ctx context.Context, q store.ObjectQuery) ([]*domain.Object, error) {
	q.Normalize()

	query := `SELECT ` + objectColumns + ` FROM objects WHERE status != 'deleted'`
	args := []any{}
	if q.TypeID != "" {
		query += ` AND type_id = ?`
		args = append(args, q.TypeID)
	}
	if q.OrganizationID != "" {
		query += ` AND organization_id = ?`
		args = append(args, q.OrganizationID)
	}
	if q.Status != "" {
		query += ` AND status = ?`
		args = append(args, q.Status)
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT ?`
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	objects := []*domain.Object{}
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		objects = append(objects, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return objects, nil
}
