package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/store"
)

const relationshipColumns = `r.id, r.source_id, r.target_id, r.relationship_type, r.created_at`

// requireLiveObject fails with store.ErrNotFound when the object is missing or deleted.
func requireLiveObject(ctx context.Context, tx *sql.Tx, objectID, msg string) error {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM objects WHERE id = ?`, objectID).Scan(&status)
	if err != nil {
		return notFound(err, msg)
	}
	if domain.ObjectStatus(status) == domain.ObjectStatusDeleted {
		return store.ErrNotFound.WithMessage(msg)
	}
	return nil
}

// CreateRelationship inserts a typed edge between two live objects.
func (s *Store) CreateRelationship(ctx context.Context, r *domain.ObjectRelationship) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if err := requireLiveObject(ctx, tx, r.SourceID, "source object not found"); err != nil {
		return err
	}
	if err := requireLiveObject(ctx, tx, r.TargetID, "target object not found"); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO object_relationships (id, source_id, target_id, relationship_type, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID,
		r.SourceID,
		r.TargetID,
		r.Type,
		formatTime(r.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("relationship already exists")
		}
		return fmt.Errorf("insert object_relationship: %w", err)
	}

	return tx.Commit()
}

// DeleteRelationship removes the edge if present.
func (s *Store) DeleteRelationship(ctx context.Context, sourceID, targetID, relType string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM object_relationships
		WHERE source_id = ? AND target_id = ? AND relationship_type = ?`,
		sourceID, targetID, relType)
	if err != nil {
		return false, fmt.Errorf("delete object_relationship: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Relationships returns the edges touching objectID, outgoing first, each joined
// with the object at the other end.
func (s *Store) Relationships(ctx context.Context, objectID string, dir domain.Direction, relType string) ([]*domain.RelationshipView, error) {
	if _, err := s.GetObject(ctx, objectID); err != nil {
		return nil, err
	}

	views := []*domain.RelationshipView{}

	if dir == domain.DirectionSource || dir == domain.DirectionBoth {
		out, err := s.queryRelationships(ctx, "source_id", "target_id", objectID, relType, domain.DirectionSource)
		if err != nil {
			return nil, err
		}
		views = append(views, out...)
	}

	if dir == domain.DirectionTarget || dir == domain.DirectionBoth {
		in, err := s.queryRelationships(ctx, "target_id", "source_id", objectID, relType, domain.DirectionTarget)
		if err != nil {
			return nil, err
		}
		views = append(views, in...)
	}

	return views, nil
}

// queryRelationships selects edges where column self equals objectID and joins
// the object referenced by column other.
func (s *Store) queryRelationships(ctx context.Context, self, other, objectID, relType string, dir domain.Direction) ([]*domain.RelationshipView, error) {
	query := `
		SELECT ` + relationshipColumns + `, ` + qualify("o", objectColumns) + `
		FROM object_relationships r
		JOIN objects o ON o.id = r.` + other + `
		WHERE r.` + self + ` = ?`
	args := []any{objectID}
	if relType != "" {
		query += ` AND r.relationship_type = ?`
		args = append(args, relType)
	}
	query += ` ORDER BY r.created_at ASC, r.rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var views []*domain.RelationshipView
	for rows.Next() {
		var (
			r         domain.ObjectRelationship
			createdAt string
			o         domain.Object
			orgID     sql.NullString
			status    string
			oCreated  string
			oUpdated  string
		)
		if err := rows.Scan(
			&r.ID, &r.SourceID, &r.TargetID, &r.Type, &createdAt,
			&o.ID, &o.TypeID, &o.OwnerID, &orgID, &o.Name, &status, &oCreated, &oUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}

		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		o.OrganizationID = orgID.String
		o.Status = domain.ObjectStatus(status)
		if o.CreatedAt, err = parseTime(oCreated); err != nil {
			return nil, err
		}
		if o.UpdatedAt, err = parseTime(oUpdated); err != nil {
			return nil, err
		}

		views = append(views, &domain.RelationshipView{
			Relationship: &r,
			Direction:    dir,
			Other:        &o,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return views, nil
}
