package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/store"
)

// qualify prefixes every column in a comma separated list with alias.
func qualify(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// execer is satisfied by *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func requireTag(ctx context.Context, q execer, tagID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM tags WHERE id = ?`, tagID).Scan(&one)
	if err != nil {
		return notFound(err, "tag not found")
	}
	return nil
}

// insertAssignment adds the edge and bumps usage_count when the edge is new.
func insertAssignment(ctx context.Context, q execer, tagID string, item domain.ItemRef, now string) (bool, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO tag_assignments (tag_id, item_id, item_type, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tag_id, item_id, item_type) DO NOTHING`,
		tagID, item.ID, item.Type, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert tag_assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if _, err := q.ExecContext(ctx,
		`UPDATE tags SET usage_count = usage_count + 1 WHERE id = ?`, tagID); err != nil {
		return false, fmt.Errorf("increment usage_count: %w", err)
	}
	return true, nil
}

// deleteAssignment removes the edge and decrements usage_count, floored at zero,
// when an edge was actually removed.
func deleteAssignment(ctx context.Context, q execer, tagID string, item domain.ItemRef) (bool, error) {
	result, err := q.ExecContext(ctx, `
		DELETE FROM tag_assignments
		WHERE tag_id = ? AND item_id = ? AND item_type = ?`,
		tagID, item.ID, item.Type,
	)
	if err != nil {
		return false, fmt.Errorf("delete tag_assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if _, err := q.ExecContext(ctx,
		`UPDATE tags SET usage_count = MAX(usage_count - 1, 0) WHERE id = ?`, tagID); err != nil {
		return false, fmt.Errorf("decrement usage_count: %w", err)
	}
	return true, nil
}

// AssignTag attaches the tag to the item. Repeated calls are no-ops.
func (s *Store) AssignTag(ctx context.Context, tagID string, item domain.ItemRef) (*domain.TagAssignment, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireTag(ctx, tx, tagID); err != nil {
		return nil, false, err
	}

	created, err := insertAssignment(ctx, tx, tagID, item, formatTime(time.Now()))
	if err != nil {
		return nil, false, err
	}

	a := &domain.TagAssignment{TagID: tagID, Item: item}
	var createdAt string
	err = tx.QueryRowContext(ctx, `
		SELECT seq, created_at FROM tag_assignments
		WHERE tag_id = ? AND item_id = ? AND item_type = ?`,
		tagID, item.ID, item.Type,
	).Scan(&a.Seq, &createdAt)
	if err != nil {
		return nil, false, fmt.Errorf("read tag_assignment: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return a, created, nil
}

// UnassignTag detaches the tag from the item. A missing edge is not an error.
func (s *Store) UnassignTag(ctx context.Context, tagID string, item domain.ItemRef) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	removed, err := deleteAssignment(ctx, tx, tagID, item)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return removed, nil
}

// SetItemTags replaces the item's tag set by diff. Tags already assigned and
// still wanted are not touched, so their counts do not move.
func (s *Store) SetItemTags(ctx context.Context, item domain.ItemRef, tagIDs []string) ([]string, []string, error) {
	wanted := store.DedupeIDs(tagIDs)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, tagID := range wanted {
		if err := requireTag(ctx, tx, tagID); err != nil {
			return nil, nil, err
		}
	}

	current, err := itemTagIDs(ctx, tx, item)
	if err != nil {
		return nil, nil, err
	}

	added, removed := store.DiffIDs(current, wanted)

	for _, tagID := range removed {
		if _, err := deleteAssignment(ctx, tx, tagID, item); err != nil {
			return nil, nil, err
		}
	}

	now := formatTime(time.Now())
	for _, tagID := range added {
		if _, err := insertAssignment(ctx, tx, tagID, item, now); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return added, removed, nil
}

func itemTagIDs(ctx context.Context, tx *sql.Tx, item domain.ItemRef) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT tag_id FROM tag_assignments
		WHERE item_type = ? AND item_id = ?
		ORDER BY seq ASC`,
		item.Type, item.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tag_assignments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return nil, fmt.Errorf("scan tag_assignment: %w", err)
		}
		ids = append(ids, tagID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

// ItemTags returns the tags on an item in assignment order.
func (s *Store) ItemTags(ctx context.Context, item domain.ItemRef) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+qualify("t", tagColumns)+`
		FROM tag_assignments a
		JOIN tags t ON t.id = a.tag_id
		WHERE a.item_type = ? AND a.item_id = ?
		ORDER BY a.seq ASC`,
		item.Type, item.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query item tags: %w", err)
	}
	return scanTags(rows)
}

// ItemsByTag returns the items carrying the tag in assignment order.
func (s *Store) ItemsByTag(ctx context.Context, tagID, itemType string, limit int) ([]domain.ItemRef, error) {
	limit = store.ClampLimit(limit, store.DefaultItemsLimit, store.MaxItemsLimit)

	query := `SELECT item_id, item_type FROM tag_assignments WHERE tag_id = ?`
	args := []any{tagID}
	if itemType != "" {
		query += ` AND item_type = ?`
		args = append(args, itemType)
	}
	query += ` ORDER BY seq ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items by tag: %w", err)
	}
	defer rows.Close()

	items := []domain.ItemRef{}
	for rows.Next() {
		var ref domain.ItemRef
		if err := rows.Scan(&ref.ID, &ref.Type); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

// ClearItemTags removes every assignment of the item, decrementing each tag.
func (s *Store) ClearItemTags(ctx context.Context, item domain.ItemRef) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := itemTagIDs(ctx, tx, item)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, tagID := range current {
		ok, err := deleteAssignment(ctx, tx, tagID, item)
		if err != nil {
			return 0, err
		}
		if ok {
			removed++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return removed, nil
}

// RecountUsage resets every usage_count to the number of edges referencing the tag.
func (s *Store) RecountUsage(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tags
		SET usage_count = (SELECT COUNT(*) FROM tag_assignments a WHERE a.tag_id = tags.id)
		WHERE usage_count != (SELECT COUNT(*) FROM tag_assignments a WHERE a.tag_id = tags.id)`)
	if err != nil {
		return 0, fmt.Errorf("recount usage: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
