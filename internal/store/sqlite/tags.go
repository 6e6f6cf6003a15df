package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kaziapp/taggraph/internal/domain"
	"github.com/kaziapp/taggraph/internal/store"
	"github.com/kaziapp/taggraph/internal/util"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, name, slug, tag_type, color, description, usage_count, is_active, created_at, updated_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		tagType     sql.NullString
		color       sql.NullString
		description sql.NullString
		isActive    int
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&tagType,
		&color,
		&description,
		&t.UsageCount,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.TagType = tagType.String
	t.Color = color.String
	t.Description = description.String
	t.IsActive = isActive != 0

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// scanTags drains rows into a non-nil slice.
func scanTags(rows *sql.Rows) ([]*domain.Tag, error) {
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return tags, nil
}

// CreateTag inserts a new tag into the database.
// Returns store.ErrAlreadyExists on duplicate slug.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, slug, tag_type, color, description, usage_count, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.Slug,
		nullString(t.TagType),
		nullString(t.Color),
		nullString(t.Description),
		boolInt(t.IsActive),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("tag already exists")
		}
		return fmt.Errorf("insert tag: %w", err)
	}
	t.UsageCount = 0
	return nil
}

// GetTag retrieves a tag by its ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, tagID)

	t, err := scanTag(row)
	if err != nil {
		return nil, notFound(err, "tag not found")
	}
	return t, nil
}

// GetTagBySlug retrieves a tag by its slug.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE slug = ?`, slug)

	t, err := scanTag(row)
	if err != nil {
		return nil, notFound(err, "tag not found")
	}
	return t, nil
}

// GetTagsByIDs returns the tags that exist among ids, in no particular order.
func (s *Store) GetTagsByIDs(ctx context.Context, ids []string) ([]*domain.Tag, error) {
	if len(ids) == 0 {
		return []*domain.Tag{}, nil
	}

	args := make([]any, len(ids))
	for i, v := range ids {
		args[i] = v
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	return scanTags(rows)
}

// UpdateTag writes the editable columns of t. usage_count is left alone.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tags SET
			name = ?,
			slug = ?,
			tag_type = ?,
			color = ?,
			description = ?,
			is_active = ?,
			updated_at = ?
		WHERE id = ?`,
		t.Name,
		t.Slug,
		nullString(t.TagType),
		nullString(t.Color),
		nullString(t.Description),
		boolInt(t.IsActive),
		formatTime(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("tag already exists")
		}
		return fmt.Errorf("update tag: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage("tag not found")
	}
	return nil
}

// DeleteTag removes the tag's assignments and then the tag in one transaction.
func (s *Store) DeleteTag(ctx context.Context, tagID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tag_assignments WHERE tag_id = ?`, tagID); err != nil {
		return false, fmt.Errorf("delete tag_assignments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, tagID)
	if err != nil {
		return false, fmt.Errorf("delete tag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

// SearchTags returns active tags whose name contains q.Query, case-insensitively.
func (s *Store) SearchTags(ctx context.Context, q store.TagQuery) ([]*domain.Tag, error) {
	q.Normalize()

	query := `SELECT ` + tagColumns + ` FROM tags WHERE is_active = 1 AND instr(` + casefoldFunc + `(name), ?) > 0`
	args := []any{util.FoldCase(q.Query)}
	if q.TagType != "" {
		query += ` AND tag_type = ?`
		args = append(args, q.TagType)
	}
	query += ` ORDER BY rowid ASC LIMIT ?`
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}
	return scanTags(rows)
}

// PopularTags returns active tags ordered by usage_count descending, ties by slug.
func (s *Store) PopularTags(ctx context.Context, tagType string, limit int) ([]*domain.Tag, error) {
	limit = store.ClampLimit(limit, store.DefaultPopularLimit, store.MaxPopularLimit)

	query := `SELECT ` + tagColumns + ` FROM tags WHERE is_active = 1`
	args := []any{}
	if tagType != "" {
		query += ` AND tag_type = ?`
		args = append(args, tagType)
	}
	query += ` ORDER BY usage_count DESC, slug ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query popular tags: %w", err)
	}
	return scanTags(rows)
}

// ListTags returns all tags ordered by slug.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return scanTags(rows)
}
