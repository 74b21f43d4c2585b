package blogservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrDuplicateCategory = errors.New("category already exists")
	ErrCategoryNotEmpty  = errors.New("category is not empty")
)

func duplicateCategoryError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == "categories_title_lower_idx"
	}
	return false
}

func (m *BlogModel) getCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT c.id, c.title, COALESCE(array_agg(p.id ORDER BY p.id) FILTER (WHERE p.id IS NOT NULL), '{}')
		FROM categories c
		LEFT JOIN posts p ON p.category_id = c.id
		GROUP BY c.id
		ORDER BY c.title`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		var ids pq.Int64Array
		if err := rows.Scan(&c.ID, &c.Title, &ids); err != nil {
			return nil, err
		}
		c.PostIDs = make([]int, 0, len(ids))
		for _, id := range ids {
			c.PostIDs = append(c.PostIDs, int(id))
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// getCategoryByTitle matches the title exactly but case-insensitively.
func (m *BlogModel) getCategoryByTitle(ctx context.Context, title string) (*Category, error) {
	query := `
		SELECT id, title
		FROM categories
		WHERE lower(title) = lower($1)`

	var c Category
	err := m.db.QueryRowContext(ctx, query, title).Scan(&c.ID, &c.Title)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &c, nil
}

func (m *BlogModel) getCategoryByID(ctx context.Context, id int) (*Category, error) {
	query := `
		SELECT id, title
		FROM categories
		WHERE id = $1`

	var c Category
	err := m.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Title)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &c, nil
}

func (m *BlogModel) insertCategory(ctx context.Context, title string) (*Category, error) {
	query := `
		INSERT INTO categories (title)
		VALUES ($1)
		RETURNING id, title`

	var c Category
	err := m.db.QueryRowContext(ctx, query, title).Scan(&c.ID, &c.Title)
	if err != nil {
		switch {
		case duplicateCategoryError(err):
			return nil, ErrDuplicateCategory
		default:
			return nil, err
		}
	}

	c.PostIDs = []int{}
	return &c, nil
}

func (m *BlogModel) renameCategory(ctx context.Context, id int, title string) error {
	query := `
		UPDATE categories
		SET title = $1
		WHERE id = $2`

	res, err := m.db.ExecContext(ctx, query, title, id)
	if err != nil {
		switch {
		case duplicateCategoryError(err):
			return ErrDuplicateCategory
		default:
			return err
		}
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// deleteCategory refuses to remove a category that still has posts.
func (m *BlogModel) deleteCategory(ctx context.Context, id int) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var count int
	err = tx.QueryRowContext(ctx, `SELECT count(*) FROM posts WHERE category_id = $1`, id).Scan(&count)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	if count > 0 {
		_ = tx.Rollback()
		return ErrCategoryNotEmpty
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	if rows == 0 {
		_ = tx.Rollback()
		return ErrRecordNotFound
	}

	return tx.Commit()
}
