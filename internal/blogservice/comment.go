package blogservice

import (
	"context"
	"database/sql"
	"errors"
)

const commentColumns = `
	cm.id, cm.post_id, cm.user_id, COALESCE(u.username, 'Deleted User'), cm.content, cm.created_at, cm.version,
	(SELECT count(*) FROM comment_likes l WHERE l.comment_id = cm.id),
	(SELECT count(*) FROM comment_dislikes d WHERE d.comment_id = cm.id)`

func scanComment(row interface{ Scan(...any) error }) (*Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.Author, &c.Content, &c.CreatedAt, &c.Version, &c.LikeCount, &c.DislikeCount)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *BlogModel) getCommentsByPost(ctx context.Context, postID int) ([]Comment, error) {
	query := `
		SELECT` + commentColumns + `
		FROM comments cm
		LEFT JOIN users u ON cm.user_id = u.id
		WHERE cm.post_id = $1
		ORDER BY cm.created_at`

	rows, err := m.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}

	return comments, rows.Err()
}

func (m *BlogModel) getCommentByID(ctx context.Context, id int) (*Comment, error) {
	query := `
		SELECT` + commentColumns + `
		FROM comments cm
		LEFT JOIN users u ON cm.user_id = u.id
		WHERE cm.id = $1`

	c, err := scanComment(m.db.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return c, nil
}

func (m *BlogModel) insertComment(ctx context.Context, c *Comment) error {
	query := `
		INSERT INTO comments (post_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version`

	err := m.db.QueryRowContext(ctx, query, c.PostID, c.UserID, c.Content).Scan(&c.ID, &c.CreatedAt, &c.Version)
	if err != nil {
		switch {
		case ForeignKeyError(err, "comments_post_id_fkey"):
			return ErrRecordNotFound
		case ForeignKeyError(err, "comments_user_id_fkey"):
			return ErrUserForeignKey
		default:
			return err
		}
	}

	return nil
}

func (m *BlogModel) updateComment(ctx context.Context, c *Comment) error {
	query := `
		UPDATE comments
		SET content = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version`

	err := m.db.QueryRowContext(ctx, query, c.Content, c.ID, c.Version).Scan(&c.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *BlogModel) deleteComment(ctx context.Context, id int) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
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
