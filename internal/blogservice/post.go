package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrUserForeignKey   = errors.New("user_id does not exist")
	ErrCategoryNotFound = errors.New("category not found")
)

func newBlogModel(db *sql.DB) *BlogModel {
	return &BlogModel{db: db}
}

// ForeignKeyError is a helper function to check if the error is a foreign key constraint error.
func ForeignKeyError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23503" && pqErr.Constraint == name {
			return true
		}
	}

	return false
}

// summaryColumns are the columns every listing query selects. The author is
// resolved through a LEFT JOIN so posts survive a dangling author reference.
const summaryColumns = `
	p.id, COALESCE(u.username, 'Deleted User'), p.title, p.content, c.title, p.tags, p.created_at,
	(SELECT count(*) FROM post_views v WHERE v.post_id = p.id),
	(SELECT count(*) FROM post_likes l WHERE l.post_id = p.id),
	(SELECT count(*) FROM post_dislikes d WHERE d.post_id = p.id),
	(SELECT count(*) FROM comments cm WHERE cm.post_id = p.id)`

func scanSummary(rows *sql.Rows) (*PostSummary, error) {
	var s PostSummary
	err := rows.Scan(&s.ID, &s.Author, &s.Title, &s.Content, &s.Category, pq.Array(&s.Tags), &s.CreatedAt, &s.ViewCount, &s.LikeCount, &s.DislikeCount, &s.CommentCount)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *BlogModel) insertPost(ctx context.Context, post *Post) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO posts (user_id, category_id, title, content, tags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version`

	err = tx.QueryRowContext(ctx, query, post.UserID, post.CategoryID, post.Title, post.Content, pq.Array(post.Tags)).Scan(&post.ID, &post.CreatedAt, &post.Version)
	if err != nil {
		_ = tx.Rollback()
		switch {
		case ForeignKeyError(err, "posts_user_id_fkey"):
			return ErrUserForeignKey
		case ForeignKeyError(err, "posts_category_id_fkey"):
			return ErrCategoryNotFound
		default:
			return err
		}
	}

	for _, img := range post.Images {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO post_images (post_id, caption, url, object_key)
			VALUES ($1, $2, $3, $4)`, post.ID, img.Caption, img.URL, img.ObjectKey)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (m *BlogModel) getPostByID(ctx context.Context, id int) (*Post, error) {
	query := `
		SELECT p.id, p.user_id, COALESCE(u.username, 'Deleted User'), p.title, p.content,
			p.category_id, c.title, p.tags, p.created_at, p.version,
			(SELECT count(*) FROM post_views v WHERE v.post_id = p.id),
			(SELECT count(*) FROM post_likes l WHERE l.post_id = p.id),
			(SELECT count(*) FROM post_dislikes d WHERE d.post_id = p.id),
			(SELECT count(*) FROM comments cm WHERE cm.post_id = p.id)
		FROM posts p
		LEFT JOIN users u ON p.user_id = u.id
		JOIN categories c ON p.category_id = c.id
		WHERE p.id = $1`

	var post Post
	var userID sql.NullInt64

	err := m.db.QueryRowContext(ctx, query, id).Scan(&post.ID, &userID, &post.Author, &post.Title, &post.Content, &post.CategoryID, &post.Category, pq.Array(&post.Tags), &post.CreatedAt, &post.Version, &post.ViewCount, &post.LikeCount, &post.DislikeCount, &post.CommentCount)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	post.UserID = int(userID.Int64)

	images, err := m.getImages(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	post.Images = images

	return &post, nil
}

func (m *BlogModel) postExists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (m *BlogModel) getImages(ctx context.Context, postID int) ([]Image, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT caption, url, object_key
		FROM post_images
		WHERE post_id = $1
		ORDER BY id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := []Image{}
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.Caption, &img.URL, &img.ObjectKey); err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	return images, rows.Err()
}

// attachImages fills the Images field of each summary. Listing pages are
// small (default 10) so the per-post query is acceptable.
func (m *BlogModel) attachImages(ctx context.Context, posts []PostSummary) error {
	for i := range posts {
		images, err := m.getImages(ctx, posts[i].ID)
		if err != nil {
			return err
		}
		posts[i].Images = images
	}
	return nil
}

// getPosts lists post summaries newest first. Tag and author filters are
// case-insensitive substring matches, like the original search behaviour.
func (m *BlogModel) getPosts(ctx context.Context, f Filters) ([]PostSummary, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		LEFT JOIN users u ON p.user_id = u.id
		JOIN categories c ON p.category_id = c.id
		WHERE ($1::text[] IS NULL OR EXISTS (
			SELECT 1 FROM unnest(p.tags) AS tg, unnest($1::text[]) AS q
			WHERE tg ILIKE '%%' || q || '%%'))
		AND ($2 = '' OR u.username ILIKE '%%' || $2 || '%%')
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $3 OFFSET $4`, summaryColumns)

	var tags interface{}
	if len(f.Tags) > 0 {
		tags = pq.Array(f.Tags)
	}

	rows, err := m.db.QueryContext(ctx, query, tags, f.Author, f.Limit, f.offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []PostSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := m.attachImages(ctx, posts); err != nil {
		return nil, err
	}

	return posts, nil
}

// searchPosts matches the query against title, content, tags, and author
// username.
func (m *BlogModel) searchPosts(ctx context.Context, query string) ([]PostSummary, error) {
	stmt := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		LEFT JOIN users u ON p.user_id = u.id
		JOIN categories c ON p.category_id = c.id
		WHERE p.title ILIKE '%%' || $1 || '%%'
			OR p.content ILIKE '%%' || $1 || '%%'
			OR EXISTS (SELECT 1 FROM unnest(p.tags) AS tg WHERE tg ILIKE '%%' || $1 || '%%')
			OR u.username ILIKE '%%' || $1 || '%%'
		ORDER BY p.created_at DESC, p.id DESC`, summaryColumns)

	rows, err := m.db.QueryContext(ctx, stmt, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []PostSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := m.attachImages(ctx, posts); err != nil {
		return nil, err
	}

	return posts, nil
}

func (m *BlogModel) getPostsByCategory(ctx context.Context, categoryID int) ([]PostSummary, error) {
	stmt := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		LEFT JOIN users u ON p.user_id = u.id
		JOIN categories c ON p.category_id = c.id
		WHERE p.category_id = $1
		ORDER BY p.created_at DESC, p.id DESC`, summaryColumns)

	rows, err := m.db.QueryContext(ctx, stmt, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []PostSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := m.attachImages(ctx, posts); err != nil {
		return nil, err
	}

	return posts, nil
}

func (m *BlogModel) updatePost(ctx context.Context, post *Post) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	query := `
		UPDATE posts
		SET title = $1, content = $2, tags = $3, category_id = $4, version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version`

	err = tx.QueryRowContext(ctx, query, post.Title, post.Content, pq.Array(post.Tags), post.CategoryID, post.ID, post.Version).Scan(&post.Version)
	if err != nil {
		_ = tx.Rollback()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		case ForeignKeyError(err, "posts_category_id_fkey"):
			return ErrCategoryNotFound
		default:
			return err
		}
	}

	if post.Images != nil {
		_, err = tx.ExecContext(ctx, `DELETE FROM post_images WHERE post_id = $1`, post.ID)
		if err != nil {
			_ = tx.Rollback()
			return err
		}

		for _, img := range post.Images {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO post_images (post_id, caption, url, object_key)
				VALUES ($1, $2, $3, $4)`, post.ID, img.Caption, img.URL, img.ObjectKey)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}

	return tx.Commit()
}

// deletePost removes the post and returns the object keys of its images so
// the caller can schedule remote asset cleanup.
func (m *BlogModel) deletePost(ctx context.Context, id int) ([]string, error) {
	images, err := m.getImages(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := m.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		return nil, ErrRecordNotFound
	}

	keys := make([]string, 0, len(images))
	for _, img := range images {
		keys = append(keys, img.ObjectKey)
	}

	return keys, nil
}
