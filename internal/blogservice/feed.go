package blogservice

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

// interactedTags returns the tags of every post the user has liked or
// viewed, flattened in descending order of the posts' total interaction
// count (views + likes). Duplicate tags are kept: a tag appearing on several
// touched posts is a stronger signal.
func (m *BlogModel) interactedTags(ctx context.Context, userID int) ([]string, error) {
	query := `
		SELECT p.tags
		FROM posts p
		WHERE EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = $1)
			OR EXISTS (SELECT 1 FROM post_views v WHERE v.post_id = p.id AND v.user_id = $1)
		ORDER BY (SELECT count(*) FROM post_views v WHERE v.post_id = p.id)
			+ (SELECT count(*) FROM post_likes l WHERE l.post_id = p.id) DESC`

	rows, err := m.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var postTags []string
		if err := rows.Scan(pq.Array(&postTags)); err != nil {
			return nil, err
		}
		tags = append(tags, postTags...)
	}

	return tags, rows.Err()
}

// popularPosts lists summaries ordered by raw view count descending. Feed
// fallback for users with no interaction history.
func (m *BlogModel) popularPosts(ctx context.Context, limit, offset int) ([]PostSummary, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		LEFT JOIN users u ON p.user_id = u.id
		JOIN categories c ON p.category_id = c.id
		ORDER BY (SELECT count(*) FROM post_views v WHERE v.post_id = p.id) DESC, p.id
		LIMIT $1 OFFSET $2`, summaryColumns)

	rows, err := m.db.QueryContext(ctx, query, limit, offset)
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

// postsByTags returns every post whose tag set intersects the candidate
// list, in natural order and without pagination.
func (m *BlogModel) postsByTags(ctx context.Context, tags []string) ([]PostSummary, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		LEFT JOIN users u ON p.user_id = u.id
		JOIN categories c ON p.category_id = c.id
		WHERE p.tags && $1::text[]`, summaryColumns)

	rows, err := m.db.QueryContext(ctx, query, pq.Array(tags))
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
