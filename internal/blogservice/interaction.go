package blogservice

import (
	"context"
)

// toggleLike flips the caller's membership in the post's like list. A like
// removes any standing dislike by the same user. Returns whether the post is
// now liked and the updated like count.
func (m *BlogModel) toggleLike(ctx context.Context, postID, userID int) (bool, int, error) {
	return m.toggleReaction(ctx, "post_likes", "post_dislikes", postID, userID)
}

// toggleDislike is the symmetric operation over the dislike list.
func (m *BlogModel) toggleDislike(ctx context.Context, postID, userID int) (bool, int, error) {
	return m.toggleReaction(ctx, "post_dislikes", "post_likes", postID, userID)
}

func (m *BlogModel) toggleReaction(ctx context.Context, table, opposite string, postID, userID int) (bool, int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		_ = tx.Rollback()
		return false, 0, err
	}

	removed, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return false, 0, err
	}

	added := false
	if removed == 0 {
		_, err = tx.ExecContext(ctx, `INSERT INTO `+table+` (post_id, user_id) VALUES ($1, $2)`, postID, userID)
		if err != nil {
			_ = tx.Rollback()
			switch {
			case ForeignKeyError(err, table+"_post_id_fkey"):
				return false, 0, ErrRecordNotFound
			default:
				return false, 0, err
			}
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM `+opposite+` WHERE post_id = $1 AND user_id = $2`, postID, userID)
		if err != nil {
			_ = tx.Rollback()
			return false, 0, err
		}

		added = true
	}

	var count int
	err = tx.QueryRowContext(ctx, `SELECT count(*) FROM `+table+` WHERE post_id = $1`, postID).Scan(&count)
	if err != nil {
		_ = tx.Rollback()
		return false, 0, err
	}

	return added, count, tx.Commit()
}

// recordView is idempotent per viewer: the primary key on (post_id, user_id)
// makes repeat views a no-op.
func (m *BlogModel) recordView(ctx context.Context, postID, userID int) error {
	query := `
		INSERT INTO post_views (post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING`

	_, err := m.db.ExecContext(ctx, query, postID, userID)
	if err != nil {
		switch {
		case ForeignKeyError(err, "post_views_post_id_fkey"):
			return ErrRecordNotFound
		case ForeignKeyError(err, "post_views_user_id_fkey"):
			return ErrUserForeignKey
		default:
			return err
		}
	}

	return nil
}

func (m *BlogModel) getLikers(ctx context.Context, postID int) ([]Interaction, error) {
	query := `
		SELECT l.user_id, u.username, l.created_at
		FROM post_likes l
		JOIN users u ON l.user_id = u.id
		WHERE l.post_id = $1
		ORDER BY l.created_at`

	rows, err := m.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	likers := []Interaction{}
	for rows.Next() {
		var i Interaction
		if err := rows.Scan(&i.UserID, &i.Username, &i.CreatedAt); err != nil {
			return nil, err
		}
		likers = append(likers, i)
	}

	return likers, rows.Err()
}
