package repository

import (
	"context"
	"database/sql"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
)

const commentColumns = `id, post_id, author_name, author_email, author_url, body, approved, wp_comment_id, created_at`

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db *database.DB
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db *database.DB) CommentRepository {
	return &commentRepo{db: db}
}

// Create inserts a new comment
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, post_id, author_name, author_email, author_url, body, approved,
			wp_comment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.PostID, comment.AuthorName, comment.AuthorEmail, comment.AuthorURL,
		comment.Body, comment.Approved, nullInt64(comment.WPCommentID), comment.CreatedAt,
	)
	return translate(err)
}

// ExistsByExternalID checks if a comment with the given WordPress ID was imported
func (r *commentRepo) ExistsByExternalID(ctx context.Context, wpCommentID int64) (bool, error) {
	return exists(ctx, r.db, "SELECT EXISTS(SELECT 1 FROM comments WHERE wp_comment_id = $1)", wpCommentID)
}

// ListByPost returns a post's comments oldest first
func (r *commentRepo) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	var out []*models.Comment
	err := r.query(ctx, func(c *models.Comment) error {
		out = append(out, c)
		return nil
	}, "SELECT "+commentColumns+" FROM comments WHERE post_id = $1 ORDER BY created_at", postID)
	return out, err
}

// Count returns the total number of comments
func (r *commentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&count)
	return count, err
}

// StreamAll streams all comments for export (memory efficient)
func (r *commentRepo) StreamAll(ctx context.Context, callback func(*models.Comment) error) error {
	return r.query(ctx, callback, "SELECT "+commentColumns+" FROM comments ORDER BY created_at")
}

func (r *commentRepo) query(ctx context.Context, callback func(*models.Comment) error, query string, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Comment
		var wpID sql.NullInt64
		err := rows.Scan(
			&c.ID, &c.PostID, &c.AuthorName, &c.AuthorEmail, &c.AuthorURL,
			&c.Body, &c.Approved, &wpID, &c.CreatedAt,
		)
		if err != nil {
			return err
		}
		c.WPCommentID = int64Ptr(wpID)

		if err := callback(&c); err != nil {
			return err
		}
	}
	return rows.Err()
}
