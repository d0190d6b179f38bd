package repository

import (
	"context"
	"database/sql"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
	"github.com/lib/pq"
)

const postColumns = `id, title, slug, body, excerpt, status, meta_description, featured_image,
	wp_post_id, created_at, modified_at, published_at`

// postRepo is the concrete implementation of PostRepository
type postRepo struct {
	db *database.DB
}

// NewPostRepo creates a new post repository
func NewPostRepo(db *database.DB) PostRepository {
	return &postRepo{db: db}
}

// Create inserts a post and its category/tag links in one transaction
func (r *postRepo) Create(ctx context.Context, post *models.Post) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO posts (id, title, slug, body, excerpt, status, meta_description, featured_image,
			wp_post_id, created_at, modified_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.ExecContext(ctx, query,
		post.ID, post.Title, post.Slug, post.Body, post.Excerpt, post.Status,
		post.MetaDescription, nullString(post.FeaturedImage), nullInt64(post.WPPostID),
		post.CreatedAt, post.ModifiedAt, post.PublishedAt,
	)
	if err != nil {
		return translate(err)
	}

	if err := linkTaxonomy(ctx, tx, post); err != nil {
		return err
	}
	return tx.Commit()
}

// Update rewrites a post. wp_post_id and created_at are never changed.
func (r *postRepo) Update(ctx context.Context, post *models.Post) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE posts SET
			title = $1, slug = $2, body = $3, excerpt = $4, status = $5,
			meta_description = $6, featured_image = $7, modified_at = $8, published_at = $9
		WHERE id = $10
	`
	_, err = tx.ExecContext(ctx, query,
		post.Title, post.Slug, post.Body, post.Excerpt, post.Status,
		post.MetaDescription, nullString(post.FeaturedImage), post.ModifiedAt, post.PublishedAt,
		post.ID,
	)
	if err != nil {
		return translate(err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM post_categories WHERE post_id = $1", post.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_tags WHERE post_id = $1", post.ID); err != nil {
		return err
	}
	if err := linkTaxonomy(ctx, tx, post); err != nil {
		return err
	}
	return tx.Commit()
}

func linkTaxonomy(ctx context.Context, tx *sql.Tx, post *models.Post) error {
	if len(post.Categories) > 0 {
		ids := make([]string, 0, len(post.Categories))
		for _, c := range post.Categories {
			ids = append(ids, c.ID)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO post_categories (post_id, category_id)
			SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING`,
			post.ID, pq.Array(ids),
		)
		if err != nil {
			return err
		}
	}
	if len(post.Tags) > 0 {
		ids := make([]string, 0, len(post.Tags))
		for _, t := range post.Tags {
			ids = append(ids, t.ID)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO post_tags (post_id, tag_id)
			SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING`,
			post.ID, pq.Array(ids),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateBody rewrites the body without touching status, links or modified_at
func (r *postRepo) UpdateBody(ctx context.Context, id, body string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE posts SET body = $1 WHERE id = $2", body, id)
	return err
}

// GetByID retrieves a post with its categories and tags
func (r *postRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return r.getOne(ctx, "SELECT "+postColumns+" FROM posts WHERE id = $1", id)
}

// GetByExternalID retrieves a post by its WordPress post ID
func (r *postRepo) GetByExternalID(ctx context.Context, wpPostID int64) (*models.Post, error) {
	return r.getOne(ctx, "SELECT "+postColumns+" FROM posts WHERE wp_post_id = $1", wpPostID)
}

func (r *postRepo) getOne(ctx context.Context, query string, arg interface{}) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadTaxonomy(ctx, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// SlugExists checks if a post with the given slug exists
func (r *postRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(ctx, r.db, "SELECT EXISTS(SELECT 1 FROM posts WHERE slug = $1)", slug)
}

// List returns posts newest first
func (r *postRepo) List(ctx context.Context, filter models.PostFilter) ([]*models.Post, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE ($1 = '' OR status = $1)
		ORDER BY COALESCE(published_at, created_at) DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadTaxonomy(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// loadTaxonomy fills Categories and Tags for a batch of posts
func (r *postRepo) loadTaxonomy(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[string]*models.Post, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT pc.post_id, c.id, c.name, c.slug, c.description, c.created_at
		FROM post_categories pc JOIN categories c ON c.id = pc.category_id
		WHERE pc.post_id = ANY($1::uuid[])
		ORDER BY c.name`, pq.Array(ids))
	if err != nil {
		return err
	}
	for rows.Next() {
		var postID string
		var c models.Category
		if err := rows.Scan(&postID, &c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		byID[postID].Categories = append(byID[postID].Categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT pt.post_id, t.id, t.name, t.slug, t.created_at
		FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1::uuid[])
		ORDER BY t.name`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var postID string
		var t models.Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
			return err
		}
		byID[postID].Tags = append(byID[postID].Tags, t)
	}
	return rows.Err()
}

// Count returns the total number of posts
func (r *postRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count)
	return count, err
}

// StreamAll streams all posts for export without their taxonomy
func (r *postRepo) StreamAll(ctx context.Context, callback func(*models.Post) error) error {
	rows, err := r.db.QueryContext(ctx, "SELECT "+postColumns+" FROM posts ORDER BY created_at")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return err
		}
		if err := callback(post); err != nil {
			return err
		}
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(s scanner) (*models.Post, error) {
	var post models.Post
	var featured sql.NullString
	var wpID sql.NullInt64
	var publishedAt sql.NullTime

	err := s.Scan(
		&post.ID, &post.Title, &post.Slug, &post.Body, &post.Excerpt, &post.Status,
		&post.MetaDescription, &featured, &wpID, &post.CreatedAt, &post.ModifiedAt, &publishedAt,
	)
	if err != nil {
		return nil, err
	}
	post.FeaturedImage = featured.String
	post.WPPostID = int64Ptr(wpID)
	post.PublishedAt = timePtr(publishedAt)
	return &post, nil
}
