package repository

import (
	"context"
	"database/sql"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
)

// categoryRepo is the concrete implementation of CategoryRepository
type categoryRepo struct {
	db *database.DB
}

// NewCategoryRepo creates a new category repository
func NewCategoryRepo(db *database.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) Create(ctx context.Context, c *models.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, description, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Slug, c.Description, c.CreatedAt,
	)
	return translate(err)
}

func (r *categoryRepo) GetByID(ctx context.Context, id string) (*models.Category, error) {
	return r.getOne(ctx, "id", id)
}

// GetByName matches the name exactly
func (r *categoryRepo) GetByName(ctx context.Context, name string) (*models.Category, error) {
	return r.getOne(ctx, "name", name)
}

func (r *categoryRepo) getOne(ctx context.Context, column, value string) (*models.Category, error) {
	var c models.Category
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, slug, description, created_at FROM categories WHERE "+column+" = $1", value,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(ctx, r.db, "SELECT EXISTS(SELECT 1 FROM categories WHERE slug = $1)", slug)
}

func (r *categoryRepo) List(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug, description, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// tagRepo is the concrete implementation of TagRepository
type tagRepo struct {
	db *database.DB
}

// NewTagRepo creates a new tag repository
func NewTagRepo(db *database.DB) TagRepository {
	return &tagRepo{db: db}
}

func (r *tagRepo) Create(ctx context.Context, t *models.Tag) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tags (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, t.Slug, t.CreatedAt,
	)
	return translate(err)
}

func (r *tagRepo) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	return r.getOne(ctx, "id", id)
}

func (r *tagRepo) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	return r.getOne(ctx, "name", name)
}

func (r *tagRepo) getOne(ctx context.Context, column, value string) (*models.Tag, error) {
	var t models.Tag
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, slug, created_at FROM tags WHERE "+column+" = $1", value,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tagRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(ctx, r.db, "SELECT EXISTS(SELECT 1 FROM tags WHERE slug = $1)", slug)
}

func (r *tagRepo) List(ctx context.Context) ([]*models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug, created_at FROM tags ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// pageCategoryRepo is the concrete implementation of PageCategoryRepository
type pageCategoryRepo struct {
	db *database.DB
}

// NewPageCategoryRepo creates a new page category repository
func NewPageCategoryRepo(db *database.DB) PageCategoryRepository {
	return &pageCategoryRepo{db: db}
}

func (r *pageCategoryRepo) Create(ctx context.Context, c *models.PageCategory) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO page_categories (id, name, slug, description, sort_order) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Slug, c.Description, c.Order,
	)
	return translate(err)
}

func (r *pageCategoryRepo) GetByID(ctx context.Context, id string) (*models.PageCategory, error) {
	return r.getOne(ctx, "id", id)
}

func (r *pageCategoryRepo) GetByName(ctx context.Context, name string) (*models.PageCategory, error) {
	return r.getOne(ctx, "name", name)
}

func (r *pageCategoryRepo) getOne(ctx context.Context, column, value string) (*models.PageCategory, error) {
	var c models.PageCategory
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, slug, description, sort_order FROM page_categories WHERE "+column+" = $1", value,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Order)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *pageCategoryRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(ctx, r.db, "SELECT EXISTS(SELECT 1 FROM page_categories WHERE slug = $1)", slug)
}

func (r *pageCategoryRepo) List(ctx context.Context) ([]*models.PageCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, slug, description, sort_order FROM page_categories ORDER BY sort_order, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.PageCategory
	for rows.Next() {
		var c models.PageCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Order); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
