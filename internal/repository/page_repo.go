package repository

import (
	"context"
	"database/sql"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
)

const pageColumns = `p.id, p.title, p.slug, p.body, p.meta_description, p.is_published, p.category_id,
	p.toc_order, p.show_in_toc, p.wp_page_id, p.created_at, p.modified_at`

// pageRepo is the concrete implementation of PageRepository
type pageRepo struct {
	db *database.DB
}

// NewPageRepo creates a new page repository
func NewPageRepo(db *database.DB) PageRepository {
	return &pageRepo{db: db}
}

// Create inserts a new page
func (r *pageRepo) Create(ctx context.Context, page *models.Page) error {
	query := `
		INSERT INTO pages (id, title, slug, body, meta_description, is_published, category_id,
			toc_order, show_in_toc, wp_page_id, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		page.ID, page.Title, page.Slug, page.Body, page.MetaDescription, page.IsPublished,
		page.CategoryID, page.TOCOrder, page.ShowInTOC, nullInt64(page.WPPageID),
		page.CreatedAt, page.ModifiedAt,
	)
	return translate(err)
}

// Update rewrites a page's editable fields
func (r *pageRepo) Update(ctx context.Context, page *models.Page) error {
	query := `
		UPDATE pages SET
			title = $1, slug = $2, body = $3, meta_description = $4, is_published = $5,
			category_id = $6, toc_order = $7, show_in_toc = $8, modified_at = $9
		WHERE id = $10
	`
	_, err := r.db.ExecContext(ctx, query,
		page.Title, page.Slug, page.Body, page.MetaDescription, page.IsPublished,
		page.CategoryID, page.TOCOrder, page.ShowInTOC, page.ModifiedAt, page.ID,
	)
	return translate(err)
}

// UpdateBody rewrites only the page body
func (r *pageRepo) UpdateBody(ctx context.Context, id, body string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE pages SET body = $1 WHERE id = $2", body, id)
	return err
}

// GetByID retrieves a page by ID
func (r *pageRepo) GetByID(ctx context.Context, id string) (*models.Page, error) {
	return r.getOne(ctx, "SELECT "+pageColumns+" FROM pages p WHERE p.id = $1", id)
}

// GetByExternalID retrieves a page by its WordPress post ID
func (r *pageRepo) GetByExternalID(ctx context.Context, wpPageID int64) (*models.Page, error) {
	return r.getOne(ctx, "SELECT "+pageColumns+" FROM pages p WHERE p.wp_page_id = $1", wpPageID)
}

func (r *pageRepo) getOne(ctx context.Context, query string, arg interface{}) (*models.Page, error) {
	page, err := scanPage(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

// SlugExists checks if a page with the given slug exists
func (r *pageRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(ctx, r.db, "SELECT EXISTS(SELECT 1 FROM pages WHERE slug = $1)", slug)
}

// List returns pages in table-of-contents order. Uncategorized pages sort last.
func (r *pageRepo) List(ctx context.Context) ([]*models.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages p
		LEFT JOIN page_categories pc ON pc.id = p.category_id
		ORDER BY pc.sort_order NULLS LAST, p.toc_order, p.title`

	var pages []*models.Page
	err := r.query(ctx, query, func(p *models.Page) error {
		pages = append(pages, p)
		return nil
	})
	return pages, err
}

// Count returns the total number of pages
func (r *pageRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pages").Scan(&count)
	return count, err
}

// StreamAll streams every page in creation order
func (r *pageRepo) StreamAll(ctx context.Context, callback func(*models.Page) error) error {
	return r.query(ctx, "SELECT "+pageColumns+" FROM pages p ORDER BY p.created_at", callback)
}

func (r *pageRepo) query(ctx context.Context, query string, callback func(*models.Page) error) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return err
		}
		if err := callback(page); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanPage(s scanner) (*models.Page, error) {
	var page models.Page
	var categoryID sql.NullString
	var wpID sql.NullInt64

	err := s.Scan(
		&page.ID, &page.Title, &page.Slug, &page.Body, &page.MetaDescription, &page.IsPublished,
		&categoryID, &page.TOCOrder, &page.ShowInTOC, &wpID, &page.CreatedAt, &page.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		page.CategoryID = &categoryID.String
	}
	page.WPPageID = int64Ptr(wpID)
	return &page, nil
}
