package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert or update violates a unique constraint
var ErrDuplicate = errors.New("repository: duplicate key")

// PostRepository defines the interface for post data operations
type PostRepository interface {
	// Create inserts the post and links its Categories and Tags by ID.
	Create(ctx context.Context, post *models.Post) error
	// Update rewrites the post and replaces its category and tag links.
	Update(ctx context.Context, post *models.Post) error
	// UpdateBody rewrites only the body, leaving status and links untouched.
	UpdateBody(ctx context.Context, id, body string) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetByExternalID(ctx context.Context, wpPostID int64) (*models.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter models.PostFilter) ([]*models.Post, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Post) error) error
}

// PageRepository defines the interface for page data operations
type PageRepository interface {
	Create(ctx context.Context, page *models.Page) error
	Update(ctx context.Context, page *models.Page) error
	UpdateBody(ctx context.Context, id, body string) error
	GetByID(ctx context.Context, id string) (*models.Page, error)
	GetByExternalID(ctx context.Context, wpPageID int64) (*models.Page, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// List orders pages by page category order, TOC order, then title.
	List(ctx context.Context) ([]*models.Page, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Page) error) error
}

// CategoryRepository defines the interface for category data operations
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id string) (*models.Category, error)
	GetByName(ctx context.Context, name string) (*models.Category, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context) ([]*models.Category, error)
}

// TagRepository defines the interface for tag data operations
type TagRepository interface {
	Create(ctx context.Context, tag *models.Tag) error
	GetByID(ctx context.Context, id string) (*models.Tag, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context) ([]*models.Tag, error)
}

// PageCategoryRepository defines the interface for page category data operations
type PageCategoryRepository interface {
	Create(ctx context.Context, category *models.PageCategory) error
	GetByID(ctx context.Context, id string) (*models.PageCategory, error)
	GetByName(ctx context.Context, name string) (*models.PageCategory, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context) ([]*models.PageCategory, error)
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ExistsByExternalID(ctx context.Context, wpCommentID int64) (bool, error)
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Comment) error) error
}

// SubscriberRepository defines the interface for subscriber data operations
type SubscriberRepository interface {
	Create(ctx context.Context, sub *models.Subscriber) error
	Update(ctx context.Context, sub *models.Subscriber) error
	GetByID(ctx context.Context, id string) (*models.Subscriber, error)
	GetByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	GetByToken(ctx context.Context, token string) (*models.Subscriber, error)
	// FindActiveByTopics returns active subscribers following at least one
	// of topics, ordered by email. An empty topic set matches nobody.
	FindActiveByTopics(ctx context.Context, topics []models.Topic) ([]*models.Subscriber, error)
	List(ctx context.Context) ([]*models.Subscriber, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Subscriber) error) error
}

// JobRepository defines the interface for import job data operations
type JobRepository interface {
	Create(ctx context.Context, job *models.ImportJob) error
	Update(ctx context.Context, job *models.ImportJob) error
	GetByID(ctx context.Context, id string) (*models.ImportJob, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error)
	AddErrors(ctx context.Context, jobID string, errors []models.ImportError) error
	GetErrors(ctx context.Context, jobID string, limit int) ([]models.ImportError, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Post         PostRepository
	Page         PageRepository
	Category     CategoryRepository
	Tag          TagRepository
	PageCategory PageCategoryRepository
	Comment      CommentRepository
	Subscriber   SubscriberRepository
	Job          JobRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Post:         NewPostRepo(db),
		Page:         NewPageRepo(db),
		Category:     NewCategoryRepo(db),
		Tag:          NewTagRepo(db),
		PageCategory: NewPageCategoryRepo(db),
		Comment:      NewCommentRepo(db),
		Subscriber:   NewSubscriberRepo(db),
		Job:          NewJobRepo(db),
	}
}

// translate maps driver errors onto repository errors
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func exists(ctx context.Context, db *database.DB, query string, args ...interface{}) (bool, error) {
	var found bool
	err := db.QueryRowContext(ctx, query, args...).Scan(&found)
	return found, err
}
