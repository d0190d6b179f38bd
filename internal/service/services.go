package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/mailer"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/wxr"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when the addressed record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps request validation failures
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned when a unique value is already taken
	ErrConflict = errors.New("conflict")
	// ErrInvalidToken is returned for unknown confirmation or unsubscribe tokens
	ErrInvalidToken = errors.New("invalid or expired token")
)

// NotificationService fans out new-post emails to subscribers
type NotificationService interface {
	// Dispatch emails every active subscriber whose topics overlap the
	// post's categories. It never fails as a whole: per-recipient errors
	// are collected in the result.
	Dispatch(ctx context.Context, post *models.Post) models.DispatchResult
	// NotifyPosts dispatches for each post id in order. Missing and
	// unpublished posts are reported as skipped.
	NotifyPosts(ctx context.Context, ids []string) (*models.BulkNotifyReport, error)
	SendTestEmail(ctx context.Context, to string) error
}

// PostService manages blog posts
type PostService interface {
	Create(ctx context.Context, in models.PostInput) (*models.Post, error)
	Update(ctx context.Context, id string, in models.PostInput) (*models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, filter models.PostFilter) ([]*models.Post, error)
}

// PageService manages standalone pages
type PageService interface {
	Create(ctx context.Context, in models.PageInput) (*models.Page, error)
	Update(ctx context.Context, id string, in models.PageInput) (*models.Page, error)
	Get(ctx context.Context, id string) (*models.Page, error)
	List(ctx context.Context) ([]*models.Page, error)
}

// TaxonomyService manages categories, tags and page categories
type TaxonomyService interface {
	CreateCategory(ctx context.Context, in models.TaxonomyInput) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	CreateTag(ctx context.Context, in models.TaxonomyInput) (*models.Tag, error)
	ListTags(ctx context.Context) ([]*models.Tag, error)
	CreatePageCategory(ctx context.Context, in models.TaxonomyInput) (*models.PageCategory, error)
	ListPageCategories(ctx context.Context) ([]*models.PageCategory, error)
}

// SubscriptionService manages newsletter subscribers
type SubscriptionService interface {
	Subscribe(ctx context.Context, in models.SubscribeInput) (*models.Subscriber, error)
	Confirm(ctx context.Context, token string) (*models.Subscriber, error)
	// Unsubscribe deactivates by token when given, otherwise by email.
	Unsubscribe(ctx context.Context, email, token string) (*models.Subscriber, error)
	List(ctx context.Context) ([]*models.Subscriber, error)
}

// ImportService imports WordPress export documents
type ImportService interface {
	ImportDocument(ctx context.Context, doc *wxr.Document) (*models.ImportReport, error)
	ImportFile(ctx context.Context, path string) (*models.ImportReport, error)
}

// JobService tracks uploaded import files as jobs
type JobService interface {
	CreateAndRun(ctx context.Context, req ImportRequest) (*models.ImportJob, error)
	GetJob(ctx context.Context, id string) (*models.JobResponse, error)
	GetJobByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error)
	GetJobErrors(ctx context.Context, id string) ([]models.ImportError, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamSubscribers(ctx context.Context, w http.ResponseWriter, format string) error
	StreamPosts(ctx context.Context, w http.ResponseWriter, format string) error
	StreamComments(ctx context.Context, w http.ResponseWriter, format string) error
	GetCount(ctx context.Context, resource string) (int, error)
}

// LinkFixService rewrites legacy WordPress upload links
type LinkFixService interface {
	FixLinks(ctx context.Context, opts LinkFixOptions) (*LinkFixReport, error)
}

// Services holds all service interfaces
type Services struct {
	Notification NotificationService
	Post         PostService
	Page         PageService
	Taxonomy     TaxonomyService
	Subscription SubscriptionService
	Import       ImportService
	Job          JobService
	Export       ExportService
	LinkFix      LinkFixService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, sender mailer.Sender, cfg *config.Config, log zerolog.Logger) *Services {
	templates := mailer.NewTemplates(cfg.Site)

	notifySvc := newNotificationService(repos, sender, templates, cfg.Mail, log)
	importSvc := newImportService(repos, notifySvc, cfg, log)

	return &Services{
		Notification: notifySvc,
		Post:         newPostService(repos, notifySvc, log),
		Page:         newPageService(repos, log),
		Taxonomy:     newTaxonomyService(repos, log),
		Subscription: newSubscriptionService(repos.Subscriber, sender, templates, cfg.Mail, log),
		Import:       importSvc,
		Job:          newJobService(repos.Job, importSvc, log),
		Export:       newExportService(repos, log),
		LinkFix:      newLinkFixService(repos, cfg.Import, log),
	}
}

// invalid wraps a validation failure so callers can match ErrInvalidInput
func invalid(err error) error {
	return &inputError{err: err}
}

type inputError struct {
	err error
}

func (e *inputError) Error() string {
	return ErrInvalidInput.Error() + ": " + e.err.Error()
}

// Is lets errors.Is(err, ErrInvalidInput) match
func (e *inputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *inputError) Unwrap() error {
	return e.err
}
