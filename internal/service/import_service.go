package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/slug"
	"github.com/blog-cms-api/internal/wxr"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UntitledTitle replaces empty item titles
const UntitledTitle = "Untitled"

// importService is the concrete implementation of ImportService
type importService struct {
	repos           *repository.Repositories
	notifier        NotificationService
	notifyPublished bool
	log             zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, notifier NotificationService, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos:           repos,
		notifier:        notifier,
		notifyPublished: cfg.Import.NotifyPublished,
		log:             log.With().Str("service", "import").Logger(),
	}
}

// taxonomyIndex holds the categories and tags known by name. A nil entry
// records a name the store does not have.
type taxonomyIndex struct {
	categories map[string]*models.Category
	tags       map[string]*models.Tag
}

// ImportFile parses a WXR file and imports it. Only a document that cannot
// be parsed fails the whole run.
func (s *importService) ImportFile(ctx context.Context, path string) (*models.ImportReport, error) {
	doc, err := wxr.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return s.ImportDocument(ctx, doc)
}

// ImportDocument runs the taxonomy pass then imports every item in
// document order. Per-record failures are recorded in the report.
func (s *importService) ImportDocument(ctx context.Context, doc *wxr.Document) (*models.ImportReport, error) {
	startTime := time.Now()
	report := &models.ImportReport{
		Errors:   []models.ImportError{},
		Notified: models.DispatchResult{Errors: []string{}},
	}

	s.log.Info().
		Str("site", doc.Title).
		Int("items", len(doc.Items)).
		Int("categories", len(doc.Categories)).
		Int("tags", len(doc.Tags)).
		Msg("Starting import")

	index := s.importTaxonomy(ctx, doc, report)

	for i := range doc.Items {
		if err := ctx.Err(); err != nil {
			s.log.Warn().Err(err).Int("processed", i).Msg("Import cancelled")
			return report, err
		}
		s.importItem(ctx, &doc.Items[i], index, report)
	}

	totals := report.Totals()
	s.log.Info().
		Int("created", totals.Created).
		Int("skipped", totals.Skipped).
		Int("errored", totals.Errored).
		Int("ignored", report.Ignored).
		Int("notified", report.Notified.Sent).
		Int64("duration_ms", time.Since(startTime).Milliseconds()).
		Msg("Import completed")

	return report, nil
}

// importTaxonomy upserts channel-level categories and tags by name
func (s *importService) importTaxonomy(ctx context.Context, doc *wxr.Document, report *models.ImportReport) *taxonomyIndex {
	index := &taxonomyIndex{
		categories: make(map[string]*models.Category),
		tags:       make(map[string]*models.Tag),
	}

	for _, wc := range doc.Categories {
		name := strings.TrimSpace(wc.Name)
		if name == "" {
			s.fail(report, models.KindCategory, strings.TrimSpace(wc.Slug), fmt.Errorf("missing category name"))
			continue
		}
		if _, seen := index.categories[name]; seen {
			continue
		}
		c, created, err := ensureCategory(ctx, s.repos.Category, name, wc.Slug, strings.TrimSpace(wc.Description))
		if err != nil {
			s.fail(report, models.KindCategory, name, err)
			continue
		}
		index.categories[name] = c
		if created {
			report.Created(models.KindCategory)
		} else {
			report.Skipped(models.KindCategory)
		}
	}

	for _, wt := range doc.Tags {
		name := strings.TrimSpace(wt.Name)
		if name == "" {
			s.fail(report, models.KindTag, strings.TrimSpace(wt.Slug), fmt.Errorf("missing tag name"))
			continue
		}
		if _, seen := index.tags[name]; seen {
			continue
		}
		t, created, err := ensureTag(ctx, s.repos.Tag, name, wt.Slug)
		if err != nil {
			s.fail(report, models.KindTag, name, err)
			continue
		}
		index.tags[name] = t
		if created {
			report.Created(models.KindTag)
		} else {
			report.Skipped(models.KindTag)
		}
	}

	return index
}

// importItem isolates one item: whatever goes wrong is recorded against it
func (s *importService) importItem(ctx context.Context, item *wxr.Item, index *taxonomyIndex, report *models.ImportReport) {
	var kind models.EntityKind
	switch item.Type() {
	case wxr.TypePost:
		kind = models.KindPost
	case wxr.TypePage:
		kind = models.KindPage
	default:
		report.Ignored++
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("ref", itemRef(item)).Msg("Item import panicked - recovered")
			s.fail(report, kind, itemRef(item), fmt.Errorf("panic: %v", r))
		}
	}()

	var err error
	if kind == models.KindPost {
		err = s.importPost(ctx, item, index, report)
	} else {
		err = s.importPage(ctx, item, report)
	}
	if err != nil {
		s.fail(report, kind, itemRef(item), err)
	}
}

func (s *importService) importPost(ctx context.Context, item *wxr.Item, index *taxonomyIndex, report *models.ImportReport) error {
	extID, err := item.ExternalID()
	if err != nil {
		return err
	}
	existing, err := s.repos.Post.GetByExternalID(ctx, extID)
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	if existing != nil {
		report.Skipped(models.KindPost)
		return nil
	}

	date, err := itemDate(item)
	if err != nil {
		return err
	}

	title := itemTitle(item)
	postSlug, err := slug.For(ctx, item.PostName, title, s.repos.Post.SlugExists)
	if err != nil {
		return err
	}

	post := &models.Post{
		ID:         uuid.New().String(),
		Title:      title,
		Slug:       postSlug,
		Body:       item.Content,
		Excerpt:    item.Excerpt,
		Status:     models.PostStatusDraft,
		WPPostID:   &extID,
		CreatedAt:  date,
		ModifiedAt: time.Now().UTC(),
	}
	if item.Published() {
		post.Status = models.PostStatusPublished
		post.MarkPublished(date)
	}
	post.Categories, post.Tags, err = s.resolveTerms(ctx, item, index)
	if err != nil {
		return err
	}

	if err := s.repos.Post.Create(ctx, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	report.Created(models.KindPost)

	s.importComments(ctx, post, item, report)

	if s.notifyPublished && post.IsPublished() {
		report.Notified.Add(s.notifier.Dispatch(ctx, post))
	}
	return nil
}

// importComments imports a new post's comments. Each comment is isolated.
func (s *importService) importComments(ctx context.Context, post *models.Post, item *wxr.Item, report *models.ImportReport) {
	for i := range item.Comments {
		wc := &item.Comments[i]
		ref := strings.TrimSpace(wc.ID)
		if ref == "" {
			ref = fmt.Sprintf("#%d of post %d", i+1, *post.WPPostID)
		}

		cid, err := wc.ExternalID()
		if err != nil {
			s.fail(report, models.KindComment, ref, err)
			continue
		}
		exists, err := s.repos.Comment.ExistsByExternalID(ctx, cid)
		if err != nil {
			s.fail(report, models.KindComment, ref, fmt.Errorf("lookup: %w", err))
			continue
		}
		if exists {
			report.Skipped(models.KindComment)
			continue
		}

		created, ok, err := wc.ParsedDate()
		if err != nil || !ok {
			created = time.Now().UTC()
		}
		author := strings.TrimSpace(wc.Author)
		if author == "" {
			author = models.AnonymousAuthor
		}

		comment := &models.Comment{
			ID:          uuid.New().String(),
			PostID:      post.ID,
			AuthorName:  author,
			AuthorEmail: strings.TrimSpace(wc.AuthorEmail),
			AuthorURL:   strings.TrimSpace(wc.AuthorURL),
			Body:        wc.Content,
			Approved:    wc.IsApproved(),
			WPCommentID: &cid,
			CreatedAt:   created,
		}
		if err := s.repos.Comment.Create(ctx, comment); err != nil {
			s.fail(report, models.KindComment, ref, fmt.Errorf("create comment: %w", err))
			continue
		}
		report.Created(models.KindComment)
	}
}

func (s *importService) importPage(ctx context.Context, item *wxr.Item, report *models.ImportReport) error {
	extID, err := item.ExternalID()
	if err != nil {
		return err
	}
	existing, err := s.repos.Page.GetByExternalID(ctx, extID)
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	if existing != nil {
		report.Skipped(models.KindPage)
		return nil
	}

	date, err := itemDate(item)
	if err != nil {
		return err
	}

	title := itemTitle(item)
	pageSlug, err := slug.For(ctx, item.PostName, title, s.repos.Page.SlugExists)
	if err != nil {
		return err
	}

	page := &models.Page{
		ID:          uuid.New().String(),
		Title:       title,
		Slug:        pageSlug,
		Body:        item.Content,
		IsPublished: item.Published(),
		TOCOrder:    item.Order(),
		ShowInTOC:   true,
		WPPageID:    &extID,
		CreatedAt:   date,
		ModifiedAt:  time.Now().UTC(),
	}
	if err := s.repos.Page.Create(ctx, page); err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	report.Created(models.KindPage)
	return nil
}

func (s *importService) fail(report *models.ImportReport, kind models.EntityKind, ref string, err error) {
	s.log.Warn().Err(err).Str("kind", string(kind)).Str("ref", ref).Msg("Import record failed")
	report.Fail(kind, ref, err)
}

// resolveTerms links item terms by exact name: first the rows from the
// taxonomy pass, then rows already in the store. Hits are cached in the
// index. Unknown names are dropped.
func (s *importService) resolveTerms(ctx context.Context, item *wxr.Item, index *taxonomyIndex) ([]models.Category, []models.Tag, error) {
	var categories []models.Category
	seen := make(map[string]bool)
	for _, name := range item.CategoryNames() {
		c, ok := index.categories[name]
		if !ok {
			stored, err := s.repos.Category.GetByName(ctx, name)
			if err != nil {
				return nil, nil, fmt.Errorf("lookup category %q: %w", name, err)
			}
			index.categories[name] = stored
			c = stored
		}
		if c != nil && !seen[c.ID] {
			seen[c.ID] = true
			categories = append(categories, *c)
		}
	}

	var tags []models.Tag
	for _, name := range item.TagNames() {
		t, ok := index.tags[name]
		if !ok {
			stored, err := s.repos.Tag.GetByName(ctx, name)
			if err != nil {
				return nil, nil, fmt.Errorf("lookup tag %q: %w", name, err)
			}
			index.tags[name] = stored
			t = stored
		}
		if t != nil && !seen[t.ID] {
			seen[t.ID] = true
			tags = append(tags, *t)
		}
	}
	return categories, tags, nil
}

func itemTitle(item *wxr.Item) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	return UntitledTitle
}

// itemDate falls back to the current time only when no date is present
func itemDate(item *wxr.Item) (time.Time, error) {
	date, ok, err := item.Date()
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Now().UTC(), nil
	}
	return date.UTC(), nil
}

func itemRef(item *wxr.Item) string {
	id := strings.TrimSpace(item.PostID)
	title := strings.TrimSpace(item.Title)
	switch {
	case id == "":
		return fmt.Sprintf("%q", title)
	case title == "":
		return id
	}
	return fmt.Sprintf("%s %q", id, title)
}
