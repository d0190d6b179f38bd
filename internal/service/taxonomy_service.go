package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/slug"
	"github.com/blog-cms-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type taxonomyService struct {
	repos     *repository.Repositories
	validator *validation.Validator
	log       zerolog.Logger
}

func newTaxonomyService(repos *repository.Repositories, log zerolog.Logger) *taxonomyService {
	return &taxonomyService{
		repos:     repos,
		validator: validation.NewValidator(),
		log:       log.With().Str("service", "taxonomy").Logger(),
	}
}

func (s *taxonomyService) CreateCategory(ctx context.Context, in models.TaxonomyInput) (*models.Category, error) {
	if err := s.validator.ValidateTaxonomy(&in).Err(); err != nil {
		return nil, invalid(err)
	}
	c, created, err := ensureCategory(ctx, s.repos.Category, strings.TrimSpace(in.Name), in.Slug, in.Description)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("%w: category %q already exists", ErrConflict, c.Name)
	}
	s.log.Info().Str("category", c.Name).Str("slug", c.Slug).Msg("Category created")
	return c, nil
}

func (s *taxonomyService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.repos.Category.List(ctx)
}

func (s *taxonomyService) CreateTag(ctx context.Context, in models.TaxonomyInput) (*models.Tag, error) {
	if err := s.validator.ValidateTaxonomy(&in).Err(); err != nil {
		return nil, invalid(err)
	}
	t, created, err := ensureTag(ctx, s.repos.Tag, strings.TrimSpace(in.Name), in.Slug)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("%w: tag %q already exists", ErrConflict, t.Name)
	}
	s.log.Info().Str("tag", t.Name).Str("slug", t.Slug).Msg("Tag created")
	return t, nil
}

func (s *taxonomyService) ListTags(ctx context.Context) ([]*models.Tag, error) {
	return s.repos.Tag.List(ctx)
}

func (s *taxonomyService) CreatePageCategory(ctx context.Context, in models.TaxonomyInput) (*models.PageCategory, error) {
	if err := s.validator.ValidateTaxonomy(&in).Err(); err != nil {
		return nil, invalid(err)
	}
	name := strings.TrimSpace(in.Name)
	existing, err := s.repos.PageCategory.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: page category %q already exists", ErrConflict, name)
	}

	pcSlug, err := slug.For(ctx, in.Slug, name, s.repos.PageCategory.SlugExists)
	if err != nil {
		return nil, err
	}
	pc := &models.PageCategory{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        pcSlug,
		Description: in.Description,
		Order:       in.Order,
	}
	if err := s.repos.PageCategory.Create(ctx, pc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: page category %q already exists", ErrConflict, name)
		}
		return nil, err
	}
	s.log.Info().Str("page_category", pc.Name).Int("order", pc.Order).Msg("Page category created")
	return pc, nil
}

func (s *taxonomyService) ListPageCategories(ctx context.Context) ([]*models.PageCategory, error) {
	return s.repos.PageCategory.List(ctx)
}

// ensureCategory returns the category with the exact name, creating it with
// a derived, collision-free slug when absent.
func ensureCategory(ctx context.Context, repo repository.CategoryRepository, name, slugHint, description string) (*models.Category, bool, error) {
	existing, err := repo.GetByName(ctx, name)
	if err != nil || existing != nil {
		return existing, false, err
	}

	s, err := slug.For(ctx, slugHint, name, repo.SlugExists)
	if err != nil {
		return nil, false, err
	}
	c := &models.Category{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        s,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.Create(ctx, c); err != nil {
		return nil, false, fmt.Errorf("create category %q: %w", name, err)
	}
	return c, true, nil
}

// ensureTag is ensureCategory for tags
func ensureTag(ctx context.Context, repo repository.TagRepository, name, slugHint string) (*models.Tag, bool, error) {
	existing, err := repo.GetByName(ctx, name)
	if err != nil || existing != nil {
		return existing, false, err
	}

	s, err := slug.For(ctx, slugHint, name, repo.SlugExists)
	if err != nil {
		return nil, false, err
	}
	t := &models.Tag{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      s,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, t); err != nil {
		return nil, false, fmt.Errorf("create tag %q: %w", name, err)
	}
	return t, true, nil
}
