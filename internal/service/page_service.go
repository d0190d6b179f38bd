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

type pageService struct {
	repos     *repository.Repositories
	validator *validation.Validator
	log       zerolog.Logger
}

func newPageService(repos *repository.Repositories, log zerolog.Logger) *pageService {
	return &pageService{
		repos:     repos,
		validator: validation.NewValidator(),
		log:       log.With().Str("service", "page").Logger(),
	}
}

func (s *pageService) Create(ctx context.Context, in models.PageInput) (*models.Page, error) {
	if err := s.validator.ValidatePage(&in).Err(); err != nil {
		return nil, invalid(err)
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	page := &models.Page{
		ID:         uuid.New().String(),
		ShowInTOC:  true,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	applyPageInput(page, &in)

	var err error
	page.Slug, err = slug.For(ctx, in.Slug, page.Title, s.repos.Page.SlugExists)
	if err != nil {
		return nil, err
	}

	if err := s.repos.Page.Create(ctx, page); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, page.Slug)
		}
		return nil, err
	}
	s.log.Info().Str("page_id", page.ID).Str("slug", page.Slug).Msg("Page created")
	return page, nil
}

func (s *pageService) Update(ctx context.Context, id string, in models.PageInput) (*models.Page, error) {
	if err := s.validator.ValidatePage(&in).Err(); err != nil {
		return nil, invalid(err)
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	page, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	current := page.Slug
	applyPageInput(page, &in)
	if in.Slug != "" && in.Slug != current {
		page.Slug, err = slug.Unique(ctx, slug.Make(in.Slug), func(ctx context.Context, candidate string) (bool, error) {
			if candidate == current {
				return false, nil
			}
			return s.repos.Page.SlugExists(ctx, candidate)
		})
		if err != nil {
			return nil, err
		}
	}
	page.ModifiedAt = time.Now().UTC()

	if err := s.repos.Page.Update(ctx, page); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, page.Slug)
		}
		return nil, err
	}
	s.log.Info().Str("page_id", page.ID).Msg("Page updated")
	return page, nil
}

func (s *pageService) Get(ctx context.Context, id string) (*models.Page, error) {
	if !validation.IsValidUUID(id) {
		return nil, ErrNotFound
	}
	page, err := s.repos.Page.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, ErrNotFound
	}
	return page, nil
}

// List returns pages in table-of-contents order
func (s *pageService) List(ctx context.Context) ([]*models.Page, error) {
	return s.repos.Page.List(ctx)
}

func (s *pageService) checkCategory(ctx context.Context, id *string) error {
	if id == nil {
		return nil
	}
	c, err := s.repos.PageCategory.GetByID(ctx, *id)
	if err != nil {
		return err
	}
	if c == nil {
		return invalid(fmt.Errorf("unknown page category %s", *id))
	}
	return nil
}

func applyPageInput(page *models.Page, in *models.PageInput) {
	page.Title = strings.TrimSpace(in.Title)
	page.Body = in.Body
	page.MetaDescription = in.MetaDescription
	page.IsPublished = in.IsPublished
	page.CategoryID = in.CategoryID
	page.TOCOrder = in.TOCOrder
	if in.ShowInTOC != nil {
		page.ShowInTOC = *in.ShowInTOC
	}
}
