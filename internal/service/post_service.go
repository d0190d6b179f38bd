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

// postService is the concrete implementation of PostService
type postService struct {
	repos     *repository.Repositories
	notifier  NotificationService
	validator *validation.Validator
	log       zerolog.Logger
}

func newPostService(repos *repository.Repositories, notifier NotificationService, log zerolog.Logger) *postService {
	return &postService{
		repos:     repos,
		notifier:  notifier,
		validator: validation.NewValidator(),
		log:       log.With().Str("service", "post").Logger(),
	}
}

// Create saves a new post and notifies subscribers if it is published
func (s *postService) Create(ctx context.Context, in models.PostInput) (*models.Post, error) {
	if err := s.validator.ValidatePost(&in).Err(); err != nil {
		return nil, invalid(err)
	}

	now := time.Now().UTC()
	post := &models.Post{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		ModifiedAt: now,
		Status:     models.PostStatusDraft,
	}
	applyPostInput(post, &in)

	var err error
	post.Slug, err = slug.For(ctx, in.Slug, post.Title, s.repos.Post.SlugExists)
	if err != nil {
		return nil, err
	}
	if err := s.resolveTaxonomy(ctx, post, &in); err != nil {
		return nil, err
	}
	post.MarkPublished(now)

	if err := s.repos.Post.Create(ctx, post); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, post.Slug)
		}
		return nil, err
	}

	s.log.Info().Str("post_id", post.ID).Str("slug", post.Slug).Str("status", string(post.Status)).Msg("Post created")
	s.afterSave(ctx, post)
	return post, nil
}

// Update rewrites an existing post. Omitted category or tag lists keep
// the current links; empty lists clear them.
func (s *postService) Update(ctx context.Context, id string, in models.PostInput) (*models.Post, error) {
	if err := s.validator.ValidatePost(&in).Err(); err != nil {
		return nil, invalid(err)
	}

	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	current := post.Slug
	applyPostInput(post, &in)
	if in.Slug != "" && in.Slug != current {
		post.Slug, err = slug.Unique(ctx, slug.Make(in.Slug), func(ctx context.Context, candidate string) (bool, error) {
			if candidate == current {
				return false, nil
			}
			return s.repos.Post.SlugExists(ctx, candidate)
		})
		if err != nil {
			return nil, err
		}
	}
	if err := s.resolveTaxonomy(ctx, post, &in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	post.ModifiedAt = now
	post.MarkPublished(now)

	if err := s.repos.Post.Update(ctx, post); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, post.Slug)
		}
		return nil, err
	}

	s.log.Info().Str("post_id", post.ID).Str("status", string(post.Status)).Msg("Post updated")
	s.afterSave(ctx, post)
	return post, nil
}

// afterSave notifies subscribers once the row is committed. Every save of
// a published post notifies again, so delivery is at-least-once.
func (s *postService) afterSave(ctx context.Context, post *models.Post) {
	if !post.IsPublished() {
		return
	}
	result := s.notifier.Dispatch(ctx, post)
	if result.Failed > 0 {
		s.log.Warn().Str("post_id", post.ID).Strs("errors", result.Errors).Msg("Some notifications failed")
	}
}

// Get retrieves a post with its categories and tags
func (s *postService) Get(ctx context.Context, id string) (*models.Post, error) {
	if !validation.IsValidUUID(id) {
		return nil, ErrNotFound
	}
	post, err := s.repos.Post.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

// List returns posts newest first
func (s *postService) List(ctx context.Context, filter models.PostFilter) ([]*models.Post, error) {
	if filter.Status != "" && !models.ValidPostStatuses[filter.Status] {
		return nil, invalid(fmt.Errorf("unknown status %q", filter.Status))
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repos.Post.List(ctx, filter)
}

// resolveTaxonomy loads referenced categories and tags by id
func (s *postService) resolveTaxonomy(ctx context.Context, post *models.Post, in *models.PostInput) error {
	if in.CategoryIDs != nil {
		post.Categories = make([]models.Category, 0, len(in.CategoryIDs))
		for _, id := range in.CategoryIDs {
			c, err := s.repos.Category.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if c == nil {
				return invalid(fmt.Errorf("unknown category %s", id))
			}
			post.Categories = append(post.Categories, *c)
		}
	}
	if in.TagIDs != nil {
		post.Tags = make([]models.Tag, 0, len(in.TagIDs))
		for _, id := range in.TagIDs {
			t, err := s.repos.Tag.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if t == nil {
				return invalid(fmt.Errorf("unknown tag %s", id))
			}
			post.Tags = append(post.Tags, *t)
		}
	}
	return nil
}

func applyPostInput(post *models.Post, in *models.PostInput) {
	post.Title = strings.TrimSpace(in.Title)
	post.Body = in.Body
	post.Excerpt = in.Excerpt
	post.MetaDescription = in.MetaDescription
	post.FeaturedImage = in.FeaturedImage
	if in.Status != "" {
		post.Status = in.Status
	}
}
