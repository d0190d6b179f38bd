package service

import (
	"context"
	"fmt"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/mailer"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/validation"
	"github.com/rs/zerolog"
)

// notificationService is the concrete implementation of NotificationService
type notificationService struct {
	posts       repository.PostRepository
	subscribers repository.SubscriberRepository
	sender      mailer.Sender
	templates   *mailer.Templates
	timeout     time.Duration
	log         zerolog.Logger
}

func newNotificationService(repos *repository.Repositories, sender mailer.Sender, templates *mailer.Templates, cfg config.MailConfig, log zerolog.Logger) *notificationService {
	return &notificationService{
		posts:       repos.Post,
		subscribers: repos.Subscriber,
		sender:      sender,
		templates:   templates,
		timeout:     cfg.SendTimeout,
		log:         log.With().Str("service", "notification").Logger(),
	}
}

// Dispatch sends the post to its topic audience, one message per subscriber
func (s *notificationService) Dispatch(ctx context.Context, post *models.Post) models.DispatchResult {
	result := models.DispatchResult{Errors: []string{}}
	if post == nil || !post.IsPublished() {
		return result
	}

	topics := postTopics(post)
	if len(topics) == 0 {
		s.log.Debug().Str("post_id", post.ID).Msg("Post has no topic categories, nothing to send")
		return result
	}

	audience, err := s.subscribers.FindActiveByTopics(ctx, topics)
	if err != nil {
		s.log.Error().Err(err).Str("post_id", post.ID).Msg("Failed to load subscribers")
		result.Errors = append(result.Errors, fmt.Sprintf("load subscribers: %v", err))
		return result
	}

	for _, sub := range audience {
		if err := s.deliver(ctx, post, sub); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", sub.Email, err))
			s.log.Warn().Err(err).
				Str("post_id", post.ID).
				Str("email", sub.Email).
				Msg("Notification failed")
			continue
		}
		result.Sent++
	}

	s.log.Info().
		Str("post_id", post.ID).
		Str("title", post.Title).
		Int("audience", len(audience)).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Msg("Post notifications dispatched")

	return result
}

func (s *notificationService) deliver(ctx context.Context, post *models.Post, sub *models.Subscriber) error {
	msg, err := s.templates.PostNotification(post, sub)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

// send bounds a single message by the configured timeout
func (s *notificationService) send(ctx context.Context, msg mailer.Message) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.sender.Send(ctx, msg)
}

// NotifyPosts is the operator bulk action
func (s *notificationService) NotifyPosts(ctx context.Context, ids []string) (*models.BulkNotifyReport, error) {
	report := &models.BulkNotifyReport{Items: []models.BulkNotifyItem{}}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		item := models.BulkNotifyItem{PostID: id, Result: models.DispatchResult{Errors: []string{}}}
		post, err := s.lookup(ctx, id)
		switch {
		case err != nil:
			item.Result.Failed = 1
			item.Result.Errors = append(item.Result.Errors, err.Error())
			s.log.Error().Err(err).Str("post_id", id).Msg("Failed to load post for notification")
		case post == nil:
			item.Skipped = true
			item.Reason = "not found"
		case !post.IsPublished():
			item.Title = post.Title
			item.Skipped = true
			item.Reason = fmt.Sprintf("status is %s", post.Status)
		default:
			item.Title = post.Title
			item.Result = s.Dispatch(ctx, post)
		}
		report.Append(item)
	}

	s.log.Info().
		Int("posts", len(ids)).
		Int("skipped", report.Skipped).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Msg("Bulk notification completed")

	return report, nil
}

func (s *notificationService) lookup(ctx context.Context, id string) (*models.Post, error) {
	if !validation.IsValidUUID(id) {
		return nil, nil
	}
	return s.posts.GetByID(ctx, id)
}

// SendTestEmail verifies mail delivery settings
func (s *notificationService) SendTestEmail(ctx context.Context, to string) error {
	if verr := validation.NewValidator().ValidateEmail(to); verr != nil {
		return invalid(validation.Errors{*verr})
	}
	msg, err := s.templates.TestEmail(to)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("send test email to %s: %w", to, err)
	}
	s.log.Info().Str("email", to).Msg("Test email sent")
	return nil
}

// postTopics maps category names onto the topic vocabulary, deduplicated
func postTopics(post *models.Post) []models.Topic {
	seen := make(map[models.Topic]bool)
	var topics []models.Topic
	for _, name := range post.CategoryNames() {
		t, ok := models.ParseTopic(name)
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	return topics
}
