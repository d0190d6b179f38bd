package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blog-cms-api/internal/config"
	"github.com/blog-cms-api/internal/mailer"
	"github.com/blog-cms-api/internal/models"
	"github.com/blog-cms-api/internal/repository"
	"github.com/blog-cms-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// subscriptionService is the concrete implementation of SubscriptionService
type subscriptionService struct {
	repo       repository.SubscriberRepository
	sender     mailer.Sender
	templates  *mailer.Templates
	adminEmail string
	timeout    time.Duration
	validator  *validation.Validator
	log        zerolog.Logger
}

func newSubscriptionService(repo repository.SubscriberRepository, sender mailer.Sender, templates *mailer.Templates, cfg config.MailConfig, log zerolog.Logger) *subscriptionService {
	return &subscriptionService{
		repo:       repo,
		sender:     sender,
		templates:  templates,
		adminEmail: cfg.AdminEmail,
		timeout:    cfg.SendTimeout,
		validator:  validation.NewValidator(),
		log:        log.With().Str("service", "subscription").Logger(),
	}
}

// Subscribe registers an email for the chosen topics. An existing address
// is reactivated with the new topic choice.
func (s *subscriptionService) Subscribe(ctx context.Context, in models.SubscribeInput) (*models.Subscriber, error) {
	if err := s.validator.ValidateSubscribe(&in).Err(); err != nil {
		return nil, invalid(err)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	sub, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if sub != nil {
		sub.Tech, sub.Life, sub.Spirit = in.Tech, in.Life, in.Spirit
		sub.Active = true
		if sub.ConfirmationToken == "" {
			sub.ConfirmationToken = newToken()
		}
		if err := s.repo.Update(ctx, sub); err != nil {
			return nil, err
		}
		s.log.Info().Str("email", sub.Email).Strs("topics", topicNames(sub)).Msg("Subscription renewed")
	} else {
		sub = &models.Subscriber{
			ID:                uuid.New().String(),
			Email:             email,
			Tech:              in.Tech,
			Life:              in.Life,
			Spirit:            in.Spirit,
			Active:            true,
			SubscribedAt:      time.Now().UTC(),
			ConfirmationToken: newToken(),
		}
		if err := s.repo.Create(ctx, sub); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, fmt.Errorf("%w: %s is already subscribed", ErrConflict, email)
			}
			return nil, err
		}
		s.log.Info().Str("email", sub.Email).Strs("topics", topicNames(sub)).Msg("New subscriber")
	}

	s.sendWelcome(ctx, sub)
	s.notifyAdmin(ctx, sub)
	return sub, nil
}

// sendWelcome and notifyAdmin never fail the subscription
func (s *subscriptionService) sendWelcome(ctx context.Context, sub *models.Subscriber) {
	msg, err := s.templates.Welcome(sub)
	if err == nil {
		err = s.send(ctx, msg)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("email", sub.Email).Msg("Welcome email failed")
	}
}

func (s *subscriptionService) notifyAdmin(ctx context.Context, sub *models.Subscriber) {
	if s.adminEmail == "" {
		return
	}
	msg, err := s.templates.AdminNotice(s.adminEmail, sub)
	if err == nil {
		err = s.send(ctx, msg)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("email", sub.Email).Msg("Admin subscription notice failed")
	}
}

func (s *subscriptionService) send(ctx context.Context, msg mailer.Message) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.sender.Send(ctx, msg)
}

// Confirm records that the subscriber clicked the confirmation link
func (s *subscriptionService) Confirm(ctx context.Context, token string) (*models.Subscriber, error) {
	sub, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sub.ConfirmedAt == nil {
		now := time.Now().UTC()
		sub.ConfirmedAt = &now
		if err := s.repo.Update(ctx, sub); err != nil {
			return nil, err
		}
		s.log.Info().Str("email", sub.Email).Msg("Subscription confirmed")
	}
	return sub, nil
}

// Unsubscribe deactivates the subscriber. Rows are never deleted.
func (s *subscriptionService) Unsubscribe(ctx context.Context, email, token string) (*models.Subscriber, error) {
	var sub *models.Subscriber
	var err error

	switch {
	case token != "":
		sub, err = s.byToken(ctx, token)
	case strings.TrimSpace(email) != "":
		sub, err = s.repo.GetByEmail(ctx, strings.TrimSpace(email))
		if err == nil && sub == nil {
			err = ErrNotFound
		}
	default:
		err = invalid(errors.New("email or token is required"))
	}
	if err != nil {
		return nil, err
	}

	if sub.Active {
		sub.Active = false
		if err := s.repo.Update(ctx, sub); err != nil {
			return nil, err
		}
		s.log.Info().Str("email", sub.Email).Msg("Subscriber unsubscribed")
	}
	return sub, nil
}

func (s *subscriptionService) byToken(ctx context.Context, token string) (*models.Subscriber, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	sub, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrInvalidToken
	}
	return sub, nil
}

// List returns every subscriber, newest first
func (s *subscriptionService) List(ctx context.Context) ([]*models.Subscriber, error) {
	return s.repo.List(ctx)
}

func newToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func topicNames(sub *models.Subscriber) []string {
	var names []string
	for _, t := range sub.Topics() {
		names = append(names, string(t))
	}
	return names
}
