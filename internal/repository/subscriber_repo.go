package repository

import (
	"context"
	"database/sql"

	"github.com/blog-cms-api/internal/database"
	"github.com/blog-cms-api/internal/models"
)

const subscriberColumns = `id, email, tech, life, spirit, active, subscribed_at, confirmation_token, confirmed_at`

// subscriberRepo is the concrete implementation of SubscriberRepository
type subscriberRepo struct {
	db *database.DB
}

// NewSubscriberRepo creates a new subscriber repository
func NewSubscriberRepo(db *database.DB) SubscriberRepository {
	return &subscriberRepo{db: db}
}

// Create inserts a new subscriber
func (r *subscriberRepo) Create(ctx context.Context, sub *models.Subscriber) error {
	query := `
		INSERT INTO subscribers (id, email, tech, life, spirit, active, subscribed_at,
			confirmation_token, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.Email, sub.Tech, sub.Life, sub.Spirit, sub.Active, sub.SubscribedAt,
		nullString(sub.ConfirmationToken), sub.ConfirmedAt,
	)
	return translate(err)
}

// Update rewrites flags, activity and confirmation state. Email is immutable.
func (r *subscriberRepo) Update(ctx context.Context, sub *models.Subscriber) error {
	query := `
		UPDATE subscribers SET
			tech = $1, life = $2, spirit = $3, active = $4,
			confirmation_token = $5, confirmed_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query,
		sub.Tech, sub.Life, sub.Spirit, sub.Active,
		nullString(sub.ConfirmationToken), sub.ConfirmedAt, sub.ID,
	)
	return translate(err)
}

func (r *subscriberRepo) GetByID(ctx context.Context, id string) (*models.Subscriber, error) {
	return r.getOne(ctx, "SELECT "+subscriberColumns+" FROM subscribers WHERE id = $1", id)
}

// GetByEmail matches case-insensitively
func (r *subscriberRepo) GetByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	return r.getOne(ctx, "SELECT "+subscriberColumns+" FROM subscribers WHERE LOWER(email) = LOWER($1)", email)
}

func (r *subscriberRepo) GetByToken(ctx context.Context, token string) (*models.Subscriber, error) {
	return r.getOne(ctx, "SELECT "+subscriberColumns+" FROM subscribers WHERE confirmation_token = $1", token)
}

func (r *subscriberRepo) getOne(ctx context.Context, query string, arg string) (*models.Subscriber, error) {
	sub, err := scanSubscriber(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// FindActiveByTopics selects the notification audience for a topic set
func (r *subscriberRepo) FindActiveByTopics(ctx context.Context, topics []models.Topic) ([]*models.Subscriber, error) {
	var tech, life, spirit bool
	for _, t := range topics {
		switch t {
		case models.TopicTech:
			tech = true
		case models.TopicLife:
			life = true
		case models.TopicSpirit:
			spirit = true
		}
	}
	if !tech && !life && !spirit {
		return nil, nil
	}

	query := `SELECT ` + subscriberColumns + ` FROM subscribers
		WHERE active AND (($1 AND tech) OR ($2 AND life) OR ($3 AND spirit))
		ORDER BY email`

	var out []*models.Subscriber
	err := r.query(ctx, func(s *models.Subscriber) error {
		out = append(out, s)
		return nil
	}, query, tech, life, spirit)
	return out, err
}

// List returns every subscriber, newest first
func (r *subscriberRepo) List(ctx context.Context) ([]*models.Subscriber, error) {
	var out []*models.Subscriber
	err := r.query(ctx, func(s *models.Subscriber) error {
		out = append(out, s)
		return nil
	}, "SELECT "+subscriberColumns+" FROM subscribers ORDER BY subscribed_at DESC")
	return out, err
}

// Count returns the total number of subscribers
func (r *subscriberRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM subscribers").Scan(&count)
	return count, err
}

// StreamAll streams all subscribers for export
func (r *subscriberRepo) StreamAll(ctx context.Context, callback func(*models.Subscriber) error) error {
	return r.query(ctx, callback, "SELECT "+subscriberColumns+" FROM subscribers ORDER BY subscribed_at")
}

func (r *subscriberRepo) query(ctx context.Context, callback func(*models.Subscriber) error, query string, args ...interface{}) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return err
		}
		if err := callback(sub); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanSubscriber(s scanner) (*models.Subscriber, error) {
	var sub models.Subscriber
	var token sql.NullString
	var confirmedAt sql.NullTime

	err := s.Scan(
		&sub.ID, &sub.Email, &sub.Tech, &sub.Life, &sub.Spirit, &sub.Active,
		&sub.SubscribedAt, &token, &confirmedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.ConfirmationToken = token.String
	sub.ConfirmedAt = timePtr(confirmedAt)
	return &sub, nil
}
