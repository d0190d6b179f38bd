package models

import (
	"strings"
	"time"
)

// Topic is one of the fixed subscription interests
type Topic string

const (
	TopicTech   Topic = "tech"
	TopicLife   Topic = "life"
	TopicSpirit Topic = "spirit"
)

// AllTopics lists the topic vocabulary in display order
var AllTopics = []Topic{TopicTech, TopicLife, TopicSpirit}

// ParseTopic maps a category name onto the topic vocabulary. Matching is
// case-insensitive but otherwise exact.
func ParseTopic(name string) (Topic, bool) {
	switch Topic(strings.ToLower(name)) {
	case TopicTech:
		return TopicTech, true
	case TopicLife:
		return TopicLife, true
	case TopicSpirit:
		return TopicSpirit, true
	}
	return "", false
}

// Subscriber is an email recipient of new-post notifications
type Subscriber struct {
	ID                string     `json:"id" db:"id"`
	Email             string     `json:"email" db:"email"`
	Tech              bool       `json:"tech" db:"tech"`
	Life              bool       `json:"life" db:"life"`
	Spirit            bool       `json:"spirit" db:"spirit"`
	Active            bool       `json:"active" db:"active"`
	SubscribedAt      time.Time  `json:"subscribed_at" db:"subscribed_at"`
	ConfirmationToken string     `json:"-" db:"confirmation_token"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
}

// Topics returns the topics the subscriber has opted into
func (s *Subscriber) Topics() []Topic {
	var topics []Topic
	if s.Tech {
		topics = append(topics, TopicTech)
	}
	if s.Life {
		topics = append(topics, TopicLife)
	}
	if s.Spirit {
		topics = append(topics, TopicSpirit)
	}
	return topics
}

// Wants reports whether the subscriber follows the given topic
func (s *Subscriber) Wants(t Topic) bool {
	switch t {
	case TopicTech:
		return s.Tech
	case TopicLife:
		return s.Life
	case TopicSpirit:
		return s.Spirit
	}
	return false
}

// SubscribeInput is the public subscription form
type SubscribeInput struct {
	Email  string `json:"email"`
	Tech   bool   `json:"tech"`
	Life   bool   `json:"life"`
	Spirit bool   `json:"spirit"`
}
