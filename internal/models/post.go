package models

import (
	"time"
)

// PostStatus is the publication state of a post
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusPrivate   PostStatus = "private"
)

// ValidPostStatuses defines allowed post statuses
var ValidPostStatuses = map[PostStatus]bool{
	PostStatusDraft:     true,
	PostStatusPublished: true,
	PostStatusPrivate:   true,
}

// Post represents a blog post
type Post struct {
	ID              string     `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Slug            string     `json:"slug" db:"slug"`
	Body            string     `json:"body" db:"body"`
	Excerpt         string     `json:"excerpt" db:"excerpt"`
	Status          PostStatus `json:"status" db:"status"`
	MetaDescription string     `json:"meta_description,omitempty" db:"meta_description"`
	FeaturedImage   string     `json:"featured_image,omitempty" db:"featured_image"`
	WPPostID        *int64     `json:"wp_post_id,omitempty" db:"wp_post_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	ModifiedAt      time.Time  `json:"modified_at" db:"modified_at"`
	// PublishedAt is set the first time the post reaches published status
	// and never changes afterwards.
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	Categories  []Category `json:"categories" db:"-"`
	Tags        []Tag      `json:"tags" db:"-"`
}

// IsPublished reports whether the post is currently public
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// MarkPublished stamps PublishedAt if the post is published and has never
// been stamped before.
func (p *Post) MarkPublished(at time.Time) {
	if p.Status == PostStatusPublished && p.PublishedAt == nil {
		t := at
		p.PublishedAt = &t
	}
}

// CategoryNames returns the names of the post's categories in order
func (p *Post) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		names = append(names, c.Name)
	}
	return names
}

// PostInput carries the writable fields of a post
type PostInput struct {
	Title           string     `json:"title"`
	Slug            string     `json:"slug,omitempty"`
	Body            string     `json:"body"`
	Excerpt         string     `json:"excerpt,omitempty"`
	Status          PostStatus `json:"status,omitempty"`
	MetaDescription string     `json:"meta_description,omitempty"`
	FeaturedImage   string     `json:"featured_image,omitempty"`
	CategoryIDs     []string   `json:"category_ids,omitempty"`
	TagIDs          []string   `json:"tag_ids,omitempty"`
}

// PostFilter narrows post listings
type PostFilter struct {
	Status PostStatus
	Limit  int
	Offset int
}
