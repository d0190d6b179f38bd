package models

import (
	"time"
)

// Comment is a reader comment owned by a post
type Comment struct {
	ID          string    `json:"id" db:"id"`
	PostID      string    `json:"post_id" db:"post_id"`
	AuthorName  string    `json:"author_name" db:"author_name"`
	AuthorEmail string    `json:"author_email,omitempty" db:"author_email"`
	AuthorURL   string    `json:"author_url,omitempty" db:"author_url"`
	Body        string    `json:"body" db:"body"`
	Approved    bool      `json:"approved" db:"approved"`
	WPCommentID *int64    `json:"wp_comment_id,omitempty" db:"wp_comment_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AnonymousAuthor is used when an imported comment has no author name
const AnonymousAuthor = "Anonymous"
