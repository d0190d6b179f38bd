package models

import (
	"time"
)

// Page represents a standalone page
type Page struct {
	ID              string    `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Slug            string    `json:"slug" db:"slug"`
	Body            string    `json:"body" db:"body"`
	MetaDescription string    `json:"meta_description,omitempty" db:"meta_description"`
	IsPublished     bool      `json:"is_published" db:"is_published"`
	CategoryID      *string   `json:"category_id,omitempty" db:"category_id"`
	TOCOrder        int       `json:"toc_order" db:"toc_order"`
	ShowInTOC       bool      `json:"show_in_toc" db:"show_in_toc"`
	WPPageID        *int64    `json:"wp_page_id,omitempty" db:"wp_page_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	ModifiedAt      time.Time `json:"modified_at" db:"modified_at"`
}

// PageInput carries the writable fields of a page
type PageInput struct {
	Title           string  `json:"title"`
	Slug            string  `json:"slug,omitempty"`
	Body            string  `json:"body"`
	MetaDescription string  `json:"meta_description,omitempty"`
	IsPublished     bool    `json:"is_published"`
	CategoryID      *string `json:"category_id,omitempty"`
	TOCOrder        int     `json:"toc_order"`
	ShowInTOC       *bool   `json:"show_in_toc,omitempty"`
}
