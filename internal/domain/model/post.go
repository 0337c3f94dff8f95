package model

import (
	"time"
)

type Post struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Body  string `json:"body"`

	// Seq is assigned by the store in insertion order and only used as the
	// stable tie-break when sorting by created_at.
	Seq int64 `json:"-"`

	AuthorID       string  `json:"author_id"`
	AuthorUsername *string `json:"author_username,omitempty"` // For display

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
