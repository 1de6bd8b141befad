package domain

import "time"

const MaxTitleLength = 100

// Post is a text entry owned by exactly one user. AuthorID and CreatedAt never
// change after creation.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	AuthorID  string    `json:"author_id"`
}
