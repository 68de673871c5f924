package models

import (
	"time"
)

// Comment represents a comment on a game
type Comment struct {
	ID        string    `json:"id" db:"id"`
	GameID    string    `json:"game_id" db:"game_id"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Text      string    `json:"text" db:"text"`
	IsVisible bool      `json:"is_visible" db:"is_visible"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MaxCommentLength is the maximum comment length in characters after trimming
const MaxCommentLength = 2000

// CommentInput is the create/update payload
type CommentInput struct {
	Text string `json:"text" form:"text"`
}

// VisibilityInput is the moderation payload
type VisibilityInput struct {
	Visible *bool `json:"is_visible"`
}
