package models

import (
	"time"
)

// Game represents a catalog entry
type Game struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	ReleaseYear int       `json:"release_year" db:"release_year"`
	Genre       string    `json:"genre" db:"genre"`
	UserRating  int       `json:"user_rating" db:"user_rating"`
	Cover       *string   `json:"cover" db:"cover"`       // relative to the upload root
	OwnerID     *string   `json:"owner_id" db:"owner_id"` // nil once the owner is deleted
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Field limits shared by validation and the schema
const (
	MaxTitleLength = 200
	MaxGenreLength = 100
	MinRating      = 0
	MaxRating      = 10
)

// IsOwnedBy reports whether userID owns the game
func (g *Game) IsOwnedBy(userID string) bool {
	return g.OwnerID != nil && userID != "" && *g.OwnerID == userID
}

// GameInput is the create/update payload. Pointers distinguish absent from zero.
type GameInput struct {
	Title       string `json:"title" form:"title"`
	ReleaseYear *int   `json:"release_year" form:"release_year"`
	Genre       string `json:"genre" form:"genre"`
	UserRating  *int   `json:"user_rating" form:"user_rating"`
}

// GameFields holds validated values ready to persist
type GameFields struct {
	Title       string
	ReleaseYear int
	Genre       string
	UserRating  int
}

// Apply copies validated fields onto the game
func (f GameFields) Apply(g *Game) {
	g.Title = f.Title
	g.ReleaseYear = f.ReleaseYear
	g.Genre = f.Genre
	g.UserRating = f.UserRating
}

// CoverUpload is an uploaded cover image prior to storage
type CoverUpload struct {
	Filename string
	Size     int64
	Data     []byte
}

// GameDetail is a game with its visible comments
type GameDetail struct {
	Game     *Game      `json:"game"`
	Comments []*Comment `json:"comments"`
	CanEdit  bool       `json:"can_edit"`
}

// GameExport is one element of the JSON export document
type GameExport struct {
	Title       string  `json:"title"`
	ReleaseYear int     `json:"release_year"`
	Genre       string  `json:"genre"`
	UserRating  int     `json:"user_rating"`
	OwnerID     *string `json:"owner_id"`
}
