package repository

import (
	"context"
	"errors"

	"github.com/gamedb-api/internal/database"
	"github.com/gamedb-api/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when a unique constraint rejects a write
var ErrDuplicate = errors.New("duplicate record")

// pqUniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const pqUniqueViolation = "23505"

// GameRepository defines the interface for game data operations.
// Lookups return (nil, nil) when no row matches.
type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	Update(ctx context.Context, game *models.Game) error
	UpdateRanking(ctx context.Context, game *models.Game) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Game, error)
	FindByTitle(ctx context.Context, title string) (*models.Game, error)
	List(ctx context.Context, genre string) ([]*models.Game, error)
	Top(ctx context.Context, n int) ([]*models.Game, error)
	Genres(ctx context.Context) ([]string, error)
	ClearOwner(ctx context.Context, ownerID string) (int64, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Game) error) error
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListByGame(ctx context.Context, gameID string, visibleOnly bool) ([]*models.Comment, error)
	DeleteByGame(ctx context.Context, gameID string) (int64, error)
	DeleteByAuthor(ctx context.Context, authorID string) (int64, error)
	Count(ctx context.Context) (int, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// ImportRunRepository defines the interface for import run history
type ImportRunRepository interface {
	Create(ctx context.Context, run *models.ImportRun) error
	GetByID(ctx context.Context, id string) (*models.ImportRun, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error)
	AddErrors(ctx context.Context, runID string, messages []string) error
	GetErrors(ctx context.Context, runID string, limit int) ([]string, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Game      GameRepository
	Comment   CommentRepository
	User      UserRepository
	ImportRun ImportRunRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Game:      NewGameRepo(db),
		Comment:   NewCommentRepo(db),
		User:      NewUserRepo(db),
		ImportRun: NewImportRunRepo(db),
	}
}

// translate maps driver errors onto repository errors
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrDuplicate
	}
	return err
}

// validID reports whether id can match a UUID primary key.
// Anything else would fail the cast in PostgreSQL instead of matching no row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
