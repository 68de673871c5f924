package service

import (
	"context"
	"io"
	"time"

	"github.com/gamedb-api/internal/config"
	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/repository"
	"github.com/gamedb-api/pkg/token"
	"github.com/rs/zerolog"
)

// CatalogService defines the interface for browsing and editing games
type CatalogService interface {
	ListGames(ctx context.Context, genre string) ([]*models.Game, error)
	ListGenres(ctx context.Context) ([]string, error)
	TopGames(ctx context.Context, n int) ([]*models.Game, error)
	GetGame(ctx context.Context, id string) (*models.Game, error)
	GetGameDetail(ctx context.Context, id string, actor models.Actor) (*models.GameDetail, error)
	CreateGame(ctx context.Context, input *models.GameInput, cover *models.CoverUpload, actor models.Actor) (*models.Game, error)
	UpdateGame(ctx context.Context, id string, input *models.GameInput, cover *models.CoverUpload, actor models.Actor) (*models.Game, error)
	DeleteGame(ctx context.Context, id string, actor models.Actor) error
}

// CommentService defines the interface for game comments
type CommentService interface {
	ListVisibleComments(ctx context.Context, gameID string) ([]*models.Comment, error)
	AddComment(ctx context.Context, gameID, text string, actor models.Actor) (*models.Comment, error)
	UpdateComment(ctx context.Context, id, text string, actor models.Actor) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string, actor models.Actor) error
	SetCommentVisibility(ctx context.Context, id string, visible bool, actor models.Actor) (*models.Comment, error)
}

// ImportService defines the interface for JSON imports
type ImportService interface {
	ImportAll(ctx context.Context, doc []byte) (*models.ImportReport, error)
	RunImport(ctx context.Context, doc []byte, actor models.Actor, idempotencyKey string) (*models.ImportRun, error)
	GetImportRun(ctx context.Context, id string) (*models.ImportRun, error)
}

// ExportService defines the interface for JSON exports
type ExportService interface {
	ExportAll(ctx context.Context) ([]models.GameExport, error)
	WriteExport(ctx context.Context, w io.Writer) error
	GetCount(ctx context.Context, resource string) (int, error)
}

// AuthService defines the interface for accounts and bearer tokens
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	CreateUser(ctx context.Context, username, password string, staff, superuser bool) (*models.User, error)
	ResolveActor(ctx context.Context, bearer string) models.Actor
	DeleteUser(ctx context.Context, id string, actor models.Actor) error
}

// CoverStore persists uploaded cover images
type CoverStore interface {
	Save(ctx context.Context, upload *models.CoverUpload) (string, error)
	Remove(ctx context.Context, rel string) error
}

// Services holds all service interfaces
type Services struct {
	Catalog CatalogService
	Comment CommentService
	Import  ImportService
	Export  ExportService
	Auth    AuthService
}

// Option customises NewServices
type Option func(*options)

type options struct {
	clock func() time.Time
}

// WithClock overrides the time source used for timestamps
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, covers CoverStore, cfg *config.Config, log zerolog.Logger, opts ...Option) *Services {
	o := options{clock: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}

	tokens := token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	return &Services{
		Catalog: newCatalogService(repos, covers, o.clock, log),
		Comment: newCommentService(repos, o.clock, log),
		Import:  newImportService(repos, o.clock, log),
		Export:  newExportService(repos, log),
		Auth:    newAuthService(repos, tokens, o.clock, log),
	}
}
