package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/policy"
	"github.com/gamedb-api/internal/repository"
	"github.com/gamedb-api/internal/validation"
	"github.com/gamedb-api/pkg/token"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// authService is the concrete implementation of AuthService
type authService struct {
	repos  *repository.Repositories
	tokens *token.Issuer
	now    func() time.Time
	log    zerolog.Logger
}

// newAuthService creates a new AuthService
func newAuthService(repos *repository.Repositories, tokens *token.Issuer, now func() time.Time, log zerolog.Logger) *authService {
	return &authService{
		repos:  repos,
		tokens: tokens,
		now:    now,
		log:    log.With().Str("service", "auth").Logger(),
	}
}

// Register creates a regular account and logs it in
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	if err := validation.ValidateCredentials(req.Username, req.Password, req.PasswordConfirm); err != nil {
		return nil, err
	}

	user, err := s.CreateUser(ctx, req.Username, req.Password, false, false)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// CreateUser stores an account with the given roles. Used by Register and
// by the management command for staff accounts.
func (s *authService) CreateUser(ctx context.Context, username, password string, staff, superuser bool) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateCredentials(username, password, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		IsStaff:      staff,
		IsSuperuser:  superuser,
		CreatedAt:    s.now(),
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validation.Errors{{Field: "username", Message: "username already taken", Value: username}}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Bool("staff", staff).
		Bool("superuser", superuser).
		Msg("User created")
	return user, nil
}

// Login verifies credentials and issues a token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repos.User.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) issue(user *models.User) (*models.AuthResponse, error) {
	signed, expiresAt, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

// ResolveActor maps a bearer token to an actor. Anything invalid is anonymous.
func (s *authService) ResolveActor(ctx context.Context, bearer string) models.Actor {
	if bearer == "" {
		return models.Anonymous()
	}

	userID, err := s.tokens.Verify(bearer)
	if err != nil {
		return models.Anonymous()
	}

	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to resolve token user")
		return models.Anonymous()
	}
	if user == nil {
		return models.Anonymous()
	}
	return models.ActorFor(user)
}

// DeleteUser removes an account. Their games are kept without an owner and
// their comments are deleted.
func (s *authService) DeleteUser(ctx context.Context, id string, actor models.Actor) error {
	if err := denied(actor, policy.CanDeleteUser(actor, id)); err != nil {
		return err
	}

	user, err := s.repos.User.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrNotFound
	}

	orphaned, err := s.repos.Game.ClearOwner(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to detach games: %w", err)
	}
	removed, err := s.repos.Comment.DeleteByAuthor(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	if err := s.repos.User.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.log.Info().
		Str("user_id", id).
		Str("actor_id", actor.ID).
		Int64("games_orphaned", orphaned).
		Int64("comments_removed", removed).
		Msg("User deleted")
	return nil
}
