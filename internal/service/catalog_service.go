package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/policy"
	"github.com/gamedb-api/internal/repository"
	"github.com/gamedb-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Top list bounds
const (
	MinTopGames     = 1
	MaxTopGames     = 100
	DefaultTopGames = 10
)

// catalogService is the concrete implementation of CatalogService
type catalogService struct {
	repos  *repository.Repositories
	covers CoverStore
	now    func() time.Time
	log    zerolog.Logger
}

// newCatalogService creates a new CatalogService
func newCatalogService(repos *repository.Repositories, covers CoverStore, now func() time.Time, log zerolog.Logger) *catalogService {
	return &catalogService{
		repos:  repos,
		covers: covers,
		now:    now,
		log:    log.With().Str("service", "catalog").Logger(),
	}
}

// ListGames returns games by rating, then year, then title. An empty genre lists all.
func (s *catalogService) ListGames(ctx context.Context, genre string) ([]*models.Game, error) {
	games, err := s.repos.Game.List(ctx, strings.TrimSpace(genre))
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// ListGenres returns the distinct genres in the catalog
func (s *catalogService) ListGenres(ctx context.Context) ([]string, error) {
	genres, err := s.repos.Game.Genres(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	return genres, nil
}

// TopGames returns the n best games, n clamped to [1,100]
func (s *catalogService) TopGames(ctx context.Context, n int) ([]*models.Game, error) {
	n = clampTop(n)
	games, err := s.repos.Game.Top(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list top games: %w", err)
	}
	return games, nil
}

func clampTop(n int) int {
	if n < MinTopGames {
		return MinTopGames
	}
	if n > MaxTopGames {
		return MaxTopGames
	}
	return n
}

// GetGame retrieves a single game
func (s *catalogService) GetGame(ctx context.Context, id string) (*models.Game, error) {
	game, err := s.repos.Game.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, ErrNotFound
	}
	return game, nil
}

// GetGameDetail returns a game, its visible comments and whether actor may edit it
func (s *catalogService) GetGameDetail(ctx context.Context, id string, actor models.Actor) (*models.GameDetail, error) {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.repos.Comment.ListByGame(ctx, id, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return &models.GameDetail{
		Game:     game,
		Comments: comments,
		CanEdit:  policy.CanModifyGame(actor, game).Allowed,
	}, nil
}

// CreateGame validates and stores a new game owned by actor
func (s *catalogService) CreateGame(ctx context.Context, input *models.GameInput, cover *models.CoverUpload, actor models.Actor) (*models.Game, error) {
	if err := denied(actor, policy.RequireAuthenticated(actor)); err != nil {
		return nil, err
	}

	fields, err := s.validate(input, cover)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ownerID := actor.ID
	game := &models.Game{
		ID:        uuid.New().String(),
		OwnerID:   &ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields.Apply(game)

	if cover != nil {
		rel, err := s.covers.Save(ctx, cover)
		if err != nil {
			return nil, err
		}
		game.Cover = &rel
	}

	if err := s.repos.Game.Create(ctx, game); err != nil {
		s.discardCover(ctx, game.Cover)
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	s.log.Info().
		Str("game_id", game.ID).
		Str("owner_id", actor.ID).
		Str("title", game.Title).
		Msg("Game created")

	return game, nil
}

// UpdateGame overwrites a game's fields. A new cover replaces the old one.
func (s *catalogService) UpdateGame(ctx context.Context, id string, input *models.GameInput, cover *models.CoverUpload, actor models.Actor) (*models.Game, error) {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := denied(actor, policy.CanModifyGame(actor, game)); err != nil {
		return nil, err
	}

	fields, err := s.validate(input, cover)
	if err != nil {
		return nil, err
	}
	fields.Apply(game)

	previous := game.Cover
	if cover != nil {
		rel, err := s.covers.Save(ctx, cover)
		if err != nil {
			return nil, err
		}
		game.Cover = &rel
	}

	if err := s.repos.Game.Update(ctx, game); err != nil {
		if cover != nil {
			s.discardCover(ctx, game.Cover)
		}
		return nil, fmt.Errorf("failed to update game: %w", err)
	}
	if cover != nil {
		s.discardCover(ctx, previous)
	}

	s.log.Info().Str("game_id", game.ID).Str("actor_id", actor.ID).Msg("Game updated")
	return game, nil
}

// DeleteGame removes a game together with its comments
func (s *catalogService) DeleteGame(ctx context.Context, id string, actor models.Actor) error {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return err
	}
	if err := denied(actor, policy.CanModifyGame(actor, game)); err != nil {
		return err
	}

	removed, err := s.repos.Comment.DeleteByGame(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	if err := s.repos.Game.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	s.discardCover(ctx, game.Cover)

	s.log.Info().
		Str("game_id", id).
		Str("actor_id", actor.ID).
		Int64("comments_removed", removed).
		Msg("Game deleted")
	return nil
}

func (s *catalogService) validate(input *models.GameInput, cover *models.CoverUpload) (*models.GameFields, error) {
	if input == nil {
		input = &models.GameInput{}
	}
	fields, err := validation.ValidateGame(input)
	var errs validation.Errors
	if err != nil {
		errs = append(errs, err.(validation.Errors)...)
	}
	if cover != nil {
		if err := validation.ValidateCover(cover); err != nil {
			errs = append(errs, err.(validation.Errors)...)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return fields, nil
}

// discardCover removes a stored cover, logging failures
func (s *catalogService) discardCover(ctx context.Context, rel *string) {
	if rel == nil || *rel == "" {
		return
	}
	if err := s.covers.Remove(ctx, *rel); err != nil {
		s.log.Warn().Err(err).Str("cover", *rel).Msg("Failed to remove cover")
	}
}
