package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/policy"
	"github.com/gamedb-api/internal/repository"
	"github.com/gamedb-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// commentService is the concrete implementation of CommentService
type commentService struct {
	repos *repository.Repositories
	now   func() time.Time
	log   zerolog.Logger
}

// newCommentService creates a new CommentService
func newCommentService(repos *repository.Repositories, now func() time.Time, log zerolog.Logger) *commentService {
	return &commentService{
		repos: repos,
		now:   now,
		log:   log.With().Str("service", "comment").Logger(),
	}
}

// ListVisibleComments returns a game's visible comments, newest first
func (s *commentService) ListVisibleComments(ctx context.Context, gameID string) ([]*models.Comment, error) {
	if _, err := s.game(ctx, gameID); err != nil {
		return nil, err
	}
	comments, err := s.repos.Comment.ListByGame(ctx, gameID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// AddComment stores a new visible comment by actor
func (s *commentService) AddComment(ctx context.Context, gameID, text string, actor models.Actor) (*models.Comment, error) {
	if err := denied(actor, policy.RequireAuthenticated(actor)); err != nil {
		return nil, err
	}
	if _, err := s.game(ctx, gameID); err != nil {
		return nil, err
	}

	body, err := validation.ValidateCommentText(text)
	if err != nil {
		return nil, err
	}

	now := s.now()
	comment := &models.Comment{
		ID:        uuid.New().String(),
		GameID:    gameID,
		AuthorID:  actor.ID,
		Text:      body,
		IsVisible: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repos.Comment.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.log.Info().Str("comment_id", comment.ID).Str("game_id", gameID).Str("author_id", actor.ID).Msg("Comment added")
	return comment, nil
}

// UpdateComment replaces a comment's text. created_at is preserved.
func (s *commentService) UpdateComment(ctx context.Context, id, text string, actor models.Actor) (*models.Comment, error) {
	comment, err := s.authorize(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	body, err := validation.ValidateCommentText(text)
	if err != nil {
		return nil, err
	}

	comment.Text = body
	if err := s.repos.Comment.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return comment, nil
}

// DeleteComment removes a comment
func (s *commentService) DeleteComment(ctx context.Context, id string, actor models.Actor) error {
	if _, err := s.authorize(ctx, id, actor); err != nil {
		return err
	}
	if err := s.repos.Comment.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	s.log.Info().Str("comment_id", id).Str("actor_id", actor.ID).Msg("Comment deleted")
	return nil
}

// SetCommentVisibility hides or shows a comment. Staff only.
func (s *commentService) SetCommentVisibility(ctx context.Context, id string, visible bool, actor models.Actor) (*models.Comment, error) {
	comment, err := s.comment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := denied(actor, policy.CanModerateComment(actor)); err != nil {
		return nil, err
	}

	comment.IsVisible = visible
	if err := s.repos.Comment.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	s.log.Info().Str("comment_id", id).Bool("visible", visible).Str("actor_id", actor.ID).Msg("Comment moderated")
	return comment, nil
}

// authorize loads a comment and checks that actor may modify it
func (s *commentService) authorize(ctx context.Context, id string, actor models.Actor) (*models.Comment, error) {
	comment, err := s.comment(ctx, id)
	if err != nil {
		return nil, err
	}

	game, err := s.repos.Game.GetByID(ctx, comment.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if err := denied(actor, policy.CanModifyComment(actor, comment, game)); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *commentService) comment(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := s.repos.Comment.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	if comment == nil {
		return nil, ErrNotFound
	}
	return comment, nil
}

func (s *commentService) game(ctx context.Context, id string) (*models.Game, error) {
	game, err := s.repos.Game.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, ErrNotFound
	}
	return game, nil
}
