package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/repository"
	"github.com/rs/zerolog"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// ExportAll returns one record per game in insertion order
func (s *exportService) ExportAll(ctx context.Context) ([]models.GameExport, error) {
	records := make([]models.GameExport, 0)

	err := s.repos.Game.StreamAll(ctx, func(game *models.Game) error {
		records = append(records, models.GameExport{
			Title:       game.Title,
			ReleaseYear: game.ReleaseYear,
			Genre:       game.Genre,
			UserRating:  game.UserRating,
			OwnerID:     game.OwnerID,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export games: %w", err)
	}

	return records, nil
}

// WriteExport writes the export as an indented JSON array with non-ASCII kept verbatim
func (s *exportService) WriteExport(ctx context.Context, w io.Writer) error {
	records, err := s.ExportAll(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	s.log.Info().Int("count", len(records)).Msg("Games export completed")
	return nil
}

// GetCount returns the number of stored records of a resource
func (s *exportService) GetCount(ctx context.Context, resource string) (int, error) {
	switch resource {
	case "games":
		return s.repos.Game.Count(ctx)
	case "comments":
		return s.repos.Comment.Count(ctx)
	case "users":
		return s.repos.User.Count(ctx)
	default:
		return 0, fmt.Errorf("unknown resource: %s", resource)
	}
}
