package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gamedb-api/internal/models"
	"github.com/gamedb-api/internal/policy"
	"github.com/gamedb-api/internal/repository"
	"github.com/gamedb-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxReleaseYear keeps imported years inside the INTEGER column
const maxReleaseYear = math.MaxInt32

// importService is the concrete implementation of ImportService
type importService struct {
	repos *repository.Repositories
	now   func() time.Time
	log   zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, now func() time.Time, log zerolog.Logger) *importService {
	return &importService{
		repos: repos,
		now:   now,
		log:   log.With().Str("service", "import").Logger(),
	}
}

// importEntry is one accepted element of an import document
type importEntry struct {
	Title       string
	ReleaseYear int
	Genre       string
	UserRating  int
}

// ImportAll upserts every element of a JSON array by title.
// Per-entry problems are collected in the report. A storage error stops the
// batch; entries before it stay committed and the partial report is returned.
func (s *importService) ImportAll(ctx context.Context, doc []byte) (*models.ImportReport, error) {
	items, err := parseDocument(doc)
	if err != nil {
		return nil, err
	}

	report := &models.ImportReport{Errors: []string{}}
	for i, raw := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		entry, msg := decodeEntry(raw)
		if msg != "" {
			report.Errors = append(report.Errors, fmt.Sprintf("Entry %d: %s", i, msg))
			continue
		}

		created, err := s.upsert(ctx, entry)
		if err != nil {
			return report, fmt.Errorf("entry %d: %w", i, err)
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	return report, nil
}

// upsert updates the oldest game with the same title or creates an unowned one
func (s *importService) upsert(ctx context.Context, entry importEntry) (bool, error) {
	game, err := s.repos.Game.FindByTitle(ctx, entry.Title)
	if err != nil {
		return false, fmt.Errorf("failed to find game: %w", err)
	}

	if game != nil {
		game.ReleaseYear = entry.ReleaseYear
		game.Genre = entry.Genre
		game.UserRating = entry.UserRating
		if err := s.repos.Game.UpdateRanking(ctx, game); err != nil {
			return false, fmt.Errorf("failed to update game: %w", err)
		}
		return false, nil
	}

	now := s.now()
	game = &models.Game{
		ID:          uuid.New().String(),
		Title:       entry.Title,
		ReleaseYear: entry.ReleaseYear,
		Genre:       entry.Genre,
		UserRating:  entry.UserRating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.Game.Create(ctx, game); err != nil {
		return false, fmt.Errorf("failed to create game: %w", err)
	}
	return true, nil
}

// RunImport checks permissions, honours the idempotency key, imports the
// document and records the run.
func (s *importService) RunImport(ctx context.Context, doc []byte, actor models.Actor, idempotencyKey string) (*models.ImportRun, error) {
	if err := denied(actor, policy.CanImport(actor)); err != nil {
		return nil, err
	}

	if idempotencyKey != "" {
		existing, err := s.existingRun(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.log.Info().Str("run_id", existing.ID).Msg("Returning existing run for idempotency key")
			return existing, nil
		}
	}

	start := s.now()
	report, importErr := s.ImportAll(ctx, doc)

	var parseErr *ImportError
	if errors.As(importErr, &parseErr) {
		s.log.Warn().Err(importErr).Str("actor_id", actor.ID).Msg("Import rejected")
		return nil, importErr
	}

	completedAt := s.now()
	run := &models.ImportRun{
		ID:             uuid.New().String(),
		Status:         models.ImportStatusCompleted,
		IdempotencyKey: idempotencyKey,
		ActorID:        actor.ID,
		CreatedCount:   report.Created,
		UpdatedCount:   report.Updated,
		Errors:         report.Errors,
		DurationMs:     completedAt.Sub(start).Milliseconds(),
		CreatedAt:      start,
		CompletedAt:    &completedAt,
	}
	if importErr != nil {
		run.Status = models.ImportStatusFailed
	}

	if err := s.repos.ImportRun.Create(ctx, run); err != nil {
		if errors.Is(err, repository.ErrDuplicate) && idempotencyKey != "" {
			// a concurrent request with the same key won
			return s.existingRun(ctx, idempotencyKey)
		}
		return nil, fmt.Errorf("failed to record import run: %w", err)
	}
	if err := s.repos.ImportRun.AddErrors(ctx, run.ID, run.Errors); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to store import errors")
	}

	if importErr != nil {
		s.log.Error().Err(importErr).Str("run_id", run.ID).Msg("Import aborted")
		return nil, fmt.Errorf("import aborted (run %s): %w", run.ID, importErr)
	}

	s.log.Info().
		Str("run_id", run.ID).
		Str("actor_id", actor.ID).
		Int("created", run.CreatedCount).
		Int("updated", run.UpdatedCount).
		Int("errors", len(run.Errors)).
		Int64("duration_ms", run.DurationMs).
		Msg("Import completed")

	return run, nil
}

// GetImportRun returns a stored run with its errors
func (s *importService) GetImportRun(ctx context.Context, id string) (*models.ImportRun, error) {
	run, err := s.repos.ImportRun.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}
	if run == nil {
		return nil, ErrNotFound
	}
	if err := s.loadErrors(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *importService) existingRun(ctx context.Context, key string) (*models.ImportRun, error) {
	run, err := s.repos.ImportRun.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if run == nil {
		return nil, nil
	}
	if err := s.loadErrors(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *importService) loadErrors(ctx context.Context, run *models.ImportRun) error {
	errs, err := s.repos.ImportRun.GetErrors(ctx, run.ID, 0)
	if err != nil {
		return fmt.Errorf("failed to get import errors: %w", err)
	}
	run.Errors = errs
	return nil
}

// parseDocument decodes a top-level JSON array keeping numbers exact
func parseDocument(doc []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, &ImportError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ImportError{Message: "invalid JSON: unexpected data after top-level value"}
	}

	items, ok := root.([]any)
	if !ok {
		return nil, &ImportError{Message: fmt.Sprintf("invalid import document: expected a JSON array, got %s", jsonKind(root))}
	}
	return items, nil
}

// decodeEntry coerces one element. A non-empty message means skip it.
func decodeEntry(raw any) (importEntry, string) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return importEntry{}, "not an object"
	}

	// titles are matched exactly as given; a blank one cannot be stored
	title := scalarText(obj["title"])
	if strings.TrimSpace(title) == "" {
		return importEntry{}, "missing title"
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return importEntry{}, fmt.Sprintf("title exceeds %d characters", models.MaxTitleLength)
	}

	genre := scalarText(obj["genre"])
	if utf8.RuneCountInString(genre) > models.MaxGenreLength {
		return importEntry{}, fmt.Sprintf("genre exceeds %d characters", models.MaxGenreLength)
	}

	year, _ := coerceInt(obj["release_year"])
	rating, _ := coerceInt(obj["user_rating"])

	return importEntry{
		Title:       title,
		ReleaseYear: int(min(max(year, 0), maxReleaseYear)),
		Genre:       genre,
		UserRating:  validation.ClampRating(int(min(max(rating, math.MinInt32), math.MaxInt32))),
	}, ""
}

// scalarText renders strings and numbers as text, anything else as ""
func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// coerceInt parses integers, truncates fractional numbers and parses
// numeric strings. Anything else yields (0, false).
func coerceInt(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return truncate(f), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func truncate(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(math.Trunc(f))
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
