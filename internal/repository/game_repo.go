package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gamedb-api/internal/database"
	"github.com/gamedb-api/internal/models"
)

const gameColumns = `id, title, release_year, genre, user_rating, cover, owner_id, created_at, updated_at`

// ranking order used by listings and the top list
const gameRanking = `ORDER BY user_rating DESC, release_year DESC, title ASC, id ASC`

// gameRepo is the concrete implementation of GameRepository
type gameRepo struct {
	db *database.DB
}

// NewGameRepo creates a new game repository
func NewGameRepo(db *database.DB) GameRepository {
	return &gameRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*models.Game, error) {
	var game models.Game
	var cover, ownerID sql.NullString
	err := row.Scan(
		&game.ID, &game.Title, &game.ReleaseYear, &game.Genre, &game.UserRating,
		&cover, &ownerID, &game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	game.Cover = stringPtr(cover)
	game.OwnerID = stringPtr(ownerID)
	return &game, nil
}

// Create inserts a new game
func (r *gameRepo) Create(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (` + gameColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		game.ID, game.Title, game.ReleaseYear, game.Genre, game.UserRating,
		nullStringPtr(game.Cover), nullStringPtr(game.OwnerID), game.CreatedAt, game.UpdatedAt,
	)
	return translate(err)
}

// Update overwrites the mutable fields of a game
func (r *gameRepo) Update(ctx context.Context, game *models.Game) error {
	game.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE games SET
			title = $1, release_year = $2, genre = $3, user_rating = $4,
			cover = $5, owner_id = $6, updated_at = $7
		WHERE id = $8
	`
	_, err := r.db.ExecContext(ctx, query,
		game.Title, game.ReleaseYear, game.Genre, game.UserRating,
		nullStringPtr(game.Cover), nullStringPtr(game.OwnerID), game.UpdatedAt, game.ID,
	)
	return translate(err)
}

// UpdateRanking overwrites only release_year, genre and user_rating.
// Title, cover and owner keep whatever the row holds now.
func (r *gameRepo) UpdateRanking(ctx context.Context, game *models.Game) error {
	game.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE games SET
			release_year = $1, genre = $2, user_rating = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query,
		game.ReleaseYear, game.Genre, game.UserRating, game.UpdatedAt, game.ID,
	)
	return translate(err)
}

// Delete removes a game; comments cascade in the schema
func (r *gameRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM games WHERE id = $1", id)
	return err
}

// GetByID retrieves a game by ID
func (r *gameRepo) GetByID(ctx context.Context, id string) (*models.Game, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return game, err
}

// FindByTitle returns the oldest game with exactly this title
func (r *gameRepo) FindByTitle(ctx context.Context, title string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE title = $1 ORDER BY created_at ASC, id ASC LIMIT 1`

	game, err := scanGame(r.db.QueryRowContext(ctx, query, title))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return game, err
}

// List returns games in ranking order, optionally filtered by genre (case-insensitive)
func (r *gameRepo) List(ctx context.Context, genre string) ([]*models.Game, error) {
	if genre == "" {
		return r.query(ctx, `SELECT `+gameColumns+` FROM games `+gameRanking)
	}
	return r.query(ctx, `SELECT `+gameColumns+` FROM games WHERE LOWER(genre) = LOWER($1) `+gameRanking, genre)
}

// Top returns the n best rated games
func (r *gameRepo) Top(ctx context.Context, n int) ([]*models.Game, error) {
	return r.query(ctx, `SELECT `+gameColumns+` FROM games `+gameRanking+` LIMIT $1`, n)
}

func (r *gameRepo) query(ctx context.Context, query string, args ...any) ([]*models.Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]*models.Game, 0)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

// Genres returns the distinct non-empty genres, sorted
func (r *gameRepo) Genres(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT genre FROM games WHERE genre <> '' ORDER BY genre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	genres := make([]string, 0)
	for rows.Next() {
		var genre string
		if err := rows.Scan(&genre); err != nil {
			return nil, err
		}
		genres = append(genres, genre)
	}
	return genres, rows.Err()
}

// ClearOwner detaches every game owned by ownerID
func (r *gameRepo) ClearOwner(ctx context.Context, ownerID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE games SET owner_id = NULL, updated_at = $1 WHERE owner_id = $2",
		time.Now().UTC(), ownerID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Count returns the total number of games
func (r *gameRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM games").Scan(&count)
	return count, err
}

// StreamAll streams every game in insertion order for export
func (r *gameRepo) StreamAll(ctx context.Context, callback func(*models.Game) error) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+gameColumns+` FROM games ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return err
		}
		if err := callback(game); err != nil {
			return err
		}
	}

	return rows.Err()
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
