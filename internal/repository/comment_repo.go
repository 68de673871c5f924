package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gamedb-api/internal/database"
	"github.com/gamedb-api/internal/models"
)

const commentColumns = `id, game_id, author_id, text, is_visible, created_at, updated_at`

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db *database.DB
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db *database.DB) CommentRepository {
	return &commentRepo{db: db}
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var comment models.Comment
	err := row.Scan(
		&comment.ID, &comment.GameID, &comment.AuthorID, &comment.Text,
		&comment.IsVisible, &comment.CreatedAt, &comment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Create inserts a new comment
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (` + commentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.GameID, comment.AuthorID, comment.Text,
		comment.IsVisible, comment.CreatedAt, comment.UpdatedAt,
	)
	return translate(err)
}

// Update changes text and visibility. created_at is never written.
func (r *commentRepo) Update(ctx context.Context, comment *models.Comment) error {
	comment.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		"UPDATE comments SET text = $1, is_visible = $2, updated_at = $3 WHERE id = $4",
		comment.Text, comment.IsVisible, comment.UpdatedAt, comment.ID,
	)
	return err
}

// Delete removes a comment
func (r *commentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = $1", id)
	return err
}

// GetByID retrieves a comment by ID
func (r *commentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return comment, err
}

// ListByGame returns a game's comments newest first
func (r *commentRepo) ListByGame(ctx context.Context, gameID string, visibleOnly bool) ([]*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE game_id = $1`
	if visibleOnly {
		query += ` AND is_visible`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

// DeleteByGame removes every comment on a game
func (r *commentRepo) DeleteByGame(ctx context.Context, gameID string) (int64, error) {
	return r.deleteWhere(ctx, "DELETE FROM comments WHERE game_id = $1", gameID)
}

// DeleteByAuthor removes every comment written by a user
func (r *commentRepo) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	return r.deleteWhere(ctx, "DELETE FROM comments WHERE author_id = $1", authorID)
}

func (r *commentRepo) deleteWhere(ctx context.Context, query, arg string) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Count returns the total number of comments
func (r *commentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&count)
	return count, err
}
