package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gamedb-api/internal/database"
	"github.com/gamedb-api/internal/models"
	"github.com/lib/pq"
)

const importRunColumns = `id, status, idempotency_key, actor_id, created_count, updated_count, duration_ms, created_at, completed_at`

// importRunRepo is the concrete implementation of ImportRunRepository
type importRunRepo struct {
	db *database.DB
}

// NewImportRunRepo creates a new import run repository
func NewImportRunRepo(db *database.DB) ImportRunRepository {
	return &importRunRepo{db: db}
}

// Create inserts a finished run. A reused idempotency key yields ErrDuplicate.
func (r *importRunRepo) Create(ctx context.Context, run *models.ImportRun) error {
	query := `
		INSERT INTO import_runs (` + importRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, nullString(run.IdempotencyKey), nullString(run.ActorID),
		run.CreatedCount, run.UpdatedCount, run.DurationMs, run.CreatedAt, run.CompletedAt,
	)
	return translate(err)
}

// GetByID retrieves a run by ID, without its errors
func (r *importRunRepo) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	if !validID(id) {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+importRunColumns+` FROM import_runs WHERE id = $1`, id)
}

// GetByIdempotencyKey retrieves a run by idempotency key
func (r *importRunRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	return r.getOne(ctx, `SELECT `+importRunColumns+` FROM import_runs WHERE idempotency_key = $1`, key)
}

func (r *importRunRepo) getOne(ctx context.Context, query, arg string) (*models.ImportRun, error) {
	var run models.ImportRun
	var idempotencyKey, actorID sql.NullString
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&run.ID, &run.Status, &idempotencyKey, &actorID,
		&run.CreatedCount, &run.UpdatedCount, &run.DurationMs,
		&run.CreatedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.IdempotencyKey = idempotencyKey.String
	run.ActorID = actorID.String
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}

// AddErrors stores a run's per-entry errors in order using the COPY protocol
func (r *importRunRepo) AddErrors(ctx context.Context, runID string, messages []string) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("import_errors", "run_id", "position", "message"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, msg := range messages {
		if _, err := stmt.ExecContext(ctx, runID, i, msg); err != nil {
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetErrors retrieves a run's errors in their original order. limit <= 0 means all.
func (r *importRunRepo) GetErrors(ctx context.Context, runID string, limit int) ([]string, error) {
	query := `SELECT message FROM import_errors WHERE run_id = $1 ORDER BY position`
	args := []any{runID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]string, 0)
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
