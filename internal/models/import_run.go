package models

import (
	"time"
)

// ImportStatus represents the outcome of an import run
type ImportStatus string

const (
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
)

// ImportReport summarises one import invocation
type ImportReport struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// ImportRun is the persisted record of an import
type ImportRun struct {
	ID             string       `json:"run_id" db:"id"`
	Status         ImportStatus `json:"status" db:"status"`
	IdempotencyKey string       `json:"idempotency_key,omitempty" db:"idempotency_key"`
	ActorID        string       `json:"actor_id,omitempty" db:"actor_id"`
	CreatedCount   int          `json:"created" db:"created_count"`
	UpdatedCount   int          `json:"updated" db:"updated_count"`
	Errors         []string     `json:"errors" db:"-"` // stored in import_errors
	DurationMs     int64        `json:"duration_ms" db:"duration_ms"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
}

// Report returns the run's report view
func (r *ImportRun) Report() *ImportReport {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return &ImportReport{
		Created: r.CreatedCount,
		Updated: r.UpdatedCount,
		Errors:  errs,
	}
}

// ImportResponse is the API response for an import
type ImportResponse struct {
	RunID  string       `json:"run_id"`
	Status ImportStatus `json:"status"`
	ImportReport
}
