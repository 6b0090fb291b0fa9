package models

import (
	"database/sql"
	"time"
)

// JobRecord is the persisted history row for a queued job.
type JobRecord struct {
	TaskID       string       `json:"task_id" db:"task_id"`
	Type         JobType      `json:"type" db:"type"`
	UserID       string       `json:"user_id" db:"user_id"`
	Status       JobStatus    `json:"status" db:"status"`
	ErrorMessage string       `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	StartedAt    sql.NullTime `json:"started_at" db:"started_at"`
	CompletedAt  sql.NullTime `json:"completed_at" db:"completed_at"`
}
