package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// TerminalStatus reports whether a job status admits no further transitions.
func TerminalStatus(status string) bool {
	return status == JobStatusSucceeded || status == JobStatusFailed
}

// Job tracks async moderation jobs. The API returns a job_id on POST /api/v1/moderate;
// the client polls GET /api/v1/moderate/{job_id} until status is succeeded or failed.
type Job struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	TenantID     uuid.UUID  `db:"tenant_id"     json:"tenant_id"`
	UserID       string     `db:"user_id"       json:"user_id"`
	Type         string     `db:"type"          json:"type"`
	Status       string     `db:"status"        json:"status"`
	Progress     string     `db:"progress"      json:"progress,omitempty"`
	ProfileID    *uuid.UUID `db:"profile_id"    json:"profile_id,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}
