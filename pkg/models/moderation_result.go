package models

import (
	"time"

	"github.com/google/uuid"
)

// Moderation verdicts, ordered by severity.
const (
	VerdictApprove = "approve"
	VerdictReview  = "review"
	VerdictReject  = "reject"
)

// CategoryScores holds per-category risk scores on a 0-100 scale.
// Higher means riskier.
type CategoryScores struct {
	Toxicity   int `json:"toxicity"`
	Hate       int `json:"hate"`
	Harassment int `json:"harassment"`
	SelfHarm   int `json:"self_harm"`
	Sexual     int `json:"sexual"`
	Violence   int `json:"violence"`
	Spam       int `json:"spam"`
}

// ModerationResult holds AI-generated moderation output for a specific job.
type ModerationResult struct {
	ID         uuid.UUID      `db:"id"         json:"id"`
	JobID      uuid.UUID      `db:"job_id"     json:"job_id"`
	TenantID   uuid.UUID      `db:"tenant_id"  json:"tenant_id"`
	Provider   string         `db:"provider"   json:"provider"`
	Model      string         `db:"model"      json:"model"`
	Score      int            `db:"score"      json:"score"` // overall safety score, 0-100, higher is safer
	Categories CategoryScores `db:"categories" json:"categories"`
	Verdict    string         `db:"verdict"    json:"verdict"`
	Summary    string         `db:"summary"    json:"summary"`
	Suggestion *string        `db:"suggestion" json:"suggestion,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
