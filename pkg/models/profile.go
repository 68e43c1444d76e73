package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a named moderation policy. Submissions may reference a profile
// to tighten or relax scoring for a particular audience or platform.
type Profile struct {
	ID                uuid.UUID `db:"id"                 json:"id"`
	TenantID          uuid.UUID `db:"tenant_id"          json:"tenant_id"`
	Name              string    `db:"name"               json:"name"`
	Strictness        int       `db:"strictness"         json:"strictness"` // 0-100; higher rejects more
	BlockedCategories []string  `db:"blocked_categories" json:"blocked_categories"`
	DefaultLanguage   string    `db:"default_language"   json:"default_language"`
	Platform          string    `db:"platform"           json:"platform,omitempty"`
	CreatedAt         time.Time `db:"created_at"         json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"         json:"updated_at"`
}
