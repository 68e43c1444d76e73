package store

import (
	"context"
	"errors"
	"time"

	"github.com/gitclixlogix/contentry/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	GetDefaultTenant(ctx context.Context) (*models.Tenant, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Profile, error)
	ListProfiles(ctx context.Context, tenantID uuid.UUID) ([]*models.Profile, error)
	DeleteProfile(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	CreateModerationResult(ctx context.Context, result *models.ModerationResult) error
	GetModerationResultByJobID(ctx context.Context, jobID uuid.UUID) (*models.ModerationResult, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
}

type JobFilter struct {
	TenantID uuid.UUID
	UserID   string
	Status   string
	Since    time.Time
	Page     int
	Limit    int
}

// JobUpdate carries optional fields applied alongside a status change.
type JobUpdate struct {
	ErrorMessage *string
	Progress     *string
}

type JobUpdateOption func(*JobUpdate)

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *JobUpdate) {
		p.ErrorMessage = &msg
	}
}

func WithProgress(stage string) JobUpdateOption {
	return func(p *JobUpdate) {
		p.Progress = &stage
	}
}
