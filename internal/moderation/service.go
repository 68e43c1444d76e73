// Package moderation orchestrates async content-moderation jobs: it creates
// the job record, runs AI scoring on a bounded worker pool, and serves status
// snapshots to the polling endpoint.
package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gitclixlogix/contentry/internal/cache"
	"github.com/gitclixlogix/contentry/internal/store"
	"github.com/gitclixlogix/contentry/internal/worker"
	"github.com/gitclixlogix/contentry/pkg/models"
	"github.com/google/uuid"
)

var (
	ErrEmptyContent   = errors.New("content is empty")
	ErrMissingUser    = errors.New("user identifier is required")
	ErrQueueSaturated = errors.New("moderation queue saturated")
	ErrJobNotFound    = store.ErrNotFound
)

// Progress stages reported to polling clients.
const (
	stageQueued    = "queued"
	stageAnalyzing = "analyzing content"
	stageScoring   = "scoring"
)

const maxContentBytes = 50_000

// SubmitParams holds validated parameters for a moderation submission.
type SubmitParams struct {
	TenantID        uuid.UUID
	UserID          string
	Content         string
	Language        string
	ProfileID       *uuid.UUID
	PlatformContext string
}

// JobStatus is the poll-endpoint view of a job: status plus, when terminal,
// the result payload or error message.
type JobStatus struct {
	Status   string
	Progress string
	Result   *models.ModerationResult
	Error    string
}

// statusSnapshot is the compact form cached in Redis for cheap polling.
type statusSnapshot struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Status   string    `json:"status"`
	Progress string    `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

// Service coordinates job records, the worker pool, and the AI provider.
type Service struct {
	provider  models.AIProvider
	store     store.Store
	cache     cache.Cache
	pool      *worker.Pool
	timeout   time.Duration
	statusTTL time.Duration
}

// NewService creates a moderation Service.
func NewService(provider models.AIProvider, st store.Store, ca cache.Cache, pool *worker.Pool,
	timeout, statusTTL time.Duration) *Service {
	return &Service{
		provider:  provider,
		store:     st,
		cache:     ca,
		pool:      pool,
		timeout:   timeout,
		statusTTL: statusTTL,
	}
}

// Submit validates the request, creates a pending job, and dispatches the
// analysis to the worker pool. Returns the job immediately without waiting
// for analysis to complete.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (*models.Job, error) {
	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > maxContentBytes {
		return nil, fmt.Errorf("content exceeds %d bytes", maxContentBytes)
	}
	if params.UserID == "" {
		return nil, ErrMissingUser
	}

	var profile *models.Profile
	if params.ProfileID != nil {
		p, err := s.store.GetProfile(ctx, *params.ProfileID, params.TenantID)
		if err != nil {
			return nil, fmt.Errorf("resolving profile: %w", err)
		}
		profile = p
	}

	language := params.Language
	if language == "" {
		if profile != nil && profile.DefaultLanguage != "" {
			language = profile.DefaultLanguage
		} else {
			language = "en"
		}
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.New(),
		TenantID:  params.TenantID,
		UserID:    params.UserID,
		Type:      "moderation",
		Status:    models.JobStatusPending,
		Progress:  stageQueued,
		ProfileID: params.ProfileID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	s.cacheSnapshot(ctx, job.ID, statusSnapshot{
		TenantID: job.TenantID,
		Status:   models.JobStatusPending,
		Progress: stageQueued,
	})

	req := models.ModerationRequest{
		Content:         content,
		Language:        language,
		PlatformContext: params.PlatformContext,
		Profile:         profile,
	}

	if err := s.pool.Submit(func() { s.runModeration(job.ID, job.TenantID, req) }); err != nil {
		s.failJob(context.Background(), job.ID, job.TenantID, "moderation queue saturated")
		if errors.Is(err, worker.ErrQueueFull) {
			return nil, ErrQueueSaturated
		}
		return nil, fmt.Errorf("dispatching job: %w", err)
	}

	return job, nil
}

// runModeration performs the actual AI analysis on a pool worker.
// It recovers from panics and always leaves the job in a terminal state.
func (s *Service) runModeration(jobID, tenantID uuid.UUID, req models.ModerationRequest) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in runModeration", "error", r, "job_id", jobID)
			s.failJob(ctx, jobID, tenantID, fmt.Sprintf("panic: %v", r))
		}
	}()

	s.setProgress(ctx, jobID, tenantID, stageAnalyzing)

	inferCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.provider.Moderate(inferCtx, req)
	if err != nil {
		s.failJob(ctx, jobID, tenantID, err.Error())
		return
	}

	s.setProgress(ctx, jobID, tenantID, stageScoring)

	// Clamp the overall score to [0, 100]
	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}

	result.ID = uuid.New()
	result.JobID = jobID
	result.TenantID = tenantID
	result.Provider = s.provider.Name()
	result.CreatedAt = time.Now().UTC()

	if err := s.store.CreateModerationResult(ctx, &result); err != nil {
		s.failJob(ctx, jobID, tenantID, fmt.Sprintf("storing result: %v", err))
		return
	}

	if err := s.store.UpdateJobStatus(ctx, jobID, models.JobStatusSucceeded); err != nil {
		slog.Error("marking job succeeded", "error", err, "job_id", jobID)
		return
	}
	s.cacheSnapshot(ctx, jobID, statusSnapshot{
		TenantID: tenantID,
		Status:   models.JobStatusSucceeded,
	})
}

// Status returns the polling view of a job. Non-terminal statuses are served
// from the cache when fresh; terminal statuses always come from the store so
// the result payload or error message can be attached.
func (s *Service) Status(ctx context.Context, jobID, tenantID uuid.UUID) (*JobStatus, error) {
	if snap, ok := s.cachedSnapshot(ctx, jobID); ok && snap.TenantID == tenantID {
		if !models.TerminalStatus(snap.Status) {
			return &JobStatus{Status: snap.Status, Progress: snap.Progress}, nil
		}
	}

	job, err := s.store.GetJob(ctx, jobID, tenantID)
	if err != nil {
		return nil, err
	}

	js := &JobStatus{Status: job.Status, Progress: job.Progress}

	switch job.Status {
	case models.JobStatusSucceeded:
		result, err := s.store.GetModerationResultByJobID(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("loading result: %w", err)
		}
		js.Result = result
	case models.JobStatusFailed:
		if job.ErrorMessage != nil {
			js.Error = *job.ErrorMessage
		} else {
			js.Error = "moderation failed"
		}
	}

	return js, nil
}

func (s *Service) setProgress(ctx context.Context, jobID, tenantID uuid.UUID, stage string) {
	if err := s.store.UpdateJobStatus(ctx, jobID, models.JobStatusRunning, store.WithProgress(stage)); err != nil {
		slog.Warn("updating job progress", "error", err, "job_id", jobID, "stage", stage)
	}
	s.cacheSnapshot(ctx, jobID, statusSnapshot{
		TenantID: tenantID,
		Status:   models.JobStatusRunning,
		Progress: stage,
	})
}

func (s *Service) failJob(ctx context.Context, jobID, tenantID uuid.UUID, msg string) {
	if err := s.store.UpdateJobStatus(ctx, jobID, models.JobStatusFailed, store.WithErrorMessage(msg)); err != nil {
		slog.Error("marking job failed", "error", err, "job_id", jobID)
	}
	s.cacheSnapshot(ctx, jobID, statusSnapshot{
		TenantID: tenantID,
		Status:   models.JobStatusFailed,
		Error:    msg,
	})
}

// cacheSnapshot best-effort writes the status snapshot; polling falls back to
// the store on a miss, so cache errors are only logged.
func (s *Service) cacheSnapshot(ctx context.Context, jobID uuid.UUID, snap statusSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.JobStatusKey(jobID), data, s.statusTTL); err != nil {
		slog.Warn("caching job status", "error", err, "job_id", jobID)
	}
}

func (s *Service) cachedSnapshot(ctx context.Context, jobID uuid.UUID) (statusSnapshot, bool) {
	data, found, err := s.cache.Get(ctx, cache.JobStatusKey(jobID))
	if err != nil || !found {
		return statusSnapshot{}, false
	}
	var snap statusSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return statusSnapshot{}, false
	}
	return snap, true
}
