// Package handler contains the HTTP handlers for the REST API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gitclixlogix/contentry/internal/api/middleware"
	"github.com/gitclixlogix/contentry/internal/api/response"
	"github.com/gitclixlogix/contentry/internal/moderation"
	"github.com/gitclixlogix/contentry/internal/store"
	"github.com/gitclixlogix/contentry/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// userIDHeader identifies the end user on whose behalf content is submitted.
const userIDHeader = "X-User-ID"

// Moderator defines the moderation operations the handlers depend on.
type Moderator interface {
	Submit(ctx context.Context, params moderation.SubmitParams) (*models.Job, error)
	Status(ctx context.Context, jobID, tenantID uuid.UUID) (*moderation.JobStatus, error)
}

// NewSubmitModerationHandler returns the handler for POST /api/v1/moderate.
//
// This endpoint is part of the published client contract and uses flat wire
// shapes: 202 {"job_id": ...} on acceptance, {"detail": ...} on error.
func NewSubmitModerationHandler(svc Moderator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := middleware.GetTenantID(r)
		if !ok {
			response.Detail(w, http.StatusUnauthorized, "missing tenant")
			return
		}

		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			response.Detail(w, http.StatusBadRequest, "X-User-ID header is required")
			return
		}

		var req struct {
			Content         string `json:"content"`
			Language        string `json:"language"`
			ProfileID       string `json:"profile_id"`
			PlatformContext string `json:"platform_context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Detail(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		var profileID *uuid.UUID
		if req.ProfileID != "" {
			id, err := uuid.Parse(req.ProfileID)
			if err != nil {
				response.Detail(w, http.StatusBadRequest, "profile_id must be a valid UUID")
				return
			}
			profileID = &id
		}

		job, err := svc.Submit(r.Context(), moderation.SubmitParams{
			TenantID:        tenantID,
			UserID:          userID,
			Content:         req.Content,
			Language:        req.Language,
			ProfileID:       profileID,
			PlatformContext: req.PlatformContext,
		})
		if err != nil {
			switch {
			case errors.Is(err, moderation.ErrEmptyContent):
				response.Detail(w, http.StatusBadRequest, "content must not be empty")
			case errors.Is(err, moderation.ErrMissingUser):
				response.Detail(w, http.StatusBadRequest, "user identifier is required")
			case errors.Is(err, store.ErrNotFound):
				response.Detail(w, http.StatusNotFound, "moderation profile not found")
			case errors.Is(err, moderation.ErrQueueSaturated):
				response.Detail(w, http.StatusServiceUnavailable, "moderation queue is full, retry later")
			default:
				response.Detail(w, http.StatusBadRequest, err.Error())
			}
			return
		}

		response.Plain(w, http.StatusAccepted, map[string]string{
			"job_id": job.ID.String(),
		})
	}
}

// moderationStatusResponse is the poll shape: status always, progress while
// running, exactly one of result or error once terminal.
type moderationStatusResponse struct {
	Status   string                `json:"status"`
	Progress string                `json:"progress,omitempty"`
	Result   *moderationResultBody `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
}

type moderationResultBody struct {
	Score      int                   `json:"score"`
	Categories models.CategoryScores `json:"categories"`
	Verdict    string                `json:"verdict"`
	Summary    string                `json:"summary"`
	Suggestion *string               `json:"suggestion,omitempty"`
	Provider   string                `json:"provider"`
	Model      string                `json:"model"`
}

// NewModerationStatusHandler returns the handler for GET /api/v1/moderate/{jobID}.
func NewModerationStatusHandler(svc Moderator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := middleware.GetTenantID(r)
		if !ok {
			response.Detail(w, http.StatusUnauthorized, "missing tenant")
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Detail(w, http.StatusNotFound, "job not found")
			return
		}

		js, err := svc.Status(r.Context(), jobID, tenantID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Detail(w, http.StatusNotFound, "job not found")
				return
			}
			response.Detail(w, http.StatusInternalServerError, "failed to load job status")
			return
		}

		body := moderationStatusResponse{Status: js.Status}
		if !models.TerminalStatus(js.Status) {
			body.Progress = js.Progress
		}
		if js.Result != nil {
			body.Result = &moderationResultBody{
				Score:      js.Result.Score,
				Categories: js.Result.Categories,
				Verdict:    js.Result.Verdict,
				Summary:    js.Result.Summary,
				Suggestion: js.Result.Suggestion,
				Provider:   js.Result.Provider,
				Model:      js.Result.Model,
			}
		}
		if js.Error != "" {
			body.Error = js.Error
		}

		response.Plain(w, http.StatusOK, body)
	}
}
