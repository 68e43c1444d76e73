package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gitclixlogix/contentry/internal/api/middleware"
	"github.com/gitclixlogix/contentry/internal/api/response"
	"github.com/gitclixlogix/contentry/internal/store"
	"github.com/gitclixlogix/contentry/pkg/models"
)

// NewListJobsHandler returns the handler for GET /api/v1/jobs.
// Supports filtering by user_id, status, and since, with pagination.
func NewListJobsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := middleware.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant")
			return
		}

		q := r.URL.Query()

		filter := store.JobFilter{
			TenantID: tenantID,
			UserID:   q.Get("user_id"),
			Status:   q.Get("status"),
			Page:     1,
			Limit:    20,
		}

		if filter.Status != "" {
			switch filter.Status {
			case models.JobStatusPending, models.JobStatusRunning,
				models.JobStatusSucceeded, models.JobStatusFailed:
			default:
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"unknown status: "+filter.Status)
				return
			}
		}

		if raw := q.Get("since"); raw != "" {
			since, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"since must be a valid RFC3339 timestamp")
				return
			}
			filter.Since = since
		}

		if raw := q.Get("page"); raw != "" {
			page, err := strconv.Atoi(raw)
			if err != nil || page < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"page must be a positive integer")
				return
			}
			filter.Page = page
		}

		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 || limit > 100 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"limit must be between 1 and 100")
				return
			}
			filter.Limit = limit
		}

		jobs, total, err := st.ListJobs(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list jobs")
			return
		}
		if jobs == nil {
			jobs = []*models.Job{}
		}

		totalPages := total / filter.Limit
		if total%filter.Limit != 0 {
			totalPages++
		}

		response.Collection(w, jobs, response.PaginationMeta{
			Page:       filter.Page,
			Limit:      filter.Limit,
			TotalItems: total,
			TotalPages: totalPages,
		})
	}
}
