package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gitclixlogix/contentry/internal/api/middleware"
	"github.com/gitclixlogix/contentry/internal/api/response"
	"github.com/gitclixlogix/contentry/internal/store"
	"github.com/gitclixlogix/contentry/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var knownCategories = map[string]bool{
	"toxicity":   true,
	"hate":       true,
	"harassment": true,
	"self_harm":  true,
	"sexual":     true,
	"violence":   true,
	"spam":       true,
}

// NewCreateProfileHandler returns the handler for POST /api/v1/profiles.
func NewCreateProfileHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := middleware.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant")
			return
		}

		var req struct {
			Name              string   `json:"name"`
			Strictness        *int     `json:"strictness"`
			BlockedCategories []string `json:"blocked_categories"`
			DefaultLanguage   string   `json:"default_language"`
			Platform          string   `json:"platform"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
			return
		}

		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required")
			return
		}

		strictness := 50
		if req.Strictness != nil {
			strictness = *req.Strictness
		}
		if strictness < 0 || strictness > 100 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"strictness must be between 0 and 100")
			return
		}

		for _, cat := range req.BlockedCategories {
			if !knownCategories[cat] {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"unknown category: "+cat)
				return
			}
		}

		now := time.Now().UTC()
		profile := &models.Profile{
			ID:                uuid.New(),
			TenantID:          tenantID,
			Name:              req.Name,
			Strictness:        strictness,
			BlockedCategories: req.BlockedCategories,
			DefaultLanguage:   req.DefaultLanguage,
			Platform:          req.Platform,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		if err := st.CreateProfile(r.Context(), profile); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "DUPLICATE_PROFILE",
					"A profile with this name already exists")
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to create profile")
			return
		}

		response.Created(w, profile)
	}
}

// NewListProfilesHandler returns the handler for GET /api/v1/profiles.
func NewListProfilesHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := middleware.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant")
			return
		}

		profiles, err := st.ListProfiles(r.Context(), tenantID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list profiles")
			return
		}
		if profiles == nil {
			profiles = []*models.Profile{}
		}

		response.JSON(w, http.StatusOK, profiles)
	}
}

// NewGetProfileHandler returns the handler for GET /api/v1/profiles/{profileID}.
func NewGetProfileHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := middleware.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "profileID"))
		if err != nil {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Profile not found")
			return
		}

		profile, err := st.GetProfile(r.Context(), id, tenantID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Profile not found")
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load profile")
			return
		}

		response.JSON(w, http.StatusOK, profile)
	}
}

// NewDeleteProfileHandler returns the handler for DELETE /api/v1/profiles/{profileID}.
func NewDeleteProfileHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := middleware.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "profileID"))
		if err != nil {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Profile not found")
			return
		}

		if err := st.DeleteProfile(r.Context(), id, tenantID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Profile not found")
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to delete profile")
			return
		}

		response.NoContent(w)
	}
}
