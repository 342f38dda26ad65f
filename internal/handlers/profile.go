package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/taskquest/taskquest/internal/database"
	"github.com/taskquest/taskquest/internal/gamification"
	"github.com/taskquest/taskquest/internal/middleware"
	"github.com/taskquest/taskquest/internal/validation"
)

// ProfileHandler handles profile and stats requests
type ProfileHandler struct {
	profileRepo *database.ProfileRepository
	statsRepo   *database.UserStatsRepository
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileRepo *database.ProfileRepository, statsRepo *database.UserStatsRepository) *ProfileHandler {
	return &ProfileHandler{profileRepo: profileRepo, statsRepo: statsRepo}
}

// RegisterRoutes registers profile routes on the given router
// The router should already have the /profile prefix
func (h *ProfileHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetProfile).Methods("GET")
	r.HandleFunc("", h.UpdateProfile).Methods("PATCH")
	r.HandleFunc("/stats", h.GetStats).Methods("GET")
}

// MaxNameLength is the maximum length for display names
const MaxNameLength = 200

// UpdateProfileRequest represents an update profile request
type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// GetProfile returns the authenticated user's profile with its current
// score and level
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r)
	if profile == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	// Re-read so the response reflects writes from this request cycle
	fresh, err := h.profileRepo.GetProfile(r.Context(), profile.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve profile")
		return
	}

	respondJSON(w, http.StatusOK, fresh)
}

// UpdateProfile updates the user-editable profile fields
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r)
	if profile == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req UpdateProfileRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	ctx := r.Context()
	fresh, err := h.profileRepo.GetProfile(ctx, profile.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve profile")
		return
	}

	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		if name == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty after sanitization")
			return
		}
		if len(name) > MaxNameLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Name exceeds maximum length of %d characters", MaxNameLength))
			return
		}
		fresh.Name = name
	}
	if req.AvatarURL != nil {
		fresh.AvatarURL = req.AvatarURL
	}

	if err := h.profileRepo.UpdateDetails(ctx, fresh); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, fresh)
}

// GetStats returns the authenticated user's task counters
func (h *ProfileHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r)
	if profile == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	stats, err := h.statsRepo.GetStats(r.Context(), profile.ID)
	if err != nil {
		if errors.Is(err, gamification.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Stats not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
