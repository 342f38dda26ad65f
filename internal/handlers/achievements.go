package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/taskquest/taskquest/internal/gamification"
	"github.com/taskquest/taskquest/internal/middleware"
)

// AchievementHandler serves the achievement catalog merged with the
// authenticated user's progress
type AchievementHandler struct {
	achievements *gamification.AchievementService
}

// NewAchievementHandler creates a new achievement handler
func NewAchievementHandler(achievements *gamification.AchievementService) *AchievementHandler {
	return &AchievementHandler{achievements: achievements}
}

// RegisterRoutes registers achievement routes on the given router
// The router should already have the /achievements prefix
func (h *AchievementHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListAchievements).Methods("GET")
}

// ListAchievements returns every achievement with the user's progress
func (h *AchievementHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	profile := middleware.ProfileFromContext(r)
	if profile == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	views, err := h.achievements.GetUserAchievements(r.Context(), profile.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve achievements")
		return
	}

	respondJSON(w, http.StatusOK, views)
}
