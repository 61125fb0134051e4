package handlers

import (
	"errors"
	"net/http"

	"dailymission/internal/models"
	"dailymission/internal/progress"
	"dailymission/internal/service"
)

// ProgressHandler serves scores, badges and rewards
type ProgressHandler struct {
	missions *service.MissionService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(missions *service.MissionService) *ProgressHandler {
	return &ProgressHandler{missions: missions}
}

// Scores returns the caller's category scores
func (h *ProgressHandler) Scores(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	scores, err := h.missions.CategoryScores(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load scores", err)
		return
	}
	respondJSON(w, http.StatusOK, scores)
}

// IncrementScore adds one to a category score
func (h *ProgressHandler) IncrementScore(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	category := models.Category(r.PathValue("category"))

	if err := h.missions.IncrementCategoryScore(r.Context(), user.ID, category); err != nil {
		if errors.Is(err, service.ErrInvalidCategory) {
			respondWithError(w, http.StatusBadRequest, "Invalid category", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to increment score", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Badges returns the badge catalog and the caller's unlocked ids
func (h *ProgressHandler) Badges(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	unlocked, err := h.missions.UnlockedBadgeIDs(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load badges", err)
		return
	}
	if unlocked == nil {
		unlocked = []string{}
	}
	respondJSON(w, http.StatusOK, models.BadgeList{Catalog: progress.BadgeCatalog, Unlocked: unlocked})
}

// UnlockBadge records a badge for the caller
func (h *ProgressHandler) UnlockBadge(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := h.missions.UnlockBadge(r.Context(), user.ID, r.PathValue("badgeId")); err != nil {
		if errors.Is(err, service.ErrUnknownBadge) {
			respondWithError(w, http.StatusNotFound, "Unknown badge", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to unlock badge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rewards returns the reward catalog with the caller's unlock states
func (h *ProgressHandler) Rewards(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	rewards, err := h.missions.Rewards(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load rewards", err)
		return
	}
	respondJSON(w, http.StatusOK, rewards)
}
