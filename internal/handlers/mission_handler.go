package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"dailymission/internal/models"
	"dailymission/internal/service"
	"dailymission/internal/validation"
)

// MissionHandler serves mission lifecycle requests
type MissionHandler struct {
	missions *service.MissionService
}

// NewMissionHandler creates a new mission handler
func NewMissionHandler(missions *service.MissionService) *MissionHandler {
	return &MissionHandler{missions: missions}
}

// ActiveMission returns the caller's in-progress mission, 204 when none
func (h *MissionHandler) ActiveMission(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	mission, err := h.missions.ActiveMission(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load active mission", err)
		return
	}
	if mission == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, mission)
}

type createMissionRequest struct {
	Category string `json:"category"`
	Title    string `json:"title"`
}

// CreateMission starts a new mission for the caller
func (h *MissionHandler) CreateMission(w http.ResponseWriter, r *http.Request) {
	var req createMissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	category, err := validation.ValidateCategory(req.Category)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}
	if err := validation.ValidateMissionTitle(req.Title); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	user := GetUserFromContext(r.Context())
	mission, err := h.missions.CreateMission(r.Context(), user.ID, category, req.Title)
	if err != nil {
		if errors.Is(err, service.ErrMissionInProgress) {
			respondWithError(w, http.StatusConflict, "A mission is already in progress", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to create mission", err)
		return
	}
	respondJSON(w, http.StatusCreated, mission)
}

type updateStatusRequest struct {
	Status models.MissionStatus `json:"status"`
}

// UpdateStatus moves one of the caller's missions to a terminal status
func (h *MissionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	mission, ok := h.ownedMission(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	updated, err := h.missions.UpdateMissionStatus(r.Context(), mission.ID, req.Status)
	if err != nil {
		h.respondMissionError(w, err, "Failed to update mission status")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// Complete finishes one of the caller's missions and returns the
// authoritative progress
func (h *MissionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	mission, ok := h.ownedMission(w, r)
	if !ok {
		return
	}

	user := GetUserFromContext(r.Context())
	result, err := h.missions.CompleteMission(r.Context(), user.ID, mission.ID)
	if err != nil {
		h.respondMissionError(w, err, "Failed to complete mission")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CompletedCount returns how many missions the caller has completed
func (h *MissionHandler) CompletedCount(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	count, err := h.missions.CompletedMissionCount(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to count missions", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

// ownedMission loads the mission named in the path and checks that it
// belongs to the caller
func (h *MissionHandler) ownedMission(w http.ResponseWriter, r *http.Request) (*models.Mission, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid mission ID", "", nil)
		return nil, false
	}

	mission, err := h.missions.GetMission(r.Context(), id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load mission", err)
		return nil, false
	}
	if mission == nil {
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
		return nil, false
	}

	user := GetUserFromContext(r.Context())
	if mission.UserID != user.ID {
		respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
		return nil, false
	}
	return mission, true
}

func (h *MissionHandler) respondMissionError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		respondWithError(w, http.StatusBadRequest, "Invalid mission status", "", nil)
	case errors.Is(err, service.ErrMissionNotFound):
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
	case errors.Is(err, service.ErrMissionFinalized):
		respondWithError(w, http.StatusConflict, "Mission already completed or abandoned", "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}
