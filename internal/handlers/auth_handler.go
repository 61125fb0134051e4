package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"dailymission/internal/models"
	"dailymission/internal/security"
	"dailymission/internal/service"
	"dailymission/internal/validation"
)

// AuthHandler handles login, logout and profile setup
type AuthHandler struct {
	authService          *service.AuthService
	oauthProviders       map[string]OAuthProvider
	states               *security.StateSigner
	oauthRedirectBaseURL string
	logger               *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, oauthProviders map[string]OAuthProvider, states *security.StateSigner, oauthRedirectBaseURL string, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService:          authService,
		oauthProviders:       oauthProviders,
		states:               states,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		logger:               logger,
	}
}

// Logout revokes the caller's session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to logout", err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSession describes the caller's session
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	respondJSON(w, http.StatusOK, models.AuthSession{
		AuthID:    session.AuthSubject,
		Email:     session.Email,
		FullName:  session.FullName,
		AvatarURL: session.AvatarURL,
		ExpiresAt: session.ExpiresAt,
	})
}

// GetProfile returns the caller's profile, 404 when it has none yet
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	user, err := h.authService.GetProfile(r.Context(), session.AuthSubject)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load profile", err)
		return
	}
	if user == nil {
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type createProfileRequest struct {
	Name string `json:"name"`
}

// CreateProfile creates the caller's profile
func (h *AuthHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	session := GetSessionFromContext(r.Context())
	user, err := h.authService.CreateProfile(r.Context(), session, req.Name)
	if err != nil {
		var verr validation.ValidationError
		switch {
		case errors.As(err, &verr):
			respondWithError(w, http.StatusBadRequest, verr.Message, "", nil)
		case errors.Is(err, service.ErrProfileExists):
			respondWithError(w, http.StatusConflict, "Profile already exists", "", nil)
		default:
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to create profile", err)
		}
		return
	}
	respondJSON(w, http.StatusCreated, user)
}
