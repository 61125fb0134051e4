package handlers

import (
	"log/slog"
	"net/http"
)

// Handlers bundles everything the router serves
type Handlers struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Missions   *MissionHandler
	Progress   *ProgressHandler
	Startup    *StartupStatus
	Logger     *slog.Logger
}

// NewRouter wires the HTTP routes
func NewRouter(h Handlers) http.Handler {
	m := h.Middleware
	mux := http.NewServeMux()

	// OAuth routes
	mux.HandleFunc("GET /auth/{provider}/start", m.RateLimit(h.Auth.StartOAuth))
	mux.HandleFunc("GET /auth/{provider}/callback", m.RateLimit(h.Auth.OAuthCallback))
	mux.HandleFunc("POST /auth/logout", h.Auth.Logout)

	// Session and profile
	mux.HandleFunc("GET /api/session", m.RequireSession(h.Auth.GetSession))
	mux.HandleFunc("GET /api/profile", m.RequireSession(h.Auth.GetProfile))
	mux.HandleFunc("POST /api/profile", m.RequireSession(h.Auth.CreateProfile))

	// Missions
	mux.HandleFunc("GET /api/missions/active", m.RequireProfile(h.Missions.ActiveMission))
	mux.HandleFunc("POST /api/missions", m.RequireProfile(h.Missions.CreateMission))
	mux.HandleFunc("POST /api/missions/{id}/status", m.RequireProfile(h.Missions.UpdateStatus))
	mux.HandleFunc("POST /api/missions/{id}/complete", m.RequireProfile(h.Missions.Complete))
	mux.HandleFunc("GET /api/missions/completed/count", m.RequireProfile(h.Missions.CompletedCount))

	// Progress
	mux.HandleFunc("GET /api/scores", m.RequireProfile(h.Progress.Scores))
	mux.HandleFunc("POST /api/scores/{category}/increment", m.RequireProfile(h.Progress.IncrementScore))
	mux.HandleFunc("GET /api/badges", m.RequireProfile(h.Progress.Badges))
	mux.HandleFunc("POST /api/badges/{badgeId}/unlock", m.RequireProfile(h.Progress.UnlockBadge))
	mux.HandleFunc("GET /api/rewards", m.RequireProfile(h.Progress.Rewards))

	var handler http.Handler = mux
	if h.Startup != nil {
		root := http.NewServeMux()
		root.Handle("GET /healthz", h.Startup)
		root.Handle("/", h.Startup.RequireReady(mux))
		handler = root
	}

	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Logging(logger, handler)
}
