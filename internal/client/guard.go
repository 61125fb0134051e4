package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"dailymission/internal/models"
)

// GuardState is where a page guard is in its one-shot check
type GuardState int

const (
	GuardNotStarted GuardState = iota
	GuardChecking
	GuardRedirected
	GuardSettled
)

func (s GuardState) String() string {
	switch s {
	case GuardNotStarted:
		return "not_started"
	case GuardChecking:
		return "checking"
	case GuardRedirected:
		return "redirected"
	case GuardSettled:
		return "settled"
	}
	return fmt.Sprintf("GuardState(%d)", int(s))
}

// GuardOptions selects which checks a page requires
type GuardOptions struct {
	// RequireAuth sends visitors without a session to the landing page and
	// users without a profile to profile setup
	RequireAuth bool
	// CheckActiveMission sends users with an in-progress mission to it
	CheckActiveMission bool
	// RequireMission sends users without an in-progress mission home
	RequireMission bool
	// OnNavigating runs just before a redirect
	OnNavigating func(path string)
}

// AuthStatusProvider reports the current auth state
type AuthStatusProvider interface {
	Current() AuthStatus
}

// Guard protects one page. It evaluates its rules once per mount, issues at
// most one redirect and re-checks only after Invalidate.
type Guard struct {
	opts   GuardOptions
	auth   AuthStatusProvider
	store  *Store
	lookup MissionLookup
	nav    Navigator
	logger *slog.Logger

	mu     sync.Mutex
	state  GuardState
	target string
	stale  bool
}

// NewGuard creates a guard in the NotStarted state
func NewGuard(opts GuardOptions, auth AuthStatusProvider, store *Store, lookup MissionLookup, nav Navigator, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		opts:   opts,
		auth:   auth,
		store:  store,
		lookup: lookup,
		nav:    nav,
		logger: logger,
	}
}

// State returns the guard state
func (g *Guard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Target returns the redirect path once the guard has redirected
func (g *Guard) Target() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.target
}

// Invalidate re-arms a settled guard so the next Check runs again. A
// redirected guard stays redirected.
func (g *Guard) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case GuardSettled:
		g.state = GuardNotStarted
	case GuardChecking:
		g.stale = true
	}
}

// Check runs the guard if it has not run yet. While auth is still loading
// nothing happens. Concurrent and repeated calls share the first result.
func (g *Guard) Check(ctx context.Context) GuardState {
	g.mu.Lock()
	if g.state != GuardNotStarted {
		s := g.state
		g.mu.Unlock()
		return s
	}
	status := g.auth.Current()
	if status.Loading {
		g.mu.Unlock()
		return GuardNotStarted
	}
	g.state = GuardChecking
	g.mu.Unlock()

	target := g.evaluate(ctx, status)

	g.mu.Lock()
	if g.stale || ctx.Err() != nil {
		g.stale = false
		g.state = GuardNotStarted
		g.mu.Unlock()
		return GuardNotStarted
	}
	if target == "" {
		g.state = GuardSettled
		g.mu.Unlock()
		return GuardSettled
	}
	g.state = GuardRedirected
	g.target = target
	g.mu.Unlock()

	g.logger.Debug("Guard redirect", slog.String("to", target))
	if g.opts.OnNavigating != nil {
		g.opts.OnNavigating(target)
	}
	g.nav.Redirect(target)
	return GuardRedirected
}

func (g *Guard) evaluate(ctx context.Context, status AuthStatus) string {
	snap := g.store.Snapshot()

	if g.opts.RequireAuth {
		if status.Err != nil || status.Session == nil || status.Session.IsExpired() {
			return RouteRoot
		}
		if snap.User == nil {
			return RouteSetupProfile
		}
	}

	if g.opts.CheckActiveMission && snap.User != nil {
		if mission := g.activeMission(ctx, snap.User.ID); mission != nil {
			return RouteMission
		}
	}

	if g.opts.RequireMission && snap.ActiveMission == nil {
		if snap.User == nil {
			return RouteHome
		}
		if mission := g.activeMission(ctx, snap.User.ID); mission == nil {
			return RouteHome
		}
	}

	return ""
}

// activeMission looks up the user's in-progress mission and records it in
// the store. Lookup failures count as no mission.
func (g *Guard) activeMission(ctx context.Context, userID int64) *models.Mission {
	mission, err := g.lookup.ActiveMission(ctx, userID)
	if err != nil {
		g.logger.Warn("Active mission lookup failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
		return nil
	}
	if mission == nil || !mission.IsActive() {
		return nil
	}
	g.store.SetActiveMission(mission)
	return mission
}
