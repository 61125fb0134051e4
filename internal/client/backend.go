// Package client is the in-process side of the mission lifecycle: the
// mission store, the optimistic completion coordinator, page guards and the
// auth state that feeds them. Remote persistence is reached only through
// the interfaces in this file.
package client

import (
	"context"

	"dailymission/internal/models"
)

// Routes the core navigates to
const (
	RouteRoot           = "/"
	RouteSetupProfile   = "/auth/setup-profile"
	RouteHome           = "/home"
	RouteMission        = "/mission"
	RouteMissionSuccess = "/mission-success"
	RouteMissionAbandon = "/mission-abandon"
)

// Backend is the authoritative persistence collaborator. Lookups that find
// nothing return a nil value and a nil error.
type Backend interface {
	ActiveMission(ctx context.Context, userID int64) (*models.Mission, error)
	CreateMission(ctx context.Context, userID int64, category models.Category, title string) (*models.Mission, error)
	UpdateMissionStatus(ctx context.Context, missionID int64, status models.MissionStatus) (*models.Mission, error)
	IncrementCategoryScore(ctx context.Context, userID int64, category models.Category) error
	CategoryScores(ctx context.Context, userID int64) ([]models.CategoryScore, error)
	CompletedMissionCount(ctx context.Context, userID int64) (int, error)
	UnlockedBadgeIDs(ctx context.Context, userID int64) ([]string, error)
	UnlockBadge(ctx context.Context, userID int64, badgeID string) error
	CompleteMission(ctx context.Context, userID, missionID int64) (*models.CompletionResult, error)
}

// MissionLookup is the part of Backend the page guard needs
type MissionLookup interface {
	ActiveMission(ctx context.Context, userID int64) (*models.Mission, error)
}

// SessionSource reports the current authenticated session
type SessionSource interface {
	// Session returns nil, nil when nobody is signed in
	Session(ctx context.Context) (*models.AuthSession, error)
	SignOut(ctx context.Context) error
}

// ProfileSource loads and creates user profiles for the current session
type ProfileSource interface {
	// Profile returns nil, nil when the identity has no profile yet
	Profile(ctx context.Context, authID string) (*models.User, error)
	CreateProfile(ctx context.Context, name string) (*models.User, error)
}

// Router performs the actual page transitions
type Router interface {
	Push(path string)
	Replace(path string)
	Back()
}

// Navigator is how the core asks for a page change. Navigate is a user
// driven transition; Redirect replaces the current page at once.
type Navigator interface {
	Navigate(path string)
	Redirect(path string)
}
