package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"dailymission/internal/models"
	"dailymission/internal/progress"
	"dailymission/internal/validation"
)

// ErrNoSession is returned when an operation needs a signed-in identity
var ErrNoSession = errors.New("not signed in")

// AuthEvent is a change reported by the identity provider
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthStatus is the current auth state as seen by guards and views
type AuthStatus struct {
	Loading bool
	Session *models.AuthSession
	// Err is set when the session check itself failed; the user is then
	// treated as signed out
	Err error
}

// AuthConfig holds optional auth behaviour
type AuthConfig struct {
	// BadgeSweepOnLoad grants any badge whose threshold has already been
	// passed when progress is loaded
	BadgeSweepOnLoad bool
	// Snapshot, when set, is cleared on sign out
	Snapshot *SnapshotFile
}

// Auth tracks the signed-in identity and hydrates the store from the
// backend when it changes
type Auth struct {
	sessions SessionSource
	profiles ProfileSource
	backend  Backend
	store    *Store
	cfg      AuthConfig
	logger   *slog.Logger

	mu        sync.Mutex
	status    AuthStatus
	listeners map[int]func(AuthEvent, AuthStatus)
	nextID    int
}

// NewAuth creates an auth tracker. It reports Loading until Initialize
// returns.
func NewAuth(sessions SessionSource, profiles ProfileSource, backend Backend, store *Store, cfg AuthConfig, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auth{
		sessions:  sessions,
		profiles:  profiles,
		backend:   backend,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		status:    AuthStatus{Loading: true},
		listeners: make(map[int]func(AuthEvent, AuthStatus)),
	}
}

// Current returns the current auth state
func (a *Auth) Current() AuthStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// OnChange registers fn for auth events. The returned func unsubscribes.
func (a *Auth) OnChange(fn func(AuthEvent, AuthStatus)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}
}

// Initialize checks for an existing session and hydrates the store. A
// failed session check leaves the user signed out.
func (a *Auth) Initialize(ctx context.Context) error {
	session, err := a.sessions.Session(ctx)
	if err != nil {
		a.logger.Warn("Session check failed", slog.String("error", err.Error()))
		a.setStatus(AuthStatus{Err: err})
		return nil
	}
	if session == nil {
		a.setStatus(AuthStatus{})
		return nil
	}

	herr := a.hydrate(ctx, session)
	a.setStatus(AuthStatus{Session: session})
	return herr
}

// HandleEvent applies an identity provider event
func (a *Auth) HandleEvent(ctx context.Context, event AuthEvent, session *models.AuthSession) error {
	var err error
	switch event {
	case EventSignedIn:
		if session == nil {
			return fmt.Errorf("%s event without a session", event)
		}
		err = a.hydrate(ctx, session)
		a.setStatus(AuthStatus{Session: session})
	case EventSignedOut:
		a.store.Reset()
		if a.cfg.Snapshot != nil {
			if cerr := a.cfg.Snapshot.Clear(); cerr != nil {
				a.logger.Warn("Failed to clear state snapshot", slog.String("error", cerr.Error()))
			}
		}
		a.setStatus(AuthStatus{})
	case EventTokenRefreshed:
		if session == nil {
			return fmt.Errorf("%s event without a session", event)
		}
		a.setStatus(AuthStatus{Session: session})
	default:
		return fmt.Errorf("unknown auth event %q", event)
	}

	a.notify(event)
	return err
}

// SetupProfile creates the profile for the signed-in identity and loads it
func (a *Auth) SetupProfile(ctx context.Context, name string) (*models.User, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if a.Current().Session == nil {
		return nil, ErrNoSession
	}

	user, err := a.profiles.CreateProfile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	a.store.Apply(func(txn *StoreTxn) {
		txn.SetUser(user)
		txn.SetPendingProfile(nil)
	})
	a.logger.Info("Profile created", slog.Int64("user_id", user.ID))

	return user, a.hydrateProgress(ctx, user)
}

// SignOut ends the session with the provider and clears local state. A
// provider failure is logged; local state is cleared regardless.
func (a *Auth) SignOut(ctx context.Context) error {
	if err := a.sessions.SignOut(ctx); err != nil {
		a.logger.Warn("Provider sign out failed", slog.String("error", err.Error()))
	}
	return a.HandleEvent(ctx, EventSignedOut, nil)
}

func (a *Auth) setStatus(s AuthStatus) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}

func (a *Auth) notify(event AuthEvent) {
	a.mu.Lock()
	status := a.status
	listeners := make([]func(AuthEvent, AuthStatus), 0, len(a.listeners))
	for _, fn := range a.listeners {
		listeners = append(listeners, fn)
	}
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(event, status)
	}
}

// hydrate loads the profile for session. Identities without a profile get
// a pending profile instead.
func (a *Auth) hydrate(ctx context.Context, session *models.AuthSession) error {
	user, err := a.profiles.Profile(ctx, session.AuthID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	var previous string
	a.store.Apply(func(txn *StoreTxn) {
		if owner := txn.Owner(); owner != "" && owner != session.AuthID {
			previous = owner
			txn.Reset()
		}
	})
	if previous != "" {
		a.logger.Info("Cleared state left by another identity",
			slog.String("previous_auth_id", previous),
			slog.String("auth_id", session.AuthID))
	}

	if user == nil {
		a.store.Apply(func(txn *StoreTxn) {
			txn.SetUser(nil)
			txn.SetPendingProfile(models.PendingProfileFrom(session))
		})
		a.logger.Info("Signed in without a profile", slog.String("auth_id", session.AuthID))
		return nil
	}

	a.store.Apply(func(txn *StoreTxn) {
		txn.SetUser(user)
		txn.SetPendingProfile(nil)
	})
	return a.hydrateProgress(ctx, user)
}

// hydrateProgress loads scores, badges and the completed count in parallel
// and merges them into the store
func (a *Auth) hydrateProgress(ctx context.Context, user *models.User) error {
	var (
		scores []models.CategoryScore
		badges []string
		total  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		scores, err = a.backend.CategoryScores(gctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		badges, err = a.backend.UnlockedBadgeIDs(gctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = a.backend.CompletedMissionCount(gctx, user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}

	var swept []string
	a.store.Apply(func(txn *StoreTxn) {
		txn.SetCategoryScores(scores)
		for _, id := range badges {
			txn.UnlockBadge(id)
		}
		txn.SetTotalCompletedCount(total)

		if !a.cfg.BadgeSweepOnLoad {
			return
		}
		state := txn.state
		streak := 0
		if state.User != nil {
			streak = state.User.CurrentStreak
		}
		swept = progress.SweepBadgeUnlocks(state.TotalCompleted, streak, slices.Clone(state.UnlockedBadges))
		for _, id := range swept {
			txn.UnlockBadge(id)
		}
	})

	for _, id := range swept {
		a.logger.Info("Badge granted on load", slog.String("badge_id", id), slog.Int64("user_id", user.ID))
		if err := a.backend.UnlockBadge(ctx, user.ID, id); err != nil {
			a.logger.Warn("Failed to persist badge",
				slog.String("badge_id", id),
				slog.String("error", err.Error()))
		}
	}
	return nil
}
