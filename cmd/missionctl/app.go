package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"dailymission/internal/apiclient"
	"dailymission/internal/client"
)

// terminalRouter stands in for page routing: it tracks where the core
// wants the user to be.
type terminalRouter struct {
	logger *slog.Logger

	mu      sync.Mutex
	history []string
}

func (r *terminalRouter) Push(path string) {
	r.mu.Lock()
	r.history = append(r.history, path)
	r.mu.Unlock()
	r.logger.Debug("Navigate", slog.String("path", path))
}

func (r *terminalRouter) Replace(path string) {
	r.mu.Lock()
	if n := len(r.history); n > 0 {
		r.history[n-1] = path
	} else {
		r.history = append(r.history, path)
	}
	r.mu.Unlock()
	r.logger.Debug("Redirect", slog.String("path", path))
}

func (r *terminalRouter) Back() {
	r.mu.Lock()
	if n := len(r.history); n > 0 {
		r.history = r.history[:n-1]
	}
	r.mu.Unlock()
}

// Location returns the current page, or "" before any navigation
func (r *terminalRouter) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return ""
	}
	return r.history[len(r.history)-1]
}

// app wires the client core to the HTTP API for one command invocation
type app struct {
	cfg    *Config
	logger *slog.Logger

	api      *apiclient.Client
	store    *client.Store
	snapshot *client.SnapshotFile
	auth     *client.Auth
	router   *terminalRouter
	nav      *client.SmartNavigator
	coord    *client.Coordinator

	detach func()
}

func newApp(cfg *Config, logger *slog.Logger) (*app, error) {
	creds, err := loadCredentials(cfg.credentialsPath())
	if err != nil {
		return nil, err
	}

	api := apiclient.New(cfg.ServerURL, cfg.requestTimeout, logger)
	api.SetToken(creds.Token)

	store := client.NewStore()
	snapshot := client.NewSnapshotFile(cfg.snapshotPath())
	persisted, err := snapshot.Load()
	if err != nil {
		logger.Warn("Ignoring saved state", slog.String("error", err.Error()))
	}
	store.Restore(persisted)

	router := &terminalRouter{logger: logger}
	nav := client.NewSmartNavigator(router, store, cfg.loadingDelay, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		api:      api,
		store:    store,
		snapshot: snapshot,
		auth: client.NewAuth(api, api, api, store, client.AuthConfig{
			BadgeSweepOnLoad: cfg.BadgeSweepOnLoad,
			Snapshot:         snapshot,
		}, logger),
		router: router,
		nav:    nav,
		coord:  client.NewCoordinator(store, api, nav, logger),
		detach: client.AttachSnapshot(store, snapshot, logger),
	}, nil
}

// start resolves the saved session and refreshes local state from the server
func (a *app) start(ctx context.Context) error {
	if err := a.auth.Initialize(ctx); err != nil {
		a.logger.Warn("Could not refresh progress", slog.String("error", err.Error()))
	}
	return a.auth.Current().Err
}

// close waits for background reconciliation and pending navigation, then
// stops persisting.
func (a *app) close() {
	a.coord.Wait()
	deadline := time.Now().Add(a.cfg.loadingDelay + time.Second)
	for a.nav.IsNavigating() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	a.detach()
}

var (
	errNotSignedIn   = errors.New("not signed in; run `missionctl login`")
	errNoProfile     = errors.New("no profile yet; run `missionctl profile --name <name>`")
	errMissionActive = errors.New("a mission is already in progress; run `missionctl status`")
	errNoMission     = errors.New("no mission in progress; run `missionctl start`")
)

// guard runs a page guard and turns a redirect into a user-facing error
func (a *app) guard(ctx context.Context, opts client.GuardOptions) error {
	g := client.NewGuard(opts, a.auth, a.store, a.api, a.nav, a.logger)
	if g.Check(ctx) != client.GuardRedirected {
		return nil
	}
	return redirectError(g.Target())
}

func redirectError(target string) error {
	switch target {
	case client.RouteRoot:
		return errNotSignedIn
	case client.RouteSetupProfile:
		return errNoProfile
	case client.RouteMission:
		return errMissionActive
	case client.RouteHome:
		return errNoMission
	}
	return fmt.Errorf("redirected to %s", target)
}

func printState(w io.Writer, s client.State) {
	if s.User == nil {
		fmt.Fprintln(w, "Not signed in")
		return
	}
	u := s.User
	fmt.Fprintf(w, "%s\n", u.Name)
	fmt.Fprintf(w, "  Streak:     %d (best %d)\n", u.CurrentStreak, u.MaxStreak)
	fmt.Fprintf(w, "  Completed:  %d\n", s.TotalCompleted)
	if u.LastCompletedDate != "" {
		fmt.Fprintf(w, "  Last done:  %s\n", u.LastCompletedDate)
	}

	fmt.Fprintln(w, "\nScores:")
	for _, cs := range s.CategoryScores {
		fmt.Fprintf(w, "  %-10s %d/%d\n", cs.Category, cs.Score, cs.Goal)
	}

	if len(s.UnlockedBadges) > 0 {
		fmt.Fprintf(w, "\nBadges: %v\n", s.UnlockedBadges)
	}

	if m := s.ActiveMission; m != nil {
		fmt.Fprintf(w, "\nActive mission #%d [%s] %s\n", m.ID, m.Category, m.Title)
	}
}
