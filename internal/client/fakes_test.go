package client

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"dailymission/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend is an in-memory Backend. Hooks override single methods.
type fakeBackend struct {
	mu sync.Mutex

	active   *models.Mission
	scores   []models.CategoryScore
	badges   []string
	total    int
	nextID   int64
	statuses map[int64]models.MissionStatus
	unlocked []string

	activeErr    error
	activeCalls  int
	completeFn   func(ctx context.Context, userID, missionID int64) (*models.CompletionResult, error)
	statusErr    error
	progressErr  error
	completeCall int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextID: 1, statuses: make(map[int64]models.MissionStatus)}
}

func (b *fakeBackend) ActiveMission(ctx context.Context, userID int64) (*models.Mission, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activeCalls++
	if b.activeErr != nil {
		return nil, b.activeErr
	}
	if b.active == nil {
		return nil, nil
	}
	m := *b.active
	return &m, nil
}

func (b *fakeBackend) CreateMission(ctx context.Context, userID int64, category models.Category, title string) (*models.Mission, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	m := &models.Mission{ID: b.nextID, UserID: userID, Category: category, Title: title, Status: models.MissionInProgress, StartedAt: &now, CreatedAt: now}
	b.nextID++
	b.active = m
	b.statuses[m.ID] = m.Status
	return m, nil
}

func (b *fakeBackend) UpdateMissionStatus(ctx context.Context, missionID int64, status models.MissionStatus) (*models.Mission, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.statusErr != nil {
		return nil, b.statusErr
	}
	b.statuses[missionID] = status
	return &models.Mission{ID: missionID, Status: status}, nil
}

func (b *fakeBackend) IncrementCategoryScore(ctx context.Context, userID int64, category models.Category) error {
	return nil
}

func (b *fakeBackend) CategoryScores(ctx context.Context, userID int64) ([]models.CategoryScore, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.progressErr != nil {
		return nil, b.progressErr
	}
	return slices.Clone(b.scores), nil
}

func (b *fakeBackend) CompletedMissionCount(ctx context.Context, userID int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total, nil
}

func (b *fakeBackend) UnlockedBadgeIDs(ctx context.Context, userID int64) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.badges), nil
}

func (b *fakeBackend) UnlockBadge(ctx context.Context, userID int64, badgeID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unlocked = append(b.unlocked, badgeID)
	return nil
}

func (b *fakeBackend) CompleteMission(ctx context.Context, userID, missionID int64) (*models.CompletionResult, error) {
	b.mu.Lock()
	b.completeCall++
	fn := b.completeFn
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, userID, missionID)
	}
	return &models.CompletionResult{CurrentStreak: 1, MaxStreak: 1, TotalCompleted: 1}, nil
}

func (b *fakeBackend) status(missionID int64) models.MissionStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statuses[missionID]
}

// recordingNav records navigation requests
type recordingNav struct {
	mu        sync.Mutex
	navigated []string
	redirects []string
}

func (n *recordingNav) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.navigated = append(n.navigated, path)
}

func (n *recordingNav) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, path)
}

func (n *recordingNav) navigations() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.navigated)
}

func (n *recordingNav) redirections() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.redirects)
}

// recordingRouter records router calls as "push:/x", "replace:/x" or "back"
type recordingRouter struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingRouter) Push(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "push:"+path)
}

func (r *recordingRouter) Replace(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "replace:"+path)
}

func (r *recordingRouter) Back() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "back")
}

func (r *recordingRouter) history() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

type fakeSessions struct {
	session    *models.AuthSession
	err        error
	signOutErr error
	signedOut  bool
}

func (f *fakeSessions) Session(ctx context.Context) (*models.AuthSession, error) {
	return f.session, f.err
}

func (f *fakeSessions) SignOut(ctx context.Context) error {
	f.signedOut = true
	return f.signOutErr
}

type fakeProfiles struct {
	users   map[string]*models.User
	authID  string
	err     error
	created []string
}

func (f *fakeProfiles) Profile(ctx context.Context, authID string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[authID], nil
}

func (f *fakeProfiles) CreateProfile(ctx context.Context, name string) (*models.User, error) {
	f.created = append(f.created, name)
	u := &models.User{ID: int64(len(f.created)), AuthID: f.authID, Name: name}
	if f.users == nil {
		f.users = make(map[string]*models.User)
	}
	f.users[f.authID] = u
	return u, nil
}

type staticAuth struct {
	status AuthStatus
}

func (s staticAuth) Current() AuthStatus {
	return s.status
}

func activeMission(id, userID int64, category models.Category) *models.Mission {
	now := time.Now()
	return &models.Mission{ID: id, UserID: userID, Category: category, Title: "Go to bed by ten", Status: models.MissionInProgress, StartedAt: &now, CreatedAt: now}
}
