package client

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"dailymission/internal/models"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type coordinatorFixture struct {
	store   *Store
	backend *fakeBackend
	nav     *recordingNav
	coord   *Coordinator
}

func newCoordinatorFixture(user *models.User) *coordinatorFixture {
	f := &coordinatorFixture{
		store:   NewStore(),
		backend: newFakeBackend(),
		nav:     &recordingNav{},
	}
	f.coord = NewCoordinator(f.store, f.backend, f.nav, testLogger())
	f.coord.now = func() time.Time { return testNow }
	if user != nil {
		f.store.SetUser(user)
	}
	return f
}

func waitDone(t *testing.T, op *Operation) {
	t.Helper()
	select {
	case <-op.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("operation did not finish, state %s", op.State())
	}
}

func TestCompleteMissionAppliesBeforeBackend(t *testing.T) {
	f := newCoordinatorFixture(&models.User{ID: 1})
	f.store.SetActiveMission(activeMission(7, 1, models.CategorySleep))

	release := make(chan struct{})
	f.backend.completeFn = func(ctx context.Context, userID, missionID int64) (*models.CompletionResult, error) {
		<-release
		return &models.CompletionResult{CurrentStreak: 1, MaxStreak: 1, LastCompletedDate: "2026-03-02", TotalCompleted: 1}, nil
	}

	op, err := f.coord.CompleteMission(context.Background())
	if err != nil {
		t.Fatalf("CompleteMission() error = %v", err)
	}

	s := f.store.Snapshot()
	if s.ActiveMission != nil {
		t.Error("active mission should be cleared immediately")
	}
	if s.User.CurrentStreak != 1 || s.User.MaxStreak != 1 || s.User.LastCompletedDate != "2026-03-02" {
		t.Errorf("user = %+v", s.User)
	}
	if s.TotalCompleted != 1 || s.Score(models.CategorySleep) != 1 {
		t.Errorf("total=%d sleep=%d", s.TotalCompleted, s.Score(models.CategorySleep))
	}
	if !s.HasBadge("starter") {
		t.Errorf("expected starter badge, got %v", s.UnlockedBadges)
	}
	if got := f.nav.navigations(); !reflect.DeepEqual(got, []string{RouteMissionSuccess}) {
		t.Errorf("navigations = %v", got)
	}
	if op.State() != OpReconciling {
		t.Errorf("state = %s, want reconciling", op.State())
	}

	close(release)
	waitDone(t, op)
	if op.State() != OpReconciled {
		t.Errorf("state = %s, want reconciled", op.State())
	}
	if result, err := op.Result(); err != nil || result.TotalCompleted != 1 {
		t.Errorf("Result() = %+v, %v", result, err)
	}
}

func TestCompleteMissionStreakRules(t *testing.T) {
	tests := []struct {
		name     string
		user     models.User
		wantStrk int
		wantMax  int
	}{
		{
			name:     "first completion",
			user:     models.User{ID: 1},
			wantStrk: 1, wantMax: 1,
		},
		{
			name:     "same day keeps streak",
			user:     models.User{ID: 1, CurrentStreak: 2, MaxStreak: 4, LastCompletedDate: "2026-03-02"},
			wantStrk: 2, wantMax: 4,
		},
		{
			name:     "next day extends",
			user:     models.User{ID: 1, CurrentStreak: 2, MaxStreak: 2, LastCompletedDate: "2026-03-01"},
			wantStrk: 3, wantMax: 3,
		},
		{
			name:     "gap still extends",
			user:     models.User{ID: 1, CurrentStreak: 2, MaxStreak: 5, LastCompletedDate: "2026-01-10"},
			wantStrk: 3, wantMax: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := tt.user
			f := newCoordinatorFixture(&user)
			f.store.SetActiveMission(activeMission(1, 1, models.CategoryMeal))
			f.backend.completeFn = func(ctx context.Context, userID, missionID int64) (*models.CompletionResult, error) {
				return &models.CompletionResult{CurrentStreak: tt.wantStrk, MaxStreak: tt.wantMax, LastCompletedDate: "2026-03-02"}, nil
			}

			op, err := f.coord.CompleteMission(context.Background())
			if err != nil {
				t.Fatalf("CompleteMission() error = %v", err)
			}
			if op.Optimistic.Streak != tt.wantStrk || op.Optimistic.MaxStreak != tt.wantMax {
				t.Errorf("optimistic = %+v, want streak %d max %d", op.Optimistic, tt.wantStrk, tt.wantMax)
			}
			waitDone(t, op)
			if op.State() != OpReconciled {
				t.Errorf("state = %s, want reconciled", op.State())
			}
		})
	}
}

func TestCompleteMissionBadgeThresholds(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		streak   int
		lastDate string
		already  []string
		want     []string
	}{
		{name: "fifth completion", total: 4, streak: 1, lastDate: "2026-03-02", already: []string{"starter"}, want: []string{"passionate"}},
		{name: "tenth completion", total: 9, streak: 1, lastDate: "2026-03-02", already: []string{"starter", "passionate"}, want: []string{"dedicated"}},
		{name: "third streak day", total: 2, streak: 2, lastDate: "2026-03-01", already: []string{"starter"}, want: []string{"streak_king"}},
		{name: "past threshold not granted", total: 6, streak: 1, lastDate: "2026-03-02", already: []string{"starter"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCoordinatorFixture(&models.User{ID: 1, CurrentStreak: tt.streak, MaxStreak: tt.streak, LastCompletedDate: tt.lastDate})
			f.store.SetTotalCompletedCount(tt.total)
			for _, id := range tt.already {
				f.store.UnlockBadge(id)
			}
			f.store.SetActiveMission(activeMission(1, 1, models.CategoryGrooming))
			f.backend.completeFn = func(ctx context.Context, userID, missionID int64) (*models.CompletionResult, error) {
				return &models.CompletionResult{CurrentStreak: f.store.Snapshot().User.CurrentStreak}, nil
			}

			op, err := f.coord.CompleteMission(context.Background())
			if err != nil {
				t.Fatalf("CompleteMission() error = %v", err)
			}
			if !reflect.DeepEqual(op.Optimistic.UnlockedBadges, tt.want) {
				t.Errorf("unlocked = %v, want %v", op.Optimistic.UnlockedBadges, tt.want)
			}
			f.coord.Wait()
		})
	}
}

func TestCompleteMissionCorrectsStreak(t *testing.T) {
	f := newCoordinatorFixture(&models.User{ID: 1, CurrentStreak: 1, MaxStreak: 1, LastCompletedDate: "2026-03-01"})
	f.store.SetActiveMission(activeMission(1, 1, models.CategorySleep))
	f.backend.completeFn = func(ctx context.Context, userID, missionID int64) (*models.CompletionResult, error) {
		return &models.CompletionResult{CurrentStreak: 5, MaxStreak: 6, LastCompletedDate: "2026-03-02", TotalCompleted: 1}, nil
	}

	op, err := f.coord.CompleteMission(context.Background())
	if err != nil {
		t.Fatalf("CompleteMission() error = %v", err)
	}
	waitDone(t, op)

	if op.State() != OpCorrected {
		t.Fatalf("state = %s, want corrected", op.State())
	}
	u := f.store.Snapshot().User
	if u.CurrentStreak != 5 || u.MaxStreak != 6 {
		t.Errorf("user = %+v, want server streak 5 max 6", u)
	}
	if got := f.store.Snapshot().TotalCompleted; got != 1 {
		t.Errorf("TotalCompleted = %d, correction should not touch it", got)
	}
}

func TestCompleteMissionBackendFailureKeepsOptimisticState(t *testing.T) {
	f := newCoordinatorFixture(&models.User{ID: 1})
	f.store.SetActiveMission(activeMission(1, 1, models.CategorySleep))
	boom := errors.New("network down")
	f.backend.completeFn = func(ctx context.Context, userID, missionID int64) (*models.CompletionResult, error) {
		return nil, boom
	}

	op, err := f.coord.CompleteMission(context.Background())
	if err != nil {
		t.Fatalf("CompleteMission() error = %v", err)
	}
	waitDone(t, op)

	if op.State() != OpFailed {
		t.Errorf("state = %s, want failed", op.State())
	}
	if _, err := op.Result(); !errors.Is(err, boom) {
		t.Errorf("Result() error = %v", err)
	}
	s := f.store.Snapshot()
	if s.User.CurrentStreak != 1 || s.TotalCompleted != 1 || s.ActiveMission != nil {
		t.Errorf("optimistic state was rolled back: %+v", s)
	}
}

func TestCompleteMissionSurvivesCallerCancellation(t *testing.T) {
	f := newCoordinatorFixture(&models.User{ID: 1})
	f.store.SetActiveMission(activeMission(1, 1, models.CategorySleep))

	release := make(chan struct{})
	f.backend.completeFn = func(ctx context.Context, userID, missionID int64) (*models.CompletionResult, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &models.CompletionResult{CurrentStreak: 1, MaxStreak: 1}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	op, err := f.coord.CompleteMission(ctx)
	if err != nil {
		t.Fatalf("CompleteMission() error = %v", err)
	}
	cancel()
	close(release)

	f.coord.Wait()
	if op.State() != OpReconciled {
		t.Errorf("state = %s, want reconciled", op.State())
	}
}

func TestCompleteMissionPreconditions(t *testing.T) {
	t.Run("no user", func(t *testing.T) {
		f := newCoordinatorFixture(nil)
		f.store.SetActiveMission(activeMission(1, 1, models.CategorySleep))
		if _, err := f.coord.CompleteMission(context.Background()); !errors.Is(err, ErrNoUser) {
			t.Errorf("error = %v, want ErrNoUser", err)
		}
	})

	t.Run("no active mission", func(t *testing.T) {
		f := newCoordinatorFixture(&models.User{ID: 1})
		before := f.store.Snapshot()
		if _, err := f.coord.CompleteMission(context.Background()); !errors.Is(err, ErrNoActiveMission) {
			t.Errorf("error = %v, want ErrNoActiveMission", err)
		}
		if !reflect.DeepEqual(before, f.store.Snapshot()) {
			t.Error("store changed on rejected completion")
		}
		if len(f.nav.navigations()) != 0 {
			t.Error("rejected completion should not navigate")
		}
	})
}

func TestCompleteMissionTwiceOnlyOnce(t *testing.T) {
	f := newCoordinatorFixture(&models.User{ID: 1})
	f.store.SetActiveMission(activeMission(1, 1, models.CategorySleep))

	if _, err := f.coord.CompleteMission(context.Background()); err != nil {
		t.Fatalf("first CompleteMission() error = %v", err)
	}
	if _, err := f.coord.CompleteMission(context.Background()); !errors.Is(err, ErrNoActiveMission) {
		t.Errorf("second CompleteMission() error = %v", err)
	}
	f.coord.Wait()

	if got := f.store.Snapshot().TotalCompleted; got != 1 {
		t.Errorf("TotalCompleted = %d, want 1", got)
	}
	if f.backend.completeCall != 1 {
		t.Errorf("backend called %d times", f.backend.completeCall)
	}
}

func TestAbandonMission(t *testing.T) {
	f := newCoordinatorFixture(&models.User{ID: 1, CurrentStreak: 2, MaxStreak: 2})
	f.store.SetActiveMission(activeMission(4, 1, models.CategoryActivity))

	op, err := f.coord.AbandonMission(context.Background())
	if err != nil {
		t.Fatalf("AbandonMission() error = %v", err)
	}
	s := f.store.Snapshot()
	if s.ActiveMission != nil {
		t.Error("active mission should be cleared")
	}
	if s.User.CurrentStreak != 2 || s.TotalCompleted != 0 {
		t.Errorf("abandon changed progress: %+v", s)
	}
	if got := f.nav.navigations(); !reflect.DeepEqual(got, []string{RouteMissionAbandon}) {
		t.Errorf("navigations = %v", got)
	}

	waitDone(t, op)
	if op.State() != OpReconciled {
		t.Errorf("state = %s, want reconciled", op.State())
	}
	if got := f.backend.status(4); got != models.MissionAbandoned {
		t.Errorf("backend status = %s", got)
	}
}

func TestAbandonMissionFailureIsReported(t *testing.T) {
	f := newCoordinatorFixture(&models.User{ID: 1})
	f.store.SetActiveMission(activeMission(4, 1, models.CategoryActivity))
	f.backend.statusErr = errors.New("offline")

	op, err := f.coord.AbandonMission(context.Background())
	if err != nil {
		t.Fatalf("AbandonMission() error = %v", err)
	}
	waitDone(t, op)
	if op.State() != OpFailed {
		t.Errorf("state = %s, want failed", op.State())
	}
	if f.store.Snapshot().ActiveMission != nil {
		t.Error("failed abandon should not restore the mission")
	}
}

func TestAbandonWithoutMission(t *testing.T) {
	f := newCoordinatorFixture(&models.User{ID: 1})
	if _, err := f.coord.AbandonMission(context.Background()); !errors.Is(err, ErrNoActiveMission) {
		t.Errorf("error = %v, want ErrNoActiveMission", err)
	}
}

func TestStartMission(t *testing.T) {
	t.Run("creates and navigates", func(t *testing.T) {
		f := newCoordinatorFixture(&models.User{ID: 1})
		m, err := f.coord.StartMission(context.Background(), models.CategorySleep, "Lights out at ten")
		if err != nil {
			t.Fatalf("StartMission() error = %v", err)
		}
		if active := f.store.Snapshot().ActiveMission; active == nil || active.ID != m.ID {
			t.Errorf("active mission = %+v", active)
		}
		if got := f.nav.navigations(); !reflect.DeepEqual(got, []string{RouteMission}) {
			t.Errorf("navigations = %v", got)
		}
	})

	t.Run("rejects while one is active", func(t *testing.T) {
		f := newCoordinatorFixture(&models.User{ID: 1})
		f.store.SetActiveMission(activeMission(1, 1, models.CategorySleep))
		if _, err := f.coord.StartMission(context.Background(), models.CategoryMeal, "Eat breakfast"); !errors.Is(err, ErrMissionInProgress) {
			t.Errorf("error = %v, want ErrMissionInProgress", err)
		}
	})

	t.Run("rejects blank title", func(t *testing.T) {
		f := newCoordinatorFixture(&models.User{ID: 1})
		if _, err := f.coord.StartMission(context.Background(), models.CategoryMeal, "   "); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		f := newCoordinatorFixture(&models.User{ID: 1})
		if _, err := f.coord.StartMission(context.Background(), "reading", "Read a chapter"); err == nil {
			t.Error("expected category error")
		}
	})

	t.Run("requires user", func(t *testing.T) {
		f := newCoordinatorFixture(nil)
		if _, err := f.coord.StartMission(context.Background(), models.CategoryMeal, "Eat breakfast"); !errors.Is(err, ErrNoUser) {
			t.Errorf("error = %v, want ErrNoUser", err)
		}
	})
}
