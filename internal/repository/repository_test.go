package repository

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"dailymission/internal/database"
	"dailymission/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background(), "../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func createUser(t *testing.T, repo *UserRepository, authID string) *models.User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), authID, authID+"@example.com", "Tester", "", "google")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	user := createUser(t, repo, "google-1")

	t.Run("lookup by auth id", func(t *testing.T) {
		got, err := repo.GetUserByAuthID(ctx, "google-1")
		if err != nil {
			t.Fatalf("GetUserByAuthID() error = %v", err)
		}
		if got == nil || got.ID != user.ID {
			t.Fatalf("GetUserByAuthID() = %+v", got)
		}
		if got.HasCompleted() {
			t.Error("new user should have no completion date")
		}
	})

	t.Run("missing user is nil", func(t *testing.T) {
		got, err := repo.GetUserByAuthID(ctx, "nobody")
		if err != nil || got != nil {
			t.Errorf("GetUserByAuthID(nobody) = %+v, %v", got, err)
		}
	})

	t.Run("update streak", func(t *testing.T) {
		if err := repo.UpdateStreak(ctx, user.ID, 3, 5, "2026-10-15"); err != nil {
			t.Fatalf("UpdateStreak() error = %v", err)
		}
		got, _ := repo.GetUserByID(ctx, user.ID)
		if got.CurrentStreak != 3 || got.MaxStreak != 5 || got.LastCompletedDate != "2026-10-15" {
			t.Errorf("got %d/%d/%s", got.CurrentStreak, got.MaxStreak, got.LastCompletedDate)
		}
	})
}

func TestSessionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	now := time.Now()
	live := &models.Session{ID: "live", AuthSubject: "google-1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	stale := &models.Session{ID: "stale", AuthSubject: "google-2", ExpiresAt: now.Add(-time.Hour), CreatedAt: now}
	for _, s := range []*models.Session{live, stale} {
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession(%s) error = %v", s.ID, err)
		}
	}

	removed, err := repo.DeleteExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed %d sessions, want 1", removed)
	}

	got, err := repo.GetSession(ctx, "live")
	if err != nil || got == nil {
		t.Fatalf("GetSession(live) = %+v, %v", got, err)
	}
	if got.AuthSubject != "google-1" {
		t.Errorf("AuthSubject = %s", got.AuthSubject)
	}

	if err := repo.DeleteSession(ctx, "live"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if got, _ := repo.GetSession(ctx, "live"); got != nil {
		t.Error("session should be gone")
	}
}

func TestMissionRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, NewUserRepository(db), "google-1")
	repo := NewMissionRepository(db)

	active, err := repo.GetActiveMission(ctx, user.ID)
	if err != nil || active != nil {
		t.Fatalf("GetActiveMission() on empty = %+v, %v", active, err)
	}

	mission, err := repo.CreateMission(ctx, user.ID, models.CategoryMeal, "Eat breakfast", time.Now())
	if err != nil {
		t.Fatalf("CreateMission() error = %v", err)
	}
	if mission.Status != models.MissionInProgress {
		t.Errorf("Status = %s", mission.Status)
	}

	active, err = repo.GetActiveMission(ctx, user.ID)
	if err != nil || active == nil || active.ID != mission.ID {
		t.Fatalf("GetActiveMission() = %+v, %v", active, err)
	}

	completedAt := time.Now()
	changed, err := repo.UpdateMissionStatus(ctx, mission.ID, models.MissionCompleted, &completedAt)
	if err != nil || !changed {
		t.Fatalf("UpdateMissionStatus(completed) = %v, %v", changed, err)
	}

	changed, err = repo.UpdateMissionStatus(ctx, mission.ID, models.MissionAbandoned, nil)
	if err != nil {
		t.Fatalf("UpdateMissionStatus(abandoned) error = %v", err)
	}
	if changed {
		t.Error("terminal mission should not change status")
	}

	got, _ := repo.GetMissionByID(ctx, mission.ID)
	if got.Status != models.MissionCompleted || got.CompletedAt == nil {
		t.Errorf("mission = %+v", got)
	}

	count, err := repo.CountCompletedMissions(ctx, user.ID)
	if err != nil || count != 1 {
		t.Errorf("CountCompletedMissions() = %d, %v", count, err)
	}
}

func TestScoreRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, NewUserRepository(db), "google-1")
	repo := NewScoreRepository(db)

	if err := repo.InitializeScores(ctx, user.ID, 0); err != nil {
		t.Fatalf("InitializeScores() error = %v", err)
	}
	// idempotent
	if err := repo.InitializeScores(ctx, user.ID, 0); err != nil {
		t.Fatalf("second InitializeScores() error = %v", err)
	}

	ok, err := repo.IncrementScore(ctx, user.ID, models.CategoryMeal)
	if err != nil || !ok {
		t.Fatalf("IncrementScore() = %v, %v", ok, err)
	}

	scores, err := repo.GetScores(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetScores() error = %v", err)
	}
	want := []models.CategoryScore{
		{Category: models.CategorySleep, Score: 0, Goal: 20},
		{Category: models.CategoryMeal, Score: 1, Goal: 20},
		{Category: models.CategoryGrooming, Score: 0, Goal: 20},
		{Category: models.CategoryActivity, Score: 0, Goal: 20},
	}
	if !reflect.DeepEqual(scores, want) {
		t.Errorf("GetScores() = %+v, want %+v", scores, want)
	}

	ok, err = repo.IncrementScore(ctx, user.ID, models.Category("reading"))
	if err != nil || ok {
		t.Errorf("IncrementScore(unknown) = %v, %v", ok, err)
	}
}

func TestBadgeRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, NewUserRepository(db), "google-1")
	repo := NewBadgeRepository(db)

	catalog, err := repo.GetCatalog(ctx)
	if err != nil || len(catalog) != 4 {
		t.Fatalf("GetCatalog() = %d badges, %v", len(catalog), err)
	}

	added, err := repo.UnlockBadge(ctx, user.ID, "starter", time.Now())
	if err != nil || !added {
		t.Fatalf("UnlockBadge() = %v, %v", added, err)
	}
	added, err = repo.UnlockBadge(ctx, user.ID, "starter", time.Now())
	if err != nil || added {
		t.Errorf("duplicate UnlockBadge() = %v, %v", added, err)
	}

	ids, err := repo.GetUnlockedBadgeIDs(ctx, user.ID)
	if err != nil || !reflect.DeepEqual(ids, []string{"starter"}) {
		t.Errorf("GetUnlockedBadgeIDs() = %v, %v", ids, err)
	}
}
