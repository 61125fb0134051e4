package client

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"dailymission/internal/models"
)

func TestSnapshotFileMissingLoadsNil(t *testing.T) {
	f := NewSnapshotFile(filepath.Join(t.TempDir(), "state.json"))
	p, err := f.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p != nil {
		t.Errorf("expected nil state, got %+v", p)
	}
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	f := NewSnapshotFile(filepath.Join(t.TempDir(), "nested", "state.json"))

	store := NewStore()
	store.SetUser(&models.User{ID: 3, Name: "Ana", CurrentStreak: 2, MaxStreak: 2, LastCompletedDate: "2026-03-01"})
	store.SetActiveMission(activeMission(9, 3, models.CategoryMeal))
	store.IncrementCategoryScore(models.CategoryMeal)
	store.UnlockBadge("starter")
	store.SetTotalCompletedCount(2)
	store.SetGlobalLoading(true)

	if err := f.Save(store.Snapshot()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	p, err := f.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	restored := NewStore()
	restored.Restore(p)
	s := restored.Snapshot()

	if s.User == nil || s.User.Name != "Ana" || s.User.CurrentStreak != 2 {
		t.Errorf("user = %+v", s.User)
	}
	if s.ActiveMission != nil {
		t.Error("active mission should not be persisted")
	}
	if s.GlobalLoading {
		t.Error("loading flag should not be persisted")
	}
	if s.TotalCompleted != 2 || s.Score(models.CategoryMeal) != 1 {
		t.Errorf("progress = total %d meal %d", s.TotalCompleted, s.Score(models.CategoryMeal))
	}
	if !reflect.DeepEqual(s.UnlockedBadges, []string{"starter"}) {
		t.Errorf("badges = %v", s.UnlockedBadges)
	}
}

func TestSnapshotFileRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSnapshotFile(path).Load(); err == nil {
		t.Error("expected error for unknown version")
	}
}

func TestSnapshotFileClear(t *testing.T) {
	f := NewSnapshotFile(filepath.Join(t.TempDir(), "state.json"))
	if err := f.Save(NewStore().Snapshot()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := f.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := os.Stat(f.Path()); !os.IsNotExist(err) {
		t.Errorf("expected file to be removed, stat err = %v", err)
	}
	if err := f.Clear(); err != nil {
		t.Errorf("clearing a missing file should succeed, got %v", err)
	}
}

func TestAttachSnapshotPersistsChanges(t *testing.T) {
	f := NewSnapshotFile(filepath.Join(t.TempDir(), "state.json"))
	store := NewStore()
	detach := AttachSnapshot(store, f, testLogger())

	for i := 1; i <= 4; i++ {
		store.SetTotalCompletedCount(i)
	}
	detach()

	p, err := f.Load()
	if err != nil || p == nil {
		t.Fatalf("Load() = %v, %v", p, err)
	}
	if p.TotalCompleted != 4 {
		t.Errorf("TotalCompleted = %d, want 4", p.TotalCompleted)
	}

	store.SetTotalCompletedCount(6)
	detach()
	p, _ = f.Load()
	if p.TotalCompleted != 4 {
		t.Errorf("detached snapshot was still written: %d", p.TotalCompleted)
	}
}

func TestAttachSnapshotWriteFailureLeavesStoreIntact(t *testing.T) {
	// a regular file where the parent directory should be makes every Save fail
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	f := NewSnapshotFile(filepath.Join(blocker, "state.json"))
	store := NewStore()
	detach := AttachSnapshot(store, f, testLogger())
	defer detach()

	store.SetTotalCompletedCount(3)
	if got := store.Snapshot().TotalCompleted; got != 3 {
		t.Errorf("TotalCompleted = %d, want 3", got)
	}
}
