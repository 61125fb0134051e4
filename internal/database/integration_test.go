package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const testMigrationsPath = "../../migrations"

func openTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background(), testMigrationsPath); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{"users", "sessions", "missions", "category_scores", "badges", "user_badges"}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	var badges int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM badges").Scan(&badges); err != nil {
		t.Fatalf("Failed to count badges: %v", err)
	}
	if badges != 4 {
		t.Errorf("Expected 4 seeded badges, got %d", badges)
	}

	// Re-running is a no-op
	if err := db.RunMigrations(ctx, testMigrationsPath); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var insertedID int64
	err := db.WithTx(ctx, func(tx *Tx) error {
		id, err := tx.ExecReturningID(ctx, "INSERT INTO users (auth_id, name) VALUES (?, ?)", "google-1", "Mina")
		insertedID = id
		return err
	})
	if err != nil {
		t.Fatalf("Failed to insert in transaction: %v", err)
	}
	if insertedID == 0 {
		t.Error("Expected a non-zero id")
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE auth_id = ?", "google-1").Scan(&count); err != nil {
		t.Fatalf("Failed to query after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user, got %d", count)
	}

	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO users (auth_id, name) VALUES (?, ?)", "google-2", "Jun"); err != nil {
			return err
		}
		return context.Canceled
	})
	if err != context.Canceled {
		t.Fatalf("Expected callback error, got %v", err)
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE auth_id = ?", "google-2").Scan(&count); err != nil {
		t.Fatalf("Failed to query after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 users after rollback, got %d", count)
	}
}

// TestInsertIgnore verifies duplicate badge unlocks are swallowed
func TestInsertIgnore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	userID, err := db.ExecReturningID(ctx, "INSERT INTO users (auth_id, name) VALUES (?, ?)", "google-3", "Seo")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	query := db.Dialect.InsertIgnoreQuery("user_badges", "user_id", "badge_id", "unlocked_at")
	for i := 0; i < 2; i++ {
		if _, err := db.ExecContext(ctx, query, userID, "starter", time.Now().UTC()); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_badges WHERE user_id = ?", userID).Scan(&count); err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 badge row, got %d", count)
	}
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "INSERT INTO users (auth_id, name, email) VALUES (?, ?, ?)",
		"google-4", "Concurrent", "concurrent@example.com"); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var name string
			err := db.QueryRowContext(ctx, "SELECT name FROM users WHERE email = ?", "concurrent@example.com").Scan(&name)
			if err != nil {
				t.Errorf("Concurrent read failed: %v", err)
				return
			}
			if name != "Concurrent" {
				t.Errorf("Expected name 'Concurrent', got '%s'", name)
			}
		}()
	}
	wg.Wait()
}
