package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"dailymission/internal/database"
	"dailymission/internal/models"
	"dailymission/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Users      []UserBackup    `json:"users"`
	Missions   []MissionBackup `json:"missions"`
}

// UserBackup is a profile with its scores and unlocked badges
type UserBackup struct {
	models.User
	Scores []models.CategoryScore `json:"scores"`
	Badges []models.UserBadge     `json:"badges"`
}

// MissionBackup is a mission record for backup
type MissionBackup = models.Mission

// BackupService handles database backup and restore operations
type BackupService struct {
	db     *database.DB
	logger *slog.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *slog.Logger) *BackupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackupService{db: db, logger: logger}
}

// ClearTables lists the tables emptied by a destructive import, children first
var ClearTables = []string{"user_badges", "category_scores", "missions", "sessions", "users"}

// Export writes a complete backup to w
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup := &BackupData{Version: backupVersion, ExportedAt: time.Now().UTC()}

	users, err := repository.NewUserRepository(s.db).GetAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}

	scores := repository.NewScoreRepository(s.db)
	badges := repository.NewBadgeRepository(s.db)
	for _, u := range users {
		ub := UserBackup{User: u}
		if ub.Scores, err = scores.GetScores(ctx, u.ID); err != nil {
			return nil, fmt.Errorf("failed to export scores for user %d: %w", u.ID, err)
		}
		if ub.Badges, err = badges.GetUserBadges(ctx, u.ID); err != nil {
			return nil, fmt.Errorf("failed to export badges for user %d: %w", u.ID, err)
		}
		backup.Users = append(backup.Users, ub)
	}

	if backup.Missions, err = repository.NewMissionRepository(s.db).GetAllMissions(ctx); err != nil {
		return nil, fmt.Errorf("failed to export missions: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("Database exported",
		slog.Int("users", len(backup.Users)),
		slog.Int("missions", len(backup.Missions)),
	)
	return backup, nil
}

// Import restores a backup read from r. Rows keep their original IDs, so
// importing into a non-empty database fails on conflicts unless cleared first.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clear bool) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.logger.Info("Importing backup", slog.Time("exported_at", backup.ExportedAt))

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			for _, table := range ClearTables {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("failed to clear table %s: %w", table, err)
				}
			}
		}

		for _, u := range backup.Users {
			if err := importUser(ctx, tx, u); err != nil {
				return fmt.Errorf("failed to import user %d: %w", u.ID, err)
			}
		}
		for _, m := range backup.Missions {
			if err := importMission(ctx, tx, m); err != nil {
				return fmt.Errorf("failed to import mission %d: %w", m.ID, err)
			}
		}

		if _, ok := tx.GetDialect().(*database.PostgresDialect); ok {
			for _, table := range []string{"users", "missions"} {
				query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 1)) FROM %s", table, table)
				if _, err := tx.ExecContext(ctx, query); err != nil {
					return fmt.Errorf("failed to reset %s sequence: %w", table, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Database imported",
		slog.Int("users", len(backup.Users)),
		slog.Int("missions", len(backup.Missions)),
	)
	return nil
}

func importUser(ctx context.Context, tx *database.Tx, u UserBackup) error {
	query := `
		INSERT INTO users (id, auth_id, email, name, avatar_url, provider, current_streak, max_streak, last_completed_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var last any
	if u.LastCompletedDate != "" {
		last = u.LastCompletedDate
	}
	_, err := tx.ExecContext(ctx, query, u.ID, u.AuthID, u.Email, u.Name, u.AvatarURL, u.Provider,
		u.CurrentStreak, u.MaxStreak, last, u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if err != nil {
		return err
	}

	scores := repository.NewScoreRepository(tx)
	for _, score := range u.Scores {
		if err := scores.SetScore(ctx, u.ID, score); err != nil {
			return err
		}
	}

	badges := repository.NewBadgeRepository(tx)
	for _, b := range u.Badges {
		if _, err := badges.UnlockBadge(ctx, u.ID, b.BadgeID, b.UnlockedAt); err != nil {
			return err
		}
	}
	return nil
}

func importMission(ctx context.Context, tx *database.Tx, m MissionBackup) error {
	query := `
		INSERT INTO missions (id, user_id, category, title, status, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, query, m.ID, m.UserID, m.Category, m.Title, m.Status,
		utcOrNil(m.StartedAt), utcOrNil(m.CompletedAt), m.CreatedAt.UTC())
	return err
}

func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
