package repository

import (
	"context"
	"fmt"
	"time"

	"dailymission/internal/database"
	"dailymission/internal/models"
)

// BadgeRepository handles the badge catalog and per-user unlocks
type BadgeRepository struct {
	db database.DBTX
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db database.DBTX) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// GetCatalog returns every badge definition
func (r *BadgeRepository) GetCatalog(ctx context.Context) ([]models.Badge, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, display_name, description, rule, threshold FROM badges ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get badge catalog: %w", err)
	}
	defer rows.Close()

	var badges []models.Badge
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.DisplayName, &b.Description, &b.Rule, &b.Threshold); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// UnlockBadge records an unlock. Duplicates are ignored and reported as false.
func (r *BadgeRepository) UnlockBadge(ctx context.Context, userID int64, badgeID string, at time.Time) (bool, error) {
	query := r.db.GetDialect().InsertIgnoreQuery("user_badges", "user_id", "badge_id", "unlocked_at")
	result, err := r.db.ExecContext(ctx, query, userID, badgeID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to unlock badge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// GetUnlockedBadgeIDs returns the ids of every badge the user has unlocked
func (r *BadgeRepository) GetUnlockedBadgeIDs(ctx context.Context, userID int64) ([]string, error) {
	badges, err := r.GetUserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(badges))
	for i, b := range badges {
		ids[i] = b.BadgeID
	}
	return ids, nil
}

// GetUserBadges returns the user's unlocks in unlock order
func (r *BadgeRepository) GetUserBadges(ctx context.Context, userID int64) ([]models.UserBadge, error) {
	query := `
		SELECT user_id, badge_id, unlocked_at
		FROM user_badges
		WHERE user_id = ?
		ORDER BY unlocked_at, badge_id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user badges: %w", err)
	}
	defer rows.Close()

	var badges []models.UserBadge
	for rows.Next() {
		var b models.UserBadge
		if err := rows.Scan(&b.UserID, &b.BadgeID, &b.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}
