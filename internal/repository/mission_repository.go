package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dailymission/internal/database"
	"dailymission/internal/models"
)

// MissionRepository handles database operations for missions
type MissionRepository struct {
	db database.DBTX
}

// NewMissionRepository creates a new mission repository
func NewMissionRepository(db database.DBTX) *MissionRepository {
	return &MissionRepository{db: db}
}

const missionColumns = "id, user_id, category, title, status, started_at, completed_at, created_at"

func scanMission(row interface{ Scan(...any) error }) (*models.Mission, error) {
	var (
		mission     models.Mission
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&mission.ID,
		&mission.UserID,
		&mission.Category,
		&mission.Title,
		&mission.Status,
		&startedAt,
		&completedAt,
		&mission.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		t := startedAt.Time
		mission.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		mission.CompletedAt = &t
	}
	return &mission, nil
}

// CreateMission inserts a mission directly in the in_progress state
func (r *MissionRepository) CreateMission(ctx context.Context, userID int64, category models.Category, title string, startedAt time.Time) (*models.Mission, error) {
	startedAt = startedAt.UTC()
	query := `
		INSERT INTO missions (user_id, category, title, status, started_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, userID, category, title, models.MissionInProgress, startedAt, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}

	return &models.Mission{
		ID:        id,
		UserID:    userID,
		Category:  category,
		Title:     title,
		Status:    models.MissionInProgress,
		StartedAt: &startedAt,
		CreatedAt: startedAt,
	}, nil
}

// GetMissionByID retrieves a mission by ID
func (r *MissionRepository) GetMissionByID(ctx context.Context, id int64) (*models.Mission, error) {
	query := "SELECT " + missionColumns + " FROM missions WHERE id = ?"
	mission, err := scanMission(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	return mission, nil
}

// GetActiveMission returns the user's in_progress mission, or nil when none
func (r *MissionRepository) GetActiveMission(ctx context.Context, userID int64) (*models.Mission, error) {
	query := "SELECT " + missionColumns + ` FROM missions
		WHERE user_id = ? AND status = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1`
	mission, err := scanMission(r.db.QueryRowContext(ctx, query, userID, models.MissionInProgress))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active mission: %w", err)
	}
	return mission, nil
}

// UpdateMissionStatus moves a non-terminal mission to status. It reports
// false when the mission was already terminal and nothing changed.
func (r *MissionRepository) UpdateMissionStatus(ctx context.Context, id int64, status models.MissionStatus, completedAt *time.Time) (bool, error) {
	var stamp any
	if completedAt != nil {
		stamp = completedAt.UTC()
	}
	query := `
		UPDATE missions
		SET status = ?, completed_at = COALESCE(?, completed_at)
		WHERE id = ? AND status NOT IN (?, ?)
	`
	result, err := r.db.ExecContext(ctx, query, status, stamp, id, models.MissionCompleted, models.MissionAbandoned)
	if err != nil {
		return false, fmt.Errorf("failed to update mission status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// CountCompletedMissions returns the number of completed missions for a user
func (r *MissionRepository) CountCompletedMissions(ctx context.Context, userID int64) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM missions WHERE user_id = ? AND status = ?"
	if err := r.db.QueryRowContext(ctx, query, userID, models.MissionCompleted).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed missions: %w", err)
	}
	return count, nil
}

// GetAllMissions retrieves every mission ordered by ID
func (r *MissionRepository) GetAllMissions(ctx context.Context) ([]models.Mission, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+missionColumns+" FROM missions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	var missions []models.Mission
	for rows.Next() {
		mission, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mission: %w", err)
		}
		missions = append(missions, *mission)
	}
	return missions, rows.Err()
}
