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

// UserRepository handles database operations for users and sessions
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, auth_id, email, name, avatar_url, provider,
	current_streak, max_streak, COALESCE(last_completed_date, ''), created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.AuthID,
		&user.Email,
		&user.Name,
		&user.AvatarURL,
		&user.Provider,
		&user.CurrentStreak,
		&user.MaxStreak,
		&user.LastCompletedDate,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new profile row with zeroed streak counters
func (r *UserRepository) CreateUser(ctx context.Context, authID, email, name, avatarURL, provider string) (*models.User, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (auth_id, email, name, avatar_url, provider, current_streak, max_streak, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, authID, email, name, avatarURL, provider, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.User{
		ID:        id,
		AuthID:    authID,
		Email:     email,
		Name:      name,
		AvatarURL: avatarURL,
		Provider:  provider,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetUserByAuthID retrieves a profile by identity-provider subject
func (r *UserRepository) GetUserByAuthID(ctx context.Context, authID string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE auth_id = ?"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, authID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a profile by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetAllUsers retrieves every profile ordered by ID
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateStreak stores the streak counters and last completion date
func (r *UserRepository) UpdateStreak(ctx context.Context, userID int64, current, max int, lastCompletedDate string) error {
	query := `
		UPDATE users
		SET current_streak = ?, max_streak = ?, last_completed_date = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query, current, max, nullIfEmpty(lastCompletedDate), time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}
	return nil
}

// CreateSession stores a new authenticated session
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, auth_subject, email, full_name, avatar_url, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.AuthSubject,
		session.Email,
		session.FullName,
		session.AvatarURL,
		session.ExpiresAt.UTC(),
		session.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (r *UserRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT id, auth_subject, email, full_name, avatar_url, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.AuthSubject,
		&session.Email,
		&session.FullName,
		&session.AvatarURL,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session
func (r *UserRepository) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all sessions that expired before now
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
