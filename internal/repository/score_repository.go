package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dailymission/internal/database"
	"dailymission/internal/models"
)

// ScoreRepository handles per-category score rows
type ScoreRepository struct {
	db database.DBTX
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db database.DBTX) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// InitializeScores creates the zeroed row for every category. Existing rows
// are left untouched.
func (r *ScoreRepository) InitializeScores(ctx context.Context, userID int64, goal int) error {
	query := r.db.GetDialect().InsertIgnoreQuery("category_scores", "user_id", "category", "score", "goal", "updated_at")
	now := time.Now().UTC()
	for _, s := range models.DefaultCategoryScores(goal) {
		if _, err := r.db.ExecContext(ctx, query, userID, s.Category, 0, s.Goal, now); err != nil {
			return fmt.Errorf("failed to initialize %s score: %w", s.Category, err)
		}
	}
	return nil
}

// IncrementScore adds one to a category score. It reports false when the
// user has no row for that category.
func (r *ScoreRepository) IncrementScore(ctx context.Context, userID int64, category models.Category) (bool, error) {
	query := `
		UPDATE category_scores
		SET score = score + 1, updated_at = ?
		WHERE user_id = ? AND category = ?
	`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID, category)
	if err != nil {
		return false, fmt.Errorf("failed to increment score: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// GetScores returns the user's scores in category display order
func (r *ScoreRepository) GetScores(ctx context.Context, userID int64) ([]models.CategoryScore, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT category, score, goal FROM category_scores WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	defer rows.Close()

	var scores []models.CategoryScore
	for rows.Next() {
		var s models.CategoryScore
		if err := rows.Scan(&s.Category, &s.Score, &s.Goal); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return categoryRank(scores[i].Category) < categoryRank(scores[j].Category)
	})
	return scores, nil
}

// SetScore overwrites a score row, creating it when missing. Used by backup import.
func (r *ScoreRepository) SetScore(ctx context.Context, userID int64, score models.CategoryScore) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM category_scores WHERE user_id = ? AND category = ?", userID, score.Category); err != nil {
		return fmt.Errorf("failed to clear score: %w", err)
	}
	query := "INSERT INTO category_scores (user_id, category, score, goal, updated_at) VALUES (?, ?, ?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, userID, score.Category, score.Score, score.Goal, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set score: %w", err)
	}
	return nil
}

func categoryRank(c models.Category) int {
	for i, known := range models.Categories {
		if known == c {
			return i
		}
	}
	return len(models.Categories)
}
