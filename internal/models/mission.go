package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is one of the fixed mission categories
type Category string

const (
	CategorySleep    Category = "sleep"
	CategoryMeal     Category = "meal"
	CategoryGrooming Category = "grooming"
	CategoryActivity Category = "activity"
)

// Categories lists every category in display order
var Categories = []Category{CategorySleep, CategoryMeal, CategoryGrooming, CategoryActivity}

// DefaultCategoryGoal is the score ceiling shown for each category
const DefaultCategoryGoal = 20

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts user input into a Category
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// MissionStatus is a mission lifecycle state
type MissionStatus string

const (
	// MissionPending is a legacy state; new missions start in progress
	MissionPending    MissionStatus = "pending"
	MissionInProgress MissionStatus = "in_progress"
	MissionCompleted  MissionStatus = "completed"
	MissionAbandoned  MissionStatus = "abandoned"
)

// IsTerminal reports whether the status can no longer change
func (s MissionStatus) IsTerminal() bool {
	return s == MissionCompleted || s == MissionAbandoned
}

// Valid reports whether s is a known status
func (s MissionStatus) Valid() bool {
	switch s {
	case MissionPending, MissionInProgress, MissionCompleted, MissionAbandoned:
		return true
	}
	return false
}

// Mission represents a single daily mission
type Mission struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"user_id"`
	Category    Category      `json:"category"`
	Title       string        `json:"title"`
	Status      MissionStatus `json:"status"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// IsActive reports whether the mission is the user's active mission
func (m *Mission) IsActive() bool {
	return m.Status == MissionInProgress
}

// CategoryScore tracks a user's progress in one category
type CategoryScore struct {
	Category Category `json:"category"`
	Score    int      `json:"score"`
	Goal     int      `json:"goal"`
}

// DefaultCategoryScores returns a zeroed score row per category
func DefaultCategoryScores(goal int) []CategoryScore {
	if goal <= 0 {
		goal = DefaultCategoryGoal
	}
	scores := make([]CategoryScore, len(Categories))
	for i, c := range Categories {
		scores[i] = CategoryScore{Category: c, Score: 0, Goal: goal}
	}
	return scores
}

// CompletionResult is the authoritative outcome of completing a mission
type CompletionResult struct {
	Mission           *Mission `json:"mission"`
	CurrentStreak     int      `json:"current_streak"`
	MaxStreak         int      `json:"max_streak"`
	LastCompletedDate string   `json:"last_completed_date"`
	TotalCompleted    int      `json:"total_completed"`
	UnlockedBadges    []string `json:"unlocked_badges"`
}
