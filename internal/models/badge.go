package models

import "time"

// BadgeRule identifies which counter a badge threshold applies to
type BadgeRule string

const (
	RuleTotalCompletions BadgeRule = "total_completions"
	RuleStreak           BadgeRule = "streak"
)

// Badge is a catalog entry for a permanent achievement
type Badge struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	Rule        BadgeRule `json:"rule"`
	Threshold   int       `json:"threshold"`
}

// UserBadge records a badge unlocked by a user
type UserBadge struct {
	UserID     int64     `json:"user_id"`
	BadgeID    string    `json:"badge_id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// Reward is a catalog entry unlocked by total completions
type Reward struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	UnlockScore int    `json:"unlock_score"`
}

// RewardStatus is a reward with its derived unlock state
type RewardStatus struct {
	Reward
	Unlocked bool `json:"unlocked"`
}

// BadgeList is the badge catalog with the caller's unlocked ids
type BadgeList struct {
	Catalog  []Badge  `json:"catalog"`
	Unlocked []string `json:"unlocked"`
}
