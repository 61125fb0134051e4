package progress

import "dailymission/internal/models"

// Badge identifiers
const (
	BadgeStarter    = "starter"
	BadgePassionate = "passionate"
	BadgeDedicated  = "dedicated"
	BadgeStreakKing = "streak_king"
)

// BadgeCatalog is the fixed badge table in display order
var BadgeCatalog = []models.Badge{
	{ID: BadgeStarter, DisplayName: "Starter", Description: "Completed a first mission", Rule: models.RuleTotalCompletions, Threshold: 1},
	{ID: BadgePassionate, DisplayName: "Passionate", Description: "Completed 5 missions", Rule: models.RuleTotalCompletions, Threshold: 5},
	{ID: BadgeDedicated, DisplayName: "Dedicated", Description: "Completed 10 missions", Rule: models.RuleTotalCompletions, Threshold: 10},
	{ID: BadgeStreakKing, DisplayName: "Streak King", Description: "Completed missions on 3 days", Rule: models.RuleStreak, Threshold: 3},
}

// LookupBadge returns the catalog entry for id
func LookupBadge(id string) (models.Badge, bool) {
	for _, b := range BadgeCatalog {
		if b.ID == id {
			return b, true
		}
	}
	return models.Badge{}, false
}

// EvaluateBadgeUnlocks returns the badges whose threshold is hit exactly by
// the given counters and that are not already unlocked. A badge is proposed
// only at the moment its counter reaches the threshold.
func EvaluateBadgeUnlocks(totalCompletions, currentStreak int, alreadyUnlocked []string) []string {
	return evaluate(totalCompletions, currentStreak, alreadyUnlocked, func(value, threshold int) bool {
		return value == threshold
	})
}

// SweepBadgeUnlocks is EvaluateBadgeUnlocks with at-least thresholds, for
// catching up on badges whose exact threshold was crossed elsewhere.
func SweepBadgeUnlocks(totalCompletions, currentStreak int, alreadyUnlocked []string) []string {
	return evaluate(totalCompletions, currentStreak, alreadyUnlocked, func(value, threshold int) bool {
		return value >= threshold
	})
}

func evaluate(total, streak int, already []string, match func(value, threshold int) bool) []string {
	have := make(map[string]bool, len(already))
	for _, id := range already {
		have[id] = true
	}

	var unlocked []string
	for _, badge := range BadgeCatalog {
		if have[badge.ID] {
			continue
		}
		value := total
		if badge.Rule == models.RuleStreak {
			value = streak
		}
		if match(value, badge.Threshold) {
			unlocked = append(unlocked, badge.ID)
		}
	}
	return unlocked
}
