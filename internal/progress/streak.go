// Package progress holds the pure rules that turn mission completions into
// streaks, badges and rewards. Nothing in here performs I/O.
package progress

import (
	"dailymission/internal/models"
	"time"
)

// ComputeOptimisticStreak returns the streak the user will have after
// completing a mission at now.
//
// A streak never resets: any completion on a calendar day other than the last
// completion day extends it by one, and a second completion on the same day
// leaves it unchanged. The calendar day is taken in now's location.
func ComputeOptimisticStreak(user models.User, now time.Time) int {
	if !user.HasCompleted() {
		return 1
	}
	if user.LastCompletedDate == models.DateOf(now) {
		return user.CurrentStreak
	}
	return user.CurrentStreak + 1
}

// ComputeOptimisticMaxStreak returns the larger of the new streak and the current maximum
func ComputeOptimisticMaxStreak(newStreak, currentMax int) int {
	if newStreak > currentMax {
		return newStreak
	}
	return currentMax
}

// ApplyCompletion returns a copy of user with streak fields advanced for a
// completion at now
func ApplyCompletion(user models.User, now time.Time) models.User {
	streak := ComputeOptimisticStreak(user, now)
	user.CurrentStreak = streak
	user.MaxStreak = ComputeOptimisticMaxStreak(streak, user.MaxStreak)
	user.LastCompletedDate = models.DateOf(now)
	return user
}
