package progress

import "dailymission/internal/models"

// RewardCatalog lists rewards in unlock order
var RewardCatalog = []models.Reward{
	{ID: "reward_1", Title: "Unlocked at 1 completion", UnlockScore: 1},
	{ID: "reward_2", Title: "Unlocked at 3 completions", UnlockScore: 3},
	{ID: "reward_3", Title: "Unlocked at 5 completions", UnlockScore: 5},
	{ID: "reward_4", Title: "Unlocked at 10 completions", UnlockScore: 10},
}

// Rewards derives each reward's unlock state from the total completion count
func Rewards(totalCompletions int) []models.RewardStatus {
	statuses := make([]models.RewardStatus, len(RewardCatalog))
	for i, r := range RewardCatalog {
		statuses[i] = models.RewardStatus{
			Reward:   r,
			Unlocked: r.UnlockScore <= totalCompletions,
		}
	}
	return statuses
}

// NextReward returns the first locked reward, if any
func NextReward(totalCompletions int) (models.Reward, bool) {
	for _, r := range RewardCatalog {
		if r.UnlockScore > totalCompletions {
			return r, true
		}
	}
	return models.Reward{}, false
}
