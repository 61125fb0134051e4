package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dailymission/internal/database"
	"dailymission/internal/models"
	"dailymission/internal/progress"
	"dailymission/internal/repository"
	"dailymission/internal/validation"
)

// BadgeNotifier is told about badges unlocked by an authoritative completion
type BadgeNotifier interface {
	NotifyBadgesUnlocked(ctx context.Context, user *models.User, badges []models.Badge) error
}

// MissionService owns the durable mission lifecycle. Its methods mirror the
// operations the client core consumes, so it can serve them in-process.
type MissionService struct {
	db           *database.DB
	users        *repository.UserRepository
	missions     *repository.MissionRepository
	scores       *repository.ScoreRepository
	badges       *repository.BadgeRepository
	location     *time.Location
	categoryGoal int
	notifier     BadgeNotifier
	logger       *slog.Logger
	now          func() time.Time
}

// NewMissionService creates a mission service. Calendar days for streaks are
// evaluated in loc. notifier may be nil.
func NewMissionService(db *database.DB, loc *time.Location, categoryGoal int, notifier BadgeNotifier, logger *slog.Logger) *MissionService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MissionService{
		db:           db,
		users:        repository.NewUserRepository(db),
		missions:     repository.NewMissionRepository(db),
		scores:       repository.NewScoreRepository(db),
		badges:       repository.NewBadgeRepository(db),
		location:     loc,
		categoryGoal: categoryGoal,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// GetMission returns a mission by ID, or nil when it does not exist
func (s *MissionService) GetMission(ctx context.Context, missionID int64) (*models.Mission, error) {
	return s.missions.GetMissionByID(ctx, missionID)
}

// ActiveMission returns the user's in_progress mission, or nil when none
func (s *MissionService) ActiveMission(ctx context.Context, userID int64) (*models.Mission, error) {
	return s.missions.GetActiveMission(ctx, userID)
}

// CreateMission starts a new mission. It is rejected while another mission
// is still in progress.
func (s *MissionService) CreateMission(ctx context.Context, userID int64, category models.Category, title string) (*models.Mission, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}
	if err := validation.ValidateMissionTitle(title); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)

	var mission *models.Mission
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		user, err := repository.NewUserRepository(tx).GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}

		missions := repository.NewMissionRepository(tx)
		active, err := missions.GetActiveMission(ctx, userID)
		if err != nil {
			return err
		}
		if active != nil {
			return ErrMissionInProgress
		}

		mission, err = missions.CreateMission(ctx, userID, category, title, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Mission created",
		slog.Int64("user_id", userID),
		slog.Int64("mission_id", mission.ID),
		slog.String("category", string(category)),
	)
	return mission, nil
}

// UpdateMissionStatus moves an in-progress mission to a terminal status.
// Completing through this path stamps completed_at but does not touch
// streaks or scores; CompleteMission does that.
func (s *MissionService) UpdateMissionStatus(ctx context.Context, missionID int64, status models.MissionStatus) (*models.Mission, error) {
	if !status.IsTerminal() {
		return nil, ErrInvalidStatus
	}

	mission, err := s.missions.GetMissionByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if mission == nil {
		return nil, ErrMissionNotFound
	}
	if mission.Status.IsTerminal() {
		return nil, ErrMissionFinalized
	}

	var completedAt *time.Time
	if status == models.MissionCompleted {
		now := s.now()
		completedAt = &now
	}

	changed, err := s.missions.UpdateMissionStatus(ctx, missionID, status, completedAt)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrMissionFinalized
	}

	mission.Status = status
	mission.CompletedAt = completedAt
	s.logger.Info("Mission status updated", slog.Int64("mission_id", missionID), slog.String("status", string(status)))
	return mission, nil
}

// IncrementCategoryScore adds one to the user's score in category
func (s *MissionService) IncrementCategoryScore(ctx context.Context, userID int64, category models.Category) error {
	if !category.Valid() {
		return ErrInvalidCategory
	}
	return incrementScore(ctx, repository.NewScoreRepository(s.db), userID, category, s.categoryGoal)
}

// CategoryScores returns the user's scores in display order
func (s *MissionService) CategoryScores(ctx context.Context, userID int64) ([]models.CategoryScore, error) {
	return s.scores.GetScores(ctx, userID)
}

// CompletedMissionCount returns how many missions the user has completed
func (s *MissionService) CompletedMissionCount(ctx context.Context, userID int64) (int, error) {
	return s.missions.CountCompletedMissions(ctx, userID)
}

// UnlockedBadgeIDs returns the ids of the user's unlocked badges
func (s *MissionService) UnlockedBadgeIDs(ctx context.Context, userID int64) ([]string, error) {
	return s.badges.GetUnlockedBadgeIDs(ctx, userID)
}

// UnlockBadge records a badge for the user. Repeated unlocks are no-ops.
func (s *MissionService) UnlockBadge(ctx context.Context, userID int64, badgeID string) error {
	if _, ok := progress.LookupBadge(badgeID); !ok {
		return ErrUnknownBadge
	}
	added, err := s.badges.UnlockBadge(ctx, userID, badgeID, s.now())
	if err != nil {
		return err
	}
	if added {
		s.logger.Info("Badge unlocked", slog.Int64("user_id", userID), slog.String("badge_id", badgeID))
	}
	return nil
}

// Rewards derives the user's reward states from the completed count
func (s *MissionService) Rewards(ctx context.Context, userID int64) ([]models.RewardStatus, error) {
	total, err := s.missions.CountCompletedMissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return progress.Rewards(total), nil
}

// VerifyBadgeCatalog checks that the stored badge table agrees with the
// rule engine's catalog. Unlocks reference the stored table, so drift means
// a migration is missing.
func (s *MissionService) VerifyBadgeCatalog(ctx context.Context) error {
	stored, err := s.badges.GetCatalog(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]models.Badge, len(stored))
	for _, b := range stored {
		byID[b.ID] = b
	}

	var problems []string
	for _, want := range progress.BadgeCatalog {
		got, ok := byID[want.ID]
		switch {
		case !ok:
			problems = append(problems, want.ID+" missing")
		case got.Rule != want.Rule || got.Threshold != want.Threshold:
			problems = append(problems, fmt.Sprintf("%s is %s/%d, want %s/%d", want.ID, got.Rule, got.Threshold, want.Rule, want.Threshold))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("badge catalog out of date: %s", strings.Join(problems, "; "))
	}
	return nil
}

// CompleteMission is the authoritative completion. In one transaction it
// marks the mission completed, bumps the category score, recomputes the
// streak from the stored user row, recounts completions and unlocks any
// badge whose exact threshold was reached.
func (s *MissionService) CompleteMission(ctx context.Context, userID, missionID int64) (*models.CompletionResult, error) {
	now := s.now().In(s.location)

	var (
		result models.CompletionResult
		user   *models.User
	)
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		missions := repository.NewMissionRepository(tx)
		users := repository.NewUserRepository(tx)
		badges := repository.NewBadgeRepository(tx)

		mission, err := missions.GetMissionByID(ctx, missionID)
		if err != nil {
			return err
		}
		if mission == nil || mission.UserID != userID {
			return ErrMissionNotFound
		}
		if mission.Status != models.MissionInProgress {
			return ErrMissionFinalized
		}

		changed, err := missions.UpdateMissionStatus(ctx, missionID, models.MissionCompleted, &now)
		if err != nil {
			return err
		}
		if !changed {
			return ErrMissionFinalized
		}
		mission.Status = models.MissionCompleted
		mission.CompletedAt = &now

		if err := incrementScore(ctx, repository.NewScoreRepository(tx), userID, mission.Category, s.categoryGoal); err != nil {
			return err
		}

		user, err = users.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		updated := progress.ApplyCompletion(*user, now)
		if err := users.UpdateStreak(ctx, userID, updated.CurrentStreak, updated.MaxStreak, updated.LastCompletedDate); err != nil {
			return err
		}
		user = &updated

		total, err := missions.CountCompletedMissions(ctx, userID)
		if err != nil {
			return err
		}

		already, err := badges.GetUnlockedBadgeIDs(ctx, userID)
		if err != nil {
			return err
		}
		var unlocked []string
		for _, id := range progress.EvaluateBadgeUnlocks(total, updated.CurrentStreak, already) {
			added, err := badges.UnlockBadge(ctx, userID, id, now)
			if err != nil {
				return err
			}
			if added {
				unlocked = append(unlocked, id)
			}
		}

		result = models.CompletionResult{
			Mission:           mission,
			CurrentStreak:     updated.CurrentStreak,
			MaxStreak:         updated.MaxStreak,
			LastCompletedDate: updated.LastCompletedDate,
			TotalCompleted:    total,
			UnlockedBadges:    unlocked,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Mission completed",
		slog.Int64("user_id", userID),
		slog.Int64("mission_id", missionID),
		slog.Int("streak", result.CurrentStreak),
		slog.Int("total", result.TotalCompleted),
		slog.Any("badges", result.UnlockedBadges),
	)

	if len(result.UnlockedBadges) > 0 && s.notifier != nil {
		s.notifyBadges(ctx, user, result.UnlockedBadges)
	}
	return &result, nil
}

func (s *MissionService) notifyBadges(ctx context.Context, user *models.User, ids []string) {
	badges := make([]models.Badge, 0, len(ids))
	for _, id := range ids {
		if b, ok := progress.LookupBadge(id); ok {
			badges = append(badges, b)
		}
	}
	if err := s.notifier.NotifyBadgesUnlocked(ctx, user, badges); err != nil {
		s.logger.Warn("Failed to send badge notification", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
}

// incrementScore bumps a category score, creating the user's score rows
// first when they are missing
func incrementScore(ctx context.Context, scores *repository.ScoreRepository, userID int64, category models.Category, goal int) error {
	ok, err := scores.IncrementScore(ctx, userID, category)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := scores.InitializeScores(ctx, userID, goal); err != nil {
		return err
	}
	if ok, err = scores.IncrementScore(ctx, userID, category); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no score row for user %d category %s", userID, category)
	}
	return nil
}
