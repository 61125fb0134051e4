package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dailymission/internal/models"
	"dailymission/internal/progress"
	"dailymission/internal/validation"
)

var (
	ErrNoUser            = errors.New("no user profile loaded")
	ErrNoActiveMission   = errors.New("no active mission")
	ErrMissionInProgress = errors.New("a mission is already in progress")
)

// OperationKind names the mission transition an operation performs
type OperationKind string

const (
	OpComplete OperationKind = "complete"
	OpAbandon  OperationKind = "abandon"
)

// OperationState tracks an optimistic operation from local apply to
// backend reconciliation
type OperationState int

const (
	OpIdle OperationState = iota
	OpApplied
	OpReconciling
	OpReconciled
	OpCorrected
	OpFailed
)

func (s OperationState) String() string {
	switch s {
	case OpIdle:
		return "idle"
	case OpApplied:
		return "applied"
	case OpReconciling:
		return "reconciling"
	case OpReconciled:
		return "reconciled"
	case OpCorrected:
		return "corrected"
	case OpFailed:
		return "failed"
	}
	return fmt.Sprintf("OperationState(%d)", int(s))
}

// Terminal reports whether the operation has finished reconciling
func (s OperationState) Terminal() bool {
	return s == OpReconciled || s == OpCorrected || s == OpFailed
}

// Optimistic is what the store was updated with before the backend answered
type Optimistic struct {
	Streak         int
	MaxStreak      int
	TotalCompleted int
	Category       models.Category
	UnlockedBadges []string
}

// Operation is one optimistic mission transition
type Operation struct {
	Kind       OperationKind
	MissionID  int64
	UserID     int64
	Optimistic Optimistic

	mu     sync.Mutex
	state  OperationState
	result *models.CompletionResult
	err    error
	done   chan struct{}
}

func newOperation(kind OperationKind, userID, missionID int64) *Operation {
	return &Operation{Kind: kind, UserID: userID, MissionID: missionID, done: make(chan struct{})}
}

// State returns the current operation state
func (op *Operation) State() OperationState {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

// Done is closed once the operation reaches a terminal state
func (op *Operation) Done() <-chan struct{} {
	return op.done
}

// Result returns the backend outcome. It is only meaningful after Done.
func (op *Operation) Result() (*models.CompletionResult, error) {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.result, op.err
}

func (op *Operation) setState(s OperationState) {
	op.mu.Lock()
	op.state = s
	op.mu.Unlock()
}

func (op *Operation) finish(s OperationState, result *models.CompletionResult, err error) {
	op.mu.Lock()
	op.state = s
	op.result = result
	op.err = err
	op.mu.Unlock()
	close(op.done)
}

// Coordinator applies mission transitions to the store at once and
// reconciles them with the backend in the background
type Coordinator struct {
	store   *Store
	backend Backend
	nav     Navigator
	logger  *slog.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator
func NewCoordinator(store *Store, backend Backend, nav Navigator, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:   store,
		backend: backend,
		nav:     nav,
		logger:  logger,
		now:     time.Now,
	}
}

// Wait blocks until every background reconciliation has finished
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// StartMission creates a mission on the backend and makes it active
func (c *Coordinator) StartMission(ctx context.Context, category models.Category, title string) (*models.Mission, error) {
	if err := validation.ValidateMissionTitle(title); err != nil {
		return nil, err
	}
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	snap := c.store.Snapshot()
	if snap.User == nil {
		return nil, ErrNoUser
	}
	if snap.ActiveMission != nil {
		return nil, ErrMissionInProgress
	}

	mission, err := c.backend.CreateMission(ctx, snap.User.ID, category, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}

	c.store.SetActiveMission(mission)
	c.logger.Info("Mission started",
		slog.Int64("mission_id", mission.ID),
		slog.String("category", string(mission.Category)))
	c.nav.Navigate(RouteMission)
	return mission, nil
}

// CompleteMission finishes the active mission. The store is updated and the
// success page requested before this returns; the backend write happens in
// the background.
func (c *Coordinator) CompleteMission(ctx context.Context) (*Operation, error) {
	var (
		op  *Operation
		err error
	)
	c.store.Apply(func(txn *StoreTxn) {
		state := txn.state
		if state.User == nil {
			err = ErrNoUser
			return
		}
		if state.ActiveMission == nil {
			err = ErrNoActiveMission
			return
		}
		mission := state.ActiveMission
		op = newOperation(OpComplete, state.User.ID, mission.ID)

		updated := progress.ApplyCompletion(*state.User, c.now())
		txn.UpdateStreak(updated.CurrentStreak, updated.MaxStreak, updated.LastCompletedDate)
		txn.IncrementCategoryScore(mission.Category)
		txn.IncrementTotalCompletedCount()

		unlocked := progress.EvaluateBadgeUnlocks(state.TotalCompleted, updated.CurrentStreak, state.UnlockedBadges)
		for _, id := range unlocked {
			txn.UnlockBadge(id)
		}
		txn.SetActiveMission(nil)

		op.Optimistic = Optimistic{
			Streak:         updated.CurrentStreak,
			MaxStreak:      updated.MaxStreak,
			TotalCompleted: state.TotalCompleted,
			Category:       mission.Category,
			UnlockedBadges: unlocked,
		}
	})
	if err != nil {
		return nil, err
	}
	op.setState(OpApplied)

	c.logger.Info("Mission completed locally",
		slog.Int64("mission_id", op.MissionID),
		slog.Int("streak", op.Optimistic.Streak),
		slog.Int("total_completed", op.Optimistic.TotalCompleted))
	for _, id := range op.Optimistic.UnlockedBadges {
		c.logger.Info("Badge unlocked", slog.String("badge_id", id))
	}

	c.nav.Navigate(RouteMissionSuccess)

	op.setState(OpReconciling)
	c.wg.Add(1)
	go c.reconcileCompletion(context.WithoutCancel(ctx), op)
	return op, nil
}

func (c *Coordinator) reconcileCompletion(ctx context.Context, op *Operation) {
	defer c.wg.Done()

	result, err := c.backend.CompleteMission(ctx, op.UserID, op.MissionID)
	if err != nil {
		c.logger.Error("Failed to persist mission completion",
			slog.Int64("mission_id", op.MissionID),
			slog.String("error", err.Error()))
		op.finish(OpFailed, nil, err)
		return
	}

	if result.CurrentStreak == op.Optimistic.Streak {
		op.finish(OpReconciled, result, nil)
		return
	}

	// The backend's durable state is authoritative for the streak fields only
	c.store.UpdateStreak(result.CurrentStreak, result.MaxStreak, result.LastCompletedDate)
	c.logger.Warn("Streak corrected by server",
		slog.Int64("mission_id", op.MissionID),
		slog.Int("optimistic", op.Optimistic.Streak),
		slog.Int("server", result.CurrentStreak))
	op.finish(OpCorrected, result, nil)
}

// AbandonMission drops the active mission locally and marks it abandoned on
// the backend in the background
func (c *Coordinator) AbandonMission(ctx context.Context) (*Operation, error) {
	var (
		op  *Operation
		err error
	)
	c.store.Apply(func(txn *StoreTxn) {
		state := txn.state
		if state.ActiveMission == nil {
			err = ErrNoActiveMission
			return
		}
		var userID int64
		if state.User != nil {
			userID = state.User.ID
		}
		op = newOperation(OpAbandon, userID, state.ActiveMission.ID)
		op.Optimistic.Category = state.ActiveMission.Category
		txn.SetActiveMission(nil)
	})
	if err != nil {
		return nil, err
	}
	op.setState(OpApplied)

	c.logger.Info("Mission abandoned locally", slog.Int64("mission_id", op.MissionID))
	c.nav.Navigate(RouteMissionAbandon)

	op.setState(OpReconciling)
	c.wg.Add(1)
	go c.reconcileAbandon(context.WithoutCancel(ctx), op)
	return op, nil
}

func (c *Coordinator) reconcileAbandon(ctx context.Context, op *Operation) {
	defer c.wg.Done()

	if _, err := c.backend.UpdateMissionStatus(ctx, op.MissionID, models.MissionAbandoned); err != nil {
		c.logger.Error("Failed to persist mission abandonment",
			slog.Int64("mission_id", op.MissionID),
			slog.String("error", err.Error()))
		op.finish(OpFailed, nil, err)
		return
	}
	op.finish(OpReconciled, nil, nil)
}
