package client

import (
	"slices"
	"sync"

	"dailymission/internal/models"
)

// State is the client-visible mission state
type State struct {
	User           *models.User
	ActiveMission  *models.Mission
	CategoryScores []models.CategoryScore
	UnlockedBadges []string
	TotalCompleted int
	GlobalLoading  bool
	PendingProfile *models.PendingProfile
}

func initialState() State {
	return State{CategoryScores: models.DefaultCategoryScores(0)}
}

func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.ActiveMission != nil {
		m := *s.ActiveMission
		out.ActiveMission = &m
	}
	if s.PendingProfile != nil {
		p := *s.PendingProfile
		out.PendingProfile = &p
	}
	out.CategoryScores = slices.Clone(s.CategoryScores)
	out.UnlockedBadges = slices.Clone(s.UnlockedBadges)
	return out
}

// Score returns the score for category, or zero when unknown
func (s State) Score(category models.Category) int {
	for _, cs := range s.CategoryScores {
		if cs.Category == category {
			return cs.Score
		}
	}
	return 0
}

// HasBadge reports whether id is unlocked
func (s State) HasBadge(id string) bool {
	return slices.Contains(s.UnlockedBadges, id)
}

// Store holds the mission state for one signed-in user. All mutations are
// synchronous and atomic. Observers are notified once per mutating call,
// in mutation order.
type Store struct {
	mu    sync.Mutex
	state State

	// notifyMu orders observer delivery; it is taken before mu
	notifyMu  sync.Mutex
	observers map[int]func(State)
	nextID    int
}

// NewStore creates a store in its initial empty state
func NewStore() *Store {
	return &Store{state: initialState(), observers: make(map[int]func(State))}
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every change. fn must
// not mutate the store synchronously. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		delete(s.observers, id)
	}
}

// Apply runs fn as one critical section. Observers see a single
// notification for everything fn changed, and none if nothing changed.
func (s *Store) Apply(fn func(txn *StoreTxn)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	txn := &StoreTxn{state: &s.state}
	fn(txn)
	changed := txn.changed
	var snap State
	if changed {
		snap = s.state.clone()
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range s.observers {
		fn(snap)
	}
}

// SetUser replaces the user profile
func (s *Store) SetUser(user *models.User) {
	s.Apply(func(txn *StoreTxn) { txn.SetUser(user) })
}

// UpdateStreak overwrites the user's streak fields. It reports false when
// no user is loaded.
func (s *Store) UpdateStreak(current, maxStreak int, lastCompletedDate string) (ok bool) {
	s.Apply(func(txn *StoreTxn) { ok = txn.UpdateStreak(current, maxStreak, lastCompletedDate) })
	return ok
}

// SetActiveMission replaces the active mission; nil clears it
func (s *Store) SetActiveMission(mission *models.Mission) {
	s.Apply(func(txn *StoreTxn) { txn.SetActiveMission(mission) })
}

// SetCategoryScores merges scores into the store without lowering any score
func (s *Store) SetCategoryScores(scores []models.CategoryScore) {
	s.Apply(func(txn *StoreTxn) { txn.SetCategoryScores(scores) })
}

// IncrementCategoryScore adds one to category. Unknown categories are
// ignored and reported as false.
func (s *Store) IncrementCategoryScore(category models.Category) (ok bool) {
	s.Apply(func(txn *StoreTxn) { ok = txn.IncrementCategoryScore(category) })
	return ok
}

// UnlockBadge adds id to the unlocked set; it reports false if already there
func (s *Store) UnlockBadge(id string) (added bool) {
	s.Apply(func(txn *StoreTxn) { added = txn.UnlockBadge(id) })
	return added
}

// SetTotalCompletedCount raises the completed count to n. A lower n is ignored.
func (s *Store) SetTotalCompletedCount(n int) {
	s.Apply(func(txn *StoreTxn) { txn.SetTotalCompletedCount(n) })
}

// IncrementTotalCompletedCount adds one to the completed count
func (s *Store) IncrementTotalCompletedCount() {
	s.Apply(func(txn *StoreTxn) { txn.IncrementTotalCompletedCount() })
}

// SetGlobalLoading sets the transient loading flag
func (s *Store) SetGlobalLoading(loading bool) {
	s.Apply(func(txn *StoreTxn) { txn.SetGlobalLoading(loading) })
}

// SetPendingProfile keeps identity data until the profile is created
func (s *Store) SetPendingProfile(p *models.PendingProfile) {
	s.Apply(func(txn *StoreTxn) { txn.SetPendingProfile(p) })
}

// ClearPendingProfile drops the pending identity data
func (s *Store) ClearPendingProfile() {
	s.Apply(func(txn *StoreTxn) { txn.SetPendingProfile(nil) })
}

// Reset restores the initial empty state. It is the only way to lower the
// completed count or clear unlocked badges.
func (s *Store) Reset() {
	s.Apply(func(txn *StoreTxn) { txn.Reset() })
}

// StoreTxn mutates the state inside Store.Apply
type StoreTxn struct {
	state   *State
	changed bool
}

// State returns a read-only view of the state being mutated
func (t *StoreTxn) State() State {
	return t.state.clone()
}

// Owner returns the auth id the state belongs to, or "" when nobody is
// loaded
func (t *StoreTxn) Owner() string {
	switch {
	case t.state.User != nil:
		return t.state.User.AuthID
	case t.state.PendingProfile != nil:
		return t.state.PendingProfile.AuthID
	}
	return ""
}

// Reset restores the initial empty state
func (t *StoreTxn) Reset() {
	*t.state = initialState()
	t.changed = true
}

// SetUser replaces the user profile
func (t *StoreTxn) SetUser(user *models.User) {
	if user != nil {
		u := *user
		user = &u
	}
	t.state.User = user
	t.changed = true
}

// UpdateStreak overwrites the streak fields and reports false when no user
// is loaded. The best streak is raised to current if needed.
func (t *StoreTxn) UpdateStreak(current, maxStreak int, lastCompletedDate string) bool {
	if t.state.User == nil {
		return false
	}
	if maxStreak < current {
		maxStreak = current
	}
	t.state.User.CurrentStreak = current
	t.state.User.MaxStreak = maxStreak
	t.state.User.LastCompletedDate = lastCompletedDate
	t.changed = true
	return true
}

// SetActiveMission replaces the active mission; nil clears it
func (t *StoreTxn) SetActiveMission(mission *models.Mission) {
	if mission != nil {
		m := *mission
		mission = &m
	}
	t.state.ActiveMission = mission
	t.changed = true
}

// SetCategoryScores raises each known category to the given score and takes
// its goal. Scores are never lowered.
func (t *StoreTxn) SetCategoryScores(scores []models.CategoryScore) {
	for _, in := range scores {
		if !in.Category.Valid() {
			continue
		}
		i := slices.IndexFunc(t.state.CategoryScores, func(cs models.CategoryScore) bool {
			return cs.Category == in.Category
		})
		if i < 0 {
			t.state.CategoryScores = append(t.state.CategoryScores, in)
			t.changed = true
			continue
		}
		cur := &t.state.CategoryScores[i]
		if in.Score > cur.Score {
			cur.Score = in.Score
			t.changed = true
		}
		if in.Goal > 0 && in.Goal != cur.Goal {
			cur.Goal = in.Goal
			t.changed = true
		}
	}
}

// IncrementCategoryScore adds one to category and reports false for an
// unknown category
func (t *StoreTxn) IncrementCategoryScore(category models.Category) bool {
	for i := range t.state.CategoryScores {
		if t.state.CategoryScores[i].Category == category {
			t.state.CategoryScores[i].Score++
			t.changed = true
			return true
		}
	}
	return false
}

// UnlockBadge adds id to the unlocked set
func (t *StoreTxn) UnlockBadge(id string) bool {
	if id == "" || slices.Contains(t.state.UnlockedBadges, id) {
		return false
	}
	t.state.UnlockedBadges = append(t.state.UnlockedBadges, id)
	t.changed = true
	return true
}

// SetTotalCompletedCount raises the completed count to n
func (t *StoreTxn) SetTotalCompletedCount(n int) {
	if n > t.state.TotalCompleted {
		t.state.TotalCompleted = n
		t.changed = true
	}
}

// IncrementTotalCompletedCount adds one to the completed count
func (t *StoreTxn) IncrementTotalCompletedCount() {
	t.state.TotalCompleted++
	t.changed = true
}

// SetGlobalLoading sets the transient loading flag
func (t *StoreTxn) SetGlobalLoading(loading bool) {
	if t.state.GlobalLoading != loading {
		t.state.GlobalLoading = loading
		t.changed = true
	}
}

// SetPendingProfile replaces the pending identity data; nil clears it
func (t *StoreTxn) SetPendingProfile(p *models.PendingProfile) {
	if p == nil && t.state.PendingProfile == nil {
		return
	}
	if p != nil {
		c := *p
		p = &c
	}
	t.state.PendingProfile = p
	t.changed = true
}
