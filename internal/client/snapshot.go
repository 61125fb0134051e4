package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"dailymission/internal/models"
)

const snapshotVersion = 1

// PersistedState is the durable subset of State. The active mission and
// the loading flag are never persisted.
type PersistedState struct {
	Version        int                    `json:"version"`
	User           *models.User           `json:"user,omitempty"`
	CategoryScores []models.CategoryScore `json:"category_scores"`
	UnlockedBadges []string               `json:"unlocked_badges"`
	TotalCompleted int                    `json:"total_completed"`
	PendingProfile *models.PendingProfile `json:"pending_profile,omitempty"`
}

func persistedFrom(s State) PersistedState {
	return PersistedState{
		Version:        snapshotVersion,
		User:           s.User,
		CategoryScores: s.CategoryScores,
		UnlockedBadges: s.UnlockedBadges,
		TotalCompleted: s.TotalCompleted,
		PendingProfile: s.PendingProfile,
	}
}

// SnapshotFile stores the durable state as JSON on disk
type SnapshotFile struct {
	path string
}

// NewSnapshotFile returns a snapshot file at path
func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Path returns the file location
func (f *SnapshotFile) Path() string {
	return f.path
}

// Load reads the snapshot. A missing file yields nil, nil.
func (f *SnapshotFile) Load() (*PersistedState, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var p PersistedState
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if p.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", p.Version)
	}
	return &p, nil
}

// Save writes the durable part of s, replacing the file atomically
func (f *SnapshotFile) Save(s State) error {
	data, err := json.MarshalIndent(persistedFrom(s), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Clear removes the snapshot file
func (f *SnapshotFile) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}

// Restore loads p into the store, replacing whatever it held
func (s *Store) Restore(p *PersistedState) {
	if p == nil {
		return
	}
	s.Apply(func(txn *StoreTxn) {
		txn.Reset()
		txn.SetUser(p.User)
		txn.SetCategoryScores(p.CategoryScores)
		for _, id := range p.UnlockedBadges {
			txn.UnlockBadge(id)
		}
		txn.SetTotalCompletedCount(p.TotalCompleted)
		txn.SetPendingProfile(p.PendingProfile)
	})
}

// AttachSnapshot saves the store to file after every change. Writes happen
// on a background goroutine so store mutations never wait on disk; bursts
// of changes are coalesced into one write of the latest state. Write
// failures are logged and do not affect the store. The returned func stops
// persisting after flushing the last pending state.
func AttachSnapshot(store *Store, file *SnapshotFile, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}
	w := &snapshotWriter{
		file:   file,
		logger: logger,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.run()
	unsubscribe := store.Subscribe(w.enqueue)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(w.stop)
			<-w.done
		})
	}
}

type snapshotWriter struct {
	file   *SnapshotFile
	logger *slog.Logger

	mu      sync.Mutex
	latest  State
	pending bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func (w *snapshotWriter) enqueue(s State) {
	w.mu.Lock()
	w.latest = s
	w.pending = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *snapshotWriter) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.flush()
		case <-w.stop:
			w.flush()
			return
		}
	}
}

func (w *snapshotWriter) flush() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	s := w.latest
	w.pending = false
	w.mu.Unlock()

	if err := w.file.Save(s); err != nil {
		w.logger.Error("Failed to persist mission state",
			slog.String("path", w.file.Path()),
			slog.String("error", err.Error()))
	}
}
