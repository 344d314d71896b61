// Package snapshot captures working-tree file content before a run and
// restores it when rollback is required. The mechanism is deliberately
// version-control-agnostic: the Manager owns the snapshot lifecycle while a
// Backend performs the content I/O, so the storage strategy is swappable
// and testable with a fake.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileState records the captured condition of one path.
type FileState struct {
	// Path is the file location as referenced by the plan, relative to the
	// working tree root unless the plan used absolute paths.
	Path string

	// Content holds the captured bytes. Meaningless when Existed is false.
	Content []byte

	// Mode is the file's permission bits at capture time.
	Mode os.FileMode

	// Existed is false when the path was absent at capture time; restoring
	// such a state removes whatever the run created there.
	Existed bool
}

// Snapshot is an opaque restore point covering a fixed set of files.
// It is created by Manager.Capture and consumed exactly once, by either
// Restore or Discard.
type Snapshot struct {
	ID        string
	RunID     string
	CreatedAt time.Time

	files []FileState
}

// Len returns the number of captured files.
func (s *Snapshot) Len() int {
	return len(s.files)
}

// Paths returns the captured paths in capture order.
func (s *Snapshot) Paths() []string {
	paths := make([]string, len(s.files))
	for i, state := range s.files {
		paths[i] = state.Path
	}
	return paths
}

// Backend performs the file content I/O for snapshots.
type Backend interface {
	// Capture records the current content of every path.
	Capture(ctx context.Context, paths []string) ([]FileState, error)

	// Restore writes one captured state back to the working tree.
	Restore(ctx context.Context, state FileState) error

	// Discard releases any resources held for the captured states.
	Discard(states []FileState) error
}

// RestoreFailure describes one path that could not be restored.
type RestoreFailure struct {
	Path string
	Err  error
}

func (f RestoreFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// RestoreResult reports the per-file outcome of a restore.
type RestoreResult struct {
	Restored []string
	Failures []RestoreFailure
}

// Failed reports whether any file could not be restored.
func (r *RestoreResult) Failed() bool {
	return len(r.Failures) > 0
}

// FailureMessages renders the failures for run reporting.
func (r *RestoreResult) FailureMessages() []string {
	if len(r.Failures) == 0 {
		return nil
	}
	messages := make([]string, len(r.Failures))
	for i, failure := range r.Failures {
		messages[i] = failure.String()
	}
	return messages
}

// Manager owns the snapshot lifecycle for a run. At most one snapshot is
// live at a time; capture must complete before any task is dispatched.
type Manager struct {
	backend Backend

	mu   sync.Mutex
	live *Snapshot
}

// NewManager constructs a Manager over the given backend.
func NewManager(backend Backend) *Manager {
	return &Manager{backend: backend}
}

// Capture records the current content of every path and returns the live
// snapshot. Calling Capture while another snapshot is live is a programming
// error and panics rather than returning an error.
func (m *Manager) Capture(ctx context.Context, runID string, paths []string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live != nil {
		panic(fmt.Sprintf("snapshot: capture for run %s while snapshot %s is still live", runID, m.live.ID))
	}

	states, err := m.backend.Capture(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("snapshot capture failed: %w", err)
	}

	snap := &Snapshot{
		ID:        uuid.NewString(),
		RunID:     runID,
		CreatedAt: time.Now(),
		files:     states,
	}
	m.live = snap
	return snap, nil
}

// Restore consumes the snapshot, reverting every captured path to its
// captured content. Restoration is best-effort per file: one failed path
// does not stop the others, and all failures are reported in the result.
// The returned error covers lifecycle misuse only.
func (m *Manager) Restore(ctx context.Context, snap *Snapshot) (*RestoreResult, error) {
	if err := m.consume(snap, "restore"); err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	for _, state := range snap.files {
		if err := m.backend.Restore(ctx, state); err != nil {
			result.Failures = append(result.Failures, RestoreFailure{Path: state.Path, Err: err})
			continue
		}
		result.Restored = append(result.Restored, state.Path)
	}

	// Backend cleanup is best-effort once content is back on disk.
	_ = m.backend.Discard(snap.files)

	return result, nil
}

// Discard consumes the snapshot without restoring anything. Used when the
// run succeeds and the captured content is no longer needed.
func (m *Manager) Discard(snap *Snapshot) error {
	if err := m.consume(snap, "discard"); err != nil {
		return err
	}
	return m.backend.Discard(snap.files)
}

// HasLive reports whether a snapshot is currently live.
func (m *Manager) HasLive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live != nil
}

// consume validates that snap is the live snapshot and marks it consumed.
func (m *Manager) consume(snap *Snapshot, op string) error {
	if snap == nil {
		return fmt.Errorf("snapshot %s: snapshot cannot be nil", op)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live == nil {
		return fmt.Errorf("snapshot %s: snapshot %s already consumed", op, snap.ID)
	}
	if m.live != snap {
		return fmt.Errorf("snapshot %s: snapshot %s is not the live snapshot", op, snap.ID)
	}
	m.live = nil
	return nil
}
