package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/stagehand/internal/filelock"
)

// CopyBackend captures file content into memory and restores it with atomic
// writes, so a crash mid-restore never leaves a half-written file behind.
type CopyBackend struct {
	// Root is the working tree root. Relative captured paths are resolved
	// against it; absolute paths are used as-is.
	Root string
}

var _ Backend = (*CopyBackend)(nil)

// NewCopyBackend constructs a CopyBackend rooted at the given directory.
func NewCopyBackend(root string) *CopyBackend {
	return &CopyBackend{Root: root}
}

// Capture reads every path into memory. A missing file is captured as
// Existed=false so a restore can remove whatever the run created there.
func (b *CopyBackend) Capture(ctx context.Context, paths []string) ([]FileState, error) {
	states := make([]FileState, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		abs := b.resolve(path)
		info, err := os.Stat(abs)
		if os.IsNotExist(err) {
			states = append(states, FileState{Path: path, Existed: false})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("cannot snapshot directory %s", path)
		}

		content, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		states = append(states, FileState{
			Path:    path,
			Content: content,
			Mode:    info.Mode().Perm(),
			Existed: true,
		})
	}
	return states, nil
}

// Restore writes one captured state back to disk, removing the file when it
// did not exist at capture time.
func (b *CopyBackend) Restore(_ context.Context, state FileState) error {
	abs := b.resolve(state.Path)

	if !state.Existed {
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", state.Path, err)
		}
		return nil
	}

	if err := filelock.AtomicWrite(abs, state.Content, state.Mode); err != nil {
		return fmt.Errorf("failed to restore %s: %w", state.Path, err)
	}
	return nil
}

// Discard releases nothing: captured content lives in memory and is freed
// with the snapshot.
func (b *CopyBackend) Discard([]FileState) error {
	return nil
}

func (b *CopyBackend) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(b.Root, path)
}
