package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a git repository in a temp dir and returns its root and
// worktree.
func initRepo(t *testing.T) (string, *git.Worktree) {
	t.Helper()
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return root, wt
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func commitAll(t *testing.T, wt *git.Worktree) {
	t.Helper()
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	_, err := wt.Commit("fixture", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "tester",
			Email: "tester@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
}

func TestOpenNotARepository(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotARepository)
}

func TestOpenDetectsDotGitFromSubdirectory(t *testing.T) {
	root, _ := initRepo(t)
	sub := filepath.Join(root, "internal", "deep")
	require.NoError(t, os.MkdirAll(sub, 0755))

	repo, err := Open(sub)
	require.NoError(t, err)

	wantRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(repo.Root())
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
}

func TestOpenBareRepository(t *testing.T) {
	root := t.TempDir()
	_, err := git.PlainInit(root, true)
	require.NoError(t, err)

	_, err = Open(root)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotARepository)
}

func TestStagedFilesSortedRelativePaths(t *testing.T) {
	root, wt := initRepo(t)
	writeFile(t, root, "zeta.go", "package main\n")
	writeFile(t, root, "alpha.go", "package main\n")
	writeFile(t, root, "pkg/util.go", "package pkg\n")
	_, err := wt.Add("zeta.go")
	require.NoError(t, err)
	_, err = wt.Add("alpha.go")
	require.NoError(t, err)
	_, err = wt.Add("pkg/util.go")
	require.NoError(t, err)

	repo, err := Open(root)
	require.NoError(t, err)

	files, err := repo.StagedFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.go", "pkg/util.go", "zeta.go"}, files)
}

func TestStagedFilesIgnoresUntracked(t *testing.T) {
	root, wt := initRepo(t)
	writeFile(t, root, "staged.go", "package main\n")
	writeFile(t, root, "untracked.go", "package main\n")
	_, err := wt.Add("staged.go")
	require.NoError(t, err)

	repo, err := Open(root)
	require.NoError(t, err)

	files, err := repo.StagedFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"staged.go"}, files)
}

func TestStagedFilesIgnoresUnstagedModifications(t *testing.T) {
	root, wt := initRepo(t)
	writeFile(t, root, "committed.go", "package main\n")
	writeFile(t, root, "restaged.go", "package main\n")
	commitAll(t, wt)

	// Modify both, stage only one.
	writeFile(t, root, "committed.go", "package main\n\nfunc a() {}\n")
	writeFile(t, root, "restaged.go", "package main\n\nfunc b() {}\n")
	_, err := wt.Add("restaged.go")
	require.NoError(t, err)

	repo, err := Open(root)
	require.NoError(t, err)

	files, err := repo.StagedFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"restaged.go"}, files)
}

func TestStagedFilesExcludesStagedDeletions(t *testing.T) {
	root, wt := initRepo(t)
	writeFile(t, root, "doomed.go", "package main\n")
	writeFile(t, root, "kept.go", "package main\n")
	commitAll(t, wt)

	_, err := wt.Remove("doomed.go")
	require.NoError(t, err)
	writeFile(t, root, "kept.go", "package main\n\nfunc k() {}\n")
	_, err = wt.Add("kept.go")
	require.NoError(t, err)

	repo, err := Open(root)
	require.NoError(t, err)

	files, err := repo.StagedFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.go"}, files)
}

func TestStagedFilesOnlyDeletionStaged(t *testing.T) {
	root, wt := initRepo(t)
	writeFile(t, root, "doomed.go", "package main\n")
	commitAll(t, wt)

	_, err := wt.Remove("doomed.go")
	require.NoError(t, err)

	repo, err := Open(root)
	require.NoError(t, err)

	_, err = repo.StagedFiles(context.Background())
	assert.ErrorIs(t, err, ErrNoStagedFiles)
}

func TestStagedFilesEmptyIndex(t *testing.T) {
	root, _ := initRepo(t)

	repo, err := Open(root)
	require.NoError(t, err)

	_, err = repo.StagedFiles(context.Background())
	assert.ErrorIs(t, err, ErrNoStagedFiles)
}

func TestStagedFilesCancelledContext(t *testing.T) {
	root, wt := initRepo(t)
	writeFile(t, root, "a.go", "package main\n")
	_, err := wt.Add("a.go")
	require.NoError(t, err)

	repo, err := Open(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.StagedFiles(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
