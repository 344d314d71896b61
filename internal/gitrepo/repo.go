// Package gitrepo discovers the enclosing git repository and lists the files
// staged for commit. It is the run's changed-files provider: everything else
// in the pipeline treats the returned path list as opaque input.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	git "github.com/go-git/go-git/v5"
)

var (
	// ErrNotARepository indicates the directory is not inside a git worktree.
	ErrNotARepository = errors.New("not a git repository")

	// ErrNoStagedFiles indicates the index holds no staged changes to run on.
	ErrNoStagedFiles = errors.New("no files staged for commit")
)

// Repo wraps an opened git worktree.
type Repo struct {
	repo *git.Repository
	root string
}

// Open locates the repository enclosing dir, searching parent directories the
// way the git CLI does. Bare repositories are rejected: there is no working
// tree to run commands in.
func Open(dir string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotARepository, dir)
		}
		return nil, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return nil, fmt.Errorf("%w: bare repository at %s", ErrNotARepository, dir)
		}
		return nil, fmt.Errorf("failed to resolve worktree: %w", err)
	}

	return &Repo{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the absolute path of the working tree root.
func (r *Repo) Root() string {
	return r.root
}

// StagedFiles returns the paths staged for commit, relative to the worktree
// root, sorted and deduplicated. Staged deletions are excluded: a command
// cannot run on a file that will not exist after the commit.
func (r *Repo) StagedFiles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read repository status: %w", err)
	}

	seen := make(map[string]struct{})
	var files []string
	for path, st := range status {
		switch st.Staging {
		case git.Added, git.Modified, git.Renamed, git.Copied:
		default:
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	if len(files) == 0 {
		return nil, ErrNoStagedFiles
	}

	sort.Strings(files)
	return files, nil
}
