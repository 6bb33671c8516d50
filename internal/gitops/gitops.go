// Package gitops runs the git operations a digest run needs: staging
// output files, committing them under a fixed author, and pushing.
package gitops

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNotGitRepo indicates the directory is not a git repository.
var ErrNotGitRepo = errors.New("not a git repository")

// ErrNothingToCommit indicates the staging area held no changes.
var ErrNothingToCommit = errors.New("nothing to commit")

// ErrGitCommand indicates a git subprocess exited with a failure.
var ErrGitCommand = errors.New("git command failed")

// FindRepoRoot finds the root of the git repository containing the given path.
// Returns ErrNotGitRepo if not in a git repository.
func FindRepoRoot(path string) (string, error) {
	cmd := exec.Command("git", "-C", path, "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", ErrNotGitRepo
	}
	return strings.TrimSpace(string(output)), nil
}

// IsGitRepo checks if the given path is inside a git repository.
func IsGitRepo(path string) bool {
	_, err := FindRepoRoot(path)
	return err == nil
}

// Repo runs git commands against one repository.
type Repo struct {
	Root string
}

// New returns a Repo rooted at the repository containing path.
func New(path string) (*Repo, error) {
	root, err := FindRepoRoot(path)
	if err != nil {
		return nil, err
	}
	return &Repo{Root: root}, nil
}

// run executes a git command in the repository, returning stdout.
// Failures wrap ErrGitCommand and carry git's stderr so the caller
// sees what git said.
func (r *Repo) run(args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", r.Root}, args...)...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(string(exitErr.Stderr))
			if msg != "" {
				return "", fmt.Errorf("%w: git %s: %s", ErrGitCommand, args[0], msg)
			}
		}
		return "", fmt.Errorf("%w: git %s: %v", ErrGitCommand, args[0], err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Stage adds the given paths to the index. Paths that don't exist on
// disk are skipped; staging nothing is not an error.
func (r *Repo) Stage(paths ...string) error {
	var present []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return nil
	}

	args := append([]string{"add", "--"}, present...)
	if _, err := r.run(args...); err != nil {
		return fmt.Errorf("staging files: %w", err)
	}
	return nil
}

// HasStagedChanges reports whether the index differs from HEAD.
func (r *Repo) HasStagedChanges() (bool, error) {
	cmd := exec.Command("git", "-C", r.Root, "diff", "--cached", "--quiet")
	err := cmd.Run()
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("checking staged changes: %w", err)
}

// Commit records the staged changes under the given author. Returns
// ErrNothingToCommit when the index is clean.
func (r *Repo) Commit(authorName, authorEmail, message string) error {
	staged, err := r.HasStagedChanges()
	if err != nil {
		return err
	}
	if !staged {
		return ErrNothingToCommit
	}

	cmd := exec.Command("git", "-C", r.Root,
		"-c", "user.name="+authorName,
		"-c", "user.email="+authorEmail,
		"commit", "-m", message)
	if _, err := cmd.Output(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(string(exitErr.Stderr))
			if msg != "" {
				return fmt.Errorf("%w: git commit: %s", ErrGitCommand, msg)
			}
		}
		return fmt.Errorf("%w: git commit: %v", ErrGitCommand, err)
	}
	return nil
}

// Push publishes commits to the remote. An empty remote pushes to the
// branch's configured upstream.
func (r *Repo) Push(remote string) error {
	args := []string{"push"}
	if remote != "" {
		args = append(args, remote)
	}
	if _, err := r.run(args...); err != nil {
		return fmt.Errorf("pushing: %w", err)
	}
	return nil
}

// Head returns the SHA of the current commit.
func (r *Repo) Head() (string, error) {
	return r.run("rev-parse", "HEAD")
}
