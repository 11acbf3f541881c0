// Package git wraps the git CLI for the working copies pinfleet keeps of
// each action repository. Every Repository method targets its directory
// with "git -C <dir>".
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Identity is the author and committer recorded on commits.
type Identity struct {
	Name  string
	Email string
}

// Repository is a git working copy at a specific directory.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting dir.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Clone clones url into dir, checking out branch, and returns the new
// working copy. dir must not exist or be empty.
func Clone(ctx context.Context, url, dir, branch string) (*Repository, error) {
	args := []string{"clone", "--quiet"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, "--", url, dir)
	if _, err := run(ctx, "", args...); err != nil {
		return nil, err
	}
	return NewRepository(dir), nil
}

// Run executes a git command in this repository and returns stdout.
// Stderr is included in the error on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	return run(ctx, r.dir, args...)
}

func run(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := args
	if dir != "" {
		fullArgs = append([]string{"-C", dir}, args...)
	}
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr
	command.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := command.Run(); err != nil {
		where := dir
		if where == "" {
			where = "."
		}
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), where, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// AddAll stages every change in the working tree, including deletions.
func (r *Repository) AddAll(ctx context.Context) error {
	_, err := r.Run(ctx, "add", "--all")
	return err
}

// Dirty reports whether the working tree or index differs from HEAD.
func (r *Repository) Dirty(ctx context.Context) (bool, error) {
	out, err := r.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Commit records the staged changes with message. The identity is
// passed on the command line so no global git config is needed.
func (r *Repository) Commit(ctx context.Context, message string, who Identity) error {
	_, err := r.Run(ctx,
		"-c", "user.name="+who.Name,
		"-c", "user.email="+who.Email,
		"commit", "--quiet", "--no-verify", "-m", message)
	return err
}

// RevParse resolves rev to a full object name.
func (r *Repository) RevParse(ctx context.Context, rev string) (string, error) {
	out, err := r.Run(ctx, "rev-parse", "--verify", "--quiet", rev)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RootCommit returns the parentless commit reachable from HEAD. When
// unrelated histories were merged there are several; the oldest wins.
func (r *Repository) RootCommit(ctx context.Context) (string, error) {
	out, err := r.Run(ctx, "rev-list", "--max-parents=0", "--reverse", "HEAD")
	if err != nil {
		return "", err
	}
	root, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	if root == "" {
		return "", fmt.Errorf("git rev-list in %s: no root commit", r.dir)
	}
	return root, nil
}

// ForceTag points the lightweight tag name at commit, moving it if it
// already exists.
func (r *Repository) ForceTag(ctx context.Context, name, commit string) error {
	_, err := r.Run(ctx, "tag", "--force", name, commit)
	return err
}

// PushForce force-pushes refs to remote in a single invocation.
func (r *Repository) PushForce(ctx context.Context, remote string, refs ...string) error {
	args := append([]string{"push", "--force", "--quiet", remote}, refs...)
	_, err := r.Run(ctx, args...)
	return err
}
